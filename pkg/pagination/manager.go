package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GenericFailureMessage is shown when a failure carries no message of its own.
const GenericFailureMessage = "Something went wrong. Please try again later."

// DefaultPageSize is the page size used when Config.PageSize is not set.
const DefaultPageSize = 10

// Prometheus metrics for paginated views.
var (
	pageRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_page_renders_total",
		Help: "Total number of rendered pages by command",
	}, []string{"command"})

	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_page_fetches_total",
		Help: "Total number of page fetches by command",
	}, []string{"command"})

	pageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_page_failures_total",
		Help: "Total number of page requests answered with a failure message by command",
	}, []string{"command"})

	componentsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_components_ignored_total",
		Help: "Total number of undecodable pagination controls by command",
	}, []string{"command"})

	repliesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blamebot_replies_discarded_total",
		Help: "Total number of replies dropped because the interaction had expired",
	})

	replyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blamebot_reply_failures_total",
		Help: "Total number of terminal reply failures",
	})
)

var controlLabels = map[Action]string{
	ActionFirst:   "⏮ First",
	ActionPrev:    "◀ Prev",
	ActionRefresh: "🔄 Refresh",
	ActionNext:    "Next ▶",
	ActionLast:    "Last ⏭",
}

// Config holds the configuration of one paginated view.
type Config struct {
	// CommandKey prefixes every token of the view.
	CommandKey string

	// PageSize is the number of items per page.
	PageSize int

	// Ephemeral makes the initial reply visible to the invoking user only.
	Ephemeral bool
}

// Manager answers page requests and navigation for one View.
// It holds no per-session state; everything needed to resume a view travels
// in the control tokens.
type Manager[T, F any] struct {
	view    View[T, F]
	filters FilterCodec[F]
	config  Config
	logger  zerolog.Logger
}

// NewManager creates a manager for view. The filter codec is taken from the
// view when it implements FilterCodec[F].
func NewManager[T, F any](view View[T, F], cfg Config) (*Manager[T, F], error) {
	if cfg.CommandKey == "" || strings.Contains(cfg.CommandKey, Delimiter) {
		return nil, fmt.Errorf("command key %q: %w", cfg.CommandKey, ErrInvalidCommand)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	filters, err := filterCodecFor(view)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", cfg.CommandKey, err)
	}

	return &Manager[T, F]{
		view:    view,
		filters: filters,
		config:  cfg,
		logger:  log.With().Str("component", "pagination").Str("command", cfg.CommandKey).Logger(),
	}, nil
}

// CommandKey returns the view's command key.
func (m *Manager[T, F]) CommandKey() string {
	return m.config.CommandKey
}

// Token encodes a control token for filter at page.
func (m *Manager[T, F]) Token(action Action, page int, filter F) (string, error) {
	params, err := m.filters.FilterParams(filter)
	if err != nil {
		return "", err
	}
	return Encode(Session{CommandKey: m.config.CommandKey, Action: action, Page: page, Params: params})
}

// HandleInitialCommand replies with page 1.
func (m *Manager[T, F]) HandleInitialCommand(ctx context.Context, r Responder, filter F) error {
	return m.RespondWithPage(ctx, r, 1, m.config.Ephemeral, filter)
}

// RespondWithPage fetches page, clamps it into range and replies with the
// rendered page and fresh controls.
func (m *Manager[T, F]) RespondWithPage(ctx context.Context, r Responder, page int, ephemeral bool, filter F) error {
	return m.respond(ctx, r, page, ephemeral, false, filter, nil)
}

// HandleComponent handles a navigation control. It returns false when the
// token does not belong to this view or does not decode; such events are
// ignored without a reply.
func (m *Manager[T, F]) HandleComponent(ctx context.Context, r Responder, token string) (bool, error) {
	session, ok := Decode(token, m.config.CommandKey)
	if !ok {
		componentsIgnoredTotal.WithLabelValues(m.config.CommandKey).Inc()
		m.logger.Debug().Str("custom_id", token).Msg("Ignoring undecodable pagination control")
		return false, nil
	}

	filter, err := m.filters.ParseFilter(session.Params)
	if err != nil {
		componentsIgnoredTotal.WithLabelValues(m.config.CommandKey).Inc()
		m.logger.Debug().Err(err).Str("custom_id", token).Msg("Ignoring pagination control with bad filter")
		return false, nil
	}

	if !session.Action.needsTotal() {
		// The upper bound is enforced after the fetch.
		target := Resolve(session.Action, session.Page, session.Page)
		return true, m.respond(ctx, r, target, m.config.Ephemeral, true, filter, nil)
	}

	current, err := m.fetch(ctx, session.Page, filter)
	if err != nil {
		return true, m.fail(ctx, r, err)
	}

	target := Resolve(session.Action, session.Page, current.TotalPages)
	m.logger.Debug().
		Str("action", session.Action.String()).
		Int("page", session.Page).
		Int("target", target).
		Int("total_pages", current.TotalPages).
		Msg("Resolved navigation")

	return true, m.respond(ctx, r, target, m.config.Ephemeral, true, filter, &current)
}

// respond renders target. known is reused when it already holds target.
func (m *Manager[T, F]) respond(ctx context.Context, r Responder, target int, ephemeral, update bool, filter F, known *Data[T]) error {
	params, err := m.filters.FilterParams(filter)
	if err != nil {
		return m.fail(ctx, r, err)
	}
	if target < 1 {
		target = 1
	}

	var data Data[T]
	if known != nil && known.CurrentPage == target {
		data = *known
	} else {
		data, err = m.fetch(ctx, target, filter)
		if err != nil {
			return m.fail(ctx, r, err)
		}
	}

	if data.CurrentPage > data.TotalPages {
		data, err = m.fetch(ctx, data.TotalPages, filter)
		if err != nil {
			return m.fail(ctx, r, err)
		}
		data.CurrentPage = clamp(data.CurrentPage, data.TotalPages)
	}

	controls, err := m.controls(data.CurrentPage, data.TotalPages, params)
	if err != nil {
		return m.fail(ctx, r, err)
	}

	embed := m.view.Render(data, filter)
	pageRendersTotal.WithLabelValues(m.config.CommandKey).Inc()

	return m.reply(ctx, r, Reply{
		Embed:     &embed,
		Controls:  controls,
		Ephemeral: ephemeral,
		Update:    update,
	})
}

// fetch loads page and recomputes TotalPages from TotalCount.
func (m *Manager[T, F]) fetch(ctx context.Context, page int, filter F) (Data[T], error) {
	pageFetchesTotal.WithLabelValues(m.config.CommandKey).Inc()

	data, err := m.view.Fetch(ctx, page, m.config.PageSize, filter)
	if err != nil {
		return Data[T]{}, err
	}

	data.CurrentPage = page
	data.TotalPages = TotalPages(data.TotalCount, m.config.PageSize)

	m.logger.Debug().
		Int("page", page).
		Int("items", len(data.Items)).
		Int("total_pages", data.TotalPages).
		Msg("Fetched page")

	return data, nil
}

// controls builds the navigation buttons for page.
func (m *Manager[T, F]) controls(page, totalPages int, params []string) ([]Control, error) {
	controls := make([]Control, 0, len(navigationActions))
	for _, action := range navigationActions {
		token, err := Encode(Session{
			CommandKey: m.config.CommandKey,
			Action:     action,
			Page:       page,
			Params:     params,
		})
		if err != nil {
			return nil, err
		}

		var disabled bool
		switch action {
		case ActionFirst, ActionPrev:
			disabled = page <= 1
		case ActionNext, ActionLast:
			disabled = page >= totalPages
		}

		controls = append(controls, Control{
			Action:   action,
			Label:    controlLabels[action],
			CustomID: token,
			Disabled: disabled,
		})
	}
	return controls, nil
}

// fail replies with a user-facing failure. Data-access errors are fully
// handled here; anything else is returned unchanged.
func (m *Manager[T, F]) fail(ctx context.Context, r Responder, err error) error {
	pageFailuresTotal.WithLabelValues(m.config.CommandKey).Inc()

	message := GenericFailureMessage
	dae, isDataAccess := retry.AsDataAccessError(err)
	if isDataAccess {
		message = dae.Error()
		m.logger.Error().
			Str("operation", dae.Op).
			Str("category", string(dae.Category)).
			Int("attempts", dae.Attempts).
			Err(dae.Err).
			Msg("Page request failed")
	} else {
		m.logger.Error().Err(err).Msg("Page request failed")
	}

	replyErr := m.reply(ctx, r, Reply{Content: message, Ephemeral: true})
	if isDataAccess {
		return replyErr
	}
	if replyErr != nil {
		m.logger.Error().Err(replyErr).Msg("Failure reply not delivered")
	}
	return err
}

// reply sends rep. Replies to expired interactions are dropped silently;
// other failures are terminal and never retried.
func (m *Manager[T, F]) reply(ctx context.Context, r Responder, rep Reply) error {
	err := r.Respond(ctx, rep)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInteractionExpired) {
		repliesDiscardedTotal.Inc()
		m.logger.Debug().Err(err).Msg("Discarding reply to expired interaction")
		return nil
	}

	replyFailuresTotal.Inc()
	return fmt.Errorf("%w: %w", ErrReplyFailed, err)
}
