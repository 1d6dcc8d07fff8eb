package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/blamebot/pkg/idempotency"
	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
	"github.com/Sternrassler/blamebot/pkg/views"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome is the result of handling one interaction.
type Outcome string

const (
	// OutcomeHandled means a handler ran and replied.
	OutcomeHandled Outcome = "handled"
	// OutcomeRejected means the guard refused the event.
	OutcomeRejected Outcome = "rejected"
	// OutcomeIgnored means no handler claimed the event.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed means a handler returned an error.
	OutcomeFailed Outcome = "failed"
)

const guildOnlyMessage = "This command only works in a server."

// Prometheus metrics for interaction handling.
var (
	interactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_interactions_total",
		Help: "Total number of inbound interactions by kind and outcome",
	}, []string{"kind", "outcome"})

	interactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blamebot_interaction_duration_seconds",
		Help:    "Time spent handling admitted interactions by kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 3, 10, 30},
	}, []string{"kind"})

	blamesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blamebot_blames_recorded_total",
		Help: "Total number of recorded blames",
	})
)

// Writer is the write side of the blame store.
type Writer interface {
	AddBlame(ctx context.Context, b *store.Blame) error
	Archive(ctx context.Context, guildID, id string) error
}

// Handler dispatches admitted interactions. It does not depend on a live
// gateway session; replies go through the Responder passed to Handle.
type Handler struct {
	guard  idempotency.Admitter
	views  *views.Set
	writer Writer
	exec   *retry.Executor
	now    func() time.Time
	logger zerolog.Logger
}

// NewHandler creates a handler.
func NewHandler(guard idempotency.Admitter, set *views.Set, writer Writer, exec *retry.Executor) *Handler {
	return &Handler{
		guard:  guard,
		views:  set,
		writer: writer,
		exec:   exec,
		now:    time.Now,
		logger: logging.NewLogger("discord"),
	}
}

// Handle consults the guard once and runs the matching handler.
func (h *Handler) Handle(ctx context.Context, i *discordgo.Interaction, r pagination.Responder) Outcome {
	ev := eventFor(i)
	logger := h.logger.With().Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Logger()

	if !h.guard.AdmitEvent(ctx, ev) {
		interactionsTotal.WithLabelValues(string(ev.Kind), string(OutcomeRejected)).Inc()
		return OutcomeRejected
	}

	start := h.now()
	outcome, err := h.dispatch(ctx, i, r)
	interactionDuration.WithLabelValues(string(ev.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome = OutcomeFailed
		logger.Error().Err(err).Msg("Interaction handler failed")
	} else if outcome == OutcomeIgnored {
		logger.Debug().Msg("Interaction ignored")
	}

	interactionsTotal.WithLabelValues(string(ev.Kind), string(outcome)).Inc()
	return outcome
}

func (h *Handler) dispatch(ctx context.Context, i *discordgo.Interaction, r pagination.Responder) (Outcome, error) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return h.handleCommand(ctx, i, r)

	case discordgo.InteractionMessageComponent:
		handled, err := h.views.HandleComponent(ctx, r, i.MessageComponentData().CustomID)
		if !handled {
			return OutcomeIgnored, err
		}
		return OutcomeHandled, err

	default:
		return OutcomeIgnored, nil
	}
}

func (h *Handler) handleCommand(ctx context.Context, i *discordgo.Interaction, r pagination.Responder) (Outcome, error) {
	data := i.ApplicationCommandData()

	if i.GuildID == "" {
		return OutcomeHandled, respond(ctx, r, pagination.Reply{Content: guildOnlyMessage, Ephemeral: true})
	}

	switch data.Name {
	case CommandBlame:
		return OutcomeHandled, h.blame(ctx, i, data.Options, r)

	case CommandLeaderboard:
		return OutcomeHandled, h.views.Leaderboard.HandleInitialCommand(ctx, r, views.Scope{GuildID: i.GuildID})

	case CommandHistory:
		user, ok := stringOption(data.Options, optionUser)
		if !ok {
			user = invoker(i)
		}
		filter := views.HistoryFilter{GuildID: i.GuildID, UserID: user}
		return OutcomeHandled, h.views.History.HandleInitialCommand(ctx, r, filter)

	case CommandArchive:
		if id, ok := stringOption(data.Options, optionID); ok {
			return OutcomeHandled, h.archive(ctx, i.GuildID, strings.TrimSpace(id), r)
		}
		return OutcomeHandled, h.views.Archive.HandleInitialCommand(ctx, r, views.Scope{GuildID: i.GuildID})

	default:
		return OutcomeIgnored, nil
	}
}

func (h *Handler) blame(ctx context.Context, i *discordgo.Interaction, opts []*discordgo.ApplicationCommandInteractionDataOption, r pagination.Responder) error {
	blamed, ok := stringOption(opts, optionUser)
	if !ok {
		return respond(ctx, r, pagination.Reply{Content: "Tell me who to blame.", Ephemeral: true})
	}
	reason, _ := stringOption(opts, optionReason)

	b := &store.Blame{
		ID:        uuid.NewString(),
		GuildID:   i.GuildID,
		BlamedID:  blamed,
		BlamerID:  invoker(i),
		Reason:    strings.TrimSpace(reason),
		CreatedAt: h.now().UTC(),
	}

	err := h.exec.Do(ctx, "add_blame", func(ctx context.Context) error {
		return h.writer.AddBlame(ctx, b)
	})
	if err != nil {
		return h.fail(ctx, r, err)
	}
	blamesRecordedTotal.Inc()

	content := fmt.Sprintf("<@%s> blamed <@%s>.", b.BlamerID, b.BlamedID)
	if b.Reason != "" {
		content = fmt.Sprintf("<@%s> blamed <@%s>: %s", b.BlamerID, b.BlamedID, b.Reason)
	}
	return respond(ctx, r, pagination.Reply{Content: content})
}

func (h *Handler) archive(ctx context.Context, guildID, id string, r pagination.Responder) error {
	err := h.exec.Do(ctx, "archive_blame", func(ctx context.Context) error {
		return h.writer.Archive(ctx, guildID, id)
	})

	switch {
	case err == nil:
		return respond(ctx, r, pagination.Reply{Content: fmt.Sprintf("Archived blame `%s`.", id)})
	case errors.Is(err, store.ErrNotFound):
		return respond(ctx, r, pagination.Reply{Content: fmt.Sprintf("No active blame with id `%s`.", id), Ephemeral: true})
	default:
		return h.fail(ctx, r, err)
	}
}

// fail replies with the data-access message, or a generic one.
func (h *Handler) fail(ctx context.Context, r pagination.Responder, err error) error {
	message := pagination.GenericFailureMessage
	if dae, ok := retry.AsDataAccessError(err); ok {
		message = dae.Error()
		h.logger.Error().Str("detail", dae.Detail()).Msg("Command failed")
		return respond(ctx, r, pagination.Reply{Content: message, Ephemeral: true})
	}

	if replyErr := respond(ctx, r, pagination.Reply{Content: message, Ephemeral: true}); replyErr != nil {
		h.logger.Error().Err(replyErr).Msg("Failure reply not delivered")
	}
	return err
}

// respond sends a reply. Expired interactions are dropped; other failures
// are wrapped in pagination.ErrReplyFailed.
func respond(ctx context.Context, r pagination.Responder, reply pagination.Reply) error {
	err := r.Respond(ctx, reply)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pagination.ErrInteractionExpired):
		log.Debug().Str("component", "discord").Err(err).Msg("Discarding reply to expired interaction")
		return nil
	default:
		return fmt.Errorf("%w: %w", pagination.ErrReplyFailed, err)
	}
}
