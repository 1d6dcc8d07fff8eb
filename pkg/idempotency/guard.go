package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for interaction deduplication.
var (
	eventsAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blamebot_events_admitted_total",
		Help: "Total number of inbound interactions admitted for processing",
	})

	eventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_events_rejected_total",
		Help: "Total number of inbound interactions rejected by reason",
	}, []string{"reason"})

	eventRecordSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blamebot_event_record_size",
		Help: "Number of interaction ids currently held by the local record",
	})
)

// Rejection reasons used as metric labels.
const (
	ReasonDuplicate = "duplicate"
	ReasonExpired   = "expired"
	ReasonInvalid   = "invalid"
	ReasonClaimed   = "claimed"
)

// Kind is the kind of an inbound interaction.
type Kind string

const (
	// KindCommand is a slash command invocation.
	KindCommand Kind = "command"

	// KindComponent is a message component (button) activation.
	KindComponent Kind = "component"

	// KindOther covers autocomplete, modals and anything else.
	KindOther Kind = "other"
)

// Event is the part of an inbound interaction the guard looks at.
type Event struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
}

// Admitter decides whether an event may be processed.
type Admitter interface {
	AdmitEvent(ctx context.Context, ev Event) bool
}

// Config holds guard configuration.
type Config struct {
	// Deadline is the response window. Older events are rejected.
	Deadline time.Duration

	// Capacity is the record size that triggers trimming.
	Capacity int

	// Retain is the number of most recent ids kept after trimming.
	Retain int
}

// DefaultConfig returns the Discord defaults: a 3 second acknowledgement
// window, trimming at 1000 ids down to the newest 500.
func DefaultConfig() Config {
	return Config{
		Deadline: 3 * time.Second,
		Capacity: 1000,
		Retain:   500,
	}
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// WithLogger sets the guard's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// Guard is the process-wide record of admitted interaction ids.
type Guard struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []string
	config Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewGuard creates an empty guard. Non-positive values fall back to defaults
// and Retain is clamped below Capacity.
func NewGuard(cfg Config, opts ...Option) *Guard {
	def := DefaultConfig()
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Retain <= 0 || cfg.Retain >= cfg.Capacity {
		cfg.Retain = cfg.Capacity / 2
	}

	g := &Guard{
		seen:   make(map[string]struct{}, cfg.Capacity+1),
		order:  make([]string, 0, cfg.Capacity+1),
		config: cfg,
		now:    time.Now,
		logger: log.With().Str("component", "idempotency").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the guard's effective configuration.
func (g *Guard) Config() Config {
	return g.config
}

// Admit records id and returns true, unless id was admitted before or age
// exceeds the deadline.
func (g *Guard) Admit(id string, age time.Duration) bool {
	if id == "" {
		eventsRejectedTotal.WithLabelValues(ReasonInvalid).Inc()
		return false
	}

	if age > g.config.Deadline {
		eventsRejectedTotal.WithLabelValues(ReasonExpired).Inc()
		g.logger.Debug().
			Str("event_id", id).
			Dur("age", age).
			Msg("Rejected expired interaction")
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[id]; ok {
		eventsRejectedTotal.WithLabelValues(ReasonDuplicate).Inc()
		g.logger.Debug().Str("event_id", id).Msg("Rejected duplicate interaction")
		return false
	}

	g.seen[id] = struct{}{}
	g.order = append(g.order, id)

	if len(g.order) > g.config.Capacity {
		g.trim()
	}

	eventsAdmittedTotal.Inc()
	eventRecordSize.Set(float64(len(g.order)))
	return true
}

// AdmitEvent admits ev using the guard's clock to compute its age.
func (g *Guard) AdmitEvent(_ context.Context, ev Event) bool {
	age := g.now().Sub(ev.CreatedAt)
	if age < 0 {
		age = 0
	}
	return g.Admit(ev.ID, age)
}

// trim keeps the Retain most recently admitted ids. Callers hold g.mu.
func (g *Guard) trim() {
	dropped := len(g.order) - g.config.Retain

	kept := make([]string, g.config.Retain, g.config.Capacity+1)
	copy(kept, g.order[dropped:])

	seen := make(map[string]struct{}, g.config.Capacity+1)
	for _, id := range kept {
		seen[id] = struct{}{}
	}

	g.order = kept
	g.seen = seen

	g.logger.Debug().
		Int("dropped", dropped).
		Int("retained", len(kept)).
		Msg("Trimmed interaction record")
}

// Len returns the number of ids currently held.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Contains reports whether id is currently held.
func (g *Guard) Contains(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[id]
	return ok
}
