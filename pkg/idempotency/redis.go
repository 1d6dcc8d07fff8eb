package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKeyPrefix namespaces interaction claims in Redis.
const DefaultKeyPrefix = "blamebot:interaction"

var claimErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "blamebot_event_claim_errors_total",
	Help: "Total number of failed Redis interaction claims",
})

// Claimer claims an interaction id across processes.
// Claim returns true for exactly one caller per id within ttl.
type Claimer interface {
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// RedisClaimer implements Claimer with SET NX.
type RedisClaimer struct {
	redis  *redis.Client
	prefix string
	owner  string
}

// NewRedisClaimer creates a claimer using the default key prefix.
func NewRedisClaimer(redisClient *redis.Client) *RedisClaimer {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisClaimer{
		redis:  redisClient,
		prefix: DefaultKeyPrefix,
		owner:  "1",
	}
}

// WithOwner stores owner as the claim value, useful to see which replica
// handled an interaction.
func (c *RedisClaimer) WithOwner(owner string) *RedisClaimer {
	if owner != "" {
		c.owner = owner
	}
	return c
}

// Key returns the Redis key for an interaction id.
//
// Example:
//
//	blamebot:interaction:1187654321098765432
func (c *RedisClaimer) Key(id string) string {
	return strings.Join([]string{c.prefix, id}, ":")
}

// Claim implements Claimer.
func (c *RedisClaimer) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := c.redis.SetNX(ctx, c.Key(id), c.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// SharedGuard combines the local Guard with a cross-process Claimer.
type SharedGuard struct {
	local   *Guard
	claimer Claimer
	logger  zerolog.Logger
}

// NewSharedGuard creates a SharedGuard.
func NewSharedGuard(local *Guard, claimer Claimer) *SharedGuard {
	return &SharedGuard{
		local:   local,
		claimer: claimer,
		logger:  log.With().Str("component", "idempotency").Logger(),
	}
}

// AdmitEvent implements Admitter. The local record is consulted first so a
// duplicate never reaches Redis.
func (s *SharedGuard) AdmitEvent(ctx context.Context, ev Event) bool {
	if !s.local.AdmitEvent(ctx, ev) {
		return false
	}

	ok, err := s.claimer.Claim(ctx, ev.ID, s.local.Config().Deadline)
	if err != nil {
		claimErrorsTotal.Inc()
		s.logger.Warn().
			Err(err).
			Str("event_id", ev.ID).
			Msg("Interaction claim failed, falling back to local dedupe")
		return true
	}

	if !ok {
		eventsRejectedTotal.WithLabelValues(ReasonClaimed).Inc()
		s.logger.Debug().
			Str("event_id", ev.ID).
			Msg("Interaction already claimed by another replica")
		return false
	}

	return true
}
