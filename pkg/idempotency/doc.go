// Package idempotency rejects duplicate and expired inbound interactions
// before any handler runs.
//
// Discord may deliver the same interaction more than once (gateway resumes,
// reconnects) and only accepts a response within a short window after the
// interaction was created. The Guard keeps a bounded, in-memory record of
// admitted interaction ids:
//
//	guard := idempotency.NewGuard(idempotency.DefaultConfig())
//	if !guard.Admit(ev.ID, time.Since(ev.CreatedAt)) {
//		return // duplicate or too old to answer
//	}
//
// The record is process-local and starts empty on every start. Once it grows
// past Capacity it is trimmed to the Retain most recently admitted ids, so
// very old ids may be forgotten; such events are already past the deadline.
//
// # Shared deduplication
//
// When several replicas consume the same gateway events, SharedGuard adds a
// Redis claim (SET NX with a TTL of one deadline) after the local check:
//
//	shared := idempotency.NewSharedGuard(guard, idempotency.NewRedisClaimer(redisClient))
//	if !shared.AdmitEvent(ctx, ev) {
//		return
//	}
//
// Redis errors fail open to the local decision.
//
// # Metrics
//
//   - blamebot_events_admitted_total - Admitted interactions
//   - blamebot_events_rejected_total{reason} - Rejected interactions (duplicate, expired, invalid, claimed)
//   - blamebot_event_record_size - Current size of the local record
//   - blamebot_event_claim_errors_total - Failed Redis claims
package idempotency
