// Package pagination implements stateless, button-driven pagination for
// Discord interactions.
//
// Discord message components carry a custom_id of at most 100 characters and
// the platform has no notion of server-held sessions. Every navigation
// control therefore carries the complete state needed to resume its view:
//
//	command:action:page[:param...]
//
// for example "hist:next:2:123456789012345678:987654321098765432". Parameters
// are positional and may not contain ':'; Encode fails instead of truncating.
// Decode returns false for anything malformed and callers ignore such events.
//
// A Manager drives one View:
//
//	mgr, err := pagination.NewManager[Entry, Scope](view, pagination.Config{
//		CommandKey: "lb",
//		PageSize:   10,
//	})
//	err = mgr.HandleInitialCommand(ctx, responder, Scope{GuildID: guildID})
//	handled, err := mgr.HandleComponent(ctx, responder, customID)
//
// The page count is never trusted from a token. next and last fetch the
// current page first to learn the live page count, then fetch the target page
// when it differs; first, prev, refresh and page jumps fetch once. Requested
// pages past the end are clamped to the last page.
//
// Replies that fail because the interaction expired are discarded. Data-access
// failures (retry.DataAccessError) are answered with their stable message;
// other errors are answered generically and returned to the caller.
package pagination
