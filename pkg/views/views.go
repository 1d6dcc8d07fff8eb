// Package views implements the paginated blame views on top of the store.
package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
)

// Command keys of the paginated views.
const (
	LeaderboardKey = "lb"
	HistoryKey     = "hist"
	ArchiveKey     = "arch"
)

const (
	colorLeaderboard = 0xE67E22
	colorHistory     = 0x3498DB
	colorArchive     = 0x95A5A6

	maxReasonLength = 200
)

// ErrBadFilter is returned by ParseFilter for parameters that are not ids.
var ErrBadFilter = errors.New("invalid view filter")

// Reader is the read side of the blame store.
type Reader interface {
	Leaderboard(ctx context.Context, guildID string, offset, limit int) ([]store.LeaderboardEntry, int, error)
	History(ctx context.Context, guildID, userID string, offset, limit int) ([]store.Blame, int, error)
	Archived(ctx context.Context, guildID string, offset, limit int) ([]store.Blame, int, error)
}

// Scope restricts a view to one guild.
type Scope struct {
	GuildID string
}

// HistoryFilter selects the blames against one user.
type HistoryFilter struct {
	GuildID string
	UserID  string
}

// Set holds a manager per view.
type Set struct {
	Leaderboard *pagination.Manager[Ranked, Scope]
	History     *pagination.Manager[store.Blame, HistoryFilter]
	Archive     *pagination.Manager[store.Blame, Scope]
}

// NewSet builds the managers for all views.
func NewSet(src Reader, exec *retry.Executor, pageSize int) (*Set, error) {
	lb, err := pagination.NewManager[Ranked, Scope](
		&Leaderboard{src: src, exec: exec},
		pagination.Config{CommandKey: LeaderboardKey, PageSize: pageSize},
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard view: %w", err)
	}

	hist, err := pagination.NewManager[store.Blame, HistoryFilter](
		&History{src: src, exec: exec},
		pagination.Config{CommandKey: HistoryKey, PageSize: pageSize},
	)
	if err != nil {
		return nil, fmt.Errorf("history view: %w", err)
	}

	arch, err := pagination.NewManager[store.Blame, Scope](
		&Archive{src: src, exec: exec},
		pagination.Config{CommandKey: ArchiveKey, PageSize: pageSize},
	)
	if err != nil {
		return nil, fmt.Errorf("archive view: %w", err)
	}

	return &Set{Leaderboard: lb, History: hist, Archive: arch}, nil
}

// HandleComponent routes token to the view that owns it.
func (s *Set) HandleComponent(ctx context.Context, r pagination.Responder, token string) (bool, error) {
	switch pagination.CommandOf(token) {
	case LeaderboardKey:
		return s.Leaderboard.HandleComponent(ctx, r, token)
	case HistoryKey:
		return s.History.HandleComponent(ctx, r, token)
	case ArchiveKey:
		return s.Archive.HandleComponent(ctx, r, token)
	default:
		return false, nil
	}
}

// scopeCodec maps Scope to a single guild id parameter.
type scopeCodec struct{}

func (scopeCodec) FilterParams(f Scope) ([]string, error) {
	return []string{f.GuildID}, nil
}

func (scopeCodec) ParseFilter(params []string) (Scope, error) {
	if len(params) != 1 || !isSnowflake(params[0]) {
		return Scope{}, ErrBadFilter
	}
	return Scope{GuildID: params[0]}, nil
}

// isSnowflake reports whether s looks like a Discord id.
func isSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func footer(data pagination.Data[store.Blame]) string {
	return fmt.Sprintf("Page %d/%d · %s", data.CurrentPage, data.TotalPages, plural(data.TotalCount, "blame"))
}
