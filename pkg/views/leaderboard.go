package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
)

// Ranked is a leaderboard entry with its position across all pages.
type Ranked struct {
	Rank   int
	UserID string
	Count  int
}

// Leaderboard ranks the most blamed users of a guild.
type Leaderboard struct {
	scopeCodec
	src  Reader
	exec *retry.Executor
}

// Fetch implements pagination.View.
func (v *Leaderboard) Fetch(ctx context.Context, page, pageSize int, f Scope) (pagination.Data[Ranked], error) {
	offset := pagination.Offset(page, pageSize)

	return retry.Run(ctx, v.exec, "leaderboard", func(ctx context.Context) (pagination.Data[Ranked], error) {
		entries, total, err := v.src.Leaderboard(ctx, f.GuildID, offset, pageSize)
		if err != nil {
			return pagination.Data[Ranked]{}, err
		}

		ranked := make([]Ranked, len(entries))
		for i, e := range entries {
			ranked[i] = Ranked{Rank: offset + i + 1, UserID: e.UserID, Count: e.Count}
		}
		return pagination.NewData(ranked, total, page, pageSize), nil
	})
}

// Render implements pagination.View.
func (v *Leaderboard) Render(data pagination.Data[Ranked], _ Scope) pagination.Embed {
	embed := pagination.Embed{
		Title:  "Blame Leaderboard",
		Color:  colorLeaderboard,
		Footer: fmt.Sprintf("Page %d/%d · %s", data.CurrentPage, data.TotalPages, plural(data.TotalCount, "user")),
	}

	if len(data.Items) == 0 {
		embed.Description = "Nobody has been blamed yet."
		return embed
	}

	lines := make([]string, 0, len(data.Items))
	for _, e := range data.Items {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s> · %s", e.Rank, e.UserID, plural(e.Count, "blame")))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}
