package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
)

// History lists the active blames against one user.
type History struct {
	src  Reader
	exec *retry.Executor
}

// Fetch implements pagination.View.
func (v *History) Fetch(ctx context.Context, page, pageSize int, f HistoryFilter) (pagination.Data[store.Blame], error) {
	return retry.Run(ctx, v.exec, "history", func(ctx context.Context) (pagination.Data[store.Blame], error) {
		blames, total, err := v.src.History(ctx, f.GuildID, f.UserID, pagination.Offset(page, pageSize), pageSize)
		if err != nil {
			return pagination.Data[store.Blame]{}, err
		}
		return pagination.NewData(blames, total, page, pageSize), nil
	})
}

// Render implements pagination.View.
func (v *History) Render(data pagination.Data[store.Blame], f HistoryFilter) pagination.Embed {
	embed := pagination.Embed{
		Title:  "Blame History",
		Color:  colorHistory,
		Footer: footer(data),
	}

	if len(data.Items) == 0 {
		embed.Description = fmt.Sprintf("<@%s> has a clean record.", f.UserID)
		return embed
	}

	embed.Description = fmt.Sprintf("Blames against <@%s>", f.UserID)
	embed.Fields = blameFields(data.Items)
	return embed
}

// FilterParams implements pagination.FilterCodec.
func (v *History) FilterParams(f HistoryFilter) ([]string, error) {
	return []string{f.GuildID, f.UserID}, nil
}

// ParseFilter implements pagination.FilterCodec.
func (v *History) ParseFilter(params []string) (HistoryFilter, error) {
	if len(params) != 2 || !isSnowflake(params[0]) || !isSnowflake(params[1]) {
		return HistoryFilter{}, ErrBadFilter
	}
	return HistoryFilter{GuildID: params[0], UserID: params[1]}, nil
}

func blameFields(blames []store.Blame) []pagination.EmbedField {
	fields := make([]pagination.EmbedField, 0, len(blames))
	for _, b := range blames {
		reason := strings.TrimSpace(b.Reason)
		if reason == "" {
			reason = "_no reason given_"
		}
		fields = append(fields, pagination.EmbedField{
			Name:  fmt.Sprintf("<t:%d:R> · %s", b.CreatedAt.Unix(), b.ID),
			Value: fmt.Sprintf("%s\nby <@%s>", truncate(reason, maxReasonLength), b.BlamerID),
		})
	}
	return fields
}
