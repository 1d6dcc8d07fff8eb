package views

import (
	"context"

	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
)

// Archive lists the archived blames of a guild.
type Archive struct {
	scopeCodec
	src  Reader
	exec *retry.Executor
}

// Fetch implements pagination.View.
func (v *Archive) Fetch(ctx context.Context, page, pageSize int, f Scope) (pagination.Data[store.Blame], error) {
	return retry.Run(ctx, v.exec, "archive", func(ctx context.Context) (pagination.Data[store.Blame], error) {
		blames, total, err := v.src.Archived(ctx, f.GuildID, pagination.Offset(page, pageSize), pageSize)
		if err != nil {
			return pagination.Data[store.Blame]{}, err
		}
		return pagination.NewData(blames, total, page, pageSize), nil
	})
}

// Render implements pagination.View.
func (v *Archive) Render(data pagination.Data[store.Blame], _ Scope) pagination.Embed {
	embed := pagination.Embed{
		Title:  "Blame Archive",
		Color:  colorArchive,
		Footer: footer(data),
	}

	if len(data.Items) == 0 {
		embed.Description = "The archive is empty."
		return embed
	}

	embed.Fields = blameFields(data.Items)
	for i, b := range data.Items {
		embed.Fields[i].Value += "\nagainst <@" + b.BlamedID + ">"
	}
	return embed
}
