package discord

import (
	"time"

	"github.com/Sternrassler/blamebot/pkg/idempotency"
	"github.com/bwmarrin/discordgo"
)

// eventFor converts an interaction into a dedupe event. The creation time
// is taken from the snowflake id; an unparsable id yields the zero time,
// which the guard rejects as expired.
func eventFor(i *discordgo.Interaction) idempotency.Event {
	var created time.Time
	if ts, err := discordgo.SnowflakeTimestamp(i.ID); err == nil {
		created = ts
	}

	return idempotency.Event{
		ID:        i.ID,
		Kind:      kindOf(i.Type),
		CreatedAt: created,
	}
}

func kindOf(t discordgo.InteractionType) idempotency.Kind {
	switch t {
	case discordgo.InteractionApplicationCommand:
		return idempotency.KindCommand
	case discordgo.InteractionMessageComponent:
		return idempotency.KindComponent
	default:
		return idempotency.KindOther
	}
}
