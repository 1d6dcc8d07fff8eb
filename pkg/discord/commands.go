package discord

import "github.com/bwmarrin/discordgo"

// Slash command names.
const (
	CommandBlame       = "blame"
	CommandLeaderboard = "leaderboard"
	CommandHistory     = "history"
	CommandArchive     = "archive"
)

const (
	optionUser   = "user"
	optionReason = "reason"
	optionID     = "id"

	maxReasonLength = 300
)

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandBlame,
			Description: "Blame someone for something",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "Who is to blame",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionReason,
					Description: "What they did",
					MaxLength:   maxReasonLength,
				},
			},
		},
		{
			Name:        CommandLeaderboard,
			Description: "Show the most blamed members",
		},
		{
			Name:        CommandHistory,
			Description: "Show the blames against a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "Member to look up (defaults to you)",
				},
			},
		},
		{
			Name:        CommandArchive,
			Description: "Browse archived blames, or archive one by id",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionID,
					Description: "Id of the blame to archive",
				},
			},
		},
	}
}

// stringOption returns the string value of the named option.
func stringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	for _, opt := range opts {
		if opt == nil || opt.Name != name {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString, discordgo.ApplicationCommandOptionUser:
			s, ok := opt.Value.(string)
			return s, ok && s != ""
		}
	}
	return "", false
}

// invoker returns the id of the user who triggered i.
func invoker(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
