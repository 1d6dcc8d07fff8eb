package cli

import (
	"fmt"

	"github.com/Sternrassler/blamebot/pkg/discord"
	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/spf13/cobra"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register slash commands with Discord",
		Long: `Overwrite the application's slash commands.

Commands are registered in discord.guild_id when set (instant), otherwise
globally (may take up to an hour to propagate).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging())

			if err := cfg.RequireDiscord(); err != nil {
				return err
			}

			bot, err := discord.New(cfg.Discord.Token, cfg.Discord.AppID, cfg.Discord.GuildID, nil)
			if err != nil {
				return err
			}

			registered, err := bot.RegisterCommands(cmd.Context())
			if err != nil {
				return err
			}

			for _, c := range registered {
				fmt.Fprintf(cmd.OutOrStdout(), "registered /%s (%s)\n", c.Name, c.ID)
			}
			return nil
		},
	}
}
