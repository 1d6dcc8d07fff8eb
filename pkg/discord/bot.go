// Package discord connects the blame views and commands to the Discord
// gateway.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// ErrMissingToken is returned by New without a bot token.
var ErrMissingToken = errors.New("discord bot token is required")

// Bot owns the gateway session.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	appID   string
	guildID string

	ctx    context.Context
	ready  atomic.Bool
	logger zerolog.Logger
}

// New creates a bot. handler may be nil for a bot that only registers
// commands.
func New(token, appID, guildID string, handler *Handler) (*Bot, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session: session,
		handler: handler,
		appID:   appID,
		guildID: guildID,
		ctx:     context.Background(),
		logger:  logging.NewLogger("discord"),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onDisconnect)
	if handler != nil {
		session.AddHandler(b.onInteraction)
	}
	return b, nil
}

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	b.logger.Info().Msg("Gateway connection opened")

	<-ctx.Done()

	b.ready.Store(false)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord gateway: %w", err)
	}
	b.logger.Info().Msg("Gateway connection closed")
	return nil
}

// Ready reports whether the gateway session is established.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

// RegisterCommands overwrites the application's slash commands, in the
// configured guild or globally.
func (b *Bot) RegisterCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	if b.appID == "" {
		return nil, errors.New("discord application id is required")
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.appID, b.guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info().
		Str("guild_id", b.guildID).
		Int("commands", len(registered)).
		Msg("Slash commands registered")
	return registered, nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)

	var username string
	if r.User != nil {
		username = r.User.Username
	}
	b.logger.Info().
		Str("user", username).
		Int("guilds", len(r.Guilds)).
		Msg("Gateway ready")
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.ready.Store(false)
	b.logger.Warn().Msg("Gateway disconnected")
}

func (b *Bot) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	r := &interactionResponder{session: s, interaction: ic.Interaction}
	b.handler.Handle(b.ctx, ic.Interaction, r)
}
