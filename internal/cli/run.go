package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/blamebot/pkg/config"
	"github.com/Sternrassler/blamebot/pkg/discord"
	"github.com/Sternrassler/blamebot/pkg/idempotency"
	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
	"github.com/Sternrassler/blamebot/pkg/views"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errNotConnected = errors.New("gateway not connected")

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve interactions",
		Long: `Connect to the Discord gateway and handle blame commands.

The HTTP listener on http.addr serves /health, /ready and /metrics.
With redis.enabled, interaction ids are claimed in Redis so that several
replicas never process the same interaction twice.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBot(ctx, cfg, opts.Version)
		},
	}
}

func runBot(ctx context.Context, cfg *config.Config, version string) error {
	if err := cfg.RequireDiscord(); err != nil {
		return err
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	exec := retry.NewExecutor(cfg.RetryPolicy())

	set, err := views.NewSet(db, exec, cfg.Pagination.PageSize)
	if err != nil {
		return err
	}

	guard, closeGuard, err := newAdmitter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGuard()

	handler := discord.NewHandler(guard, set, db, exec)
	bot, err := discord.New(cfg.Discord.Token, cfg.Discord.AppID, cfg.Discord.GuildID, handler)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: newServeMux(
			readinessCheck{name: "database", check: db.Ping},
			readinessCheck{name: "discord", check: func(context.Context) error {
				if !bot.Ready() {
					return errNotConnected
				}
				return nil
			}},
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().
		Str("version", version).
		Str("http_addr", cfg.HTTP.Addr).
		Int("page_size", cfg.Pagination.PageSize).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Starting blamebot")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})
	g.Go(func() error {
		return serve(gctx, srv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("blamebot stopped")
	return nil
}

// newAdmitter returns the local guard, or a Redis-backed shared guard when
// enabled.
func newAdmitter(ctx context.Context, cfg *config.Config) (idempotency.Admitter, func(), error) {
	local := idempotency.NewGuard(cfg.GuardPolicy())
	if !cfg.Redis.Enabled {
		return local, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	owner, _ := os.Hostname()
	claimer := idempotency.NewRedisClaimer(rdb).WithOwner(owner)

	return idempotency.NewSharedGuard(local, claimer), func() { rdb.Close() }, nil
}
