// Package store persists blame records in SQLite.
//
// Every read is side-effect free and every write is keyed by a
// client-generated id, so all operations can be repeated by the retry
// executor without changing the outcome.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when no active blame matches.
	ErrNotFound = errors.New("blame not found")

	// ErrInvalidBlame is returned by AddBlame for records missing an id field.
	ErrInvalidBlame = errors.New("blame requires guild, blamed and blamer ids")
)

// Blame is one recorded blame event.
type Blame struct {
	ID        string    `db:"id"`
	GuildID   string    `db:"guild_id"`
	BlamedID  string    `db:"blamed_id"`
	BlamerID  string    `db:"blamer_id"`
	Reason    string    `db:"reason"`
	Archived  bool      `db:"archived"`
	CreatedAt time.Time `db:"created_at"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID string `db:"user_id"`
	Count  int    `db:"blame_count"`
}

// Store provides access to the blames table.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("component", "store").Str("path", path).Msg("Database opened")

	return &Store{db: db}, nil
}

// New wraps an existing connection. The schema is assumed to be in place.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// AddBlame inserts b. A missing ID or CreatedAt is filled in on b.
// Inserting the same ID twice is a no-op.
func (s *Store) AddBlame(ctx context.Context, b *Blame) error {
	if strings.TrimSpace(b.GuildID) == "" || strings.TrimSpace(b.BlamedID) == "" || strings.TrimSpace(b.BlamerID) == "" {
		return ErrInvalidBlame
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT OR IGNORE INTO blames (id, guild_id, blamed_id, blamer_id, reason, archived, created_at)
		VALUES (:id, :guild_id, :blamed_id, :blamer_id, :reason, :archived, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("failed to insert blame: %w", err)
	}
	return nil
}

// Leaderboard ranks users of guildID by active blame count, most blamed
// first. It returns one page of entries and the number of ranked users.
func (s *Store) Leaderboard(ctx context.Context, guildID string, offset, limit int) ([]LeaderboardEntry, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT blamed_id)
		FROM blames
		WHERE guild_id = ? AND archived = 0`

	if err := s.db.GetContext(ctx, &total, countQuery, guildID); err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard: %w", err)
	}

	entries := []LeaderboardEntry{}
	query := `
		SELECT blamed_id AS user_id, COUNT(*) AS blame_count
		FROM blames
		WHERE guild_id = ? AND archived = 0
		GROUP BY blamed_id
		ORDER BY blame_count DESC, user_id ASC
		LIMIT ? OFFSET ?`

	if err := s.db.SelectContext(ctx, &entries, query, guildID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	return entries, total, nil
}

// History lists active blames against userID in guildID, newest first.
func (s *Store) History(ctx context.Context, guildID, userID string, offset, limit int) ([]Blame, int, error) {
	return s.list(ctx, "history", "guild_id = ? AND blamed_id = ? AND archived = 0", offset, limit, guildID, userID)
}

// Archived lists archived blames in guildID, newest first.
func (s *Store) Archived(ctx context.Context, guildID string, offset, limit int) ([]Blame, int, error) {
	return s.list(ctx, "archive", "guild_id = ? AND archived = 1", offset, limit, guildID)
}

func (s *Store) list(ctx context.Context, name, where string, offset, limit int, args ...any) ([]Blame, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM blames WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", name, err)
	}

	blames := []Blame{}
	query := `
		SELECT id, guild_id, blamed_id, blamer_id, reason, archived, created_at
		FROM blames
		WHERE ` + where + `
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`

	if err := s.db.SelectContext(ctx, &blames, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", name, err)
	}
	return blames, total, nil
}

// Archive marks the active blame id in guildID as archived.
// Archiving an already archived blame returns ErrNotFound.
func (s *Store) Archive(ctx context.Context, guildID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE blames SET archived = 1 WHERE guild_id = ? AND id = ? AND archived = 0",
		guildID, id)
	if err != nil {
		return fmt.Errorf("failed to archive blame: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to archive blame: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
