package views

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Sternrassler/blamebot/internal/testutil"
	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/Sternrassler/blamebot/pkg/store"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guild   = "100000000000000001"
	alice   = "200000000000000001"
	bob     = "200000000000000002"
	blamer  = "300000000000000001"
	otherGd = "100000000000000002"
)

func fastExecutor() *retry.Executor {
	return retry.NewExecutor(retry.Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Timeout:    time.Second,
	})
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addBlames(t *testing.T, s *store.Store, guildID, userID string, n int) []store.Blame {
	t.Helper()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]store.Blame, 0, n)
	for i := 0; i < n; i++ {
		b := store.Blame{
			GuildID:   guildID,
			BlamedID:  userID,
			BlamerID:  blamer,
			Reason:    fmt.Sprintf("incident %d", i+1),
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.AddBlame(context.Background(), &b))
		out = append(out, b)
	}
	return out
}

func newSet(t *testing.T, src Reader) *Set {
	t.Helper()
	set, err := NewSet(src, fastExecutor(), 10)
	require.NoError(t, err)
	return set
}

func lastReply(t *testing.T, r *testutil.MockResponder) pagination.Reply {
	t.Helper()
	rep, ok := r.Last()
	require.True(t, ok)
	return rep
}

func TestHistory_TwentyThreeBlames(t *testing.T) {
	s := openStore(t)
	addBlames(t, s, guild, alice, 23)
	set := newSet(t, s)
	r := testutil.NewMockResponder()
	ctx := context.Background()
	filter := HistoryFilter{GuildID: guild, UserID: alice}

	require.NoError(t, set.History.HandleInitialCommand(ctx, r, filter))
	rep := lastReply(t, r)
	assert.Equal(t, "Page 1/3 · 23 blames", rep.Embed.Footer)
	require.Len(t, rep.Embed.Fields, 10)
	assert.Contains(t, rep.Embed.Fields[0].Value, "incident 23")

	next, ok := r.Control(pagination.ActionNext)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("hist:next:1:%s:%s", guild, alice), next.CustomID)

	// Jump past the end clamps to the last page.
	require.NoError(t, set.History.RespondWithPage(ctx, r, 10, false, filter))
	rep = lastReply(t, r)
	assert.Equal(t, "Page 3/3 · 23 blames", rep.Embed.Footer)
	require.Len(t, rep.Embed.Fields, 3)

	refresh, ok := r.Control(pagination.ActionRefresh)
	require.True(t, ok)
	handled, err := set.HandleComponent(ctx, r, refresh.CustomID)
	require.NoError(t, err)
	assert.True(t, handled)

	refreshed := lastReply(t, r)
	assert.Equal(t, rep.Embed.Fields, refreshed.Embed.Fields)
	assert.True(t, refreshed.Update)

	first, ok := r.Control(pagination.ActionFirst)
	require.True(t, ok)
	_, err = set.HandleComponent(ctx, r, first.CustomID)
	require.NoError(t, err)
	assert.Equal(t, "Page 1/3 · 23 blames", lastReply(t, r).Embed.Footer)
}

func TestHistory_NextSeesNewData(t *testing.T) {
	s := openStore(t)
	addBlames(t, s, guild, alice, 10)
	set := newSet(t, s)
	r := testutil.NewMockResponder()
	ctx := context.Background()

	require.NoError(t, set.History.HandleInitialCommand(ctx, r, HistoryFilter{GuildID: guild, UserID: alice}))
	next, _ := r.Control(pagination.ActionNext)
	assert.True(t, next.Disabled)

	addBlames(t, s, guild, alice, 5)

	_, err := set.HandleComponent(ctx, r, next.CustomID)
	require.NoError(t, err)
	assert.Equal(t, "Page 2/2 · 15 blames", lastReply(t, r).Embed.Footer)
}

func TestHistory_EmptyRecord(t *testing.T) {
	set := newSet(t, openStore(t))
	r := testutil.NewMockResponder()

	require.NoError(t, set.History.HandleInitialCommand(context.Background(), r, HistoryFilter{GuildID: guild, UserID: bob}))

	rep := lastReply(t, r)
	assert.Contains(t, rep.Embed.Description, "clean record")
	assert.Equal(t, "Page 1/1 · 0 blames", rep.Embed.Footer)
}

func TestLeaderboard_RanksAcrossPages(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 12; i++ {
		addBlames(t, s, guild, fmt.Sprintf("2000000000000001%02d", i), i+1)
	}
	addBlames(t, s, otherGd, alice, 50)
	set := newSet(t, s)
	r := testutil.NewMockResponder()
	ctx := context.Background()

	require.NoError(t, set.Leaderboard.HandleInitialCommand(ctx, r, Scope{GuildID: guild}))
	rep := lastReply(t, r)
	assert.Equal(t, "Page 1/2 · 12 users", rep.Embed.Footer)
	assert.Contains(t, rep.Embed.Description, "**1.** <@200000000000000111> · 12 blames")

	last, _ := r.Control(pagination.ActionLast)
	_, err := set.HandleComponent(ctx, r, last.CustomID)
	require.NoError(t, err)

	rep = lastReply(t, r)
	assert.Equal(t, "Page 2/2 · 12 users", rep.Embed.Footer)
	assert.Contains(t, rep.Embed.Description, "**11.** <@200000000000000101> · 2 blames")
	assert.Contains(t, rep.Embed.Description, "**12.** <@200000000000000100> · 1 blame")
}

func TestArchive_ListsArchivedOnly(t *testing.T) {
	s := openStore(t)
	blames := addBlames(t, s, guild, alice, 3)
	require.NoError(t, s.Archive(context.Background(), guild, blames[1].ID))
	set := newSet(t, s)
	r := testutil.NewMockResponder()

	require.NoError(t, set.Archive.HandleInitialCommand(context.Background(), r, Scope{GuildID: guild}))

	rep := lastReply(t, r)
	assert.Equal(t, "Page 1/1 · 1 blame", rep.Embed.Footer)
	require.Len(t, rep.Embed.Fields, 1)
	assert.Contains(t, rep.Embed.Fields[0].Name, blames[1].ID)
	assert.Contains(t, rep.Embed.Fields[0].Value, "against <@"+alice+">")
}

func TestSet_IgnoresUnknownAndMalformedTokens(t *testing.T) {
	set := newSet(t, openStore(t))
	r := testutil.NewMockResponder()

	tokens := []string{
		"",
		"unknown:next:1",
		"lb:next:1",
		"lb:next:1:not-a-guild",
		"hist:next:1:" + guild,
		"arch:next:1:" + guild + ":extra",
	}
	for _, token := range tokens {
		handled, err := set.HandleComponent(context.Background(), r, token)
		assert.NoError(t, err, token)
		assert.False(t, handled, token)
	}
	assert.Empty(t, r.Replies())
}

func TestFilterCodecs(t *testing.T) {
	var sc scopeCodec
	params, err := sc.FilterParams(Scope{GuildID: guild})
	require.NoError(t, err)
	got, err := sc.ParseFilter(params)
	require.NoError(t, err)
	assert.Equal(t, Scope{GuildID: guild}, got)

	h := &History{}
	params, err = h.FilterParams(HistoryFilter{GuildID: guild, UserID: alice})
	require.NoError(t, err)
	assert.Equal(t, []string{guild, alice}, params)
	hf, err := h.ParseFilter(params)
	require.NoError(t, err)
	assert.Equal(t, HistoryFilter{GuildID: guild, UserID: alice}, hf)

	_, err = h.ParseFilter([]string{guild})
	assert.ErrorIs(t, err, ErrBadFilter)
	_, err = sc.ParseFilter([]string{"12a"})
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ääää…", truncate("ääääääää", 5))
}

func newMockSet(t *testing.T) (*Set, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSet(t, store.New(sqlx.NewDb(db, "sqlmock"))), mock
}

func TestLeaderboard_RetriesConnectionErrors(t *testing.T) {
	set, mock := newMockSet(t)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT COUNT\\(DISTINCT blamed_id\\)").
			WithArgs(guild).
			WillReturnError(syscall.ECONNREFUSED)
	}

	r := testutil.NewMockResponder()
	err := set.Leaderboard.HandleInitialCommand(context.Background(), r, Scope{GuildID: guild})
	require.NoError(t, err)

	rep := lastReply(t, r)
	assert.Equal(t, retry.MessageConnection, rep.Content)
	assert.True(t, rep.Ephemeral)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_RecoversAfterTransientError(t *testing.T) {
	set, mock := newMockSet(t)

	mock.ExpectQuery("SELECT COUNT\\(DISTINCT blamed_id\\)").
		WithArgs(guild).
		WillReturnError(syscall.ECONNRESET)
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT blamed_id\\)").
		WithArgs(guild).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT blamed_id AS user_id").
		WithArgs(guild, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "blame_count"}).AddRow(alice, 4))

	r := testutil.NewMockResponder()
	require.NoError(t, set.Leaderboard.HandleInitialCommand(context.Background(), r, Scope{GuildID: guild}))

	rep := lastReply(t, r)
	require.NotNil(t, rep.Embed)
	assert.Contains(t, rep.Embed.Description, "**1.** <@"+alice+"> · 4 blames")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_NonRetryableErrorFailsOnce(t *testing.T) {
	set, mock := newMockSet(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM blames").
		WithArgs(guild, alice).
		WillReturnError(errors.New("no such table: blames"))

	r := testutil.NewMockResponder()
	err := set.History.HandleInitialCommand(context.Background(), r, HistoryFilter{GuildID: guild, UserID: alice})
	require.NoError(t, err)

	assert.Equal(t, retry.MessageUnknown, lastReply(t, r).Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}
