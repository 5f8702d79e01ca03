package table

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/game/rules"
	"github.com/stagcourt/stag-server/internal/replay"
	"github.com/stagcourt/stag-server/internal/repository"
)

type countingNotifier struct {
	mu      sync.Mutex
	changes map[string]int
}

func (n *countingNotifier) GameChanged(gameID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.changes == nil {
		n.changes = make(map[string]int)
	}
	n.changes[gameID]++
}

func (n *countingNotifier) count(gameID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.changes[gameID]
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(rules.Default(), logger, game.WithShuffler(rand.New(rand.NewPCG(7, 7)).Shuffle))
	opts = append([]Option{WithPlayerIDs(sequence("p")), WithCodeGenerator(sequence("GAME"))}, opts...)
	return NewService(repository.NewMemoryStore(), engine, logger, opts...)
}

func TestCreateCleansNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	joined, err := svc.Create(ctx, "  "+strings.Repeat("é", 25)+"  ")
	require.NoError(t, err)
	assert.Equal(t, "GAME1", joined.GameID)

	view, err := svc.View(ctx, joined.GameID, joined.PlayerID)
	require.NoError(t, err)
	require.NotNil(t, view.Lobby)
	assert.Equal(t, strings.Repeat("é", 20), view.Lobby.Players[0].Name)
	assert.True(t, view.Lobby.Players[0].IsMe)
}

func TestCreateRetriesCodeCollisions(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	i := 0
	svc := newTestService(t, WithCodeGenerator(func() string {
		code := codes[min(i, len(codes)-1)]
		i++
		return code
	}))
	ctx := context.Background()

	first, err := svc.Create(ctx, "Ann")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.GameID)
	assert.Equal(t, "BBBBBB", second.GameID)

	_, err = svc.Create(ctx, "Cat")
	assert.ErrorIs(t, err, ErrCodeExhausted)
}

func TestRandomCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := randomCode()
		assert.Len(t, code, codeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
	}
}

func TestJoinAndStartRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	host, err := svc.Create(ctx, "Ann")
	require.NoError(t, err)

	err = svc.Start(ctx, host.GameID, host.PlayerID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = svc.Join(ctx, host.GameID, "")
	assert.ErrorIs(t, err, ErrNameRequired)

	var guests []*Joined
	for _, name := range []string{"Bob", "Cat", "Dan", "Eve", "Fay"} {
		g, err := svc.Join(ctx, host.GameID, name)
		require.NoError(t, err)
		guests = append(guests, g)
	}
	_, err = svc.Join(ctx, host.GameID, "Gus")
	assert.ErrorIs(t, err, ErrGameFull)

	_, err = svc.Join(ctx, "NOPE99", "Gus")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.Start(ctx, host.GameID, guests[0].PlayerID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Start(ctx, host.GameID, host.PlayerID))
	assert.ErrorIs(t, svc.Start(ctx, host.GameID, host.PlayerID), ErrAlreadyStarted)
	_, err = svc.Join(ctx, host.GameID, "Gus")
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	ids, err := svc.Seats(ctx, host.GameID)
	require.NoError(t, err)
	assert.Equal(t, []string{host.PlayerID, guests[0].PlayerID, guests[1].PlayerID, guests[2].PlayerID, guests[3].PlayerID, guests[4].PlayerID}, ids)
}

func TestStartedGameViews(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	host, err := svc.Create(ctx, "Ann")
	require.NoError(t, err)
	guest, err := svc.Join(ctx, host.GameID, "Bob")
	require.NoError(t, err)

	_, err = svc.Act(ctx, host.GameID, host.PlayerID, game.ActionDrawCard, game.Payload{})
	assert.ErrorIs(t, err, ErrNotInProgress)

	require.NoError(t, svc.Start(ctx, host.GameID, host.PlayerID))

	view, err := svc.View(ctx, host.GameID, guest.PlayerID)
	require.NoError(t, err)
	require.NotNil(t, view.Game)
	assert.Equal(t, repository.PhasePlaying, view.Phase())
	assert.Len(t, view.Game.MyHand, 4)
	assert.False(t, view.Game.IsMyTurn)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, host.GameID, decoded["gameId"])
	assert.Equal(t, "playing", decoded["phase"])
	assert.Contains(t, decoded, "myHand")

	_, err = svc.View(ctx, host.GameID, "stranger")
	assert.True(t, game.IsRuleError(err))
	_, err = svc.View(ctx, host.GameID, "")
	assert.ErrorIs(t, err, ErrMissingPlayer)
}

func TestActCommitsAndNotifies(t *testing.T) {
	notifier := &countingNotifier{}
	svc := newTestService(t)
	svc.SetNotifier(notifier)
	ctx := context.Background()

	host, err := svc.Create(ctx, "Ann")
	require.NoError(t, err)
	guest, err := svc.Join(ctx, host.GameID, "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx, host.GameID, host.PlayerID))
	assert.Equal(t, 2, notifier.count(host.GameID))

	_, err = svc.Act(ctx, host.GameID, guest.PlayerID, game.ActionDrawCard, game.Payload{})
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))
	assert.Equal(t, 2, notifier.count(host.GameID))

	view, err := svc.Act(ctx, host.GameID, host.PlayerID, game.ActionDrawCard, game.Payload{})
	require.NoError(t, err)
	assert.Len(t, view.Game.MyHand, 4)
	assert.Equal(t, game.PhaseTerritoryAction, view.Game.TurnPhase)
	assert.Equal(t, 3, notifier.count(host.GameID))

	_, err = svc.Act(ctx, host.GameID, "", game.ActionDrawCard, game.Payload{})
	assert.ErrorIs(t, err, ErrMissingPlayer)
}

func TestJournalRecordsEveryCommittedStep(t *testing.T) {
	journal, err := replay.NewJournal(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	svc := newTestService(t, WithJournal(journal))
	ctx := context.Background()

	host, err := svc.Create(ctx, "Ann")
	require.NoError(t, err)
	_, err = svc.Join(ctx, host.GameID, "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx, host.GameID, host.PlayerID))
	_, err = svc.Act(ctx, host.GameID, host.PlayerID, game.ActionDrawCard, game.Payload{})
	require.NoError(t, err)
	_, err = svc.Act(ctx, host.GameID, host.PlayerID, game.ActionDrawCard, game.Payload{})
	require.Error(t, err, "second draw is out of phase")
	require.NoError(t, journal.Close())

	entries, err := replay.ReadFile(journal.Path(host.GameID))
	require.NoError(t, err)
	require.NoError(t, replay.Verify(entries))

	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{"create", "join", "start", game.ActionDrawCard}, actions)

	row, err := svc.store.Get(ctx, host.GameID)
	require.NoError(t, err)
	assert.Equal(t, row.Digest, entries[3].Digest)
	assert.Equal(t, row.Version, entries[3].Seq)
}
