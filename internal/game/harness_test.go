package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stagcourt/stag-server/internal/game/cards"
	"github.com/stagcourt/stag-server/internal/game/rules"
)

var testEpoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(rules.Default(), zaptest.NewLogger(t),
		WithShuffler(rand.New(rand.NewPCG(1, 2)).Shuffle),
		WithClock(func() time.Time { return testEpoch }),
	)
}

// fixtureState seats the named players with empty zones. Player ids are the
// lowercased names. Seat 0 holds the turn in the kingdom action phase.
func fixtureState(names ...string) *GameState {
	s := &GameState{
		Deck:      []cards.ID{},
		Burned:    []cards.ID{},
		Kingdom:   []cards.ID{},
		Discard:   []cards.ID{},
		Log:       []LogEntry{},
		TurnPhase: PhaseKingdomAction,
		Turn:      1,
	}
	for i, name := range names {
		s.Players = append(s.Players, &PlayerState{
			ID:                     strings.ToLower(name),
			Name:                   name,
			SeatIndex:              i,
			Hand:                   []cards.ID{},
			Territory:              []cards.ID{},
			TerritoryMagiAsHealing: []cards.ID{},
			ContributionsRemaining: 12,
			ContributionsMade:      i + 1,
			Ante:                   i + 1,
		})
		s.PlayerOrder = append(s.PlayerOrder, i)
	}
	return s
}

// fillers returns n distinct healing cards numbered from start.
func fillers(start, n int) []cards.ID {
	ids := make([]cards.ID, n)
	for i := range ids {
		ids[i] = cards.New(cards.TypeHealing, 1, start+i)
	}
	return ids
}

func mustApply(t *testing.T, e *Engine, s *GameState, playerID, action string, payload Payload) *GameState {
	t.Helper()
	next, err := e.Apply(s, playerID, action, payload)
	require.NoError(t, err, "%s by %s", action, playerID)
	return next
}

// requireRejected applies an action that must fail and checks the state is untouched.
func requireRejected(t *testing.T, e *Engine, s *GameState, playerID, action string, payload Payload) error {
	t.Helper()
	before := snapshot(t, s)
	next, err := e.Apply(s, playerID, action, payload)
	require.Error(t, err, "%s by %s should be rejected", action, playerID)
	require.True(t, IsRuleError(err), "expected a rule error, got %T", err)
	require.Same(t, s, next)
	require.JSONEq(t, before, snapshot(t, s), "state changed by rejected %s", action)
	return err
}

func snapshot(t *testing.T, s *GameState) string {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return string(raw)
}

func intp(v int) *int { return &v }

func lastLog(s *GameState) string {
	if len(s.Log) == 0 {
		return ""
	}
	return s.Log[len(s.Log)-1].Msg
}

func logContains(s *GameState, msg string) bool {
	for _, entry := range s.Log {
		if entry.Msg == msg {
			return true
		}
	}
	return false
}

func sortedCards(ids []cards.ID) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func describe(s *GameState) string {
	pending := "none"
	if s.Pending != nil {
		pending = fmt.Sprintf("%s(seat %d)", s.Pending.Kind(), s.Pending.Responder())
	}
	return fmt.Sprintf("phase=%s seat=%d pending=%s", s.TurnPhase, s.CurrentSeat(), pending)
}
