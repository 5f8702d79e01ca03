package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

func TestDeckOutScoresSurvivors(t *testing.T) {
	e := newTestEngine(t)
	s := fixtureState("Ann", "Bob", "Cat")
	s.Players[0].Territory = []cards.ID{"stag-5-1", "tithe-1-1"}
	s.Players[1].Territory = []cards.ID{"stag-4-1", "magi-1-1", "tithe-1-2"}
	s.Players[2].Territory = []cards.ID{"stag-6-1", "stag-6-2", "tithe-1-3"}
	s.Players[2].Eliminated = true
	s.PlayerOrder = []int{0, 1}
	s.Kingdom = fillers(10, 3)

	s = mustApply(t, e, s, "ann", ActionDrawCard, Payload{})

	require.True(t, s.Finished())
	assert.Equal(t, "bob", s.Winner)
	assert.Equal(t, WinReasonDeckOut, s.WinReason)
	assert.Nil(t, s.Pending)
	require.Len(t, s.Standings, 2)

	assert.Equal(t, ScoreLine{
		PlayerID: "bob", Name: "Bob", SeatIndex: 1,
		StagPoints: 4, Tithes: 1, Contributions: 2, Score: 9, Magi: 1,
	}, s.Standings[0])
	assert.Equal(t, 9, s.Standings[1].Score)
	assert.False(t, s.Standings[0].Tied)

	assert.True(t, logContains(s, "The deck has run out! Scoring final results..."))
	assert.True(t, logContains(s, "Ann: 5 Stag + 3 Tithe(1x3) + 1 contributions = 9"))
	assert.Equal(t, "Bob wins!", lastLog(s))

	err := requireRejected(t, e, s, "bob", ActionDrawCard, Payload{})
	assert.Contains(t, err.Error(), "already over")
}

func TestDrawReshufflesDiscardBeforeExhausting(t *testing.T) {
	e := newTestEngine(t)
	s := fixtureState("Ann", "Bob")
	s.Discard = []cards.ID{"hunt-1-1"}
	s.Kingdom = fillers(10, 3)

	s = mustApply(t, e, s, "ann", ActionDrawCard, Payload{})
	assert.False(t, s.Finished())
	assert.Equal(t, []cards.ID{"hunt-1-1"}, s.Players[0].Hand)
	assert.Empty(t, s.Discard)
	assert.True(t, logContains(s, "Discard pile shuffled into deck."))
}

func TestRankStandingsTiebreaks(t *testing.T) {
	tests := []struct {
		name  string
		lines []ScoreLine
		want  []string
	}{
		{
			name: "score",
			lines: []ScoreLine{
				{PlayerID: "a", Score: 7},
				{PlayerID: "b", Score: 11},
			},
			want: []string{"b", "a"},
		},
		{
			name: "healing after magi",
			lines: []ScoreLine{
				{PlayerID: "a", Score: 8, Magi: 1, Healing: 0},
				{PlayerID: "b", Score: 8, Magi: 1, Healing: 2},
			},
			want: []string{"b", "a"},
		},
		{
			name: "hunts",
			lines: []ScoreLine{
				{PlayerID: "a", Score: 5, Hunts: 1},
				{PlayerID: "b", Score: 5, Hunts: 3},
				{PlayerID: "c", Score: 6},
			},
			want: []string{"c", "b", "a"},
		},
		{
			name: "kings commands",
			lines: []ScoreLine{
				{PlayerID: "a", Score: 5, KingsCommands: 1},
				{PlayerID: "b", Score: 5, KingsCommands: 2},
			},
			want: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := RankStandings(tt.lines)
			got := make([]string, len(ranked))
			for i, line := range ranked {
				got[i] = line.PlayerID
				assert.False(t, line.Tied)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankStandingsFlagsFullTies(t *testing.T) {
	lines := []ScoreLine{
		{PlayerID: "a", SeatIndex: 0, Score: 4, Magi: 1},
		{PlayerID: "b", SeatIndex: 1, Score: 6, Healing: 1},
		{PlayerID: "c", SeatIndex: 2, Score: 6, Healing: 1},
	}
	ranked := RankStandings(lines)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].PlayerID)
	assert.Equal(t, "c", ranked[1].PlayerID)
	assert.True(t, ranked[0].Tied)
	assert.True(t, ranked[1].Tied)
	assert.False(t, ranked[2].Tied)
	assert.False(t, lines[1].Tied, "input must not be mutated")
}

func TestStagWinAtThreshold(t *testing.T) {
	e := newTestEngine(t)
	s := fixtureState("Ann", "Bob")
	s.Players[0].Territory = []cards.ID{"stag-6-1", "stag-6-2"}
	s.Players[0].Hand = []cards.ID{"stag-6-3", "hunt-1-1", "hunt-1-2", "hunt-1-3"}
	s.Kingdom = fillers(10, 3)

	s = mustApply(t, e, s, "ann", ActionPlayStag, Payload{
		CardID:     "stag-6-3",
		DiscardIDs: []cards.ID{"hunt-1-1", "hunt-1-2", "hunt-1-3"},
	})
	assert.Equal(t, "ann", s.Winner)
	assert.Equal(t, WinReasonStag, s.WinReason)
	assert.Equal(t, 18, StagPoints(s.Players[0]))
	assert.Nil(t, s.Pending)
	assert.Equal(t, "Ann reaches 18 Stag Points and wins!", lastLog(s))
}
