package game

import (
	"fmt"
	"time"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// TurnPhase is a state of the per-turn state machine.
type TurnPhase string

const (
	PhaseRefreshKingdom  TurnPhase = "refreshKingdom"
	PhaseKingdomAction   TurnPhase = "kingdomAction"
	PhaseTerritoryAction TurnPhase = "territoryAction"
	PhaseEndOfTurn       TurnPhase = "endOfTurn"
)

// Win reasons recorded on a finished game.
const (
	WinReasonStag         = "stag18"
	WinReasonLastStanding = "lastStanding"
	WinReasonDeckOut      = "deckOut"
)

// PlayerState is one seated player.
type PlayerState struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	SeatIndex              int        `json:"seatIndex"`
	Hand                   []cards.ID `json:"hand"`
	Territory              []cards.ID `json:"territory"`
	TerritoryMagiAsHealing []cards.ID `json:"territoryMagiAsHealing"`
	ContributionsRemaining int        `json:"contributionsRemaining"`
	ContributionsMade      int        `json:"contributionsMade"`
	Ante                   int        `json:"ante"`
	Eliminated             bool       `json:"eliminated"`
}

// LogEntry is one line of the append-only game log.
type LogEntry struct {
	Msg string `json:"msg"`
	Ts  int64  `json:"ts"`
}

// ScoreLine is one player's deck-exhaustion result.
type ScoreLine struct {
	PlayerID      string `json:"playerId"`
	Name          string `json:"name"`
	SeatIndex     int    `json:"seatIndex"`
	StagPoints    int    `json:"stagPoints"`
	Tithes        int    `json:"tithes"`
	Contributions int    `json:"contributions"`
	Score         int    `json:"score"`
	Magi          int    `json:"magi"`
	Healing       int    `json:"healing"`
	Hunts         int    `json:"hunts"`
	KingsCommands int    `json:"kingsCommands"`
	Tied          bool   `json:"tied,omitempty"`
}

// GameState is the authoritative state of one game, hidden information included.
// It is owned by the caller; the engine mutates a private copy per action.
type GameState struct {
	Players            []*PlayerState `json:"players"`
	PlayerOrder        []int          `json:"playerOrder"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	TurnPhase          TurnPhase      `json:"turnPhase"`
	Deck               []cards.ID     `json:"deck"`
	Burned             []cards.ID     `json:"burned"`
	Kingdom            []cards.ID     `json:"kingdom"`
	Discard            []cards.ID     `json:"discard"`
	Pending            PendingAction  `json:"-"`
	Log                []LogEntry     `json:"log"`
	Winner             string         `json:"winner,omitempty"`
	WinReason          string         `json:"winReason,omitempty"`
	Standings          []ScoreLine    `json:"standings,omitempty"`
	Turn               int            `json:"turn"`

	now func() time.Time
}

// Finished reports whether a winner has been declared.
func (s *GameState) Finished() bool {
	return s.Winner != ""
}

// PlayerByID returns the player with the given id.
func (s *GameState) PlayerByID(id string) (*PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PlayerBySeat returns the player sitting at seat.
func (s *GameState) PlayerBySeat(seat int) (*PlayerState, bool) {
	for _, p := range s.Players {
		if p.SeatIndex == seat {
			return p, true
		}
	}
	return nil, false
}

// mustSeat is PlayerBySeat for seats taken from engine-owned queues.
func (s *GameState) mustSeat(seat int) *PlayerState {
	p, ok := s.PlayerBySeat(seat)
	if !ok {
		panic(fmt.Sprintf("no player at seat %d", seat))
	}
	return p
}

// CurrentSeat returns the seat whose turn it is.
func (s *GameState) CurrentSeat() int {
	if len(s.PlayerOrder) == 0 {
		return -1
	}
	return s.PlayerOrder[s.CurrentPlayerIndex]
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() *PlayerState {
	return s.mustSeat(s.CurrentSeat())
}

// opponentSeatsInOrder lists non-eliminated seats clockwise, starting after seat.
func (s *GameState) opponentSeatsInOrder(seat int) []int {
	seats := make([]int, 0, len(s.PlayerOrder))
	idx := indexOf(s.PlayerOrder, seat)
	if idx == -1 {
		return seats
	}
	for i := 1; i < len(s.PlayerOrder); i++ {
		next := s.PlayerOrder[(idx+i)%len(s.PlayerOrder)]
		if !s.mustSeat(next).Eliminated {
			seats = append(seats, next)
		}
	}
	return seats
}

// logf appends a timestamped entry to the game log.
func (s *GameState) logf(format string, args ...any) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.Log = append(s.Log, LogEntry{Msg: fmt.Sprintf(format, args...), Ts: now().UnixMilli()})
}

// AllCards returns every card token in every zone, pending-held cards included.
func (s *GameState) AllCards() []cards.ID {
	all := make([]cards.ID, 0, 64)
	all = append(all, s.Deck...)
	all = append(all, s.Burned...)
	all = append(all, s.Kingdom...)
	all = append(all, s.Discard...)
	for _, p := range s.Players {
		all = append(all, p.Hand...)
		all = append(all, p.Territory...)
	}
	if s.Pending != nil {
		all = append(all, s.Pending.heldCards()...)
	}
	return all
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = make([]*PlayerState, len(s.Players))
	for i, p := range s.Players {
		pc := *p
		pc.Hand = cloneIDs(p.Hand)
		pc.Territory = cloneIDs(p.Territory)
		pc.TerritoryMagiAsHealing = cloneIDs(p.TerritoryMagiAsHealing)
		c.Players[i] = &pc
	}
	c.PlayerOrder = cloneInts(s.PlayerOrder)
	c.Deck = cloneIDs(s.Deck)
	c.Burned = cloneIDs(s.Burned)
	c.Kingdom = cloneIDs(s.Kingdom)
	c.Discard = cloneIDs(s.Discard)
	c.Log = make([]LogEntry, len(s.Log))
	copy(c.Log, s.Log)
	c.Standings = append([]ScoreLine(nil), s.Standings...)
	if s.Pending != nil {
		c.Pending = s.Pending.clone()
	}
	return &c
}

func cloneIDs(ids []cards.ID) []cards.ID {
	out := make([]cards.ID, len(ids))
	copy(out, ids)
	return out
}

func cloneInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}

func indexOf[T comparable](items []T, v T) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return -1
}

func contains[T comparable](items []T, v T) bool {
	return indexOf(items, v) != -1
}

// removeOne deletes the first occurrence of v and reports whether it was present.
func removeOne(items []cards.ID, v cards.ID) ([]cards.ID, bool) {
	idx := indexOf(items, v)
	if idx == -1 {
		return items, false
	}
	return append(items[:idx], items[idx+1:]...), true
}

// hasDuplicates reports whether ids repeats any token.
func hasDuplicates(ids []cards.ID) bool {
	seen := make(map[cards.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
