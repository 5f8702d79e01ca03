package game

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game/cards"
	"github.com/stagcourt/stag-server/internal/game/rules"
)

// Engine applies player actions to game states. It holds no game state of its
// own and is safe for concurrent use; callers serialize actions per game.
type Engine struct {
	rules   *rules.Ruleset
	logger  *zap.Logger
	shuffle cards.Shuffler
	clock   func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithShuffler replaces the shuffle source, mainly for deterministic tests.
func WithShuffler(shuffle cards.Shuffler) Option {
	return func(e *Engine) { e.shuffle = shuffle }
}

// WithClock replaces the clock used for log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an engine for a ruleset. A nil ruleset uses the default.
func NewEngine(rs *rules.Ruleset, logger *zap.Logger, opts ...Option) *Engine {
	if rs == nil {
		rs = rules.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		rules:   rs,
		logger:  logger,
		shuffle: cards.DefaultShuffler,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's ruleset.
func (e *Engine) Rules() *rules.Ruleset {
	return e.rules
}

// Seat is a joined player about to be seated. Seats are numbered by slice order.
type Seat struct {
	ID   string
	Name string
}

// NewGame deals a fresh game: seat i antes i+1 and is dealt 2+ante cards, then
// one card is burned and the kingdom is dealt.
func (e *Engine) NewGame(seats []Seat) (*GameState, error) {
	if len(seats) < e.rules.MinSeats || len(seats) > e.rules.MaxSeats {
		return nil, fmt.Errorf("need %d-%d players, got %d", e.rules.MinSeats, e.rules.MaxSeats, len(seats))
	}
	seen := make(map[string]struct{}, len(seats))
	for _, seat := range seats {
		if strings.TrimSpace(seat.ID) == "" {
			return nil, fmt.Errorf("player id is required")
		}
		if _, dup := seen[seat.ID]; dup {
			return nil, fmt.Errorf("duplicate player id %s", seat.ID)
		}
		seen[seat.ID] = struct{}{}
	}

	s := &GameState{
		Players:   make([]*PlayerState, 0, len(seats)),
		Deck:      cards.NewDeck(e.rules.Composition, e.shuffle),
		Burned:    []cards.ID{},
		Kingdom:   []cards.ID{},
		Discard:   []cards.ID{},
		Log:       []LogEntry{},
		TurnPhase: PhaseKingdomAction,
		Turn:      1,
		now:       e.clock,
	}
	s.logf("Game started!")

	for i, seat := range seats {
		ante := i + 1
		p := &PlayerState{
			ID:                     seat.ID,
			Name:                   seat.Name,
			SeatIndex:              i,
			Hand:                   []cards.ID{},
			Territory:              []cards.ID{},
			TerritoryMagiAsHealing: []cards.ID{},
			ContributionsRemaining: e.rules.StartingContributions,
			ContributionsMade:      ante,
			Ante:                   ante,
		}
		deal := 2 + ante
		if !e.drawInto(s, p, deal) {
			return nil, fmt.Errorf("deck too small to deal %d players", len(seats))
		}
		s.Players = append(s.Players, p)
		s.PlayerOrder = append(s.PlayerOrder, i)
		s.logf("%s antes %d and receives %d cards.", p.Name, ante, deal)
	}

	if !e.burnCard(s) {
		return nil, fmt.Errorf("deck too small to burn")
	}
	for i := 0; i < e.rules.KingdomSize; i++ {
		if !e.dealToKingdom(s) {
			return nil, fmt.Errorf("deck too small to deal the kingdom")
		}
	}
	s.logf("--- %s's turn ---", s.CurrentPlayer().Name)

	e.logger.Debug("game dealt", zap.Int("players", len(seats)), zap.Int("deck", len(s.Deck)))
	return s, nil
}

// Apply validates and applies one action. On error the input state is returned
// unchanged; on success a new state is returned and the input is not modified.
func (e *Engine) Apply(state *GameState, playerID, action string, payload Payload) (*GameState, error) {
	next := state.Clone()
	next.now = e.clock
	if err := e.dispatch(next, playerID, action, payload); err != nil {
		e.logger.Debug("action rejected",
			zap.String("player_id", playerID),
			zap.String("action", action),
			zap.Error(err),
		)
		return state, err
	}
	e.logger.Debug("action applied",
		zap.String("player_id", playerID),
		zap.String("action", action),
		zap.String("phase", string(next.TurnPhase)),
	)
	return next, nil
}
