package game

import (
	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// maxAutoAdvanceSteps bounds one sweep. A full sweep needs at most an
// end-of-turn advance followed by a refresh.
const maxAutoAdvanceSteps = 16

// autoAdvance runs every phase that needs no player input, stopping at the
// first phase or pending action that does, or when the game ends.
func (e *Engine) autoAdvance(s *GameState) {
	for step := 0; step < maxAutoAdvanceSteps; step++ {
		if s.Finished() || s.Pending != nil {
			return
		}
		switch s.TurnPhase {
		case PhaseRefreshKingdom:
			if !e.refreshKingdom(s) {
				return
			}
			s.TurnPhase = PhaseKingdomAction
			return
		case PhaseEndOfTurn:
			p := s.CurrentPlayer()
			limit := e.HandLimit(p)
			if len(p.Hand) > limit {
				s.Pending = &DiscardToHandLimit{PlayerSeat: p.SeatIndex, MustDiscard: len(p.Hand) - limit}
				return
			}
			e.advanceTurn(s)
		default:
			return
		}
	}
	e.logger.Error("auto-advance did not settle",
		zap.String("phase", string(s.TurnPhase)),
		zap.Int("steps", maxAutoAdvanceSteps),
	)
}

// refreshKingdom tops the kingdom back up to its full size at turn start.
// It returns false when the deck ran out and the game was scored.
func (e *Engine) refreshKingdom(s *GameState) bool {
	if len(s.Kingdom) >= e.rules.KingdomSize {
		return true
	}
	discardKingdom(s)
	if !e.burnCard(s) {
		e.triggerDeckExhaustion(s)
		return false
	}
	for i := 0; i < e.rules.KingdomSize; i++ {
		if !e.dealToKingdom(s) {
			e.triggerDeckExhaustion(s)
			return false
		}
	}
	return true
}

// advanceTurn passes the turn to the next seat in turn order.
func (e *Engine) advanceTurn(s *GameState) {
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.PlayerOrder)
	s.TurnPhase = PhaseRefreshKingdom
	s.Pending = nil
	s.Turn++
	s.logf("--- %s's turn ---", s.CurrentPlayer().Name)
}

// HandLimit is the base limit plus one for every territory Magi that is not
// flagged as healing-only.
func (e *Engine) HandLimit(p *PlayerState) int {
	bonus := cards.Count(p.Territory, cards.TypeMagi) - len(p.TerritoryMagiAsHealing)
	if bonus < 0 {
		bonus = 0
	}
	return e.rules.BaseHandLimit + bonus
}
