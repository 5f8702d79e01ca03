package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayHealing puts a healing card into territory. It has no on-play effect.
func (e *Engine) handlePlayHealing(s *GameState, player *PlayerState, cardID cards.ID) error {
	playToTerritory(player, cardID)
	s.logf("%s plays %s to territory.", player.Name, cards.DisplayName(cardID))
	s.TurnPhase = PhaseEndOfTurn
	return nil
}

// handleNoTerritory is the fallback when the hand holds only stags: reveal the
// hand, burn, and draw.
func (e *Engine) handleNoTerritory(s *GameState, player *PlayerState) error {
	if s.TurnPhase != PhaseTerritoryAction {
		return phaseErr("not in territory action phase")
	}
	if hasTerritoryCard(player) {
		return selectionErr("you have non-stag cards you must play")
	}

	revealed := "an empty hand"
	if len(player.Hand) > 0 {
		revealed = cards.DisplayNames(player.Hand)
	}
	s.logf("%s reveals %s (no non-Stag cards to play).", player.Name, revealed)

	for i := 0; i < e.rules.NoTerritory.Burn; i++ {
		if !e.burnCard(s) {
			e.triggerDeckExhaustion(s)
			return nil
		}
	}
	if !e.drawInto(s, player, e.rules.NoTerritory.Draw) {
		e.triggerDeckExhaustion(s)
		return nil
	}
	s.logf("%s draws %d cards.", player.Name, e.rules.NoTerritory.Draw)
	s.TurnPhase = PhaseEndOfTurn
	return nil
}

// handleDiscardToHandLimit discards the exact overage chosen by the player.
func (e *Engine) handleDiscardToHandLimit(s *GameState, player *PlayerState, pending *DiscardToHandLimit, cardIDs []cards.ID) error {
	if err := validateHandSelection(player, cardIDs, pending.MustDiscard); err != nil {
		return err
	}

	s.logf("%s discards %s to hand limit.", player.Name, cards.DisplayNames(cardIDs))
	s.Pending = nil
	e.discardAllWithAtonement(s, player, cardIDs)
	return nil
}

// hasTerritoryCard reports whether the hand holds any card playable to territory.
func hasTerritoryCard(p *PlayerState) bool {
	for _, id := range p.Hand {
		if !cards.Is(id, cards.TypeStag) {
			return true
		}
	}
	return false
}

// validateHandSelection checks an exact-count selection of distinct hand cards.
func validateHandSelection(p *PlayerState, ids []cards.ID, want int) error {
	if len(ids) != want {
		return selectionErr("must select exactly %d card(s), got %d", want, len(ids))
	}
	if hasDuplicates(ids) {
		return selectionErr("duplicate cards in selection")
	}
	for _, id := range ids {
		if !contains(p.Hand, id) {
			return selectionErr("card %s is not in your hand", id)
		}
	}
	return nil
}
