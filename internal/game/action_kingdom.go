package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handleDrawCard is kingdom action A: draw one card.
func (e *Engine) handleDrawCard(s *GameState, player *PlayerState) error {
	if s.TurnPhase != PhaseKingdomAction {
		return phaseErr("not in kingdom action phase")
	}
	card, ok := e.drawCard(s)
	if !ok {
		e.triggerDeckExhaustion(s)
		return nil
	}
	player.Hand = append(player.Hand, card)
	s.logf("%s draws a card.", player.Name)
	s.TurnPhase = PhaseTerritoryAction
	return nil
}

// handleDraftKingdom is kingdom action B: the active player takes one kingdom
// card, then each opponent clockwise takes one through a pending draft.
func (e *Engine) handleDraftKingdom(s *GameState, player *PlayerState, cardID cards.ID) error {
	if s.TurnPhase != PhaseKingdomAction {
		return phaseErr("not in kingdom action phase")
	}
	if len(s.Kingdom) == 0 {
		return selectionErr("kingdom is empty")
	}
	if !takeFromKingdom(s, player, cardID) {
		return selectionErr("card is not in the kingdom")
	}
	s.logf("%s drafts %s from the Kingdom.", player.Name, cards.DisplayName(cardID))

	opponents := s.opponentSeatsInOrder(player.SeatIndex)
	if len(opponents) > 0 && len(s.Kingdom) > 0 {
		s.Pending = &DraftKingdom{
			CurrentDrafterSeat:    opponents[0],
			RemainingDrafterSeats: opponents[1:],
		}
		return nil
	}
	discardKingdom(s)
	s.TurnPhase = PhaseTerritoryAction
	return nil
}

// handleDraftKingdomPick resolves one opponent pick of a kingdom draft.
func (e *Engine) handleDraftKingdomPick(s *GameState, player *PlayerState, pending *DraftKingdom, cardID cards.ID) error {
	if !takeFromKingdom(s, player, cardID) {
		return selectionErr("card is not in the kingdom")
	}
	s.logf("%s drafts %s from the Kingdom.", player.Name, cards.DisplayName(cardID))

	if len(pending.RemainingDrafterSeats) > 0 && len(s.Kingdom) > 0 {
		s.Pending = &DraftKingdom{
			CurrentDrafterSeat:    pending.RemainingDrafterSeats[0],
			RemainingDrafterSeats: pending.RemainingDrafterSeats[1:],
		}
		return nil
	}
	discardKingdom(s)
	s.Pending = nil
	s.TurnPhase = PhaseTerritoryAction
	return nil
}

// takeFromKingdom moves a kingdom card into the player's hand.
func takeFromKingdom(s *GameState, player *PlayerState, cardID cards.ID) bool {
	var ok bool
	s.Kingdom, ok = removeOne(s.Kingdom, cardID)
	if !ok {
		return false
	}
	player.Hand = append(player.Hand, cardID)
	return true
}
