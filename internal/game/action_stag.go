package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayStag is kingdom action C: play a stag, pay its discard cost, then
// run the post-stag kingdom draft.
func (e *Engine) handlePlayStag(s *GameState, player *PlayerState, stagID cards.ID, discardIDs []cards.ID) error {
	if s.TurnPhase != PhaseKingdomAction {
		return phaseErr("not in kingdom action phase")
	}
	if !cards.Is(stagID, cards.TypeStag) {
		return selectionErr("not a stag card")
	}
	if !contains(player.Hand, stagID) {
		return selectionErr("stag is not in your hand")
	}

	value := cards.Value(stagID)
	cost := e.rules.StagDiscardCost(value)
	if len(discardIDs) != cost {
		return selectionErr("must discard exactly %d card(s) for Stag %d, got %d", cost, value, len(discardIDs))
	}
	if hasDuplicates(discardIDs) {
		return selectionErr("duplicate cards in discard selection")
	}
	for _, id := range discardIDs {
		if id == stagID {
			return selectionErr("cannot discard the stag you're playing")
		}
		if !contains(player.Hand, id) {
			return selectionErr("card %s is not in your hand", id)
		}
	}

	playToTerritory(player, stagID)
	s.logf("%s plays %s to territory (%d Stag Points).", player.Name, cards.DisplayName(stagID), StagPoints(player))
	if len(discardIDs) > 0 {
		s.logf("%s discards %s.", player.Name, cards.DisplayNames(discardIDs))
	}
	if !e.discardAllWithAtonement(s, player, discardIDs) || s.Finished() {
		return nil
	}
	if e.checkStagWin(s, player) {
		return nil
	}

	e.startStagKingdomDraft(s, player.SeatIndex)
	return nil
}

// startStagKingdomDraft opens the first post-stag round, or goes straight to
// the stag player's own pick when the kingdom cannot cover a full round.
func (e *Engine) startStagKingdomDraft(s *GameState, stagSeat int) {
	opponents := s.opponentSeatsInOrder(stagSeat)
	if len(opponents) == 0 || len(s.Kingdom) == 0 {
		discardKingdom(s)
		s.TurnPhase = PhaseEndOfTurn
		return
	}
	if len(s.Kingdom) < len(opponents)+1 {
		s.Pending = &StagKingdomPickSelf{StagPlayerSeat: stagSeat}
		return
	}
	s.Pending = &StagKingdomDraft{
		StagPlayerSeat:        stagSeat,
		CurrentDrafterSeat:    opponents[0],
		RemainingDrafterSeats: opponents[1:],
		Round:                 1,
	}
}

// handleStagKingdomDraftPick resolves one opponent pick of a post-stag round.
func (e *Engine) handleStagKingdomDraftPick(s *GameState, player *PlayerState, pending *StagKingdomDraft, cardID cards.ID) error {
	if !takeFromKingdom(s, player, cardID) {
		return selectionErr("card is not in the kingdom")
	}
	s.logf("%s picks %s from the Kingdom.", player.Name, cards.DisplayName(cardID))

	if len(pending.RemainingDrafterSeats) > 0 && len(s.Kingdom) > 0 {
		s.Pending = &StagKingdomDraft{
			StagPlayerSeat:        pending.StagPlayerSeat,
			CurrentDrafterSeat:    pending.RemainingDrafterSeats[0],
			RemainingDrafterSeats: pending.RemainingDrafterSeats[1:],
			Round:                 pending.Round,
		}
		return nil
	}
	e.finishStagDraftRound(s, pending.StagPlayerSeat, pending.Round)
	return nil
}

// finishStagDraftRound starts another round while the kingdom still holds one
// card per opponent plus the stag player's reserved card.
func (e *Engine) finishStagDraftRound(s *GameState, stagSeat, round int) {
	opponents := s.opponentSeatsInOrder(stagSeat)
	switch {
	case len(opponents) > 0 && len(s.Kingdom) >= len(opponents)+1:
		s.Pending = &StagKingdomDraft{
			StagPlayerSeat:        stagSeat,
			CurrentDrafterSeat:    opponents[0],
			RemainingDrafterSeats: opponents[1:],
			Round:                 round + 1,
		}
	case len(s.Kingdom) > 0:
		s.Pending = &StagKingdomPickSelf{StagPlayerSeat: stagSeat}
	default:
		s.Pending = nil
		s.TurnPhase = PhaseEndOfTurn
	}
}

// handleStagKingdomPickSelf lets the stag player take one card; the rest is discarded.
func (e *Engine) handleStagKingdomPickSelf(s *GameState, player *PlayerState, cardID cards.ID) error {
	if !takeFromKingdom(s, player, cardID) {
		return selectionErr("card is not in the kingdom")
	}
	s.logf("%s picks %s from the Kingdom.", player.Name, cards.DisplayName(cardID))
	discardKingdom(s)
	s.Pending = nil
	s.TurnPhase = PhaseEndOfTurn
	return nil
}
