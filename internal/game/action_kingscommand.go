package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayKingsCommand puts a King's Command into territory and demands a
// stag from every opponent in turn.
func (e *Engine) handlePlayKingsCommand(s *GameState, player *PlayerState, cardID cards.ID) error {
	playToTerritory(player, cardID)
	s.logf("%s plays %s.", player.Name, cards.DisplayName(cardID))

	opponents := s.opponentSeatsInOrder(player.SeatIndex)
	if len(opponents) == 0 {
		s.TurnPhase = PhaseEndOfTurn
		return nil
	}
	s.Pending = &KingCommandResponse{
		CommandPlayerSeat:       player.SeatIndex,
		RespondingSeat:          opponents[0],
		RemainingResponderSeats: opponents[1:],
		DiscardedStags:          []cards.ID{},
	}
	return nil
}

// handleKingCommandResponse takes one surrendered stag, or an empty answer
// from a player holding none.
func (e *Engine) handleKingCommandResponse(s *GameState, player *PlayerState, pending *KingCommandResponse, cardID cards.ID) error {
	holdsStag := cards.Count(player.Hand, cards.TypeStag) > 0
	next := pending.clone().(*KingCommandResponse)

	if cardID == "" {
		if holdsStag {
			return selectionErr("you must surrender a stag")
		}
		s.logf("%s has no Stag to surrender.", player.Name)
	} else {
		if !cards.Is(cardID, cards.TypeStag) {
			return selectionErr("not a stag card")
		}
		var ok bool
		if player.Hand, ok = removeOne(player.Hand, cardID); !ok {
			return selectionErr("card %s is not in your hand", cardID)
		}
		next.DiscardedStags = append(next.DiscardedStags, cardID)
		s.logf("%s surrenders %s.", player.Name, cards.DisplayName(cardID))
	}

	if len(next.RemainingResponderSeats) > 0 {
		next.RespondingSeat = next.RemainingResponderSeats[0]
		next.RemainingResponderSeats = next.RemainingResponderSeats[1:]
		s.Pending = next
		return nil
	}
	if len(next.DiscardedStags) == 0 {
		s.Pending = nil
		s.TurnPhase = PhaseEndOfTurn
		return nil
	}
	s.Pending = &KingCommandCollect{
		CommandPlayerSeat: next.CommandPlayerSeat,
		DiscardedStags:    next.DiscardedStags,
	}
	return nil
}

// handleKingCommandCollect moves the chosen stags to the commander's hand and
// discards the rest.
func (e *Engine) handleKingCommandCollect(s *GameState, player *PlayerState, pending *KingCommandCollect, cardIDs []cards.ID) error {
	if hasDuplicates(cardIDs) {
		return selectionErr("duplicate cards in selection")
	}
	for _, id := range cardIDs {
		if !contains(pending.DiscardedStags, id) {
			return selectionErr("%s was not surrendered", id)
		}
	}

	for _, id := range pending.DiscardedStags {
		if contains(cardIDs, id) {
			player.Hand = append(player.Hand, id)
		} else {
			s.Discard = append(s.Discard, id)
		}
	}
	if len(cardIDs) > 0 {
		s.logf("%s takes %s.", player.Name, cards.DisplayNames(cardIDs))
	} else {
		s.logf("%s takes none of the surrendered Stags.", player.Name)
	}
	s.Pending = nil
	s.TurnPhase = PhaseEndOfTurn
	return nil
}
