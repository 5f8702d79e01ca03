package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayMagi takes the Magi out of hand and asks for the split. The card
// enters territory only once the split resolves.
func (e *Engine) handlePlayMagi(s *GameState, player *PlayerState, cardID cards.ID) error {
	player.Hand, _ = removeOne(player.Hand, cardID)
	s.logf("%s plays %s.", player.Name, cards.DisplayName(cardID))
	s.Pending = &MagiChoice{PlayerSeat: player.SeatIndex, MagiCardID: cardID}
	return nil
}

// handleMagiChoice draws from the top, then from the bottom, then either
// places the rest of the hand under the deck or asks which cards to place.
func (e *Engine) handleMagiChoice(s *GameState, player *PlayerState, pending *MagiChoice, drawTop, drawBottom, placeBottom *int) error {
	if drawTop == nil || drawBottom == nil || placeBottom == nil {
		return arithmeticErr("drawTop, drawBottom and placeBottom are required")
	}
	top, bottom, place := *drawTop, *drawBottom, *placeBottom
	if top < 0 || bottom < 0 || place < 0 {
		return arithmeticErr("split values must be non-negative")
	}
	if total := e.rules.MagiSplitTotal; top+bottom+place != total {
		return arithmeticErr("split must total exactly %d", total)
	}

	magi := pending.MagiCardID
	s.Pending = nil

	if top > 0 {
		if !e.drawInto(s, player, top) {
			e.exhaustDuringMagi(s, player, magi)
			return nil
		}
		s.logf("%s draws %d from the top.", player.Name, top)
	}
	if bottom > 0 {
		for i := 0; i < bottom; i++ {
			card, ok := e.drawBottom(s)
			if !ok {
				e.exhaustDuringMagi(s, player, magi)
				return nil
			}
			player.Hand = append(player.Hand, card)
		}
		s.logf("%s draws %d from the bottom.", player.Name, bottom)
	}

	if place > 0 {
		if len(player.Hand) < place {
			count := len(player.Hand)
			placeOnBottom(s, player.Hand)
			player.Hand = []cards.ID{}
			s.logf("%s places %d card(s) on the bottom of the deck (all remaining).", player.Name, count)
			e.finishMagi(s, player, magi)
			return nil
		}
		s.Pending = &MagiPlaceCards{PlayerSeat: player.SeatIndex, PlaceBottomCount: place, MagiCardID: magi}
		return nil
	}

	e.finishMagi(s, player, magi)
	return nil
}

// handleMagiPlaceCards puts the chosen cards under the deck in the order given.
func (e *Engine) handleMagiPlaceCards(s *GameState, player *PlayerState, pending *MagiPlaceCards, cardIDs []cards.ID) error {
	if err := validateHandSelection(player, cardIDs, pending.PlaceBottomCount); err != nil {
		return err
	}
	for _, id := range cardIDs {
		player.Hand, _ = removeOne(player.Hand, id)
	}
	placeOnBottom(s, cardIDs)
	s.logf("%s places %d card(s) on the bottom of the deck.", player.Name, len(cardIDs))

	s.Pending = nil
	e.finishMagi(s, player, pending.MagiCardID)
	return nil
}

func (e *Engine) finishMagi(s *GameState, player *PlayerState, magi cards.ID) {
	player.Territory = append(player.Territory, magi)
	s.logf("Magi enters %s's territory (+1 hand size).", player.Name)
	s.TurnPhase = PhaseEndOfTurn
}

// exhaustDuringMagi lands the Magi in territory before scoring.
func (e *Engine) exhaustDuringMagi(s *GameState, player *PlayerState, magi cards.ID) {
	player.Territory = append(player.Territory, magi)
	e.triggerDeckExhaustion(s)
}
