package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayHunt puts a hunt into territory and asks every opponent in turn
// whether they avert it.
func (e *Engine) handlePlayHunt(s *GameState, player *PlayerState, cardID cards.ID) error {
	playToTerritory(player, cardID)
	threat := cards.SumValues(player.Territory, cards.TypeHunt)
	kc := cards.Count(player.Territory, cards.TypeKingsCommand)
	s.logf("%s plays %s (hunt threat %d).", player.Name, cards.DisplayName(cardID), threat)

	opponents := s.opponentSeatsInOrder(player.SeatIndex)
	if len(opponents) == 0 {
		e.finishHunt(s, player, e.rules.HuntDraws(kc), 0)
		return nil
	}
	s.Pending = &HuntResponse{
		HuntPlayerSeat:          player.SeatIndex,
		HuntCardID:              cardID,
		HuntTotalValue:          threat,
		RespondingSeat:          opponents[0],
		RemainingResponderSeats: opponents[1:],
		DiscardsPerPlayer:       e.rules.HuntDiscards(kc),
		DrawsForHunter:          e.rules.HuntDraws(kc),
		NonAverterSeats:         []int{},
	}
	return nil
}

// HealingValue is the standing healing a player can set against a hunt.
func HealingValue(p *PlayerState) int {
	return cards.Count(p.Territory, cards.TypeHealing) + len(p.TerritoryMagiAsHealing)
}

// handleHuntResponse records one opponent's decision. Averting may spend
// healing cards from hand and permanently flag territory Magi as healing-only.
func (e *Engine) handleHuntResponse(s *GameState, player *PlayerState, pending *HuntResponse, avert bool, healingIDs, magiIDs []cards.ID) error {
	next := pending.clone().(*HuntResponse)

	if !avert {
		if len(healingIDs) > 0 || len(magiIDs) > 0 {
			return selectionErr("healing and magi selections are only used to avert")
		}
		next.NonAverterSeats = append(next.NonAverterSeats, player.SeatIndex)
		s.logf("%s does not avert the hunt.", player.Name)
	} else {
		if err := validateAvert(player, pending.HuntTotalValue, healingIDs, magiIDs); err != nil {
			return err
		}
		for _, id := range healingIDs {
			discardFromHand(s, player, id)
		}
		player.TerritoryMagiAsHealing = append(player.TerritoryMagiAsHealing, magiIDs...)
		next.Averters++
		s.logf("%s averts the hunt.", player.Name)
		if len(healingIDs) > 0 {
			s.logf("%s discards %s to heal.", player.Name, cards.DisplayNames(healingIDs))
		}
		if len(magiIDs) > 0 {
			s.logf("%s turns %d Magi to healing.", player.Name, len(magiIDs))
		}
	}

	if len(next.RemainingResponderSeats) > 0 {
		next.RespondingSeat = next.RemainingResponderSeats[0]
		next.RemainingResponderSeats = next.RemainingResponderSeats[1:]
		s.Pending = next
		return nil
	}

	if len(next.NonAverterSeats) == 0 {
		e.finishHunt(s, s.mustSeat(next.HuntPlayerSeat), next.DrawsForHunter, next.Averters)
		return nil
	}
	s.Pending = &HuntDiscard{
		HuntPlayerSeat:        next.HuntPlayerSeat,
		HuntCardID:            next.HuntCardID,
		CurrentDiscardSeat:    next.NonAverterSeats[0],
		RemainingDiscardSeats: next.NonAverterSeats[1:],
		DiscardsPerPlayer:     next.DiscardsPerPlayer,
		DrawsForHunter:        next.DrawsForHunter,
		Averters:              next.Averters,
	}
	return nil
}

// validateAvert checks the healing selection and that it meets the threat.
func validateAvert(p *PlayerState, threat int, healingIDs, magiIDs []cards.ID) error {
	if hasDuplicates(healingIDs) || hasDuplicates(magiIDs) {
		return selectionErr("duplicate cards in selection")
	}
	for _, id := range healingIDs {
		if !cards.Is(id, cards.TypeHealing) {
			return selectionErr("%s is not a healing card", id)
		}
		if !contains(p.Hand, id) {
			return selectionErr("card %s is not in your hand", id)
		}
	}
	for _, id := range magiIDs {
		if !cards.Is(id, cards.TypeMagi) || !contains(p.Territory, id) {
			return selectionErr("%s is not a Magi in your territory", id)
		}
		if contains(p.TerritoryMagiAsHealing, id) {
			return selectionErr("%s already counts as healing", id)
		}
	}
	value := HealingValue(p) + len(healingIDs) + len(magiIDs)
	if value < threat {
		return arithmeticErr("healing value %d does not cover hunt threat %d", value, threat)
	}
	return nil
}

// handleHuntDiscard makes one non-averter discard the hunt's toll.
func (e *Engine) handleHuntDiscard(s *GameState, player *PlayerState, pending *HuntDiscard, cardIDs []cards.ID) error {
	want := min(pending.DiscardsPerPlayer, len(player.Hand))
	if err := validateHandSelection(player, cardIDs, want); err != nil {
		return err
	}
	if want > 0 {
		s.logf("%s discards %s to the hunt.", player.Name, cards.DisplayNames(cardIDs))
	}
	e.discardAllWithAtonement(s, player, cardIDs)
	if s.Finished() {
		return nil
	}

	if len(pending.RemainingDiscardSeats) > 0 {
		next := pending.clone().(*HuntDiscard)
		next.CurrentDiscardSeat = next.RemainingDiscardSeats[0]
		next.RemainingDiscardSeats = next.RemainingDiscardSeats[1:]
		s.Pending = next
		return nil
	}
	e.finishHunt(s, s.mustSeat(pending.HuntPlayerSeat), pending.DrawsForHunter, pending.Averters)
	return nil
}

// finishHunt gives the hunter their draws, less one per averter.
func (e *Engine) finishHunt(s *GameState, hunter *PlayerState, draws, averters int) {
	s.Pending = nil
	n := max(0, draws-averters)
	if n > 0 {
		if !e.drawInto(s, hunter, n) {
			e.triggerDeckExhaustion(s)
			return
		}
		s.logf("%s draws %d from the hunt.", hunter.Name, n)
	}
	s.TurnPhase = PhaseEndOfTurn
}
