package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// handlePlayTithe puts a tithe into territory. The tithe player, then each
// opponent clockwise, discards and redraws.
func (e *Engine) handlePlayTithe(s *GameState, player *PlayerState, cardID cards.ID) error {
	playToTerritory(player, cardID)
	s.logf("%s plays %s.", player.Name, cards.DisplayName(cardID))
	s.Pending = &TitheDiscard{
		TithePlayerSeat:       player.SeatIndex,
		TitheCardID:           cardID,
		CurrentDiscardSeat:    player.SeatIndex,
		RemainingDiscardSeats: s.opponentSeatsInOrder(player.SeatIndex),
	}
	return nil
}

// handleTitheDiscard resolves one discard-and-redraw step.
func (e *Engine) handleTitheDiscard(s *GameState, player *PlayerState, pending *TitheDiscard, cardIDs []cards.ID) error {
	want := min(e.rules.Tithe.Discard, len(player.Hand))
	if err := validateHandSelection(player, cardIDs, want); err != nil {
		return err
	}

	s.Pending = nil
	if want > 0 {
		s.logf("%s discards %s for the tithe.", player.Name, cards.DisplayNames(cardIDs))
	}
	if e.discardAllWithAtonement(s, player, cardIDs) {
		if !e.drawInto(s, player, e.rules.Tithe.Draw) {
			e.triggerDeckExhaustion(s)
			return nil
		}
		s.logf("%s draws %d.", player.Name, e.rules.Tithe.Draw)
	}
	if s.Finished() {
		return nil
	}
	tither := s.mustSeat(pending.TithePlayerSeat)
	if tither.Eliminated {
		return nil
	}

	if len(pending.RemainingDiscardSeats) > 0 {
		next := pending.clone().(*TitheDiscard)
		next.CurrentDiscardSeat = next.RemainingDiscardSeats[0]
		next.RemainingDiscardSeats = next.RemainingDiscardSeats[1:]
		s.Pending = next
		return nil
	}

	if e.canContribute(tither, pending.ContributionsSoFar) {
		s.Pending = &TitheContribute{
			PlayerSeat:         tither.SeatIndex,
			TitheCardID:        pending.TitheCardID,
			ContributionsSoFar: pending.ContributionsSoFar,
		}
		return nil
	}
	s.TurnPhase = PhaseEndOfTurn
	return nil
}

// handleTitheContribute either pays one contribution for another own
// discard-and-redraw, or ends the tithe.
func (e *Engine) handleTitheContribute(s *GameState, player *PlayerState, pending *TitheContribute, contribute bool) error {
	if !contribute {
		s.logf("%s declines to contribute.", player.Name)
		s.Pending = nil
		s.TurnPhase = PhaseEndOfTurn
		return nil
	}
	if !e.canContribute(player, pending.ContributionsSoFar) {
		return arithmeticErr("no further contribution is allowed")
	}

	player.ContributionsRemaining--
	player.ContributionsMade++
	s.logf("%s contributes 1 to the tithe (%d remaining).", player.Name, player.ContributionsRemaining)
	s.Pending = &TitheDiscard{
		TithePlayerSeat:       player.SeatIndex,
		TitheCardID:           pending.TitheCardID,
		CurrentDiscardSeat:    player.SeatIndex,
		RemainingDiscardSeats: []int{},
		ContributionsSoFar:    pending.ContributionsSoFar + 1,
	}
	return nil
}

func (e *Engine) canContribute(p *PlayerState, soFar int) bool {
	return !p.Eliminated && soFar < e.rules.Tithe.MaxContributions && p.ContributionsRemaining >= 1
}
