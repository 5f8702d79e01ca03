package game

import (
	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// ensureDeck reshuffles the discard pile into an empty deck. It reports whether
// the deck holds at least one card afterwards. This is the only reshuffle point.
func (e *Engine) ensureDeck(s *GameState) bool {
	if len(s.Deck) > 0 {
		return true
	}
	if len(s.Discard) == 0 {
		return false
	}
	s.Deck = s.Discard
	s.Discard = []cards.ID{}
	cards.Shuffle(s.Deck, e.shuffle)
	s.logf("Discard pile shuffled into deck.")
	return true
}

// drawCard pops the top card. ok is false when deck and discard are both empty.
func (e *Engine) drawCard(s *GameState) (cards.ID, bool) {
	if !e.ensureDeck(s) {
		return "", false
	}
	top := s.Deck[len(s.Deck)-1]
	s.Deck = s.Deck[:len(s.Deck)-1]
	return top, true
}

// drawBottom takes the card at the bottom of the deck.
func (e *Engine) drawBottom(s *GameState) (cards.ID, bool) {
	if !e.ensureDeck(s) {
		return "", false
	}
	bottom := s.Deck[0]
	s.Deck = s.Deck[1:]
	return bottom, true
}

// drawInto draws n cards into the player's hand, stopping early on exhaustion.
func (e *Engine) drawInto(s *GameState, p *PlayerState, n int) bool {
	for i := 0; i < n; i++ {
		card, ok := e.drawCard(s)
		if !ok {
			return false
		}
		p.Hand = append(p.Hand, card)
	}
	return true
}

// burnCard moves the top card face-down out of the game.
func (e *Engine) burnCard(s *GameState) bool {
	card, ok := e.drawCard(s)
	if !ok {
		return false
	}
	s.Burned = append(s.Burned, card)
	return true
}

// dealToKingdom moves the top card face-up into the kingdom.
func (e *Engine) dealToKingdom(s *GameState) bool {
	card, ok := e.drawCard(s)
	if !ok {
		return false
	}
	s.Kingdom = append(s.Kingdom, card)
	return true
}

// discardKingdom moves every kingdom card to the discard pile at no cost.
func discardKingdom(s *GameState) {
	if len(s.Kingdom) == 0 {
		return
	}
	s.Discard = append(s.Discard, s.Kingdom...)
	s.Kingdom = []cards.ID{}
}

// placeOnBottom slides cards under the deck one at a time, so the last card
// given ends lowest.
func placeOnBottom(s *GameState, ids []cards.ID) {
	deck := make([]cards.ID, 0, len(ids)+len(s.Deck))
	for i := len(ids) - 1; i >= 0; i-- {
		deck = append(deck, ids[i])
	}
	s.Deck = append(deck, s.Deck...)
}

// discardFromHand moves a card from hand to the discard pile without atonement.
func discardFromHand(s *GameState, p *PlayerState, id cards.ID) bool {
	var ok bool
	p.Hand, ok = removeOne(p.Hand, id)
	if !ok {
		return false
	}
	s.Discard = append(s.Discard, id)
	return true
}

// discardWithAtonement discards a card and, for a stag, collects its atonement.
// A player who cannot pay is eliminated; callers must check p.Eliminated after
// each call and stop mutating that player.
func (e *Engine) discardWithAtonement(s *GameState, p *PlayerState, id cards.ID) bool {
	if !discardFromHand(s, p, id) {
		return false
	}
	if !cards.Is(id, cards.TypeStag) {
		return true
	}
	cost := e.rules.AtonementCost(cards.Value(id))
	if cost == 0 {
		return true
	}
	if p.ContributionsRemaining < cost {
		s.logf("%s cannot atone for discarding %s.", p.Name, cards.DisplayName(id))
		e.eliminatePlayer(s, p)
		return true
	}
	p.ContributionsRemaining -= cost
	p.ContributionsMade += cost
	s.logf("%s atones %d for discarding %s.", p.Name, cost, cards.DisplayName(id))
	return true
}

// discardAllWithAtonement discards ids in order and reports whether the player
// is still in the game afterwards.
func (e *Engine) discardAllWithAtonement(s *GameState, p *PlayerState, ids []cards.ID) bool {
	for _, id := range ids {
		e.discardWithAtonement(s, p, id)
		if p.Eliminated {
			return false
		}
	}
	return true
}

// playToTerritory moves a card from hand into the player's territory.
func playToTerritory(p *PlayerState, id cards.ID) bool {
	var ok bool
	p.Hand, ok = removeOne(p.Hand, id)
	if !ok {
		return false
	}
	p.Territory = append(p.Territory, id)
	return true
}

// eliminatePlayer removes a player from turn order. If they held the turn it
// passes to the next seat; if one player remains they win.
func (e *Engine) eliminatePlayer(s *GameState, p *PlayerState) {
	if p.Eliminated {
		return
	}
	p.Eliminated = true
	s.logf("%s is eliminated!", p.Name)
	e.logger.Debug("player eliminated", zap.String("player_id", p.ID), zap.Int("seat", p.SeatIndex))

	idx := indexOf(s.PlayerOrder, p.SeatIndex)
	if idx == -1 {
		return
	}
	wasCurrent := idx == s.CurrentPlayerIndex
	s.PlayerOrder = append(s.PlayerOrder[:idx], s.PlayerOrder[idx+1:]...)
	if idx < s.CurrentPlayerIndex {
		s.CurrentPlayerIndex--
	}

	if len(s.PlayerOrder) == 1 {
		last := s.mustSeat(s.PlayerOrder[0])
		s.CurrentPlayerIndex = 0
		s.Pending = nil
		s.Winner = last.ID
		s.WinReason = WinReasonLastStanding
		s.logf("%s is the last player standing and wins!", last.Name)
		return
	}

	if wasCurrent {
		s.CurrentPlayerIndex = idx % len(s.PlayerOrder)
		s.Pending = nil
		s.TurnPhase = PhaseRefreshKingdom
		s.Turn++
		s.logf("--- %s's turn ---", s.CurrentPlayer().Name)
	}
}
