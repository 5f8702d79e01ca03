package game

import (
	"encoding/json"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// PublicPlayerInfo is what every seat may see about a player.
type PublicPlayerInfo struct {
	Name                   string     `json:"name"`
	SeatIndex              int        `json:"seatIndex"`
	HandCount              int        `json:"handCount"`
	Territory              []cards.ID `json:"territory"`
	TerritoryMagiAsHealing []cards.ID `json:"territoryMagiAsHealing"`
	ContributionsRemaining int        `json:"contributionsRemaining"`
	ContributionsMade      int        `json:"contributionsMade"`
	Ante                   int        `json:"ante"`
	Eliminated             bool       `json:"eliminated"`
	IsMe                   bool       `json:"isMe"`
}

// PlayerView is the filtered state one seat is allowed to see.
type PlayerView struct {
	MyPlayerID               string     `json:"myPlayerId"`
	MySeat                   int        `json:"mySeat"`
	MyHand                   []cards.ID `json:"myHand"`
	MyTerritory              []cards.ID `json:"myTerritory"`
	MyTerritoryMagiAsHealing []cards.ID `json:"myTerritoryMagiAsHealing"`
	MyContributionsRemaining int        `json:"myContributionsRemaining"`
	MyContributionsMade      int        `json:"myContributionsMade"`
	MyAnte                   int        `json:"myAnte"`
	MyHandLimit              int        `json:"myHandLimit"`
	MyEliminated             bool       `json:"myEliminated"`

	Players []PublicPlayerInfo `json:"players"`

	Kingdom     []cards.ID `json:"kingdom"`
	DiscardPile []cards.ID `json:"discardPile"`
	DeckCount   int        `json:"deckCount"`
	BurnedCount int        `json:"burnedCount"`

	CurrentPlayerSeat int             `json:"currentPlayerSeat"`
	CurrentPlayerName string          `json:"currentPlayerName"`
	IsMyTurn          bool            `json:"isMyTurn"`
	TurnPhase         TurnPhase       `json:"turnPhase"`
	Turn              int             `json:"turn"`
	PendingAction     json.RawMessage `json:"pendingAction"`
	AvailableActions  []string        `json:"availableActions"`

	Log []LogEntry `json:"log"`

	Winner    string      `json:"winner,omitempty"`
	WinReason string      `json:"winReason,omitempty"`
	Standings []ScoreLine `json:"standings,omitempty"`
}

// Project derives the view of the state for one player. Other players' hands
// appear only as counts; the deck and burn pile only as sizes.
func (e *Engine) Project(s *GameState, playerID string) (*PlayerView, error) {
	me, ok := s.PlayerByID(playerID)
	if !ok {
		return nil, identityErr("player not found in game")
	}

	pending, err := MarshalPending(s.Pending)
	if err != nil {
		return nil, err
	}

	v := &PlayerView{
		MyPlayerID:               me.ID,
		MySeat:                   me.SeatIndex,
		MyHand:                   cloneIDs(me.Hand),
		MyTerritory:              cloneIDs(me.Territory),
		MyTerritoryMagiAsHealing: cloneIDs(me.TerritoryMagiAsHealing),
		MyContributionsRemaining: me.ContributionsRemaining,
		MyContributionsMade:      me.ContributionsMade,
		MyAnte:                   me.Ante,
		MyHandLimit:              e.HandLimit(me),
		MyEliminated:             me.Eliminated,
		Players:                  make([]PublicPlayerInfo, 0, len(s.Players)),
		Kingdom:                  cloneIDs(s.Kingdom),
		DiscardPile:              cloneIDs(s.Discard),
		DeckCount:                len(s.Deck),
		BurnedCount:              len(s.Burned),
		CurrentPlayerSeat:        s.CurrentSeat(),
		TurnPhase:                s.TurnPhase,
		Turn:                     s.Turn,
		PendingAction:            pending,
		AvailableActions:         e.AvailableActions(s, me),
		Log:                      append([]LogEntry(nil), s.Log...),
		Winner:                   s.Winner,
		WinReason:                s.WinReason,
		Standings:                append([]ScoreLine(nil), s.Standings...),
	}
	if current, ok := s.PlayerBySeat(v.CurrentPlayerSeat); ok {
		v.CurrentPlayerName = current.Name
	}
	if s.Pending != nil {
		v.IsMyTurn = s.Pending.Responder() == me.SeatIndex
	} else {
		v.IsMyTurn = v.CurrentPlayerSeat == me.SeatIndex
	}
	if s.Finished() || me.Eliminated {
		v.IsMyTurn = false
	}

	for _, p := range s.Players {
		v.Players = append(v.Players, PublicPlayerInfo{
			Name:                   p.Name,
			SeatIndex:              p.SeatIndex,
			HandCount:              len(p.Hand),
			Territory:              cloneIDs(p.Territory),
			TerritoryMagiAsHealing: cloneIDs(p.TerritoryMagiAsHealing),
			ContributionsRemaining: p.ContributionsRemaining,
			ContributionsMade:      p.ContributionsMade,
			Ante:                   p.Ante,
			Eliminated:             p.Eliminated,
			IsMe:                   p.ID == me.ID,
		})
	}
	return v, nil
}

// AvailableActions lists the action names the dispatcher would accept from p
// right now, before payload validation.
func (e *Engine) AvailableActions(s *GameState, p *PlayerState) []string {
	actions := []string{}
	if s.Finished() || p.Eliminated {
		return actions
	}
	if s.Pending != nil {
		if s.Pending.Responder() == p.SeatIndex {
			actions = append(actions, s.Pending.Action())
		}
		return actions
	}
	if s.CurrentSeat() != p.SeatIndex {
		return actions
	}

	switch s.TurnPhase {
	case PhaseKingdomAction:
		actions = append(actions, ActionDrawCard)
		if len(s.Kingdom) > 0 {
			actions = append(actions, ActionDraftKingdom)
		}
		if e.canPlayAnyStag(p) {
			actions = append(actions, ActionPlayStag)
		}
	case PhaseTerritoryAction:
		if hasTerritoryCard(p) {
			actions = append(actions, ActionPlayTerritory)
		} else {
			actions = append(actions, ActionNoTerritory)
		}
	}
	return actions
}

// canPlayAnyStag reports whether some stag in hand can have its cost paid from
// the rest of the hand.
func (e *Engine) canPlayAnyStag(p *PlayerState) bool {
	for _, id := range p.Hand {
		if cards.Is(id, cards.TypeStag) && e.rules.StagDiscardCost(cards.Value(id)) <= len(p.Hand)-1 {
			return true
		}
	}
	return false
}
