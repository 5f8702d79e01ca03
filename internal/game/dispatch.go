package game

import (
	"github.com/stagcourt/stag-server/internal/game/cards"
)

// Action names accepted by Apply.
const (
	ActionDrawCard            = "drawCard"
	ActionDraftKingdom        = "draftKingdom"
	ActionPlayStag            = "playStag"
	ActionPlayTerritory       = "playTerritory"
	ActionNoTerritory         = "noTerritory"
	ActionDraftKingdomPick    = "draftKingdomPick"
	ActionStagKingdomPick     = "stagKingdomPick"
	ActionHuntResponse        = "huntResponse"
	ActionHuntDiscard         = "huntDiscard"
	ActionMagiChoice          = "magiChoice"
	ActionMagiPlaceCards      = "magiPlaceCards"
	ActionTitheDiscard        = "titheDiscard"
	ActionTitheContribute     = "titheContribute"
	ActionKingCommandResponse = "kingCommandResponse"
	ActionKingCommandCollect  = "kingCommandCollect"
	ActionDiscardToHandLimit  = "discardToHandLimit"
)

// Payload carries the parameters of every action; each handler reads only its own.
type Payload struct {
	CardID      cards.ID   `json:"cardId,omitempty"`
	CardIDs     []cards.ID `json:"cardIds,omitempty"`
	DiscardIDs  []cards.ID `json:"discardIds,omitempty"`
	DrawTop     *int       `json:"drawTop,omitempty"`
	DrawBottom  *int       `json:"drawBottom,omitempty"`
	PlaceBottom *int       `json:"placeBottom,omitempty"`
	Avert       bool       `json:"avert,omitempty"`
	HealingIDs  []cards.ID `json:"healingIds,omitempty"`
	MagiIDs     []cards.ID `json:"magiIds,omitempty"`
	Contribute  bool       `json:"contribute,omitempty"`
}

// dispatch validates the actor and routes the action. It mutates s only on success.
func (e *Engine) dispatch(s *GameState, playerID, action string, payload Payload) error {
	if s.Finished() {
		return phaseErr("game is already over")
	}
	player, ok := s.PlayerByID(playerID)
	if !ok {
		return identityErr("player not found in game")
	}
	if player.Eliminated {
		return identityErr("you have been eliminated")
	}

	var err error
	if s.Pending != nil {
		err = e.dispatchPending(s, player, action, payload)
	} else {
		err = e.dispatchTurn(s, player, action, payload)
	}
	if err != nil {
		return err
	}
	e.autoAdvance(s)
	return nil
}

// dispatchPending routes a response to the outstanding interaction.
func (e *Engine) dispatchPending(s *GameState, player *PlayerState, action string, payload Payload) error {
	pending := s.Pending
	if action != pending.Action() {
		return ErrNotLegal
	}
	if player.SeatIndex != pending.Responder() {
		return identityErr("it is not your response to give")
	}

	switch p := pending.(type) {
	case *DraftKingdom:
		return e.handleDraftKingdomPick(s, player, p, payload.CardID)
	case *StagKingdomDraft:
		return e.handleStagKingdomDraftPick(s, player, p, payload.CardID)
	case *StagKingdomPickSelf:
		return e.handleStagKingdomPickSelf(s, player, payload.CardID)
	case *HuntResponse:
		return e.handleHuntResponse(s, player, p, payload.Avert, payload.HealingIDs, payload.MagiIDs)
	case *HuntDiscard:
		return e.handleHuntDiscard(s, player, p, payload.CardIDs)
	case *MagiChoice:
		return e.handleMagiChoice(s, player, p, payload.DrawTop, payload.DrawBottom, payload.PlaceBottom)
	case *MagiPlaceCards:
		return e.handleMagiPlaceCards(s, player, p, payload.CardIDs)
	case *TitheDiscard:
		return e.handleTitheDiscard(s, player, p, payload.CardIDs)
	case *TitheContribute:
		return e.handleTitheContribute(s, player, p, payload.Contribute)
	case *KingCommandResponse:
		return e.handleKingCommandResponse(s, player, p, payload.CardID)
	case *KingCommandCollect:
		return e.handleKingCommandCollect(s, player, p, payload.CardIDs)
	case *DiscardToHandLimit:
		return e.handleDiscardToHandLimit(s, player, p, payload.CardIDs)
	default:
		return ErrNotLegal
	}
}

// dispatchTurn routes an action from the player whose turn it is.
func (e *Engine) dispatchTurn(s *GameState, player *PlayerState, action string, payload Payload) error {
	if player.SeatIndex != s.CurrentSeat() {
		return identityErr("it's not your turn")
	}

	switch action {
	case ActionDrawCard:
		return e.handleDrawCard(s, player)
	case ActionDraftKingdom:
		return e.handleDraftKingdom(s, player, payload.CardID)
	case ActionPlayStag:
		return e.handlePlayStag(s, player, payload.CardID, payload.DiscardIDs)
	case ActionPlayTerritory:
		return e.handlePlayTerritory(s, player, payload.CardID)
	case ActionNoTerritory:
		return e.handleNoTerritory(s, player)
	default:
		return ErrNotLegal
	}
}

// handlePlayTerritory routes a territory play by card type.
func (e *Engine) handlePlayTerritory(s *GameState, player *PlayerState, cardID cards.ID) error {
	if s.TurnPhase != PhaseTerritoryAction {
		return phaseErr("not in territory action phase")
	}
	if cardID == "" {
		return selectionErr("missing cardId")
	}
	if !contains(player.Hand, cardID) {
		return selectionErr("card not in your hand")
	}
	switch cards.TypeOf(cardID) {
	case cards.TypeHealing:
		return e.handlePlayHealing(s, player, cardID)
	case cards.TypeMagi:
		return e.handlePlayMagi(s, player, cardID)
	case cards.TypeHunt:
		return e.handlePlayHunt(s, player, cardID)
	case cards.TypeTithe:
		return e.handlePlayTithe(s, player, cardID)
	case cards.TypeKingsCommand:
		return e.handlePlayKingsCommand(s, player, cardID)
	case cards.TypeStag:
		return selectionErr("stags are played in the kingdom phase")
	default:
		return selectionErr("unknown card %s", cardID)
	}
}
