package game

import (
	"encoding/json"
	"fmt"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// PendingKind discriminates the pending interaction variants.
type PendingKind string

const (
	PendingDraftKingdom        PendingKind = "draftKingdom"
	PendingStagKingdomDraft    PendingKind = "stagKingdomDraft"
	PendingStagKingdomPickSelf PendingKind = "stagKingdomPickSelf"
	PendingHuntResponse        PendingKind = "huntResponse"
	PendingHuntDiscard         PendingKind = "huntDiscard"
	PendingMagiChoice          PendingKind = "magiChoice"
	PendingMagiPlaceCards      PendingKind = "magiPlaceCards"
	PendingTitheDiscard        PendingKind = "titheDiscard"
	PendingTitheContribute     PendingKind = "titheContribute"
	PendingKingCommandResponse PendingKind = "kingCommandResponse"
	PendingKingCommandCollect  PendingKind = "kingCommandCollect"
	PendingDiscardToHandLimit  PendingKind = "discardToHandLimit"
)

// PendingAction is an outstanding multi-step interaction. While one is set,
// only its Responder may act and only with its Action.
type PendingAction interface {
	Kind() PendingKind
	// Responder is the seat whose input resolves the next step.
	Responder() int
	// Action is the action name that resolves the next step.
	Action() string

	heldCards() []cards.ID
	clone() PendingAction
}

// DraftKingdom: opponents pick one kingdom card each after the active player.
type DraftKingdom struct {
	CurrentDrafterSeat    int   `json:"currentDrafterSeat"`
	RemainingDrafterSeats []int `json:"remainingDrafterSeats"`
}

// StagKingdomDraft: clockwise draft rounds after a stag is played.
type StagKingdomDraft struct {
	StagPlayerSeat        int   `json:"stagPlayerSeat"`
	CurrentDrafterSeat    int   `json:"currentDrafterSeat"`
	RemainingDrafterSeats []int `json:"remainingDrafterSeats"`
	Round                 int   `json:"round"`
}

// StagKingdomPickSelf: the stag player takes the final reserved kingdom card.
type StagKingdomPickSelf struct {
	StagPlayerSeat int `json:"stagPlayerSeat"`
}

// HuntResponse: opponents decide in turn whether to avert the hunt.
type HuntResponse struct {
	HuntPlayerSeat          int      `json:"huntPlayerSeat"`
	HuntCardID              cards.ID `json:"huntCardId"`
	HuntTotalValue          int      `json:"huntTotalValue"`
	RespondingSeat          int      `json:"respondingSeat"`
	RemainingResponderSeats []int    `json:"remainingResponderSeats"`
	DiscardsPerPlayer       int      `json:"discardsPerPlayer"`
	DrawsForHunter          int      `json:"drawsForHunter"`
	Averters                int      `json:"averters"`
	NonAverterSeats         []int    `json:"nonAverterSeats"`
}

// HuntDiscard: players who failed to avert discard in turn.
type HuntDiscard struct {
	HuntPlayerSeat        int      `json:"huntPlayerSeat"`
	HuntCardID            cards.ID `json:"huntCardId"`
	CurrentDiscardSeat    int      `json:"currentDiscardSeat"`
	RemainingDiscardSeats []int    `json:"remainingDiscardSeats"`
	DiscardsPerPlayer     int      `json:"discardsPerPlayer"`
	DrawsForHunter        int      `json:"drawsForHunter"`
	Averters              int      `json:"averters"`
}

// MagiChoice: the player chooses the draw/place split. The Magi waits here.
type MagiChoice struct {
	PlayerSeat int      `json:"playerSeat"`
	MagiCardID cards.ID `json:"magiCardId"`
}

// MagiPlaceCards: the player chooses which hand cards go under the deck.
type MagiPlaceCards struct {
	PlayerSeat       int      `json:"playerSeat"`
	PlaceBottomCount int      `json:"placeBottomCount"`
	MagiCardID       cards.ID `json:"magiCardId"`
}

// TitheDiscard: the tithe player, then each opponent, discards and redraws.
type TitheDiscard struct {
	TithePlayerSeat       int      `json:"tithePlayerSeat"`
	TitheCardID           cards.ID `json:"titheCardId"`
	CurrentDiscardSeat    int      `json:"currentDiscardSeat"`
	RemainingDiscardSeats []int    `json:"remainingDiscardSeats"`
	ContributionsSoFar    int      `json:"contributionsSoFar"`
}

// TitheContribute: the tithe player may pay a contribution for another round.
type TitheContribute struct {
	PlayerSeat         int      `json:"playerSeat"`
	TitheCardID        cards.ID `json:"titheCardId"`
	ContributionsSoFar int      `json:"contributionsSoFar"`
}

// KingCommandResponse: opponents surrender a stag in turn.
type KingCommandResponse struct {
	CommandPlayerSeat       int        `json:"commandPlayerSeat"`
	RespondingSeat          int        `json:"respondingSeat"`
	RemainingResponderSeats []int      `json:"remainingResponderSeats"`
	DiscardedStags          []cards.ID `json:"discardedStags"`
}

// KingCommandCollect: the commander keeps any of the surrendered stags.
type KingCommandCollect struct {
	CommandPlayerSeat int        `json:"commandPlayerSeat"`
	DiscardedStags    []cards.ID `json:"discardedStags"`
}

// DiscardToHandLimit: the player must discard down to the hand limit.
type DiscardToHandLimit struct {
	PlayerSeat  int `json:"playerSeat"`
	MustDiscard int `json:"mustDiscard"`
}

func (*DraftKingdom) Kind() PendingKind        { return PendingDraftKingdom }
func (*StagKingdomDraft) Kind() PendingKind    { return PendingStagKingdomDraft }
func (*StagKingdomPickSelf) Kind() PendingKind { return PendingStagKingdomPickSelf }
func (*HuntResponse) Kind() PendingKind        { return PendingHuntResponse }
func (*HuntDiscard) Kind() PendingKind         { return PendingHuntDiscard }
func (*MagiChoice) Kind() PendingKind          { return PendingMagiChoice }
func (*MagiPlaceCards) Kind() PendingKind      { return PendingMagiPlaceCards }
func (*TitheDiscard) Kind() PendingKind        { return PendingTitheDiscard }
func (*TitheContribute) Kind() PendingKind     { return PendingTitheContribute }
func (*KingCommandResponse) Kind() PendingKind { return PendingKingCommandResponse }
func (*KingCommandCollect) Kind() PendingKind  { return PendingKingCommandCollect }
func (*DiscardToHandLimit) Kind() PendingKind  { return PendingDiscardToHandLimit }

func (p *DraftKingdom) Responder() int        { return p.CurrentDrafterSeat }
func (p *StagKingdomDraft) Responder() int    { return p.CurrentDrafterSeat }
func (p *StagKingdomPickSelf) Responder() int { return p.StagPlayerSeat }
func (p *HuntResponse) Responder() int        { return p.RespondingSeat }
func (p *HuntDiscard) Responder() int         { return p.CurrentDiscardSeat }
func (p *MagiChoice) Responder() int          { return p.PlayerSeat }
func (p *MagiPlaceCards) Responder() int      { return p.PlayerSeat }
func (p *TitheDiscard) Responder() int        { return p.CurrentDiscardSeat }
func (p *TitheContribute) Responder() int     { return p.PlayerSeat }
func (p *KingCommandResponse) Responder() int { return p.RespondingSeat }
func (p *KingCommandCollect) Responder() int  { return p.CommandPlayerSeat }
func (p *DiscardToHandLimit) Responder() int  { return p.PlayerSeat }

func (*DraftKingdom) Action() string        { return ActionDraftKingdomPick }
func (*StagKingdomDraft) Action() string    { return ActionStagKingdomPick }
func (*StagKingdomPickSelf) Action() string { return ActionStagKingdomPick }
func (*HuntResponse) Action() string        { return ActionHuntResponse }
func (*HuntDiscard) Action() string         { return ActionHuntDiscard }
func (*MagiChoice) Action() string          { return ActionMagiChoice }
func (*MagiPlaceCards) Action() string      { return ActionMagiPlaceCards }
func (*TitheDiscard) Action() string        { return ActionTitheDiscard }
func (*TitheContribute) Action() string     { return ActionTitheContribute }
func (*KingCommandResponse) Action() string { return ActionKingCommandResponse }
func (*KingCommandCollect) Action() string  { return ActionKingCommandCollect }
func (*DiscardToHandLimit) Action() string  { return ActionDiscardToHandLimit }

func (*DraftKingdom) heldCards() []cards.ID         { return nil }
func (*StagKingdomDraft) heldCards() []cards.ID     { return nil }
func (*StagKingdomPickSelf) heldCards() []cards.ID  { return nil }
func (*HuntResponse) heldCards() []cards.ID         { return nil }
func (*HuntDiscard) heldCards() []cards.ID          { return nil }
func (p *MagiChoice) heldCards() []cards.ID         { return []cards.ID{p.MagiCardID} }
func (p *MagiPlaceCards) heldCards() []cards.ID     { return []cards.ID{p.MagiCardID} }
func (*TitheDiscard) heldCards() []cards.ID         { return nil }
func (*TitheContribute) heldCards() []cards.ID      { return nil }
func (p *KingCommandResponse) heldCards() []cards.ID { return p.DiscardedStags }
func (p *KingCommandCollect) heldCards() []cards.ID  { return p.DiscardedStags }
func (*DiscardToHandLimit) heldCards() []cards.ID    { return nil }

func (p *DraftKingdom) clone() PendingAction {
	c := *p
	c.RemainingDrafterSeats = cloneInts(p.RemainingDrafterSeats)
	return &c
}

func (p *StagKingdomDraft) clone() PendingAction {
	c := *p
	c.RemainingDrafterSeats = cloneInts(p.RemainingDrafterSeats)
	return &c
}

func (p *StagKingdomPickSelf) clone() PendingAction { c := *p; return &c }

func (p *HuntResponse) clone() PendingAction {
	c := *p
	c.RemainingResponderSeats = cloneInts(p.RemainingResponderSeats)
	c.NonAverterSeats = cloneInts(p.NonAverterSeats)
	return &c
}

func (p *HuntDiscard) clone() PendingAction {
	c := *p
	c.RemainingDiscardSeats = cloneInts(p.RemainingDiscardSeats)
	return &c
}

func (p *MagiChoice) clone() PendingAction     { c := *p; return &c }
func (p *MagiPlaceCards) clone() PendingAction { c := *p; return &c }

func (p *TitheDiscard) clone() PendingAction {
	c := *p
	c.RemainingDiscardSeats = cloneInts(p.RemainingDiscardSeats)
	return &c
}

func (p *TitheContribute) clone() PendingAction { c := *p; return &c }

func (p *KingCommandResponse) clone() PendingAction {
	c := *p
	c.RemainingResponderSeats = cloneInts(p.RemainingResponderSeats)
	c.DiscardedStags = cloneIDs(p.DiscardedStags)
	return &c
}

func (p *KingCommandCollect) clone() PendingAction {
	c := *p
	c.DiscardedStags = cloneIDs(p.DiscardedStags)
	return &c
}

func (p *DiscardToHandLimit) clone() PendingAction { c := *p; return &c }

// MarshalPending encodes a pending action with its "type" discriminator.
func MarshalPending(p PendingAction) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal pending %s: %w", p.Kind(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal pending %s: %w", p.Kind(), err)
	}
	kind, _ := json.Marshal(p.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}

// UnmarshalPending decodes a pending action by its "type" discriminator.
func UnmarshalPending(data []byte) (PendingAction, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var head struct {
		Type PendingKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode pending action: %w", err)
	}
	p, err := newPending(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode pending %s: %w", head.Type, err)
	}
	return p, nil
}

func newPending(kind PendingKind) (PendingAction, error) {
	switch kind {
	case PendingDraftKingdom:
		return &DraftKingdom{}, nil
	case PendingStagKingdomDraft:
		return &StagKingdomDraft{}, nil
	case PendingStagKingdomPickSelf:
		return &StagKingdomPickSelf{}, nil
	case PendingHuntResponse:
		return &HuntResponse{}, nil
	case PendingHuntDiscard:
		return &HuntDiscard{}, nil
	case PendingMagiChoice:
		return &MagiChoice{}, nil
	case PendingMagiPlaceCards:
		return &MagiPlaceCards{}, nil
	case PendingTitheDiscard:
		return &TitheDiscard{}, nil
	case PendingTitheContribute:
		return &TitheContribute{}, nil
	case PendingKingCommandResponse:
		return &KingCommandResponse{}, nil
	case PendingKingCommandCollect:
		return &KingCommandCollect{}, nil
	case PendingDiscardToHandLimit:
		return &DiscardToHandLimit{}, nil
	default:
		return nil, fmt.Errorf("unknown pending action type %q", kind)
	}
}
