package game

import (
	"encoding/json"
	"fmt"
)

type gameStateAlias GameState

type gameStateJSON struct {
	*gameStateAlias
	PendingAction json.RawMessage `json:"pendingAction"`
}

// MarshalJSON encodes the state with its pending action under "pendingAction".
func (s *GameState) MarshalJSON() ([]byte, error) {
	pending, err := MarshalPending(s.Pending)
	if err != nil {
		return nil, err
	}
	return json.Marshal(gameStateJSON{gameStateAlias: (*gameStateAlias)(s), PendingAction: pending})
}

// UnmarshalJSON decodes a state written by MarshalJSON.
func (s *GameState) UnmarshalJSON(data []byte) error {
	aux := gameStateJSON{gameStateAlias: (*gameStateAlias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode game state: %w", err)
	}
	pending, err := UnmarshalPending(aux.PendingAction)
	if err != nil {
		return err
	}
	s.Pending = pending
	return nil
}

// DecodeState parses a stored state and checks its seat references.
func DecodeState(data []byte) (*GameState, error) {
	var s GameState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	for _, seat := range s.PlayerOrder {
		if _, ok := s.PlayerBySeat(seat); !ok {
			return nil, fmt.Errorf("decode game state: turn order names unknown seat %d", seat)
		}
	}
	if len(s.PlayerOrder) > 0 && (s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.PlayerOrder)) {
		return nil, fmt.Errorf("decode game state: current player index %d out of range", s.CurrentPlayerIndex)
	}
	return &s, nil
}
