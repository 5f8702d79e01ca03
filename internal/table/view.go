package table

import (
	"encoding/json"

	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/repository"
)

// LobbyPlayer is one joined player as shown in the lobby.
type LobbyPlayer struct {
	Name string `json:"name"`
	IsMe bool   `json:"isMe"`
}

// LobbyView is the roster of a game that has not started.
type LobbyView struct {
	GameID     string           `json:"gameId"`
	Phase      repository.Phase `json:"phase"`
	Players    []LobbyPlayer    `json:"players"`
	MyPlayerID string           `json:"myPlayerId"`
}

// GameView is a seat's projection of a started game.
type GameView struct {
	GameID string           `json:"gameId"`
	Phase  repository.Phase `json:"phase"`
	*game.PlayerView
}

// View holds exactly one of a lobby view or a game view.
type View struct {
	Lobby *LobbyView
	Game  *GameView
}

// MarshalJSON encodes whichever view is set.
func (v *View) MarshalJSON() ([]byte, error) {
	if v.Lobby != nil {
		return json.Marshal(v.Lobby)
	}
	return json.Marshal(v.Game)
}

// Phase returns the lifecycle phase the view was taken in.
func (v *View) Phase() repository.Phase {
	if v.Lobby != nil {
		return v.Lobby.Phase
	}
	return v.Game.Phase
}
