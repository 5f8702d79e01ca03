package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLobbyFlow(t *testing.T) {
	s := newTestStack(t)

	code, body := s.do(t, http.MethodPost, "/api/game/create", map[string]string{"playerName": "Ann"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "GAME1", body["gameId"])
	assert.Equal(t, "p1", body["playerId"])

	code, body = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "start", "playerId": "p1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "need at least 2 players", body["error"])

	code, body = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "join", "playerName": "Bob"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "p2", body["playerId"])

	code, body = s.do(t, http.MethodGet, "/api/game/GAME1/state?playerId=p2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "lobby", body["phase"])
	assert.Equal(t, "p2", body["myPlayerId"])
	players := body["players"].([]any)
	require.Len(t, players, 2)
	assert.Equal(t, false, players[0].(map[string]any)["isMe"])
	assert.Equal(t, true, players[1].(map[string]any)["isMe"])

	code, body = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "start", "playerId": "p2"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "only the host can start", body["error"])

	code, body = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "start", "playerId": "p1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["started"])

	code, _ = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "join", "playerName": "Cat"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHTTPGameActions(t *testing.T) {
	s := newTestStack(t)
	s.do(t, http.MethodPost, "/api/game/create", map[string]string{"playerName": "Ann"})
	s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "join", "playerName": "Bob"})
	s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "start", "playerId": "p1"})

	code, body := s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "drawCard", "playerId": "p2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])

	code, body = s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "drawCard", "playerId": "p1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "playing", body["phase"])
	assert.Equal(t, "territoryAction", body["turnPhase"])
	assert.Equal(t, true, body["isMyTurn"])
	assert.Equal(t, "p1", body["myPlayerId"])

	code, body = s.do(t, http.MethodGet, "/api/game/GAME1/state?playerId=p2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["isMyTurn"])
	assert.Len(t, body["myHand"], 4)
}

func TestHTTPErrors(t *testing.T) {
	s := newTestStack(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		errSub string
	}{
		{"missing name", http.MethodPost, "/api/game/create", `{}`, http.StatusBadRequest, "invalid request"},
		{"blank name", http.MethodPost, "/api/game/create", map[string]string{"playerName": "   "}, http.StatusBadRequest, "name required"},
		{"not json", http.MethodPost, "/api/game/create", `{"playerName":`, http.StatusBadRequest, "not valid JSON"},
		{"unknown game state", http.MethodGet, "/api/game/NOPE/state?playerId=x", nil, http.StatusNotFound, "not found"},
		{"unknown game action", http.MethodPost, "/api/game/NOPE/action", map[string]string{"action": "join", "playerName": "Ann"}, http.StatusNotFound, "not found"},
		{"unknown action", http.MethodPost, "/api/game/NOPE/action", map[string]string{"action": "fly", "playerId": "p1"}, http.StatusBadRequest, "invalid request"},
		{"missing player", http.MethodPost, "/api/game/NOPE/action", map[string]string{"action": "drawCard"}, http.StatusBadRequest, "invalid request"},
		{"bad card id", http.MethodPost, "/api/game/NOPE/action", map[string]string{"action": "playStag", "playerId": "p1", "cardId": "ace-of-spades"}, http.StatusBadRequest, "cardId"},
		{"magi split incomplete", http.MethodPost, "/api/game/NOPE/action", map[string]any{"action": "magiChoice", "playerId": "p1", "drawTop": 1}, http.StatusBadRequest, "invalid request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Contains(t, body["error"], tt.errSub)
		})
	}
}

func TestHTTPActOnLobbyIsRejected(t *testing.T) {
	s := newTestStack(t)
	s.do(t, http.MethodPost, "/api/game/create", map[string]string{"playerName": "Ann"})

	code, body := s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "drawCard", "playerId": "p1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "game is not in progress", body["error"])
}

func TestHealthz(t *testing.T) {
	s := newTestStack(t)
	code, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func readView(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var view map[string]any
	require.NoError(t, conn.ReadJSON(&view))
	return view
}

func TestWebSocketPushesViews(t *testing.T) {
	s := newTestStack(t)
	srv := httptest.NewServer(s.api.Routes())
	defer srv.Close()

	s.do(t, http.MethodPost, "/api/game/create", map[string]string{"playerName": "Ann"})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/game/GAME1/ws?playerId=p1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	view := readView(t, conn)
	assert.Equal(t, "lobby", view["phase"])
	assert.Len(t, view["players"], 1)
	assert.Equal(t, 1, s.hub.Subscribers("GAME1"))

	s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "join", "playerName": "Bob"})
	view = readView(t, conn)
	assert.Len(t, view["players"], 2)

	s.do(t, http.MethodPost, "/api/game/GAME1/action", map[string]string{"action": "start", "playerId": "p1"})
	view = readView(t, conn)
	assert.Equal(t, "playing", view["phase"])
	assert.Equal(t, "p1", view["myPlayerId"])
	assert.Equal(t, true, view["isMyTurn"])
	assert.Contains(t, view["availableActions"], "drawCard")
}

func TestWebSocketRejectsUnknownGame(t *testing.T) {
	s := newTestStack(t)
	srv := httptest.NewServer(s.api.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/game/NOPE/ws?playerId=p1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
