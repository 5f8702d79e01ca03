package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/config"
	"github.com/stagcourt/stag-server/internal/table"
)

// ViewSource builds the view pushed to one subscriber.
type ViewSource interface {
	View(ctx context.Context, gameID, playerID string) (*table.View, error)
}

// Hub keeps WebSocket subscribers per game and pushes each of them a fresh
// view of their own seat whenever the game changes.
type Hub struct {
	views    ViewSource
	logger   *zap.Logger
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	pingInterval time.Duration
	sendBuffer   int

	mu    sync.RWMutex
	games map[string]map[*subscriber]struct{}
}

type subscriber struct {
	gameID   string
	playerID string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// NewHub creates a hub. views is usually the table service.
func NewHub(views ViewSource, cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return &Hub{
		views:  views,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		sendBuffer:   cfg.SendBuffer,
		games:        make(map[string]map[*subscriber]struct{}),
	}
}

// ServeWS upgrades the request and streams views until the client goes away.
// The first message is the current view.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID, playerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}

	sub := &subscriber{
		gameID:   gameID,
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, h.sendBuffer),
		done:     make(chan struct{}),
	}
	h.register(sub)
	h.push(sub)

	go h.writePump(sub)
	h.readPump(sub)
}

// GameChanged pushes fresh views to every subscriber of the game.
func (h *Hub) GameChanged(gameID string) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.games[gameID]))
	for sub := range h.games[gameID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.push(sub)
	}
}

// Subscribers reports how many connections watch a game.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for gameID, subs := range h.games {
		for sub := range subs {
			sub.close()
		}
		delete(h.games, gameID)
	}
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.games[sub.gameID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.games[sub.gameID] = subs
	}
	subs[sub] = struct{}{}
	h.logger.Debug("websocket subscribed",
		zap.String("game_id", sub.gameID),
		zap.String("player_id", sub.playerID),
		zap.Int("subscribers", len(subs)),
	)
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.games[sub.gameID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.games, sub.gameID)
		}
	}
	sub.close()
}

// push builds the subscriber's view and queues it. A subscriber whose queue is
// full is dropped rather than allowed to stall the game.
func (h *Hub) push(sub *subscriber) {
	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()

	view, err := h.views.View(ctx, sub.gameID, sub.playerID)
	if err != nil {
		h.logger.Warn("failed to build pushed view",
			zap.String("game_id", sub.gameID),
			zap.String("player_id", sub.playerID),
			zap.Error(err),
		)
		return
	}
	msg, err := json.Marshal(view)
	if err != nil {
		h.logger.Error("failed to encode pushed view", zap.String("game_id", sub.gameID), zap.Error(err))
		return
	}

	select {
	case sub.send <- msg:
	case <-sub.done:
	default:
		h.logger.Warn("websocket subscriber too slow, dropping",
			zap.String("game_id", sub.gameID),
			zap.String("player_id", sub.playerID),
		)
		h.unregister(sub)
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case <-sub.done:
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(sub)
				return
			}
		}
	}
}

// readPump discards client messages and notices disconnects. Actions go
// through the HTTP or gRPC API, not the socket.
func (h *Hub) readPump(sub *subscriber) {
	defer h.unregister(sub)

	readWait := 2 * h.pingInterval
	_ = sub.conn.SetReadDeadline(time.Now().Add(readWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(readWait))
	})
	sub.conn.SetReadLimit(4 * 1024)

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-sub.done:
			return
		default:
		}
	}
}
