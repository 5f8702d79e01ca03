package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/replay"
	"github.com/stagcourt/stag-server/internal/repository"
)

var (
	ErrNameRequired     = errors.New("name required")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrGameFull         = errors.New("game is full")
	ErrNotEnoughPlayers = errors.New("need at least 2 players")
	ErrForbidden        = errors.New("only the host can start")
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrMissingPlayer    = errors.New("missing playerId")
	ErrCodeExhausted    = errors.New("could not generate unique game code")
)

// IsBadRequest reports whether err is a caller mistake rather than a server fault.
func IsBadRequest(err error) bool {
	for _, target := range []error{
		ErrNameRequired, ErrAlreadyStarted, ErrGameFull, ErrNotEnoughPlayers,
		ErrNotInProgress, ErrMissingPlayer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return game.IsRuleError(err)
}

const (
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength    = 6
	codeAttempts  = 5
	maxNameLength = 20
)

// Notifier is told after every committed change to a game.
type Notifier interface {
	GameChanged(gameID string)
}

// Journal records committed steps. *replay.Journal satisfies it.
type Journal interface {
	Append(e replay.Entry) error
	CloseGame(gameID string) error
}

// Service runs the lobby and drives the engine for stored games. Every
// mutation is one store transaction, so actions on a game are serialized.
type Service struct {
	store    repository.GameStore
	engine   *game.Engine
	logger   *zap.Logger
	journal  Journal
	notifier Notifier

	newCode     func() string
	newPlayerID func() string
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithJournal records every committed step.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithCodeGenerator replaces the random game code source.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

// WithPlayerIDs replaces the player id source.
func WithPlayerIDs(gen func() string) Option {
	return func(s *Service) { s.newPlayerID = gen }
}

// NewService creates a table service.
func NewService(store repository.GameStore, engine *game.Engine, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:       store,
		engine:      engine,
		logger:      logger,
		newCode:     randomCode,
		newPlayerID: uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier installs the change notifier. Call before serving traffic.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Engine returns the rules engine the service drives.
func (s *Service) Engine() *game.Engine {
	return s.engine
}

// Joined identifies a seat handed out by Create or Join.
type Joined struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// Create opens a lobby with the caller as host in seat 0.
func (s *Service) Create(ctx context.Context, playerName string) (*Joined, error) {
	name, err := cleanName(playerName)
	if err != nil {
		return nil, err
	}
	hostID := s.newPlayerID()

	for attempt := 0; attempt < codeAttempts; attempt++ {
		gameID := s.newCode()
		row := &repository.GameRow{
			ID:    gameID,
			Phase: repository.PhaseLobby,
			Seats: []repository.LobbySeat{{PlayerID: hostID, Name: name}},
		}
		err := s.store.Insert(ctx, row)
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Debug("game code collision", zap.String("game_id", gameID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create game: %w", err)
		}

		s.record(row, hostID, "create", nil)
		s.logger.Info("game created", zap.String("game_id", gameID), zap.String("player_id", hostID))
		return &Joined{GameID: gameID, PlayerID: hostID}, nil
	}
	return nil, ErrCodeExhausted
}

// Join seats a new player in a lobby.
func (s *Service) Join(ctx context.Context, gameID, playerName string) (*Joined, error) {
	playerID := s.newPlayerID()
	maxSeats := s.engine.Rules().MaxSeats

	row, err := s.store.Update(ctx, gameID, func(row *repository.GameRow) error {
		if row.Phase != repository.PhaseLobby {
			return ErrAlreadyStarted
		}
		if len(row.Seats) >= maxSeats {
			return fmt.Errorf("%w (%d players max)", ErrGameFull, maxSeats)
		}
		name, err := cleanName(playerName)
		if err != nil {
			return err
		}
		row.Seats = append(row.Seats, repository.LobbySeat{PlayerID: playerID, Name: name})
		s.journalLocked(row, playerID, "join", nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined",
		zap.String("game_id", gameID),
		zap.String("player_id", playerID),
		zap.Int("seats", len(row.Seats)),
	)
	s.changed(gameID)
	return &Joined{GameID: gameID, PlayerID: playerID}, nil
}

// Start deals the game. Only the host may start, with at least two players.
func (s *Service) Start(ctx context.Context, gameID, playerID string) error {
	_, err := s.store.Update(ctx, gameID, func(row *repository.GameRow) error {
		if row.Phase != repository.PhaseLobby {
			return ErrAlreadyStarted
		}
		if len(row.Seats) < s.engine.Rules().MinSeats {
			return ErrNotEnoughPlayers
		}
		if playerID == "" || row.Seats[0].PlayerID != playerID {
			return ErrForbidden
		}

		seats := make([]game.Seat, len(row.Seats))
		for i, seat := range row.Seats {
			seats[i] = game.Seat{ID: seat.PlayerID, Name: seat.Name}
		}
		state, err := s.engine.NewGame(seats)
		if err != nil {
			return fmt.Errorf("deal game: %w", err)
		}
		raw, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		row.Phase = repository.PhasePlaying
		row.State = raw
		s.journalLocked(row, playerID, "start", nil)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("game started", zap.String("game_id", gameID), zap.String("player_id", playerID))
	s.changed(gameID)
	return nil
}

// Act applies one engine action and returns the actor's fresh view.
func (s *Service) Act(ctx context.Context, gameID, playerID, action string, payload game.Payload) (*View, error) {
	if playerID == "" {
		return nil, ErrMissingPlayer
	}

	var next *game.GameState
	row, err := s.store.Update(ctx, gameID, func(row *repository.GameRow) error {
		if row.Phase != repository.PhasePlaying {
			return ErrNotInProgress
		}
		state, err := game.DecodeState(row.State)
		if err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		next, err = s.engine.Apply(state, playerID, action, payload)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		row.State = raw
		if next.Finished() {
			row.Phase = repository.PhaseFinished
		}
		s.journalLocked(row, playerID, action, payload)
		return nil
	})
	if err != nil {
		if game.IsRuleError(err) {
			s.logger.Debug("action rejected",
				zap.String("game_id", gameID),
				zap.String("player_id", playerID),
				zap.String("action", action),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if row.Phase == repository.PhaseFinished {
		s.logger.Info("game finished",
			zap.String("game_id", gameID),
			zap.String("winner", next.Winner),
			zap.String("reason", next.WinReason),
		)
		if s.journal != nil {
			if err := s.journal.CloseGame(gameID); err != nil {
				s.logger.Warn("failed to close journal", zap.String("game_id", gameID), zap.Error(err))
			}
		}
	}
	s.changed(gameID)

	pv, err := s.engine.Project(next, playerID)
	if err != nil {
		return nil, err
	}
	return &View{Game: &GameView{GameID: gameID, Phase: row.Phase, PlayerView: pv}}, nil
}

// View returns what playerID may see of a game: the lobby roster before the
// start, the engine projection afterwards.
func (s *Service) View(ctx context.Context, gameID, playerID string) (*View, error) {
	if playerID == "" {
		return nil, ErrMissingPlayer
	}
	row, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.viewOf(row, playerID)
}

func (s *Service) viewOf(row *repository.GameRow, playerID string) (*View, error) {
	if row.Phase == repository.PhaseLobby {
		lobby := &LobbyView{
			GameID:     row.ID,
			Phase:      row.Phase,
			Players:    make([]LobbyPlayer, len(row.Seats)),
			MyPlayerID: playerID,
		}
		for i, seat := range row.Seats {
			lobby.Players[i] = LobbyPlayer{Name: seat.Name, IsMe: seat.PlayerID == playerID}
		}
		return &View{Lobby: lobby}, nil
	}

	state, err := game.DecodeState(row.State)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	pv, err := s.engine.Project(state, playerID)
	if err != nil {
		return nil, err
	}
	return &View{Game: &GameView{GameID: row.ID, Phase: row.Phase, PlayerView: pv}}, nil
}

// Seats lists the player ids of a game in seat order.
func (s *Service) Seats(ctx context.Context, gameID string) ([]string, error) {
	row, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(row.Seats))
	for i, seat := range row.Seats {
		ids[i] = seat.PlayerID
	}
	return ids, nil
}

// journalLocked records a step from inside a store transaction, so entries of
// one game are written in commit order. The row's version is bumped after
// the callback returns, hence the +1.
func (s *Service) journalLocked(row *repository.GameRow, playerID, action string, payload any) {
	if s.journal == nil {
		return
	}
	entry := replay.Entry{
		GameID:   row.ID,
		Seq:      row.Version + 1,
		PlayerID: playerID,
		Action:   action,
		Digest:   repository.Digest(row.State),
		At:       s.now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			entry.Payload = raw
		}
	}
	if err := s.journal.Append(entry); err != nil {
		s.logger.Warn("failed to journal step",
			zap.String("game_id", row.ID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// record journals the row written by Insert, whose version is already stamped.
func (s *Service) record(row *repository.GameRow, playerID, action string, payload any) {
	if s.journal == nil {
		return
	}
	prev := *row
	prev.Version--
	s.journalLocked(&prev, playerID, action, payload)
}

func (s *Service) changed(gameID string) {
	if s.notifier != nil {
		s.notifier.GameChanged(gameID)
	}
}

// cleanName trims a display name and cuts it to the maximum length.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:maxNameLength]))
	}
	return name, nil
}

func randomCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}
