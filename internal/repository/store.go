package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/stagcourt/stag-server/internal/config"
)

var (
	// ErrNotFound is returned when no game row has the requested id.
	ErrNotFound = errors.New("game not found")
	// ErrConflict is returned by Insert when the id is already taken.
	ErrConflict = errors.New("game id already exists")
)

// Phase is the lifecycle stage of a game row.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// LobbySeat is a joined player before the game starts. Seat order is slice order.
type LobbySeat struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
}

// GameRow is one persisted game. State is the engine's JSON encoding and is
// empty while the game is in the lobby.
type GameRow struct {
	ID        string
	Phase     Phase
	Seats     []LobbySeat
	State     json.RawMessage
	Digest    string
	Version   int64
	UpdatedAt time.Time
}

// Clone returns a deep copy of the row.
func (r *GameRow) Clone() *GameRow {
	c := *r
	c.Seats = append([]LobbySeat(nil), r.Seats...)
	if r.State != nil {
		c.State = append(json.RawMessage(nil), r.State...)
	}
	return &c
}

// UpdateFunc mutates a row inside a store transaction. Returning an error
// aborts the update and leaves the stored row untouched.
type UpdateFunc func(row *GameRow) error

// GameStore persists game rows. Update is an atomic read-modify-write per id:
// concurrent updates of one game are serialized.
type GameStore interface {
	Insert(ctx context.Context, row *GameRow) error
	Get(ctx context.Context, id string) (*GameRow, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*GameRow, error)
	Close() error
}

// Digest returns the hex blake2b-256 sum of an encoded state.
func Digest(state []byte) string {
	if len(state) == 0 {
		return ""
	}
	sum := blake2b.Sum256(state)
	return hex.EncodeToString(sum[:])
}

// stamp prepares a row for writing after a successful mutation.
func stamp(row *GameRow, now time.Time) {
	row.Digest = Digest(row.State)
	row.Version++
	row.UpdatedAt = now.UTC()
}

// Open creates the store selected by the database config.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (GameStore, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("using in-memory game store")
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.URL, cfg.MaxConns, logger)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func encodeSeats(seats []LobbySeat) ([]byte, error) {
	if seats == nil {
		seats = []LobbySeat{}
	}
	return json.Marshal(seats)
}

func decodeSeats(raw []byte) ([]LobbySeat, error) {
	var seats []LobbySeat
	if len(raw) == 0 {
		return seats, nil
	}
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, fmt.Errorf("decode seats: %w", err)
	}
	return seats, nil
}
