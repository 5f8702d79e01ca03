package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps game rows in a single SQLite file. One connection is
// shared, so transactions on it are serialized.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite game store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS games (
		id         TEXT PRIMARY KEY,
		phase      TEXT NOT NULL,
		seats      TEXT NOT NULL DEFAULT '[]',
		state      TEXT,
		digest     TEXT NOT NULL DEFAULT '',
		version    INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, row *GameRow) error {
	stored := row.Clone()
	stamp(stored, s.now())
	seats, err := encodeSeats(stored.Seats)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, phase, seats, state, digest, version, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		stored.ID, string(stored.Phase), string(seats), nullableJSON(stored.State),
		stored.Digest, stored.Version, stored.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", row.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	*row = *stored
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*GameRow, error) {
	return scanSQLiteRow(s.db.QueryRowContext(ctx, selectSQLiteGame, id))
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn UpdateFunc) (*GameRow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := scanSQLiteRow(tx.QueryRowContext(ctx, selectSQLiteGame, id))
	if err != nil {
		return nil, err
	}
	if err := fn(row); err != nil {
		return nil, err
	}
	row.ID = id
	stamp(row, s.now())

	seats, err := encodeSeats(row.Seats)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET phase = ?, seats = ?, state = ?, digest = ?, version = ?, updated_at = ? WHERE id = ?`,
		string(row.Phase), string(seats), nullableJSON(row.State), row.Digest, row.Version,
		row.UpdatedAt.Format(time.RFC3339Nano), id,
	); err != nil {
		return nil, fmt.Errorf("update game %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit game %s: %w", id, err)
	}
	return row, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectSQLiteGame = `SELECT id, phase, seats, state, digest, version, updated_at FROM games WHERE id = ?`

func scanSQLiteRow(r *sql.Row) (*GameRow, error) {
	var (
		row       GameRow
		phase     string
		seats     string
		state     sql.NullString
		updatedAt string
	)
	if err := r.Scan(&row.ID, &phase, &seats, &state, &row.Digest, &row.Version, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	decoded, err := decodeSeats([]byte(seats))
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	row.Phase = Phase(phase)
	row.Seats = decoded
	if state.Valid {
		row.State = []byte(state.String)
	}
	row.UpdatedAt = ts
	return &row, nil
}
