package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	seats      JSONB NOT NULL DEFAULT '[]',
	state      JSONB,
	digest     TEXT NOT NULL DEFAULT '',
	version    BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps game rows in PostgreSQL. Updates lock the row with
// SELECT ... FOR UPDATE for the length of the transaction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresStore connects, verifies the connection and ensures the schema.
func NewPostgresStore(ctx context.Context, url string, maxConns int, logger *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("max_conns", stats.MaxConns()),
		zap.Int32("total_conns", stats.TotalConns()),
	)

	return &PostgresStore{pool: pool, logger: logger, now: time.Now}, nil
}

func (p *PostgresStore) Insert(ctx context.Context, row *GameRow) error {
	stored := row.Clone()
	stamp(stored, p.now())
	seats, err := encodeSeats(stored.Seats)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO games (id, phase, seats, state, digest, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stored.ID, string(stored.Phase), seats, nullableJSON(stored.State), stored.Digest, stored.Version, stored.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert game %s: %w", row.ID, err)
	}
	*row = *stored
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*GameRow, error) {
	row, err := scanRow(p.pool.QueryRow(ctx, selectGame, id))
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (p *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*GameRow, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warn("rollback failed", zap.String("game_id", id), zap.Error(rbErr))
		}
	}()

	row, err := scanRow(tx.QueryRow(ctx, selectGame+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if err := fn(row); err != nil {
		return nil, err
	}
	row.ID = id
	stamp(row, p.now())

	seats, err := encodeSeats(row.Seats)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE games SET phase = $2, seats = $3, state = $4, digest = $5, version = $6, updated_at = $7
		 WHERE id = $1`,
		id, string(row.Phase), seats, nullableJSON(row.State), row.Digest, row.Version, row.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update game %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit game %s: %w", id, err)
	}
	return row, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

const selectGame = `SELECT id, phase, seats, state, digest, version, updated_at FROM games WHERE id = $1`

func scanRow(r pgx.Row) (*GameRow, error) {
	var (
		row   GameRow
		phase string
		seats []byte
		state []byte
	)
	if err := r.Scan(&row.ID, &phase, &seats, &state, &row.Digest, &row.Version, &row.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	decoded, err := decodeSeats(seats)
	if err != nil {
		return nil, err
	}
	row.Phase = Phase(phase)
	row.Seats = decoded
	row.State = state
	return &row, nil
}

// nullableJSON maps an empty state to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
