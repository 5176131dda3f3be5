// Package store provides the PostgreSQL-backed implementations of the
// bot identity and match history ports, grounded on the retrieval pack's
// database/sql-over-pgx/v5 repository pattern.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"arena/internal/ports"
	"arena/internal/replay"
)

// DB wraps a connection pool shared by every repository in this package.
type DB struct {
	*sql.DB
}

// Config holds the parameters needed to open a PostgreSQL connection pool.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sane local-development defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "arena",
		Database:        "arena",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// Open establishes the connection pool via the pgx stdlib driver.
func Open(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return &DB{conn}, nil
}

// Schema is the DDL required by both repositories below. Callers apply it
// once at startup (or via an external migration tool); it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS bot_identities (
	bot_id       TEXT PRIMARY KEY,
	bot_name     TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	rating       INTEGER NOT NULL DEFAULT 1000,
	credential   TEXT NOT NULL UNIQUE,
	created_at   TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_history (
	match_id  TEXT PRIMARY KEY,
	p1_bot_id TEXT NOT NULL,
	p2_bot_id TEXT NOT NULL,
	ended_at  TIMESTAMPTZ NOT NULL,
	record    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS match_history_ended_at_idx ON match_history (ended_at DESC);
CREATE INDEX IF NOT EXISTS match_history_p1_idx ON match_history (p1_bot_id, ended_at DESC);
CREATE INDEX IF NOT EXISTS match_history_p2_idx ON match_history (p2_bot_id, ended_at DESC);
`

// BotIdentityRepository is the PostgreSQL-backed ports.BotIdentityStore.
type BotIdentityRepository struct {
	db *DB
}

// NewBotIdentityRepository wraps db as a ports.BotIdentityStore.
func NewBotIdentityRepository(db *DB) *BotIdentityRepository {
	return &BotIdentityRepository{db: db}
}

var _ ports.BotIdentityStore = (*BotIdentityRepository)(nil)

func (r *BotIdentityRepository) GetByCredential(ctx context.Context, credential string) (*ports.BotIdentity, error) {
	return r.scanOne(ctx, `SELECT bot_id, bot_name, owner_id, rating, credential, created_at, last_seen_at
		FROM bot_identities WHERE credential = $1`, credential)
}

func (r *BotIdentityRepository) GetByID(ctx context.Context, botID string) (*ports.BotIdentity, error) {
	return r.scanOne(ctx, `SELECT bot_id, bot_name, owner_id, rating, credential, created_at, last_seen_at
		FROM bot_identities WHERE bot_id = $1`, botID)
}

func (r *BotIdentityRepository) scanOne(ctx context.Context, query string, arg string) (*ports.BotIdentity, error) {
	var id ports.BotIdentity
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&id.BotID, &id.BotName, &id.OwnerID, &id.Rating, &id.Credential, &id.CreatedAt, &id.LastSeenAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup bot identity: %w", err)
	}
	return &id, nil
}

func (r *BotIdentityRepository) UpdateLastSeen(ctx context.Context, botID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bot_identities SET last_seen_at = $1 WHERE bot_id = $2`, at, botID)
	if err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}
	return nil
}

func (r *BotIdentityRepository) UpdateRating(ctx context.Context, botID string, newRating int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bot_identities SET rating = $1 WHERE bot_id = $2`, newRating, botID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

func (r *BotIdentityRepository) Create(ctx context.Context, botName, ownerID string) (*ports.BotIdentity, error) {
	id := ports.BotIdentity{
		BotID:      uuid.NewString(),
		BotName:    botName,
		OwnerID:    ownerID,
		Rating:     1000,
		Credential: uuid.NewString(),
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO bot_identities
		(bot_id, bot_name, owner_id, rating, credential, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.BotID, id.BotName, id.OwnerID, id.Rating, id.Credential, id.CreatedAt, id.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("create bot identity: %w", err)
	}
	return &id, nil
}

func (r *BotIdentityRepository) List(ctx context.Context) ([]*ports.BotIdentity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bot_id, bot_name, owner_id, rating, credential, created_at, last_seen_at
		FROM bot_identities ORDER BY rating DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bot identities: %w", err)
	}
	defer rows.Close()

	var out []*ports.BotIdentity
	for rows.Next() {
		var id ports.BotIdentity
		if err := rows.Scan(&id.BotID, &id.BotName, &id.OwnerID, &id.Rating, &id.Credential, &id.CreatedAt, &id.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan bot identity: %w", err)
		}
		out = append(out, &id)
	}
	return out, rows.Err()
}

// MatchHistoryRepository is the PostgreSQL-backed ports.MatchHistoryStore.
// Replays are stored as JSONB — the replay shape is append-only by nature
// (a finalized match is never mutated again), so a single JSON column
// avoids mapping every per-frame field into relational columns.
type MatchHistoryRepository struct {
	db *DB
}

// NewMatchHistoryRepository wraps db as a ports.MatchHistoryStore.
func NewMatchHistoryRepository(db *DB) *MatchHistoryRepository {
	return &MatchHistoryRepository{db: db}
}

var _ ports.MatchHistoryStore = (*MatchHistoryRepository)(nil)

func (r *MatchHistoryRepository) SaveMatch(ctx context.Context, rec replay.Replay) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal replay: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO match_history (match_id, p1_bot_id, p2_bot_id, ended_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id) DO NOTHING`,
		rec.MatchID, rec.Player1BotID, rec.Player2BotID, rec.EndedAt, data)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

func (r *MatchHistoryRepository) GetMatch(ctx context.Context, matchID string) (*replay.Replay, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT record FROM match_history WHERE match_id = $1`, matchID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return decodeReplay(data)
}

func (r *MatchHistoryRepository) GetRecentMatches(ctx context.Context, limit int) ([]*replay.Replay, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM match_history ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent matches: %w", err)
	}
	return scanReplays(rows)
}

func (r *MatchHistoryRepository) GetBotMatches(ctx context.Context, botID string, limit int) ([]*replay.Replay, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM match_history
		WHERE p1_bot_id = $1 OR p2_bot_id = $1 ORDER BY ended_at DESC LIMIT $2`, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("get bot matches: %w", err)
	}
	return scanReplays(rows)
}

func scanReplays(rows *sql.Rows) ([]*replay.Replay, error) {
	defer rows.Close()
	var out []*replay.Replay
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan replay: %w", err)
		}
		rec, err := decodeReplay(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeReplay(data []byte) (*replay.Replay, error) {
	var rec replay.Replay
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal replay: %w", err)
	}
	return &rec, nil
}
