package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists records as JSONB rows keyed by chat id.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the sessions table if it is missing.
func (p *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_sessions (
			chat_id    BIGINT PRIMARY KEY,
			record     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create bot_sessions: %w", err)
	}
	return nil
}

func (p *PGStore) Get(ctx context.Context, chatID int64) (Record, bool, error) {
	var raw []byte
	err := p.db.QueryRow(ctx, "SELECT record FROM bot_sessions WHERE chat_id=$1", chatID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get session %d: %w", chatID, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode session %d: %w", chatID, err)
	}
	return rec, true, nil
}

func (p *PGStore) Set(ctx context.Context, chatID int64, rec Record) error {
	rec.UpdatedAt = time.Now()
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO bot_sessions (chat_id, record, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (chat_id) DO UPDATE SET record=EXCLUDED.record, updated_at=now()`,
		chatID, raw)
	if err != nil {
		return fmt.Errorf("save session %d: %w", chatID, err)
	}
	return nil
}

func (p *PGStore) Delete(ctx context.Context, chatID int64) error {
	_, err := p.db.Exec(ctx, "DELETE FROM bot_sessions WHERE chat_id=$1", chatID)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}
	return nil
}
