package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open returns the Store implementation selected by typ: "memory", "json"
// or "postgres".
func Open(ctx context.Context, typ, path, dsn string) (Store, error) {
	switch typ {
	case "", "memory":
		return NewMemoryStore(), nil
	case "json":
		return NewJSONStore(path)
	case "postgres":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		s := NewPGStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", typ)
	}
}
