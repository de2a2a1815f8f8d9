package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/database"
)

// Open builds the store selected by cfg.SessionBackend, migrating sql
// backends. The returned close func releases the connection.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, func() error, error) {
	switch cfg.SessionBackend {
	case config.SessionMemory:
		return NewMemoryStore(), func() error { return nil }, nil

	case config.SessionRedis:
		client, err := database.ConnectRedis(ctx, cfg, "session", log)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client), client.Close, nil

	case config.SessionSQLite, config.SessionPostgres:
		db, err := database.Open(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(db, log, Migration); err != nil {
			database.Close(db)
			return nil, nil, err
		}
		return NewGormStore(db), func() error { return database.Close(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
