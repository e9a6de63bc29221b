package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/config"
	"github.com/pixelarena/arena-server-go/internal/game/character"
)

// Open returns the store selected by cfg.Driver. A SQLite store is seeded
// with any characters listed in cfg so a fresh file is immediately usable.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (CharacterStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.StoreSQLite:
		store, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := seedSheets(ctx, store, cfg.Characters); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("character store opened",
			zap.String("driver", config.StoreSQLite),
			zap.String("path", cfg.Path),
			zap.Int("seeded", len(cfg.Characters)),
		)
		return store, nil
	case config.StorePostgres:
		return NewPostgresStore(ctx, cfg.DSN, logger)
	case config.StoreMemory, "":
		store, err := NewMemoryStore(cfg.Characters)
		if err != nil {
			return nil, err
		}
		logger.Info("character store opened",
			zap.String("driver", config.StoreMemory),
			zap.Int("characters", len(cfg.Characters)),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func seedSheets(ctx context.Context, store *SQLiteStore, sheets []character.Sheet) error {
	if len(sheets) == 0 {
		return nil
	}
	seed := make([]*character.Combatant, 0, len(sheets))
	for _, sheet := range sheets {
		c, err := character.FromSheet(sheet)
		if err != nil {
			return err
		}
		seed = append(seed, c)
	}
	return store.Seed(ctx, seed...)
}
