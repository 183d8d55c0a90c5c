package claimStorage

import (
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/pkg/postgres"
	"go.uber.org/zap"
)

// NewSlotFromConfig opens the persistence engine selected by storage.engine.
func NewSlotFromConfig(cfg *config.Config, l *zap.Logger) (Slot, error) {
	switch cfg.StorageConfig.Engine {
	case config.StorageEngine_LevelDb:
		l.Sugar().Infow("Using leveldb claim storage", zap.String("path", cfg.StorageConfig.LevelDbPath))
		return NewLevelDbSlot(cfg.StorageConfig.LevelDbPath)
	case config.StorageEngine_Postgres:
		l.Sugar().Infow("Using postgres claim storage",
			zap.String("host", cfg.DatabaseConfig.Host),
			zap.String("db", cfg.DatabaseConfig.DbName),
		)
		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pgConfig.CreateDbIfNotExists = true

		pg, err := postgres.NewPostgres(pgConfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to setup postgres connection")
		}
		grm, err := postgres.NewGormFromPostgresConnection(pg.Db)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gorm instance")
		}
		return NewPostgresSlot(grm)
	case config.StorageEngine_Memory:
		l.Sugar().Warnw("Using in-memory claim storage; records will not survive a restart")
		return NewMemorySlot(), nil
	default:
		return nil, errors.Errorf("unsupported storage engine: %s", cfg.StorageConfig.Engine)
	}
}
