package database

import (
	"fmt"
	"time"

	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/common/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a gorm connection for the configured database type
func Open(lg *zap.Logger, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	lg.Info("Database opened",
		zap.String("type", cfg.Type),
		zap.String("dbname", cfg.DBName))
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "postgres":
		return newPostgres(cfg), nil
	case "mysql":
		return newMySQL(cfg), nil
	case "sqlite":
		return newSQLite(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", cnst.ErrInvalidDatabaseType, cfg.Type)
	}
}

// Close closes the underlying sql.DB
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
