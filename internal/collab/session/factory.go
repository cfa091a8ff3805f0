package session

import (
	"fmt"

	"github.com/amoylab/snipcollab/internal/common/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewStore creates a session store based on configuration. db is only used by the "db" type.
func NewStore(logger *zap.Logger, cfg *config.SessionConfig, db *gorm.DB) (Store, error) {
	logger.Info("Initializing session store", zap.String("type", cfg.Type))
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(logger), nil
	case "redis":
		return NewRedisStore(logger, cfg.Redis)
	case "db":
		if db == nil {
			return nil, fmt.Errorf("session store type db requires a database connection")
		}
		return NewDBStore(logger, db)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", cfg.Type)
	}
}
