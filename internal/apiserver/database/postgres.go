package database

import (
	"github.com/amoylab/snipcollab/internal/common/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newPostgres(cfg *config.DatabaseConfig) gorm.Dialector {
	return postgres.Open(cfg.GetDSN())
}
