package database

import (
	"github.com/amoylab/snipcollab/internal/common/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMySQL(cfg *config.DatabaseConfig) gorm.Dialector {
	return mysql.Open(cfg.GetDSN())
}
