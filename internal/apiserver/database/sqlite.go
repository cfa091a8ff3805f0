package database

import (
	"github.com/amoylab/snipcollab/internal/common/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// newSQLite uses the pure Go driver so collabd builds without cgo
func newSQLite(cfg *config.DatabaseConfig) gorm.Dialector {
	return sqlite.Open(cfg.GetDSN())
}
