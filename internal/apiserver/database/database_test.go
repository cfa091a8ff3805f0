package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "nested", "collab.db")}
	db, err := Open(zap.NewNop(), cfg)
	require.NoError(t, err)
	defer Close(db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(zap.NewNop(), &config.DatabaseConfig{Type: "oracle"})
	assert.ErrorIs(t, err, cnst.ErrInvalidDatabaseType)
}

func TestDialectorFor(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql"} {
		d, err := dialectorFor(&config.DatabaseConfig{Type: typ, Host: "localhost", Port: 1, User: "u", DBName: "d"})
		require.NoError(t, err)
		assert.Equal(t, typ, d.Name())
	}
}

func TestConn(t *testing.T) {
	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "tx.db")}
	db, err := Open(zap.NewNop(), cfg)
	require.NoError(t, err)
	defer Close(db)

	ctx := context.Background()
	assert.Nil(t, TransactionFromContext(ctx))

	err = db.Transaction(func(tx *gorm.DB) error {
		txCtx := ContextWithTransaction(ctx, tx)
		assert.Same(t, tx, Conn(txCtx, db))
		return nil
	})
	require.NoError(t, err)
	assert.NotSame(t, db, Conn(ctx, db))
}
