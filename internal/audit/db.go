package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amoylab/snipcollab/internal/apiserver/database"

	"gorm.io/gorm"
)

// LogModel is a row of the audit_logs table
type LogModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ActorID    uint      `gorm:"index"`
	Action     string    `gorm:"type:varchar(50);index"`
	EntityType string    `gorm:"type:varchar(50)"`
	EntityID   string    `gorm:"type:varchar(64);index"`
	OldValues  string    `gorm:"type:text"` // JSON stored as text
	NewValues  string    `gorm:"type:text"` // JSON stored as text
	RequestID  string    `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides the gorm default
func (LogModel) TableName() string {
	return "audit_logs"
}

// DBSink writes entries to the audit_logs table
type DBSink struct {
	db *gorm.DB
}

var _ Sink = (*DBSink)(nil)

// NewDBSink creates a database sink and migrates its table
func NewDBSink(db *gorm.DB) (*DBSink, error) {
	if err := db.AutoMigrate(&LogModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit table: %w", err)
	}
	return &DBSink{db: db}, nil
}

// Log implements Sink
func (s *DBSink) Log(ctx context.Context, e Entry) error {
	oldValues, err := encode(e.OldValues)
	if err != nil {
		return err
	}
	newValues, err := encode(e.NewValues)
	if err != nil {
		return err
	}
	return database.Conn(ctx, s.db).Create(&LogModel{
		ActorID:    e.ActorID,
		Action:     e.Action.String(),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		RequestID:  e.RequestID,
	}).Error
}

func encode(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode audit values: %w", err)
	}
	return string(b), nil
}
