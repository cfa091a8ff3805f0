package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/snipcollab/internal/apiserver/database"
	"github.com/amoylab/snipcollab/internal/common/cnst"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionModel is the table row of a session. Nested collections are stored as JSON text.
type SessionModel struct {
	Token          string    `gorm:"primaryKey;type:varchar(64)"`
	ID             string    `gorm:"type:varchar(36);uniqueIndex"`
	SnippetID      uint      `gorm:"uniqueIndex;not null"`
	Participants   string    `gorm:"type:text"`
	Cursors        string    `gorm:"type:text"`
	Events         string    `gorm:"type:text"`
	LastActivity   time.Time `gorm:"index"`
	CreatedAt      time.Time
	Version        int64 `gorm:"not null;default:1"`
	ContentVersion int64 `gorm:"not null;default:0"`
}

// TableName overrides the gorm default
func (SessionModel) TableName() string {
	return "collaboration_sessions"
}

func toModel(sess *Session) (*SessionModel, error) {
	participants, err := json.Marshal(sess.Participants)
	if err != nil {
		return nil, err
	}
	cursors, err := json.Marshal(sess.Cursors)
	if err != nil {
		return nil, err
	}
	events, err := json.Marshal(sess.Events)
	if err != nil {
		return nil, err
	}
	return &SessionModel{
		Token:          sess.Token,
		ID:             sess.ID,
		SnippetID:      sess.SnippetID,
		Participants:   string(participants),
		Cursors:        string(cursors),
		Events:         string(events),
		LastActivity:   sess.LastActivity,
		CreatedAt:      sess.CreatedAt,
		Version:        sess.Version,
		ContentVersion: sess.ContentVersion,
	}, nil
}

func (m *SessionModel) toSession() (*Session, error) {
	sess := &Session{
		ID:             m.ID,
		SnippetID:      m.SnippetID,
		Token:          m.Token,
		Cursors:        make(map[uint]CursorPosition),
		LastActivity:   m.LastActivity,
		CreatedAt:      m.CreatedAt,
		Version:        m.Version,
		ContentVersion: m.ContentVersion,
	}
	if m.Participants != "" {
		if err := json.Unmarshal([]byte(m.Participants), &sess.Participants); err != nil {
			return nil, fmt.Errorf("failed to decode participants: %w", err)
		}
	}
	if m.Cursors != "" && m.Cursors != "null" {
		if err := json.Unmarshal([]byte(m.Cursors), &sess.Cursors); err != nil {
			return nil, fmt.Errorf("failed to decode cursors: %w", err)
		}
	}
	if m.Events != "" {
		if err := json.Unmarshal([]byte(m.Events), &sess.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
	}
	return sess, nil
}

// DBStore implements Store on a relational database through gorm
type DBStore struct {
	logger *zap.Logger
	db     *gorm.DB
}

var _ Store = (*DBStore)(nil)

// NewDBStore creates a database-backed session store and migrates its table
func NewDBStore(logger *zap.Logger, db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&SessionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session table: %w", err)
	}
	return &DBStore{
		logger: logger.Named("session.store.db"),
		db:     db,
	}, nil
}

// Create implements Store.Create
func (s *DBStore) Create(ctx context.Context, sess *Session) error {
	stored := sess.Clone()
	stored.Version = 1
	model, err := toModel(stored)
	if err != nil {
		return err
	}

	err = database.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&SessionModel{}).
			Where("snippet_id = ? OR token = ?", sess.SnippetID, sess.Token).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return cnst.ErrDuplicateSession
		}
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return cnst.ErrDuplicateSession
	}
	if err != nil {
		return err
	}

	sess.Version = 1
	return nil
}

func (s *DBStore) first(ctx context.Context, query string, arg any) (*Session, error) {
	var model SessionModel
	if err := database.Conn(ctx, s.db).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return model.toSession()
}

// Get implements Store.Get
func (s *DBStore) Get(ctx context.Context, token string) (*Session, error) {
	return s.first(ctx, "token = ?", token)
}

// GetBySnippet implements Store.GetBySnippet
func (s *DBStore) GetBySnippet(ctx context.Context, snippetID uint) (*Session, error) {
	return s.first(ctx, "snippet_id = ?", snippetID)
}

// CompareAndSwap implements Store.CompareAndSwap with a conditional UPDATE on the version column
func (s *DBStore) CompareAndSwap(ctx context.Context, sess *Session, expectedVersion int64) error {
	next := sess.Clone()
	next.Version = expectedVersion + 1
	model, err := toModel(next)
	if err != nil {
		return err
	}

	res := database.Conn(ctx, s.db).Model(&SessionModel{}).
		Where("token = ? AND version = ?", sess.Token, expectedVersion).
		Updates(map[string]any{
			"participants":    model.Participants,
			"cursors":         model.Cursors,
			"events":          model.Events,
			"last_activity":   model.LastActivity,
			"version":         model.Version,
			"content_version": model.ContentVersion,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := database.Conn(ctx, s.db).Model(&SessionModel{}).Where("token = ?", sess.Token).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotFound
		}
		return cnst.ErrVersionConflict
	}

	sess.Version = next.Version
	return nil
}

// Delete implements Store.Delete
func (s *DBStore) Delete(ctx context.Context, token string) (bool, error) {
	res := database.Conn(ctx, s.db).Where("token = ?", token).Delete(&SessionModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List implements Store.List
func (s *DBStore) List(ctx context.Context) ([]*Session, error) {
	var models []SessionModel
	if err := database.Conn(ctx, s.db).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(models))
	for i := range models {
		sess, err := models[i].toSession()
		if err != nil {
			s.logger.Warn("skipping undecodable session row",
				zap.String("id", models[i].ID),
				zap.Error(err))
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Close is a no-op, the gorm connection is owned by the caller
func (s *DBStore) Close() error {
	return nil
}
