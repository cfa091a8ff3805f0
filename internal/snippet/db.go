package snippet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBStore implements Store on top of gorm
type DBStore struct {
	logger *zap.Logger
	db     *gorm.DB
}

var _ Store = (*DBStore)(nil)

// NewDBStore creates a snippet store and migrates its tables
func NewDBStore(logger *zap.Logger, db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&SnippetModel{}, &VersionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snippet tables: %w", err)
	}
	return &DBStore{
		logger: logger.Named("snippet.store.db"),
		db:     db,
	}, nil
}

// CreateSnippet stores a snippet together with its first version
func (s *DBStore) CreateSnippet(ctx context.Context, sn *Snippet, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &SnippetModel{
			OwnerID:    sn.OwnerID,
			Title:      sn.Title,
			Language:   sn.Language,
			Visibility: string(sn.Visibility),
		}
		if model.Visibility == "" {
			model.Visibility = string(VisibilityPublic)
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if err := tx.Create(&VersionModel{SnippetID: model.ID, Version: 1, Code: code, EditorID: sn.OwnerID}).Error; err != nil {
			return err
		}
		*sn = *model.ToSnippet()
		return nil
	})
}

// FindSnippet implements Store.FindSnippet
func (s *DBStore) FindSnippet(ctx context.Context, id uint) (*Snippet, error) {
	var model SnippetModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return model.ToSnippet(), nil
}

// GetLatestCode implements Store.GetLatestCode
func (s *DBStore) GetLatestCode(ctx context.Context, id uint) (string, int, error) {
	var v VersionModel
	err := s.db.WithContext(ctx).
		Where("snippet_id = ?", id).
		Order("version desc").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}
	return v.Code, v.Version, nil
}

// SaveNewVersion implements Store.SaveNewVersion
func (s *DBStore) SaveNewVersion(ctx context.Context, id uint, code string, editorID uint, baseVersion int) (int, error) {
	next := baseVersion + 1
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sn SnippetModel
		if err := tx.First(&sn, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var latest int
		if err := tx.Model(&VersionModel{}).
			Where("snippet_id = ?", id).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}
		if latest != baseVersion {
			return ErrVersionConflict
		}

		// the unique (snippet_id, version) index rejects a concurrent writer that read the same max
		if err := tx.Create(&VersionModel{SnippetID: id, Version: next, Code: code, EditorID: editorID}).Error; err != nil {
			return err
		}
		return tx.Model(&sn).Update("updated_at", time.Now()).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}

	s.logger.Debug("saved snippet version",
		zap.Uint("snippet_id", id),
		zap.Int("version", next),
		zap.Uint("editor_id", editorID))
	return next, nil
}
