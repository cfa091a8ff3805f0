package snippet

import (
	"time"

	"gorm.io/gorm"
)

// SnippetModel is the database model of a snippet
type SnippetModel struct {
	ID         uint           `gorm:"primaryKey;autoIncrement"`
	OwnerID    uint           `gorm:"column:owner_id;not null;index"`
	Title      string         `gorm:"column:title;type:varchar(255)"`
	Language   string         `gorm:"column:language;type:varchar(50)"`
	Visibility string         `gorm:"column:visibility;type:varchar(20);not null;default:'public'"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (SnippetModel) TableName() string {
	return "snippets"
}

// ToSnippet converts the database model to a Snippet
func (m *SnippetModel) ToSnippet() *Snippet {
	return &Snippet{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		Language:   m.Language,
		Visibility: Visibility(m.Visibility),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// VersionModel is one stored revision of a snippet's code
type VersionModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	SnippetID uint      `gorm:"column:snippet_id;not null;uniqueIndex:idx_snippet_version,priority:1"`
	Version   int       `gorm:"column:version;not null;uniqueIndex:idx_snippet_version,priority:2"`
	Code      string    `gorm:"column:code;type:text"`
	EditorID  uint      `gorm:"column:editor_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (VersionModel) TableName() string {
	return "snippet_versions"
}

// BeforeCreate is a GORM hook that sets timestamps
func (m *VersionModel) BeforeCreate(_ *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return nil
}
