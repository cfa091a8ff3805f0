package snippet

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a snippet does not exist
var ErrNotFound = errors.New("snippet not found")

// ErrVersionConflict is returned by SaveNewVersion when a version newer than the base was saved meanwhile
var ErrVersionConflict = errors.New("snippet version changed concurrently")

// Visibility controls who may read and collaborate on a snippet
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Snippet is the part of a snippet the collaboration engine needs
type Snippet struct {
	ID         uint       `json:"id"`
	OwnerID    uint       `json:"owner_id"`
	Title      string     `json:"title"`
	Language   string     `json:"language"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CanCollaborate reports whether userID may open or join a collaboration session
func (s *Snippet) CanCollaborate(userID uint) bool {
	return s.Visibility != VisibilityPrivate || s.OwnerID == userID
}

// Store gives access to snippets and their code versions
type Store interface {
	// FindSnippet returns the snippet or ErrNotFound
	FindSnippet(ctx context.Context, id uint) (*Snippet, error)

	// GetLatestCode returns the code of the newest version and its number
	GetLatestCode(ctx context.Context, id uint) (code string, version int, err error)

	// SaveNewVersion stores code as version baseVersion+1 attributed to editorID.
	// It returns ErrVersionConflict when baseVersion is no longer the newest version.
	SaveNewVersion(ctx context.Context, id uint, code string, editorID uint, baseVersion int) (int, error)
}
