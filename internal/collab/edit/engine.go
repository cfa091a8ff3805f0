package edit

import (
	"context"
	"errors"
	"fmt"

	"github.com/amoylab/snipcollab/internal/snippet"

	"go.uber.org/zap"
)

// Applied is an edit that already went into a session, as recorded in its event log
type Applied struct {
	UserID  uint
	Version int64
	Op      Operation
}

// Conflicts returns the edits of other users applied after baseVersion whose
// line interval overlaps op. Edits by userID itself never conflict.
func Conflicts(op Operation, userID uint, baseVersion int64, history []Applied) []Applied {
	lines := op.Lines()
	var out []Applied
	for _, h := range history {
		if h.Version <= baseVersion || h.UserID == userID {
			continue
		}
		if h.Op.Lines().Overlaps(lines) {
			out = append(out, h)
		}
	}
	return out
}

// Engine applies edits to the latest code of a snippet and stores the result as a new version
type Engine struct {
	logger   *zap.Logger
	snippets snippet.Store
	attempts int
}

// NewEngine creates an edit engine backed by the snippet store.
// attempts bounds the re-reads after a concurrent save of the same snippet.
func NewEngine(logger *zap.Logger, snippets snippet.Store, attempts int) *Engine {
	if attempts <= 0 {
		attempts = 1
	}
	return &Engine{
		logger:   logger.Named("collab.edit"),
		snippets: snippets,
		attempts: attempts,
	}
}

// Result is the outcome of ApplyEdit
type Result struct {
	Code           string `json:"code"`
	Changed        bool   `json:"changed"`
	SnippetVersion int    `json:"snippet_version,omitempty"`
}

// ApplyEdit fetches the latest code of snippetID, applies op and saves a new
// version attributed to userID. A no-op edit is not saved. When another writer
// saved a version after the read, the edit is re-applied to the newer code.
// snippet.ErrVersionConflict is returned once the attempts run out.
func (e *Engine) ApplyEdit(ctx context.Context, snippetID uint, op Operation, userID uint) (*Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < e.attempts; attempt++ {
		code, base, err := e.snippets.GetLatestCode(ctx, snippetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load snippet code: %w", err)
		}

		buf := NewBuffer(code)
		changed, err := buf.Apply(op)
		if err != nil {
			return nil, err
		}
		if !changed {
			e.logger.Debug("edit left the code unchanged",
				zap.Uint("snippet_id", snippetID),
				zap.Stringer("op", op))
			return &Result{Code: code}, nil
		}

		newCode := buf.String()
		version, err := e.snippets.SaveNewVersion(ctx, snippetID, newCode, userID, base)
		if errors.Is(err, snippet.ErrVersionConflict) {
			e.logger.Debug("snippet saved concurrently, reapplying edit",
				zap.Uint("snippet_id", snippetID),
				zap.Int("base_version", base),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save snippet version: %w", err)
		}
		return &Result{Code: newCode, Changed: true, SnippetVersion: version}, nil
	}

	e.logger.Warn("giving up edit after repeated snippet version conflicts",
		zap.Uint("snippet_id", snippetID),
		zap.Int("attempts", e.attempts))
	return nil, snippet.ErrVersionConflict
}
