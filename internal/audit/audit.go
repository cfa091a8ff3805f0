// Package audit records who did what to which collaboration session.
package audit

import (
	"context"

	"github.com/amoylab/snipcollab/internal/common/cnst"
)

// Entry is one audit record. OldValues and NewValues are JSON-encodable snapshots.
type Entry struct {
	ActorID    uint
	Action     cnst.ActionType
	EntityType cnst.EntityType
	EntityID   string
	OldValues  any
	NewValues  any
	RequestID  string
}

// Sink persists audit entries. Callers treat failures as non-fatal.
type Sink interface {
	Log(ctx context.Context, e Entry) error
}

// Multi fans an entry out to every sink and returns the first error
type Multi []Sink

// Log implements Sink
func (m Multi) Log(ctx context.Context, e Entry) error {
	var first error
	for _, s := range m {
		if err := s.Log(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop discards entries
type Nop struct{}

// Log implements Sink
func (Nop) Log(context.Context, Entry) error { return nil }
