package collab

import (
	"context"
	"sort"

	"github.com/amoylab/snipcollab/internal/collab/cursor"
	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/cnst"

	"go.opentelemetry.io/otel/attribute"
)

// CursorUpdate is a participant cursor in the feed
type CursorUpdate struct {
	UserID uint `json:"user_id"`
	session.CursorPosition
}

// Updates is the delta returned to a polling participant
type Updates struct {
	Cursors      []CursorUpdate  `json:"cursors"`
	TextChanges  []session.Event `json:"text_changes"`
	ChatMessages []session.Event `json:"chat_messages"`
	// Timestamp is the newest timestamp in the delta, or since when it is empty.
	// Clients pass it back as since on the next poll.
	Timestamp int64 `json:"timestamp"`
}

// GetUpdates returns everything that happened in the session after since (epoch seconds)
func (m *Manager) GetUpdates(ctx context.Context, token string, since int64) (out *Updates, err error) {
	scope, actor, finish, err := m.begin(ctx, "updates", cnst.SpanGetUpdates)
	if err != nil {
		return nil, err
	}
	defer func() { finish(err) }()
	scope.WithAttrs(attribute.Int64("since", since))

	sess, err := m.load(scope.Ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(sess, actor.UserID, m.now()); err != nil {
		return nil, err
	}
	return BuildUpdates(sess, since), nil
}

// BuildUpdates filters the session state to entries newer than since,
// ordered by timestamp with log order kept for ties
func BuildUpdates(sess *session.Session, since int64) *Updates {
	out := &Updates{
		Cursors:      []CursorUpdate{},
		TextChanges:  []session.Event{},
		ChatMessages: []session.Event{},
		Timestamp:    since,
	}

	for userID, pos := range cursor.Since(sess, since) {
		out.Cursors = append(out.Cursors, CursorUpdate{UserID: userID, CursorPosition: pos})
		out.Timestamp = max(out.Timestamp, pos.UpdatedAt)
	}
	sort.SliceStable(out.Cursors, func(i, j int) bool {
		if out.Cursors[i].UpdatedAt != out.Cursors[j].UpdatedAt {
			return out.Cursors[i].UpdatedAt < out.Cursors[j].UpdatedAt
		}
		return out.Cursors[i].UserID < out.Cursors[j].UserID
	})

	for _, ev := range sess.Events {
		if ev.Timestamp <= since {
			continue
		}
		switch ev.Type {
		case session.EventTextChange:
			out.TextChanges = append(out.TextChanges, ev)
		case session.EventChatMessage:
			out.ChatMessages = append(out.ChatMessages, ev)
		}
		out.Timestamp = max(out.Timestamp, ev.Timestamp)
	}
	sortEvents(out.TextChanges)
	sortEvents(out.ChatMessages)
	return out
}

// sortEvents orders by timestamp and keeps log order for equal timestamps
func sortEvents(events []session.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}
