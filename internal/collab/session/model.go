package session

import (
	"time"

	"github.com/amoylab/snipcollab/internal/collab/edit"
)

// Participant is a user taking part in a session. The first participant is the creator.
type Participant struct {
	UserID   uint      `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Selection is a text range selected by a participant
type Selection struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// CursorPosition is the last reported cursor of a participant
type CursorPosition struct {
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	Selection *Selection `json:"selection,omitempty"`
	UpdatedAt int64      `json:"updated_at"`
}

// EventType tags the payload of an Event
type EventType string

const (
	EventTextChange  EventType = "text_change"
	EventChatMessage EventType = "chat_message"
)

// Event is an entry of the append-only session log.
// TextChange events carry Change and Version, chat events carry Message.
type Event struct {
	Type      EventType       `json:"type"`
	UserID    uint            `json:"user_id"`
	Timestamp int64           `json:"timestamp"`
	Change    *edit.Operation `json:"change,omitempty"`
	Version   int64           `json:"version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Session is the persisted state of a collaboration session on one snippet
type Session struct {
	ID             string                  `json:"id"`
	SnippetID      uint                    `json:"snippet_id"`
	Token          string                  `json:"token"`
	Participants   []Participant           `json:"participants"`
	Cursors        map[uint]CursorPosition `json:"cursors"`
	Events         []Event                 `json:"events"`
	LastActivity   time.Time               `json:"last_activity"`
	CreatedAt      time.Time               `json:"created_at"`
	Version        int64                   `json:"version"`
	ContentVersion int64                   `json:"content_version"`
}

// CreatorID returns the user who created the session
func (s *Session) CreatorID() uint {
	if len(s.Participants) == 0 {
		return 0
	}
	return s.Participants[0].UserID
}

// IsParticipant reports whether userID is in the participant list
func (s *Session) IsParticipant(userID uint) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// AddParticipant appends userID unless it is already present. It reports whether the list changed.
func (s *Session) AddParticipant(userID uint, now time.Time) bool {
	if s.IsParticipant(userID) {
		return false
	}
	s.Participants = append(s.Participants, Participant{UserID: userID, JoinedAt: now})
	return true
}

// RemoveParticipant removes userID together with its cursor
func (s *Session) RemoveParticipant(userID uint) bool {
	for i, p := range s.Participants {
		if p.UserID == userID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			delete(s.Cursors, userID)
			return true
		}
	}
	return false
}

// IsExpired reports whether the session has been idle for longer than timeout
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Touch records activity at now
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// AppendEvent adds ev to the log and drops the oldest events beyond maxEvents.
// A maxEvents of zero keeps everything.
func (s *Session) AppendEvent(ev Event, maxEvents int) {
	s.Events = append(s.Events, ev)
	if maxEvents > 0 && len(s.Events) > maxEvents {
		drop := len(s.Events) - maxEvents
		s.Events = append(s.Events[:0:0], s.Events[drop:]...)
	}
}

// Clone returns a deep copy so callers can mutate it without touching stored state
func (s *Session) Clone() *Session {
	c := *s
	c.Participants = append([]Participant(nil), s.Participants...)
	c.Cursors = make(map[uint]CursorPosition, len(s.Cursors))
	for k, v := range s.Cursors {
		if v.Selection != nil {
			sel := *v.Selection
			v.Selection = &sel
		}
		c.Cursors[k] = v
	}
	c.Events = make([]Event, len(s.Events))
	for i, ev := range s.Events {
		if ev.Change != nil {
			op := *ev.Change
			ev.Change = &op
		}
		c.Events[i] = ev
	}
	return &c
}

// AppliedEdits returns the text change events as edit history
func (s *Session) AppliedEdits() []edit.Applied {
	var out []edit.Applied
	for _, ev := range s.Events {
		if ev.Type == EventTextChange && ev.Change != nil {
			out = append(out, edit.Applied{UserID: ev.UserID, Version: ev.Version, Op: *ev.Change})
		}
	}
	return out
}
