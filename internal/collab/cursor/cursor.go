// Package cursor tracks the caret and selection of every session participant.
package cursor

import (
	"time"

	"github.com/amoylab/snipcollab/internal/collab/session"
)

// Position is a caret location, Column is a byte offset in the line
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// UpdateCursor moves the caret of userID, keeping any selection it already had
func UpdateCursor(sess *session.Session, userID uint, pos Position, now time.Time) session.CursorPosition {
	ensure(sess)
	cur := sess.Cursors[userID]
	cur.Line = pos.Line
	cur.Column = pos.Column
	cur.UpdatedAt = now.Unix()
	sess.Cursors[userID] = cur
	return cur
}

// UpdateSelection sets the selection of userID. A participant without a cursor gets one at 0:0.
func UpdateSelection(sess *session.Session, userID uint, sel session.Selection, now time.Time) session.CursorPosition {
	ensure(sess)
	cur := sess.Cursors[userID]
	cur.Selection = &sel
	cur.UpdatedAt = now.Unix()
	sess.Cursors[userID] = cur
	return cur
}

// Since returns the cursors updated strictly after since
func Since(sess *session.Session, since int64) map[uint]session.CursorPosition {
	out := make(map[uint]session.CursorPosition)
	for user, cur := range sess.Cursors {
		if cur.UpdatedAt > since {
			out[user] = cur
		}
	}
	return out
}

func ensure(sess *session.Session) {
	if sess.Cursors == nil {
		sess.Cursors = make(map[uint]session.CursorPosition)
	}
}
