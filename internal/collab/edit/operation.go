package edit

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation indicates an operation type other than insert, delete or replace
	ErrUnknownOperation = errors.New("unknown edit operation")
	// ErrNegativePosition indicates a negative line or column
	ErrNegativePosition = errors.New("line and column must not be negative")
	// ErrInvertedRange indicates an end position before the start position
	ErrInvertedRange = errors.New("range end is before range start")
)

// OpType is the kind of an edit operation
type OpType string

const (
	OpInsert  OpType = "insert"
	OpDelete  OpType = "delete"
	OpReplace OpType = "replace"
)

// Operation is a line/column addressed edit. Insert uses Line and Column,
// Delete and Replace use the Start/End fields. Columns are byte offsets into
// the UTF-8 encoded line.
type Operation struct {
	Type        OpType `json:"type"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
	Text        string `json:"text,omitempty"`
}

// Insert returns an insert operation
func Insert(line, column int, text string) Operation {
	return Operation{Type: OpInsert, Line: line, Column: column, Text: text}
}

// Delete returns a delete operation over [start, end)
func Delete(startLine, startColumn, endLine, endColumn int) Operation {
	return Operation{Type: OpDelete, StartLine: startLine, StartColumn: startColumn, EndLine: endLine, EndColumn: endColumn}
}

// Replace returns a replace operation over [start, end)
func Replace(startLine, startColumn, endLine, endColumn int, text string) Operation {
	return Operation{Type: OpReplace, StartLine: startLine, StartColumn: startColumn, EndLine: endLine, EndColumn: endColumn, Text: text}
}

// Validate rejects operations that are malformed regardless of the text they apply to.
// Out-of-range lines are not an error, they make the operation a no-op.
func (op Operation) Validate() error {
	switch op.Type {
	case OpInsert:
		if op.Line < 0 || op.Column < 0 {
			return ErrNegativePosition
		}
	case OpDelete, OpReplace:
		if op.StartLine < 0 || op.StartColumn < 0 || op.EndLine < 0 || op.EndColumn < 0 {
			return ErrNegativePosition
		}
		if op.EndLine < op.StartLine || (op.EndLine == op.StartLine && op.EndColumn < op.StartColumn) {
			return ErrInvertedRange
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return nil
}

// Lines returns the closed interval of lines the operation touches
func (op Operation) Lines() LineRange {
	if op.Type == OpInsert {
		return LineRange{Start: op.Line, End: op.Line}
	}
	return LineRange{Start: op.StartLine, End: op.EndLine}
}

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op.Type {
	case OpInsert:
		return fmt.Sprintf("Insert(%d:%d, %q)", op.Line, op.Column, op.Text)
	case OpDelete:
		return fmt.Sprintf("Delete[%d:%d-%d:%d)", op.StartLine, op.StartColumn, op.EndLine, op.EndColumn)
	case OpReplace:
		return fmt.Sprintf("Replace[%d:%d-%d:%d) with %q", op.StartLine, op.StartColumn, op.EndLine, op.EndColumn, op.Text)
	default:
		return fmt.Sprintf("Unknown(%s)", op.Type)
	}
}

// LineRange is a closed interval of line indices
type LineRange struct {
	Start int
	End   int
}

// Overlaps returns true if the two intervals share at least one line
func (r LineRange) Overlaps(other LineRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}
