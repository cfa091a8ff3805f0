package edit

import (
	"strings"
	"unicode/utf8"
)

// Buffer holds text as an arena of lines, split on '\n'.
// Operations address lines by index and splice in place.
type Buffer struct {
	lines []string
}

// NewBuffer creates a buffer from text
func NewBuffer(text string) *Buffer {
	return &Buffer{lines: strings.Split(text, "\n")}
}

// String joins the lines back into text
func (b *Buffer) String() string {
	return strings.Join(b.lines, "\n")
}

// LineCount returns the number of lines, an empty text has one empty line
func (b *Buffer) LineCount() int {
	return len(b.lines)
}

// Line returns the text of line i without its terminator
func (b *Buffer) Line(i int) string {
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return b.lines[i]
}

// Apply executes op against the buffer. It reports whether the buffer changed;
// operations addressing lines outside the buffer leave it untouched.
func (b *Buffer) Apply(op Operation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, err
	}
	switch op.Type {
	case OpInsert:
		return b.insert(op.Line, op.Column, op.Text), nil
	case OpDelete:
		return b.delete(op.StartLine, op.StartColumn, op.EndLine, op.EndColumn), nil
	default:
		if !b.validLine(op.StartLine) || !b.validLine(op.EndLine) {
			return false, nil
		}
		deleted := b.delete(op.StartLine, op.StartColumn, op.EndLine, op.EndColumn)
		inserted := b.insert(op.StartLine, op.StartColumn, op.Text)
		return deleted || inserted, nil
	}
}

func (b *Buffer) validLine(i int) bool {
	return i >= 0 && i < len(b.lines)
}

func (b *Buffer) insert(line, column int, text string) bool {
	if !b.validLine(line) || text == "" {
		return false
	}
	cur := b.lines[line]
	col := clampColumn(cur, column)
	b.splice(line, line, cur[:col]+text+cur[col:])
	return true
}

func (b *Buffer) delete(startLine, startColumn, endLine, endColumn int) bool {
	if !b.validLine(startLine) || !b.validLine(endLine) || endLine < startLine {
		return false
	}
	first := b.lines[startLine]
	last := b.lines[endLine]
	sc := clampColumn(first, startColumn)
	ec := clampColumn(last, endColumn)
	if startLine == endLine && ec <= sc {
		return false
	}
	b.splice(startLine, endLine, first[:sc]+last[ec:])
	return true
}

// splice replaces lines [from, to] with the lines of text
func (b *Buffer) splice(from, to int, text string) {
	repl := strings.Split(text, "\n")
	tail := b.lines[to+1:]
	out := make([]string, 0, from+len(repl)+len(tail))
	out = append(out, b.lines[:from]...)
	out = append(out, repl...)
	out = append(out, tail...)
	b.lines = out
}

// clampColumn bounds column to the line and moves it back to the start of
// the rune it falls in, so splicing never breaks a UTF-8 sequence.
func clampColumn(line string, column int) int {
	if column <= 0 {
		return 0
	}
	if column >= len(line) {
		return len(line)
	}
	for column > 0 && !utf8.RuneStart(line[column]) {
		column--
	}
	return column
}

// ApplyText applies op to text and returns the result
func ApplyText(text string, op Operation) (string, error) {
	b := NewBuffer(text)
	changed, err := b.Apply(op)
	if err != nil {
		return text, err
	}
	if !changed {
		return text, nil
	}
	return b.String(), nil
}
