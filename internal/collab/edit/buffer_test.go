package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		op   Operation
		want string
	}{
		{"insert mid line", "ab\ncd", Insert(0, 1, "X"), "aXb\ncd"},
		{"insert at line end", "ab\ncd", Insert(1, 2, "!"), "ab\ncd!"},
		{"insert column past end clamps", "ab\ncd", Insert(1, 99, "!"), "ab\ncd!"},
		{"insert newline splits line", "abcd", Insert(0, 2, "\n"), "ab\ncd"},
		{"insert multi-line text", "ac", Insert(0, 1, "b\nb"), "ab\nbc"},
		{"insert into empty text", "", Insert(0, 0, "x"), "x"},
		{"insert out of range line", "ab", Insert(3, 0, "x"), "ab"},
		{"single line delete", "abcdef", Delete(0, 1, 0, 4), "aef"},
		{"empty range delete", "abc", Delete(0, 1, 0, 1), "abc"},
		{"multi-line delete", "abc\ndef\nghi", Delete(0, 1, 2, 2), "ai"},
		{"delete line break", "ab\ncd", Delete(0, 2, 1, 0), "abcd"},
		{"delete out of range end line", "abc\ndef", Delete(0, 1, 5, 0), "abc\ndef"},
		{"replace single line", "hello world", Replace(0, 6, 0, 11, "gopher"), "hello gopher"},
		{"replace across lines", "abc\ndef", Replace(0, 1, 1, 2, "-"), "a-f"},
		{"replace empty range inserts", "abc", Replace(0, 1, 0, 1, "Z"), "aZbc"},
		{"replace out of range", "abc", Replace(2, 0, 2, 1, "Z"), "abc"},
		{"column inside multibyte rune snaps back", "héllo", Insert(0, 2, "X"), "hXéllo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyText(tt.text, tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyText_InvalidOperations(t *testing.T) {
	_, err := ApplyText("abc", Operation{Type: "move"})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = ApplyText("abc", Insert(-1, 0, "x"))
	assert.ErrorIs(t, err, ErrNegativePosition)

	_, err = ApplyText("abc\ndef", Delete(1, 0, 0, 1))
	assert.ErrorIs(t, err, ErrInvertedRange)

	_, err = ApplyText("abc", Delete(0, 2, 0, 1))
	assert.ErrorIs(t, err, ErrInvertedRange)
}

func TestBuffer_Lines(t *testing.T) {
	b := NewBuffer("a\nb\n")
	assert.Equal(t, 3, b.LineCount())
	assert.Equal(t, "b", b.Line(1))
	assert.Equal(t, "", b.Line(2))
	assert.Equal(t, "", b.Line(7))

	changed, err := b.Apply(Delete(0, 1, 1, 0))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "ab\n", b.String())
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, `Insert(0:1, "X")`, Insert(0, 1, "X").String())
	assert.Equal(t, "Delete[0:1-2:2)", Delete(0, 1, 2, 2).String())
	assert.Contains(t, Replace(0, 0, 0, 1, "y").String(), "Replace")
}
