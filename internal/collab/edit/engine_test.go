package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/amoylab/snipcollab/internal/snippet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type snippetStoreMock struct {
	code    string
	version int
	getErr  error
	saveErr error
	saves   []string
	editors []uint
	// racer runs before the first save, standing in for another writer
	racer func(m *snippetStoreMock)
}

func (m *snippetStoreMock) FindSnippet(context.Context, uint) (*snippet.Snippet, error) {
	return &snippet.Snippet{}, nil
}

func (m *snippetStoreMock) GetLatestCode(context.Context, uint) (string, int, error) {
	return m.code, m.version, m.getErr
}

func (m *snippetStoreMock) SaveNewVersion(_ context.Context, _ uint, code string, editorID uint, base int) (int, error) {
	if m.racer != nil {
		racer := m.racer
		m.racer = nil
		racer(m)
	}
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	if base != m.version {
		return 0, snippet.ErrVersionConflict
	}
	m.code = code
	m.version++
	m.saves = append(m.saves, code)
	m.editors = append(m.editors, editorID)
	return m.version, nil
}

func TestEngine_ApplyEdit(t *testing.T) {
	store := &snippetStoreMock{code: "ab\ncd", version: 1}
	e := NewEngine(zap.NewNop(), store, 3)

	res, err := e.ApplyEdit(context.Background(), 42, Insert(0, 1, "X"), 8)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "aXb\ncd", res.Code)
	assert.Equal(t, 2, res.SnippetVersion)
	assert.Equal(t, []uint{8}, store.editors)
}

func TestEngine_ApplyEdit_NoOpIsNotSaved(t *testing.T) {
	store := &snippetStoreMock{code: "ab", version: 1}
	e := NewEngine(zap.NewNop(), store, 3)

	res, err := e.ApplyEdit(context.Background(), 42, Insert(9, 0, "X"), 8)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "ab", res.Code)
	assert.Empty(t, store.saves)
}

func TestEngine_ApplyEdit_Errors(t *testing.T) {
	e := NewEngine(zap.NewNop(), &snippetStoreMock{getErr: snippet.ErrNotFound}, 3)
	_, err := e.ApplyEdit(context.Background(), 1, Insert(0, 0, "x"), 1)
	assert.ErrorIs(t, err, snippet.ErrNotFound)

	boom := errors.New("disk full")
	e = NewEngine(zap.NewNop(), &snippetStoreMock{code: "a", saveErr: boom}, 3)
	_, err = e.ApplyEdit(context.Background(), 1, Insert(0, 0, "x"), 1)
	assert.ErrorIs(t, err, boom)

	_, err = e.ApplyEdit(context.Background(), 1, Operation{Type: "bogus"}, 1)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestEngine_ApplyEdit_ReappliesAfterConcurrentSave(t *testing.T) {
	store := &snippetStoreMock{code: "ab\ncd", version: 1}
	store.racer = func(m *snippetStoreMock) {
		m.code = "Aab\ncd"
		m.version = 2
	}
	e := NewEngine(zap.NewNop(), store, 3)

	res, err := e.ApplyEdit(context.Background(), 42, Insert(1, 0, "B"), 8)
	require.NoError(t, err)
	assert.Equal(t, "Aab\nBcd", res.Code)
	assert.Equal(t, 3, res.SnippetVersion)
	assert.Equal(t, []string{"Aab\nBcd"}, store.saves)
}

func TestEngine_ApplyEdit_GivesUpOnPersistentConflict(t *testing.T) {
	e := NewEngine(zap.NewNop(), &snippetStoreMock{code: "a", saveErr: snippet.ErrVersionConflict}, 2)
	_, err := e.ApplyEdit(context.Background(), 1, Insert(0, 0, "x"), 1)
	assert.ErrorIs(t, err, snippet.ErrVersionConflict)
}

func TestConflicts(t *testing.T) {
	history := []Applied{
		{UserID: 7, Version: 1, Op: Insert(0, 0, "a")},
		{UserID: 7, Version: 2, Op: Delete(3, 0, 5, 0)},
		{UserID: 8, Version: 3, Op: Insert(4, 0, "b")},
	}

	// overlaps user 7's delete on lines 3..5 applied after base version 1
	got := Conflicts(Replace(5, 0, 6, 0, "x"), 9, 1, history)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Version)

	// nothing newer than the base version
	assert.Empty(t, Conflicts(Insert(4, 0, "x"), 9, 3, history))

	// own edits never conflict
	assert.Empty(t, Conflicts(Insert(4, 0, "x"), 8, 2, history))

	// disjoint lines
	assert.Empty(t, Conflicts(Insert(10, 0, "x"), 9, 0, history))
}

func TestLineRange_Overlaps(t *testing.T) {
	assert.True(t, LineRange{0, 2}.Overlaps(LineRange{2, 4}))
	assert.False(t, LineRange{0, 1}.Overlaps(LineRange{2, 4}))
	assert.True(t, LineRange{3, 3}.Overlaps(LineRange{1, 5}))
}
