package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/amoylab/snipcollab/internal/collab"
	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/snippet"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCleanupKey = "sweep-secret"

type stubSnippets struct {
	mu       sync.Mutex
	snippets map[uint]*snippet.Snippet
	code     map[uint]string
	versions map[uint]int
}

func (s *stubSnippets) FindSnippet(_ context.Context, id uint) (*snippet.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.snippets[id]
	if !ok {
		return nil, snippet.ErrNotFound
	}
	c := *sn
	return &c, nil
}

func (s *stubSnippets) GetLatestCode(_ context.Context, id uint) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.code[id]
	if !ok {
		return "", 0, snippet.ErrNotFound
	}
	return code, s.versions[id], nil
}

func (s *stubSnippets) SaveNewVersion(_ context.Context, id uint, code string, _ uint, base int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[id] != base {
		return 0, snippet.ErrVersionConflict
	}
	s.code[id] = code
	s.versions[id]++
	return s.versions[id], nil
}

type testServer struct {
	router *gin.Engine
	now    time.Time
	mu     sync.Mutex
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *testServer) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

// headerAuth trusts X-User-ID so tests can act as any user
func headerAuth(c *gin.Context) {
	id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	actor := collab.Actor{UserID: uint(id), RequestID: "test"}
	c.Request = c.Request.WithContext(collab.WithActor(c.Request.Context(), actor))
	c.Next()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	snippets := &stubSnippets{
		snippets: map[uint]*snippet.Snippet{
			42: {ID: 42, OwnerID: 7, Visibility: snippet.VisibilityPublic},
			43: {ID: 43, OwnerID: 7, Visibility: snippet.VisibilityPrivate},
		},
		code:     map[uint]string{42: "ab\ncd", 43: ""},
		versions: map[uint]int{42: 1, 43: 1},
	}

	ts := &testServer{now: time.Unix(1700000000, 0)}
	m := collab.NewManager(zap.NewNop(), session.NewMemoryStore(zap.NewNop()), snippets,
		collab.Options{MaxParticipants: 3, SessionTimeout: time.Hour},
		collab.WithClock(ts.clock))

	r := gin.New()
	NewCollaboration(zap.NewNop(), m, testCleanupKey).RegisterRoutes(r, headerAuth)
	ts.router = r
	return ts
}

func (s *testServer) do(t *testing.T, method, path string, user uint, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(user), 10))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) create(t *testing.T, user, snippetID uint) string {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/collaboration/sessions", user, gin.H{"snippet_id": snippetID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := body["session_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestCollaboration_CreateSession(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/collaboration/sessions", 7, gin.H{"snippet_id": 42})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(42), body["snippet_id"])
	assert.Len(t, body["participants"], 1)

	tests := []struct {
		name   string
		user   uint
		body   any
		status int
		code   string
	}{
		{"missing snippet id", 7, gin.H{}, http.StatusBadRequest, "ErrorSnippetIDRequired"},
		{"malformed body", 7, "nope", http.StatusBadRequest, "ErrorSnippetIDRequired"},
		{"unknown snippet", 7, gin.H{"snippet_id": 99}, http.StatusNotFound, "ErrorSnippetNotFound"},
		{"private snippet", 8, gin.H{"snippet_id": 43}, http.StatusForbidden, "ErrorSnippetPrivate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, "/collaboration/sessions", tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestCollaboration_RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodPost, "/collaboration/sessions", 0, gin.H{"snippet_id": 42})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCollaboration_JoinAndUpdates(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)

	w, body := s.do(t, http.MethodGet, "/collaboration/session/"+token, 8, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["participants"], 2)

	s.advance(time.Second)
	w, _ = s.do(t, http.MethodPost, "/collaboration/session/"+token, 8, gin.H{"type": "cursor", "line": 1, "column": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/collaboration/session/"+token, 8, gin.H{
		"type":      "selection",
		"selection": gin.H{"start_line": 0, "start_column": 0, "end_line": 1, "end_column": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s.advance(time.Second)
	w, body = s.do(t, http.MethodPost, "/collaboration/session/"+token, 7, gin.H{
		"type":   "text_change",
		"change": gin.H{"type": "insert", "line": 0, "column": 1, "text": "X"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "aXb\ncd", body["code"])
	assert.Equal(t, float64(2), body["snippet_version"])

	w, _ = s.do(t, http.MethodPost, "/collaboration/session/"+token, 8, gin.H{"type": "message", "message": "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = s.do(t, http.MethodGet, "/collaboration/updates/"+token+"?since=0", 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["cursors"], 1)
	assert.Len(t, body["chat_messages"], 1)
	assert.Equal(t, float64(s.clock().Unix()), body["timestamp"])
	changes, _ := body["text_changes"].([]any)
	require.Len(t, changes, 1)
	change := changes[0].(map[string]any)["change"].(map[string]any)
	assert.Equal(t, float64(0), change["line"])
	assert.Equal(t, float64(1), change["column"])

	// nothing newer than the last timestamp
	since := strconv.FormatInt(s.clock().Unix(), 10)
	w, body = s.do(t, http.MethodGet, "/collaboration/updates/"+token+"?since="+since, 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["cursors"])
	assert.Empty(t, body["text_changes"])
	assert.Empty(t, body["chat_messages"])
}

func TestCollaboration_SessionState(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	path := "/collaboration/session/" + token + "/state"

	w, body := s.do(t, http.MethodGet, path, 7, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, token, body["session_token"])
	assert.Equal(t, float64(42), body["snippet_id"])
	assert.Len(t, body["participants"], 1)
	assert.Equal(t, float64(0), body["content_version"])

	// reading the state does not join
	w, body = s.do(t, http.MethodGet, path, 9, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ErrorNotParticipant", body["code"])

	w, body = s.do(t, http.MethodGet, path, 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["participants"], 1)

	s.advance(2 * time.Hour)
	w, body = s.do(t, http.MethodGet, path, 7, nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "ErrorSessionExpired", body["code"])
}

func TestCollaboration_InvalidUpdates(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	path := "/collaboration/session/" + token

	tests := []struct {
		name string
		body any
		code string
	}{
		{"unknown type", gin.H{"type": "shout"}, "ErrorInvalidUpdateType"},
		{"no type", gin.H{}, "ErrorInvalidUpdateType"},
		{"negative line", gin.H{"type": "cursor", "line": -1, "column": 0}, "ErrorInvalidPosition"},
		{"string column", gin.H{"type": "cursor", "line": 0, "column": "3"}, "ErrorInvalidPosition"},
		{"selection missing", gin.H{"type": "selection"}, "ErrorInvalidPosition"},
		{"change missing", gin.H{"type": "text_change"}, "ErrorInvalidEdit"},
		{"unknown edit", gin.H{"type": "text_change", "change": gin.H{"type": "upsert", "line": 0, "column": 0, "text": "x"}}, "ErrorInvalidEdit"},
		{"inverted delete", gin.H{"type": "text_change", "change": gin.H{"type": "delete", "start_line": 1, "start_column": 0, "end_line": 0, "end_column": 0}}, "ErrorInvalidEdit"},
		{"bad base version", gin.H{"type": "text_change", "base_version": "1", "change": gin.H{"type": "insert", "line": 0, "column": 0, "text": "x"}}, "ErrorInvalidEdit"},
		{"empty message", gin.H{"type": "message", "message": "   "}, "ErrorEmptyMessage"},
		{"message not a string", gin.H{"type": "message", "message": 5}, "ErrorEmptyMessage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, path, 7, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestCollaboration_NotParticipant(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)

	w, body := s.do(t, http.MethodPost, "/collaboration/session/"+token, 9, gin.H{"type": "cursor", "line": 0, "column": 0})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ErrorNotParticipant", body["code"])

	w, body = s.do(t, http.MethodGet, "/collaboration/updates/"+token, 9, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ErrorNotParticipant", body["code"])
}

func TestCollaboration_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/collaboration/session/does-not-exist", 7, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ErrorSessionNotFound", body["code"])
}

func TestCollaboration_ExpiredSession(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	s.advance(2 * time.Hour)

	w, body := s.do(t, http.MethodPost, "/collaboration/session/"+token, 7, gin.H{"type": "cursor", "line": 0, "column": 0})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "ErrorSessionExpired", body["code"])
}

func TestCollaboration_SessionFull(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	for _, u := range []uint{8, 9} {
		w, _ := s.do(t, http.MethodGet, "/collaboration/session/"+token, u, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, body := s.do(t, http.MethodGet, "/collaboration/session/"+token, 10, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ErrorSessionFull", body["code"])
}

func TestCollaboration_InvalidSince(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	for _, since := range []string{"abc", "-1", "1.5"} {
		w, body := s.do(t, http.MethodGet, "/collaboration/updates/"+token+"?since="+since, 7, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, since)
		assert.Equal(t, "ErrorInvalidSince", body["code"], since)
	}
}

func TestCollaboration_LeaveAndEnd(t *testing.T) {
	s := newTestServer(t)
	token := s.create(t, 7, 42)
	w, _ := s.do(t, http.MethodGet, "/collaboration/session/"+token, 8, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.do(t, http.MethodDelete, "/collaboration/session/"+token, 8, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["left"])

	w, body = s.do(t, http.MethodDelete, "/collaboration/session/"+token, 8, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["left"])

	w, _ = s.do(t, http.MethodGet, "/collaboration/session/"+token, 8, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, http.MethodDelete, "/collaboration/session/"+token+"/end", 8, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ErrorEndNotAllowed", body["code"])

	w, body = s.do(t, http.MethodDelete, "/collaboration/session/"+token+"/end", 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ended"])

	w, _ = s.do(t, http.MethodGet, "/collaboration/session/"+token, 8, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollaboration_Cleanup(t *testing.T) {
	s := newTestServer(t)
	s.create(t, 7, 42)
	s.advance(2 * time.Hour)

	cleanup := func(key string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/collaboration/cleanup", nil)
		if key != "" {
			req.Header.Set(cnst.XCleanupKey, key)
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w, body
	}

	w, body := cleanup("")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ErrorInvalidCleanupKey", body["code"])

	w, _ = cleanup("wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = cleanup(testCleanupKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["deleted"])

	w, body = cleanup(testCleanupKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["deleted"])
}

func TestCollaboration_CleanupDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := collab.NewManager(zap.NewNop(), session.NewMemoryStore(zap.NewNop()), &stubSnippets{}, collab.Options{})
	r := gin.New()
	NewCollaboration(zap.NewNop(), m, "").RegisterRoutes(r, headerAuth)

	req := httptest.NewRequest(http.MethodPost, "/collaboration/cleanup", nil)
	req.Header.Set(cnst.XCleanupKey, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
