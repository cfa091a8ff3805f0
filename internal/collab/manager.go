// Package collab runs collaborative editing sessions on snippets: lifecycle,
// cursors, edits, chat and the polling feed.
//
// Every mutation of a session is serialized twice. Inside one process a
// per-token mutex is held for the whole read-modify-write; across processes
// the store's CompareAndSwap rejects writes based on a stale Version and the
// manager re-reads and retries up to Options.MaxRetries times.
package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amoylab/snipcollab/internal/audit"
	"github.com/amoylab/snipcollab/internal/collab/cursor"
	"github.com/amoylab/snipcollab/internal/collab/edit"
	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/common/config"
	"github.com/amoylab/snipcollab/internal/i18n"
	"github.com/amoylab/snipcollab/internal/snippet"
	"github.com/amoylab/snipcollab/pkg/trace"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Options are the rules the manager enforces
type Options struct {
	MaxParticipants int
	SessionTimeout  time.Duration
	MaxRetries      int
	MaxEvents       int
}

// OptionsFromConfig converts the collaboration config section
func OptionsFromConfig(cfg config.CollaborationConfig) Options {
	cfg.SetDefaults()
	return Options{
		MaxParticipants: cfg.MaxParticipants,
		SessionTimeout:  cfg.SessionTimeout,
		MaxRetries:      cfg.MaxRetries,
		MaxEvents:       cfg.MaxEvents,
	}
}

// Option configures optional collaborators of a Manager
type Option func(*Manager)

// WithObserver reports operations to o
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithAudit records lifecycle changes to sink
func WithAudit(sink audit.Sink) Option {
	return func(m *Manager) { m.audit = sink }
}

// WithTokens replaces the session token generator
func WithTokens(g session.TokenGenerator) Option {
	return func(m *Manager) { m.tokens = g }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the session lifecycle and authorizes every call against the actor in the context
type Manager struct {
	logger   *zap.Logger
	store    session.Store
	snippets snippet.Store
	edits    *edit.Engine
	audit    audit.Sink
	tokens   session.TokenGenerator
	observer Observer
	tracer   *trace.Builder
	now      func() time.Time
	opts     Options
	locks    *keyedMutex
}

// NewManager creates a session manager
func NewManager(logger *zap.Logger, store session.Store, snippets snippet.Store, opts Options, options ...Option) *Manager {
	if opts.MaxParticipants <= 0 {
		opts.MaxParticipants = config.DefaultMaxParticipants
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = config.DefaultSessionTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = config.DefaultMaxRetries
	}

	m := &Manager{
		logger:   logger.Named("collab.manager"),
		store:    store,
		snippets: snippets,
		edits:    edit.NewEngine(logger, snippets, opts.MaxRetries),
		audit:    audit.Nop{},
		tokens:   session.RandomTokens{},
		observer: nopObserver{},
		tracer:   trace.Tracer(cnst.TraceCollab),
		now:      time.Now,
		opts:     opts,
		locks:    newKeyedMutex(),
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// EditResult is returned by ApplyEdit
type EditResult struct {
	Code           string `json:"code"`
	Version        int64  `json:"version"`
	SnippetVersion int    `json:"snippet_version,omitempty"`
	UpdatedAt      int64  `json:"updated_at"`
}

// begin starts a span for op and returns a finish func that ends it and records metrics
func (m *Manager) begin(ctx context.Context, op, spanName string) (*trace.SpanScope, Actor, func(error), error) {
	start := time.Now()
	scope := m.tracer.Start(ctx, spanName)
	finish := func(err error) {
		scope.Fail(err)
		scope.End()
		m.observer.SessionOp(op, start, err)
	}

	actor, ok := ActorFrom(ctx)
	if !ok || actor.UserID == 0 {
		finish(i18n.ErrUnauthorized)
		return nil, Actor{}, nil, i18n.ErrUnauthorized
	}
	scope.WithAttrs(attribute.Int64("user_id", int64(actor.UserID)))
	return scope, actor, finish, nil
}

// load returns the live session for token. Sessions without participants do not exist.
func (m *Manager) load(ctx context.Context, token string) (*session.Session, error) {
	sess, err := m.store.Get(ctx, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, i18n.ErrorSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(sess.Participants) == 0 {
		return nil, i18n.ErrorSessionNotFound
	}
	return sess, nil
}

// authorize checks that userID may act on sess at now
func (m *Manager) authorize(sess *session.Session, userID uint, now time.Time) error {
	if !sess.IsParticipant(userID) {
		return i18n.ErrorNotParticipant
	}
	if sess.IsExpired(now, m.opts.SessionTimeout) {
		return i18n.ErrorSessionExpired
	}
	return nil
}

// update runs a read-modify-write of the session under optimistic versioning.
// fn reports whether it changed the session; unchanged sessions are not written.
// The caller must hold the token lock.
func (m *Manager) update(ctx context.Context, op, token string, fn func(*session.Session) (bool, error)) (*session.Session, error) {
	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		sess, err := m.load(ctx, token)
		if err != nil {
			return nil, err
		}
		expected := sess.Version

		changed, err := fn(sess)
		if err != nil {
			return nil, err
		}
		if !changed {
			return sess, nil
		}

		err = m.store.CompareAndSwap(ctx, sess, expected)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, cnst.ErrVersionConflict):
			m.observer.CASRetry(op)
			m.logger.Debug("session changed concurrently, retrying",
				zap.String("op", op),
				zap.String("session_id", sess.ID),
				zap.Int("attempt", attempt+1))
		case errors.Is(err, session.ErrSessionNotFound):
			return nil, i18n.ErrorSessionNotFound
		default:
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	m.logger.Warn("giving up after repeated version conflicts",
		zap.String("op", op),
		zap.Int("max_retries", m.opts.MaxRetries))
	return nil, i18n.ErrorConcurrentUpdate
}

func (m *Manager) record(ctx context.Context, actor Actor, action cnst.ActionType, sess *session.Session, oldValues, newValues any) {
	err := m.audit.Log(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: cnst.EntityCollaborationSession,
		EntityID:   sess.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		RequestID:  actor.RequestID,
	})
	if err != nil {
		m.logger.Warn("failed to write audit entry",
			zap.String("action", action.String()),
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
}

// CreateSession opens a session on snippetID, or joins the one already open
func (m *Manager) CreateSession(ctx context.Context, snippetID uint) (sess *session.Session, err error) {
	scope, actor, finish, err := m.begin(ctx, "create", cnst.SpanSessionCreate)
	if err != nil {
		return nil, err
	}
	defer func() { finish(err) }()
	ctx = scope.Ctx
	scope.WithAttrs(attribute.Int64("snippet_id", int64(snippetID)))

	sn, err := m.snippets.FindSnippet(ctx, snippetID)
	if errors.Is(err, snippet.ErrNotFound) {
		return nil, i18n.ErrorSnippetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snippet: %w", err)
	}
	if !sn.CanCollaborate(actor.UserID) {
		return nil, i18n.ErrorSnippetPrivate
	}

	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		existing, err := m.store.GetBySnippet(ctx, snippetID)
		if err == nil {
			m.logger.Debug("snippet already has a session, joining it",
				zap.Uint("snippet_id", snippetID),
				zap.String("session_id", existing.ID))
			sess, err = m.join(ctx, actor, existing.Token)
			if errors.Is(err, i18n.ErrorSessionNotFound) {
				// its last participant left before we joined
				continue
			}
			return sess, err
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to look up session: %w", err)
		}

		token, err := m.tokens.Generate()
		if err != nil {
			return nil, err
		}
		now := m.now()
		sess = &session.Session{
			ID:           uuid.NewString(),
			SnippetID:    snippetID,
			Token:        token,
			Participants: []session.Participant{{UserID: actor.UserID, JoinedAt: now}},
			Cursors:      make(map[uint]session.CursorPosition),
			LastActivity: now,
			CreatedAt:    now,
		}

		err = m.store.Create(ctx, sess)
		switch {
		case err == nil:
			m.observer.SessionsActive(1)
			m.record(ctx, actor, cnst.ActionCreate, sess, nil, sessionSnapshot(sess))
			m.logger.Info("collaboration session created",
				zap.String("session_id", sess.ID),
				zap.Uint("snippet_id", snippetID),
				zap.Uint("user_id", actor.UserID))
			return sess, nil
		case errors.Is(err, cnst.ErrDuplicateSession), errors.Is(err, cnst.ErrVersionConflict):
			// lost the race against another creator, join theirs
			m.observer.CASRetry("create")
		default:
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}
	return nil, i18n.ErrorConcurrentUpdate
}

// JoinSession adds the actor to the session. Joining twice is a no-op.
func (m *Manager) JoinSession(ctx context.Context, token string) (sess *session.Session, err error) {
	scope, actor, finish, err := m.begin(ctx, "join", cnst.SpanSessionJoin)
	if err != nil {
		return nil, err
	}
	defer func() { finish(err) }()

	return m.join(scope.Ctx, actor, token)
}

func (m *Manager) join(ctx context.Context, actor Actor, token string) (*session.Session, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	joined := false
	sess, err := m.update(ctx, "join", token, func(s *session.Session) (bool, error) {
		now := m.now()
		if s.IsExpired(now, m.opts.SessionTimeout) {
			return false, i18n.ErrorSessionExpired
		}
		if s.IsParticipant(actor.UserID) {
			return false, nil
		}
		if len(s.Participants) >= m.opts.MaxParticipants {
			return false, i18n.ErrorSessionFull
		}
		s.AddParticipant(actor.UserID, now)
		s.Touch(now)
		joined = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		m.record(ctx, actor, cnst.ActionJoin, sess, nil, map[string]any{"user_id": actor.UserID})
		m.logger.Info("participant joined",
			zap.String("session_id", sess.ID),
			zap.Uint("user_id", actor.UserID),
			zap.Int("participants", len(sess.Participants)))
	}
	return sess, nil
}

// GetSession returns the session if the actor participates in it
func (m *Manager) GetSession(ctx context.Context, token string) (*session.Session, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return nil, i18n.ErrUnauthorized
	}
	sess, err := m.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(sess, actor.UserID, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// LeaveSession removes the actor. The session is deleted when nobody is left.
// It returns false if there was no session to leave.
func (m *Manager) LeaveSession(ctx context.Context, token string) (left bool, err error) {
	scope, actor, finish, err := m.begin(ctx, "leave", cnst.SpanSessionLeave)
	if err != nil {
		return false, err
	}
	defer func() { finish(err) }()
	ctx = scope.Ctx

	unlock := m.locks.Lock(token)
	defer unlock()

	sess, err := m.update(ctx, "leave", token, func(s *session.Session) (bool, error) {
		if !s.RemoveParticipant(actor.UserID) {
			return false, nil
		}
		s.Touch(m.now())
		left = true
		return true, nil
	})
	if errors.Is(err, i18n.ErrorSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !left {
		return false, nil
	}

	m.record(ctx, actor, cnst.ActionLeave, sess, map[string]any{"user_id": actor.UserID}, nil)
	if len(sess.Participants) > 0 {
		return true, nil
	}

	deleted, err := m.store.Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete empty session: %w", err)
	}
	if deleted {
		m.observer.SessionsActive(-1)
		m.logger.Info("last participant left, session deleted",
			zap.String("session_id", sess.ID),
			zap.Uint("snippet_id", sess.SnippetID))
	}
	return true, nil
}

// EndSession deletes the session. Only its creator or the snippet owner may end it.
func (m *Manager) EndSession(ctx context.Context, token string) (ended bool, err error) {
	scope, actor, finish, err := m.begin(ctx, "end", cnst.SpanSessionEnd)
	if err != nil {
		return false, err
	}
	defer func() { finish(err) }()
	ctx = scope.Ctx

	unlock := m.locks.Lock(token)
	defer unlock()

	sess, err := m.load(ctx, token)
	if errors.Is(err, i18n.ErrorSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if sess.CreatorID() != actor.UserID {
		sn, err := m.snippets.FindSnippet(ctx, sess.SnippetID)
		if err != nil && !errors.Is(err, snippet.ErrNotFound) {
			return false, fmt.Errorf("failed to find snippet: %w", err)
		}
		if sn == nil || sn.OwnerID != actor.UserID {
			return false, i18n.ErrorEndNotAllowed
		}
	}

	deleted, err := m.store.Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted {
		m.observer.SessionsActive(-1)
		m.record(ctx, actor, cnst.ActionEnd, sess, sessionSnapshot(sess), nil)
		m.logger.Info("collaboration session ended",
			zap.String("session_id", sess.ID),
			zap.Uint("user_id", actor.UserID))
	}
	return deleted, nil
}

// participantUpdate applies fn to the session on behalf of a participant and bumps last activity
func (m *Manager) participantUpdate(ctx context.Context, op, token string, fn func(s *session.Session, actor Actor, now time.Time) error) (*session.Session, error) {
	actor, ok := ActorFrom(ctx)
	if !ok || actor.UserID == 0 {
		return nil, i18n.ErrUnauthorized
	}

	start := time.Now()
	unlock := m.locks.Lock(token)
	defer unlock()

	sess, err := m.update(ctx, op, token, func(s *session.Session) (bool, error) {
		now := m.now()
		if err := m.authorize(s, actor.UserID, now); err != nil {
			return false, err
		}
		if err := fn(s, actor, now); err != nil {
			return false, err
		}
		s.Touch(now)
		return true, nil
	})
	m.observer.SessionOp(op, start, err)
	return sess, err
}

// UpdateCursor moves the actor's caret
func (m *Manager) UpdateCursor(ctx context.Context, token string, pos cursor.Position) (session.CursorPosition, error) {
	if pos.Line < 0 || pos.Column < 0 {
		return session.CursorPosition{}, i18n.ErrorInvalidPosition
	}
	var out session.CursorPosition
	_, err := m.participantUpdate(ctx, "cursor", token, func(s *session.Session, actor Actor, now time.Time) error {
		out = cursor.UpdateCursor(s, actor.UserID, pos, now)
		return nil
	})
	return out, err
}

// UpdateSelection sets the actor's selection
func (m *Manager) UpdateSelection(ctx context.Context, token string, sel session.Selection) (session.CursorPosition, error) {
	if sel.StartLine < 0 || sel.StartColumn < 0 || sel.EndLine < 0 || sel.EndColumn < 0 {
		return session.CursorPosition{}, i18n.ErrorInvalidPosition
	}
	var out session.CursorPosition
	_, err := m.participantUpdate(ctx, "selection", token, func(s *session.Session, actor Actor, now time.Time) error {
		out = cursor.UpdateSelection(s, actor.UserID, sel, now)
		return nil
	})
	return out, err
}

// PostChatMessage appends a chat message to the session log
func (m *Manager) PostChatMessage(ctx context.Context, token, message string) (session.Event, error) {
	if strings.TrimSpace(message) == "" {
		return session.Event{}, i18n.ErrorEmptyMessage
	}
	var ev session.Event
	_, err := m.participantUpdate(ctx, "chat", token, func(s *session.Session, actor Actor, now time.Time) error {
		ev = session.Event{
			Type:      session.EventChatMessage,
			UserID:    actor.UserID,
			Timestamp: now.Unix(),
			Message:   message,
		}
		s.AppendEvent(ev, m.opts.MaxEvents)
		return nil
	})
	return ev, err
}

// ApplyEdit applies op to the snippet code and logs it as a text change.
// With a non-nil baseVersion the edit is rejected if another participant
// changed an overlapping line range after that version.
func (m *Manager) ApplyEdit(ctx context.Context, token string, op edit.Operation, baseVersion *int64) (res *EditResult, err error) {
	scope, actor, finish, err := m.begin(ctx, "edit", cnst.SpanApplyEdit)
	if err != nil {
		return nil, err
	}
	defer func() { finish(err) }()
	ctx = scope.Ctx
	scope.WithAttrs(attribute.String("op", string(op.Type)))

	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", i18n.ErrorInvalidEdit, err)
	}

	unlock := m.locks.Lock(token)
	defer unlock()

	sess, err := m.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(sess, actor.UserID, m.now()); err != nil {
		return nil, err
	}
	if baseVersion != nil {
		if conflicts := edit.Conflicts(op, actor.UserID, *baseVersion, sess.AppliedEdits()); len(conflicts) > 0 {
			m.logger.Info("edit rejected, overlapping change since base version",
				zap.String("session_id", sess.ID),
				zap.Uint("user_id", actor.UserID),
				zap.Int64("base_version", *baseVersion),
				zap.Int64("conflicting_version", conflicts[0].Version))
			return nil, i18n.ErrorEditConflict
		}
	}

	applied, err := m.edits.ApplyEdit(ctx, sess.SnippetID, op, actor.UserID)
	if errors.Is(err, snippet.ErrNotFound) {
		return nil, i18n.ErrorSnippetNotFound
	}
	if errors.Is(err, snippet.ErrVersionConflict) {
		m.observer.CASRetry("edit")
		return nil, i18n.ErrorConcurrentUpdate
	}
	if err != nil {
		return nil, err
	}

	res = &EditResult{Code: applied.Code, SnippetVersion: applied.SnippetVersion}
	sess, err = m.update(ctx, "edit", token, func(s *session.Session) (bool, error) {
		now := m.now()
		if applied.Changed {
			s.ContentVersion++
			change := op
			s.AppendEvent(session.Event{
				Type:      session.EventTextChange,
				UserID:    actor.UserID,
				Timestamp: now.Unix(),
				Change:    &change,
				Version:   s.ContentVersion,
			}, m.opts.MaxEvents)
		}
		s.Touch(now)
		res.Version = s.ContentVersion
		res.UpdatedAt = now.Unix()
		return true, nil
	})
	if err != nil {
		// the snippet already holds the new code
		m.logger.Error("edit saved but session log update failed",
			zap.String("token_prefix", tokenPrefix(token)),
			zap.Error(err))
		return nil, err
	}

	if applied.Changed {
		m.record(ctx, actor, cnst.ActionEdit, sess, nil, map[string]any{
			"snippet_id":      sess.SnippetID,
			"snippet_version": applied.SnippetVersion,
			"change":          op.String(),
		})
	}
	return res, nil
}

func sessionSnapshot(s *session.Session) map[string]any {
	users := make([]uint, 0, len(s.Participants))
	for _, p := range s.Participants {
		users = append(users, p.UserID)
	}
	return map[string]any{
		"id":              s.ID,
		"snippet_id":      s.SnippetID,
		"participants":    users,
		"events":          len(s.Events),
		"content_version": s.ContentVersion,
		"last_activity":   s.LastActivity.Unix(),
		"created_at":      s.CreatedAt.Unix(),
	}
}

// tokenPrefix keeps session tokens out of logs
func tokenPrefix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[:6]
}
