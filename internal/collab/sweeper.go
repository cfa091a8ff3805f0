package collab

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/cnst"

	"go.uber.org/zap"
)

// SweepExpired deletes every session idle for longer than the session timeout.
// Failures are logged and skipped, the result is the number of deleted sessions.
func (m *Manager) SweepExpired(ctx context.Context) int {
	start := time.Now()
	scope := m.tracer.Start(ctx, cnst.SpanSweepExpired)
	defer scope.End()
	ctx = scope.Ctx

	sessions, err := m.store.List(ctx)
	if err != nil {
		m.logger.Error("failed to list sessions for cleanup", zap.Error(err))
		scope.Fail(err)
		m.observer.SessionOp("sweep", start, err)
		return 0
	}

	system := Actor{RequestID: "cleanup"}
	deleted := 0
	for _, sess := range sessions {
		if !sess.IsExpired(m.now(), m.opts.SessionTimeout) {
			continue
		}

		ok, err := m.sweepOne(ctx, sess.Token)
		if err != nil {
			m.logger.Warn("failed to delete expired session",
				zap.String("session_id", sess.ID),
				zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		deleted++
		m.observer.SessionsActive(-1)
		m.record(ctx, system, cnst.ActionExpire, sess, sessionSnapshot(sess), nil)
	}

	m.observer.Swept(deleted)
	m.observer.SessionOp("sweep", start, nil)
	if deleted > 0 {
		m.logger.Info("expired sessions removed",
			zap.Int("deleted", deleted),
			zap.Int("scanned", len(sessions)))
	}
	return deleted
}

// sweepOne re-checks expiry under the token lock so a session revived meanwhile survives
func (m *Manager) sweepOne(ctx context.Context, token string) (bool, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	sess, err := m.store.Get(ctx, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		// already gone, left or ended after List
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !sess.IsExpired(m.now(), m.opts.SessionTimeout) {
		return false, nil
	}
	return m.store.Delete(ctx, token)
}

// Runner calls SweepExpired on a fixed interval until stopped
type Runner struct {
	logger   *zap.Logger
	manager  *Manager
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRunner creates a cleanup runner
func NewRunner(logger *zap.Logger, manager *Manager, interval time.Duration) *Runner {
	return &Runner{
		logger:   logger.Named("collab.sweeper"),
		manager:  manager,
		interval: interval,
	}
}

// Start begins the periodic sweep. Calling Start twice is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	r.logger.Info("starting session cleanup", zap.Duration("interval", r.interval))
	go r.loop(ctx, r.stopCh, r.doneCh)
}

// Stop halts the sweep and waits for a running pass to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
	r.logger.Info("session cleanup stopped")
}

// IsRunning reports whether the periodic sweep is active
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *Runner) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			r.manager.SweepExpired(ctx)
		}
	}
}
