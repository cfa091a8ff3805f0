package collab

import "time"

// Observer receives operational signals from the manager. *metrics.Metrics implements it.
type Observer interface {
	SessionOp(op string, since time.Time, err error)
	CASRetry(op string)
	SessionsActive(delta float64)
	Swept(n int)
}

type nopObserver struct{}

func (nopObserver) SessionOp(string, time.Time, error) {}
func (nopObserver) CASRetry(string)                    {}
func (nopObserver) SessionsActive(float64)             {}
func (nopObserver) Swept(int)                          {}
