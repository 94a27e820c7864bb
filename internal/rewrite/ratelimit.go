package rewrite

import (
	"context"
	"time"
)

const defaultWaitBuffer = 500 * time.Millisecond

// Window is a sliding-window rate limiter over request timestamps. It is
// only ever touched from the single orchestrator goroutine, so it carries
// no lock. State is in-memory and resets on process restart.
type Window struct {
	max    int
	span   time.Duration
	buffer time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWindow builds a limiter allowing max requests per span.
func NewWindow(max int, span time.Duration) *Window {
	return &Window{
		max:    max,
		span:   span,
		buffer: defaultWaitBuffer,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks until a request slot is free. It prunes timestamps older
// than the window and, when full, sleeps until the oldest stamp exits the
// window plus a small safety buffer, then re-checks.
func (w *Window) Wait(ctx context.Context) error {
	for {
		now := w.now()
		w.prune(now)
		if len(w.stamps) < w.max {
			return nil
		}

		wait := w.stamps[0].Add(w.span).Sub(now) + w.buffer
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Record registers a request timestamp. Call only after the external call
// was actually issued.
func (w *Window) Record() {
	w.stamps = append(w.stamps, w.now())
}

func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.span {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
