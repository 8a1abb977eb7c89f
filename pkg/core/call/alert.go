package call

import (
	"sync"
	"time"
)

// AlertScheduler drives the visibility window of the detection banner.
//
// Show starts or extends the window from now; a pending auto-hide is
// cancelled and rescheduled, so back-to-back detections keep the banner up
// without flicker. The hide timer fires on its own goroutine, so the
// scheduler carries a mutex and a generation counter: a stale timer that
// lost the race against a newer Show is ignored.
type AlertScheduler struct {
	mu        sync.Mutex
	visible   bool
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64

	onShow func(expiresAt time.Time)
	onHide func()
}

// NewAlertScheduler creates a hidden scheduler.
func NewAlertScheduler() *AlertScheduler {
	return &AlertScheduler{}
}

// SetCallbacks sets the visibility callbacks. onShow runs synchronously
// inside Show; onHide runs either inside Hide or on the timer goroutine.
func (a *AlertScheduler) SetCallbacks(onShow func(expiresAt time.Time), onHide func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onShow = onShow
	a.onHide = onHide
}

// Show makes the banner visible for d from now, extending any window already
// open.
func (a *AlertScheduler) Show(d time.Duration) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.visible = true
	a.expiresAt = time.Now().Add(d)
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(d, func() { a.expire(gen) })
	expiresAt := a.expiresAt
	callback := a.onShow
	a.mu.Unlock()

	if callback != nil {
		callback(expiresAt)
	}
}

// expire is the timer path. It only hides if no newer Show superseded it.
func (a *AlertScheduler) expire(gen uint64) {
	a.mu.Lock()
	if !a.visible || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.visible = false
	a.expiresAt = time.Time{}
	callback := a.onHide
	a.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// Hide dismisses the banner immediately without waiting for the timer.
func (a *AlertScheduler) Hide() {
	a.mu.Lock()
	if !a.visible {
		a.mu.Unlock()
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.visible = false
	a.expiresAt = time.Time{}
	a.gen++
	callback := a.onHide
	a.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// Visible reports whether the banner is currently shown.
func (a *AlertScheduler) Visible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible
}

// ExpiresAt returns the auto-hide deadline, or the zero time when hidden.
func (a *AlertScheduler) ExpiresAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expiresAt
}
