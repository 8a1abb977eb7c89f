package call

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

// DispatchState represents the dispatcher's position in its single-flight
// cycle.
type DispatchState int

const (
	// DispatchIdle means no check is in flight; new dispatches are accepted.
	DispatchIdle DispatchState = iota
	// DispatchInFlight means a verdict request is outstanding.
	DispatchInFlight
	// DispatchResolved is the transient state while a verdict is applied.
	DispatchResolved
	// DispatchTimedOut is the transient state after the timeout won the race.
	DispatchTimedOut
)

// String returns a human-readable state name.
func (s DispatchState) String() string {
	switch s {
	case DispatchIdle:
		return "IDLE"
	case DispatchInFlight:
		return "IN_FLIGHT"
	case DispatchResolved:
		return "RESOLVED"
	case DispatchTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// VerdictService analyzes one utterance and returns a normalized verdict.
type VerdictService interface {
	Analyze(ctx context.Context, text string) (verdict.Result, error)
}

// DetectionDispatcher owns the single-flight verdict dispatch.
//
// At most one check is ever outstanding. Each dispatch mints a ticket; both
// the timeout timer and the service completion post back to the session loop
// carrying that ticket, and whichever arrives second finds the ticket gone
// and does nothing. State is mutated only on the loop.
type DetectionDispatcher struct {
	service VerdictService
	timeout time.Duration
	post    func(func())

	state     DispatchState
	ticket    string
	text      string
	startTime time.Time
	timer     *time.Timer

	onDispatch func(text string)
	onResult   func(text string, res verdict.Result)
	onTimeout  func(text string)
	onFailure  func(text string, err error)
}

// NewDetectionDispatcher creates an idle dispatcher. post must serialize the
// given thunk onto the session loop.
func NewDetectionDispatcher(service VerdictService, timeout time.Duration, post func(func())) *DetectionDispatcher {
	return &DetectionDispatcher{
		service: service,
		timeout: timeout,
		post:    post,
		state:   DispatchIdle,
	}
}

// SetCallbacks sets the dispatch lifecycle callbacks. All of them run on the
// session loop.
func (d *DetectionDispatcher) SetCallbacks(
	onDispatch func(text string),
	onResult func(text string, res verdict.Result),
	onTimeout func(text string),
	onFailure func(text string, err error),
) {
	d.onDispatch = onDispatch
	d.onResult = onResult
	d.onTimeout = onTimeout
	d.onFailure = onFailure
}

// State returns the current dispatch state.
func (d *DetectionDispatcher) State() DispatchState {
	return d.state
}

// LastDispatched returns the text of the most recent dispatch, used for
// dedup gating. Invalidate resets it.
func (d *DetectionDispatcher) LastDispatched() string {
	return d.text
}

// StartTime returns when the in-flight dispatch started.
func (d *DetectionDispatcher) StartTime() time.Time {
	return d.startTime
}

// Dispatch sends text for analysis. It reports false, touching nothing, when
// a check is already in flight.
func (d *DetectionDispatcher) Dispatch(ctx context.Context, text string) bool {
	if d.state != DispatchIdle {
		return false
	}

	d.state = DispatchInFlight
	d.ticket = uuid.NewString()
	d.text = text
	d.startTime = time.Now()

	ticket := d.ticket
	d.timer = time.AfterFunc(d.timeout, func() {
		d.post(func() { d.expire(ticket) })
	})

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		res, err := d.service.Analyze(callCtx, text)
		d.post(func() { d.resolve(ticket, text, res, err) })
	}()

	if d.onDispatch != nil {
		d.onDispatch(text)
	}
	return true
}

// resolve applies a service completion. A completion whose ticket is no
// longer current lost the race (timeout, failure, or call stop) and is fully
// suppressed.
func (d *DetectionDispatcher) resolve(ticket, text string, res verdict.Result, err error) {
	if d.state != DispatchInFlight || d.ticket != ticket {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	if err != nil {
		// Service failure is indistinguishable from a timeout for the
		// caller: same recovery, no ledger or alert effect.
		d.state = DispatchTimedOut
		if d.onFailure != nil {
			d.onFailure(text, err)
		}
		d.state = DispatchIdle
		return
	}

	d.state = DispatchResolved
	if d.onResult != nil {
		d.onResult(text, res)
	}
	d.state = DispatchIdle
}

// expire applies the timeout timer. Like resolve, it is ticket-gated.
func (d *DetectionDispatcher) expire(ticket string) {
	if d.state != DispatchInFlight || d.ticket != ticket {
		return
	}
	d.state = DispatchTimedOut
	if d.onTimeout != nil {
		d.onTimeout(d.text)
	}
	d.state = DispatchIdle
}

// Invalidate abandons any in-flight dispatch and clears the dedup memory.
// Used on call stop: a verdict arriving after this mutates nothing.
func (d *DetectionDispatcher) Invalidate() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.ticket = ""
	d.text = ""
	d.state = DispatchIdle
}
