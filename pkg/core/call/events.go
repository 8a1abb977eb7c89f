package call

import (
	"time"

	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

// Event is the interface for all session observer events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the call lifecycle changes.
type StateChangedEvent struct {
	From Lifecycle `json:"from"`
	To   Lifecycle `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "call.state" }

// StatusChangedEvent is emitted when the operator-facing status line changes.
type StatusChangedEvent struct {
	Status string `json:"status"`
}

func (e *StatusChangedEvent) EventType() string { return "call.status" }

// DurationEvent is emitted once per second while the call is active.
type DurationEvent struct {
	Seconds int `json:"seconds"`
}

func (e *DurationEvent) EventType() string { return "call.duration" }

// VolumeLevelEvent mirrors the transport's assistant volume signal.
type VolumeLevelEvent struct {
	Level float64 `json:"level"`
}

func (e *VolumeLevelEvent) EventType() string { return "call.volume" }

// MuteChangedEvent is emitted when the local microphone mute flips.
type MuteChangedEvent struct {
	Muted bool `json:"muted"`
}

func (e *MuteChangedEvent) EventType() string { return "call.muted" }

// EntryAppendedEvent is emitted when an entry is appended to the ledger.
type EntryAppendedEvent struct {
	Entry Entry `json:"entry"`
}

func (e *EntryAppendedEvent) EventType() string { return "ledger.appended" }

// EntryReplacedEvent is emitted when the last ledger entry is replaced.
type EntryReplacedEvent struct {
	Entry Entry `json:"entry"`
}

func (e *EntryReplacedEvent) EventType() string { return "ledger.replaced" }

// LedgerClearedEvent is emitted when the ledger is wiped on call stop.
type LedgerClearedEvent struct{}

func (e *LedgerClearedEvent) EventType() string { return "ledger.cleared" }

// DispatchStartedEvent is emitted when an utterance is sent for analysis.
type DispatchStartedEvent struct {
	Text string `json:"text"`
}

func (e *DispatchStartedEvent) EventType() string { return "dispatch.started" }

// DispatchResolvedEvent is emitted for every verdict that arrives in time,
// whether or not it crossed the detection threshold.
type DispatchResolvedEvent struct {
	Text   string         `json:"text"`
	Result verdict.Result `json:"result"`
}

func (e *DispatchResolvedEvent) EventType() string { return "dispatch.resolved" }

// DispatchTimedOutEvent is emitted when a dispatch times out or fails.
type DispatchTimedOutEvent struct {
	Text string `json:"text"`
}

func (e *DispatchTimedOutEvent) EventType() string { return "dispatch.timeout" }

// DetectionEvent is emitted when a verdict crosses the threshold or the
// assistant audibly calls out a claim itself.
type DetectionEvent struct {
	Entry Entry `json:"entry"`
}

func (e *DetectionEvent) EventType() string { return "detection" }

// AlertShownEvent is emitted when the detection banner becomes or stays
// visible. ExpiresAt is the rescheduled auto-hide deadline.
type AlertShownEvent struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *AlertShownEvent) EventType() string { return "alert.shown" }

// AlertHiddenEvent is emitted when the detection banner hides.
type AlertHiddenEvent struct{}

func (e *AlertHiddenEvent) EventType() string { return "alert.hidden" }

// ErrorEvent is emitted for transport errors and other non-fatal failures.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }
