package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchwatch/pitchwatch/pkg/core/transport"
)

// Lifecycle represents the call's position in its lifecycle.
type Lifecycle int

const (
	// LifecycleIdle is the initial state before joining a call.
	LifecycleIdle Lifecycle = iota
	// LifecycleJoining is while the transport is connecting the call.
	LifecycleJoining
	// LifecycleActive is a live call.
	LifecycleActive
	// LifecycleEnded is after the call stopped or the transport hung up.
	LifecycleEnded
)

// String returns a human-readable state name.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleIdle:
		return "IDLE"
	case LifecycleJoining:
		return "JOINING"
	case LifecycleActive:
		return "ACTIVE"
	case LifecycleEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Operator-facing status lines.
const (
	StatusReady         = "ready to join"
	StatusJoining       = "joining call..."
	StatusStarted       = "call started"
	StatusEnded         = "call ended"
	StatusListening     = "listening"
	StatusSpeaking      = "assistant speaking"
	StatusCheckTimedOut = "fact check timed out"
	StatusConfigMissing = "configuration missing"
	StatusNoTransport   = "transport not initialized"
	StatusJoinFailed    = "failed to join call"
)

var (
	// ErrConfigMissing is returned by Start when no assistant ID is set.
	ErrConfigMissing = errors.New("assistant id not configured")
	// ErrNotInitialized is returned by Start when no transport is wired.
	ErrNotInitialized = errors.New("transport not initialized")
)

// CallStateCoordinator owns call lifecycle, the mute choreography and the
// interrupt flow.
//
// The assistant starts every call muted and is re-muted after each of its
// speech turns; it is only unmuted for the moment of an interrupt. The local
// microphone mute is an independent channel. Transport failures after join
// degrade to status lines, never to a torn-down session. State is mutated
// only on the session loop; the duration ticker posts back through post.
type CallStateCoordinator struct {
	tr          transport.Transport
	assistantID string
	post        func(func())
	logger      *slog.Logger

	lifecycle    Lifecycle
	status       string
	startTime    time.Time
	durationSecs int
	muted        bool
	volume       float64
	tickerStop   chan struct{}

	onLifecycle func(from, to Lifecycle)
	onStatus    func(status string)
	onDuration  func(seconds int)
	onVolume    func(level float64)
	onMute      func(muted bool)
}

// NewCallStateCoordinator creates an idle coordinator.
func NewCallStateCoordinator(tr transport.Transport, assistantID string, post func(func()), logger *slog.Logger) *CallStateCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallStateCoordinator{
		tr:          tr,
		assistantID: assistantID,
		post:        post,
		logger:      logger,
		lifecycle:   LifecycleIdle,
		status:      StatusReady,
	}
}

// SetCallbacks sets the state observation callbacks. All run on the session
// loop.
func (c *CallStateCoordinator) SetCallbacks(
	onLifecycle func(from, to Lifecycle),
	onStatus func(status string),
	onDuration func(seconds int),
	onVolume func(level float64),
	onMute func(muted bool),
) {
	c.onLifecycle = onLifecycle
	c.onStatus = onStatus
	c.onDuration = onDuration
	c.onVolume = onVolume
	c.onMute = onMute
}

// Start asks the transport to join the call. Preconditions degrade to a
// status line plus a sentinel error so the caller can distinguish them.
func (c *CallStateCoordinator) Start(ctx context.Context) error {
	if c.assistantID == "" {
		c.setStatus(StatusConfigMissing)
		return ErrConfigMissing
	}
	if c.tr == nil {
		c.setStatus(StatusNoTransport)
		return ErrNotInitialized
	}

	c.setLifecycle(LifecycleJoining)
	c.setStatus(StatusJoining)
	c.durationSecs = 0

	if err := c.tr.Start(ctx, c.assistantID); err != nil {
		c.setStatus(StatusJoinFailed)
		c.setLifecycle(LifecycleIdle)
		return fmt.Errorf("join call: %w", err)
	}
	return nil
}

// HandleCallStart marks the call live: duration ticking begins and the
// assistant is muted before it can speak over the pitch.
func (c *CallStateCoordinator) HandleCallStart() {
	c.setLifecycle(LifecycleActive)
	c.startTime = time.Now()
	c.setStatus(StatusStarted)
	c.startTicker()
	c.muteAssistant()
}

// HandleCallEnd handles the transport hanging up on its own.
func (c *CallStateCoordinator) HandleCallEnd() {
	c.stopTicker()
	c.setLifecycle(LifecycleEnded)
	c.setStatus(StatusEnded)
}

// HandleSpeechStart reflects the assistant starting to speak.
func (c *CallStateCoordinator) HandleSpeechStart(role transport.Role) {
	if role != transport.RoleAssistant || c.lifecycle != LifecycleActive {
		return
	}
	c.setStatus(StatusSpeaking)
}

// HandleSpeechEnd reflects the assistant finishing a turn. The re-mute rides
// on this signal rather than any timer: once the challenge is out, the
// assistant goes quiet again.
func (c *CallStateCoordinator) HandleSpeechEnd(role transport.Role) {
	if role != transport.RoleAssistant || c.lifecycle != LifecycleActive {
		return
	}
	c.setStatus(StatusListening)
	c.muteAssistant()
}

// HandleVolume records the assistant volume level.
func (c *CallStateCoordinator) HandleVolume(level float64) {
	c.volume = level
	if c.onVolume != nil {
		c.onVolume(level)
	}
}

// Stop leaves the call and resets the per-call counters.
func (c *CallStateCoordinator) Stop() {
	if c.tr != nil {
		if err := c.tr.Stop(); err != nil {
			c.logger.Warn("transport stop failed", "error", err)
		}
	}
	c.stopTicker()
	c.durationSecs = 0
	c.setLifecycle(LifecycleEnded)
	c.setStatus(StatusEnded)
}

// Interrupt unmutes the assistant and has it speak text. Outside an active
// call it is a no-op.
func (c *CallStateCoordinator) Interrupt(text string) error {
	if c.lifecycle != LifecycleActive {
		return nil
	}
	if err := c.tr.SendControl(transport.ControlUnmuteAssistant); err != nil {
		return fmt.Errorf("unmute assistant: %w", err)
	}
	if err := c.tr.Say(text); err != nil {
		return fmt.Errorf("speak challenge: %w", err)
	}
	return nil
}

// ToggleMute flips the local microphone mute and forwards it to the
// transport.
func (c *CallStateCoordinator) ToggleMute() (bool, error) {
	c.muted = !c.muted
	if c.onMute != nil {
		c.onMute(c.muted)
	}
	if c.tr == nil {
		return c.muted, nil
	}
	if err := c.tr.SetMuted(c.muted); err != nil {
		return c.muted, fmt.Errorf("set muted: %w", err)
	}
	return c.muted, nil
}

// SetStatus publishes a status line from a collaborator (e.g. dispatch
// timeout recovery).
func (c *CallStateCoordinator) SetStatus(status string) {
	c.setStatus(status)
}

// Lifecycle returns the current lifecycle state.
func (c *CallStateCoordinator) Lifecycle() Lifecycle { return c.lifecycle }

// Status returns the current operator-facing status line.
func (c *CallStateCoordinator) Status() string { return c.status }

// Duration returns the call duration in whole seconds.
func (c *CallStateCoordinator) Duration() int { return c.durationSecs }

// Muted reports the local microphone mute.
func (c *CallStateCoordinator) Muted() bool { return c.muted }

// Volume returns the last reported assistant volume level.
func (c *CallStateCoordinator) Volume() float64 { return c.volume }

func (c *CallStateCoordinator) muteAssistant() {
	if err := c.tr.SendControl(transport.ControlMuteAssistant); err != nil {
		c.logger.Warn("mute assistant failed", "error", err)
	}
}

func (c *CallStateCoordinator) setLifecycle(to Lifecycle) {
	if c.lifecycle == to {
		return
	}
	from := c.lifecycle
	c.lifecycle = to
	c.logger.Debug("call lifecycle", "from", from.String(), "to", to.String())
	if c.onLifecycle != nil {
		c.onLifecycle(from, to)
	}
}

func (c *CallStateCoordinator) setStatus(status string) {
	if c.status == status {
		return
	}
	c.status = status
	if c.onStatus != nil {
		c.onStatus(status)
	}
}

func (c *CallStateCoordinator) startTicker() {
	c.stopTicker()
	stop := make(chan struct{})
	c.tickerStop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.post(func() { c.tick() })
			}
		}
	}()
}

func (c *CallStateCoordinator) stopTicker() {
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}

// tick runs on the session loop; a tick posted just before stop finds the
// call no longer active and is dropped.
func (c *CallStateCoordinator) tick() {
	if c.lifecycle != LifecycleActive {
		return
	}
	c.durationSecs++
	if c.onDuration != nil {
		c.onDuration(c.durationSecs)
	}
}
