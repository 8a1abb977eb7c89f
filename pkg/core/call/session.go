package call

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pitchwatch/pitchwatch/pkg/core/transport"
	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

// detectionBanner is the ledger text of a detector entry produced by a
// dispatched verdict; the detail lives in the attached verdict.
const detectionBanner = "Bullshit detected: claim flagged as false or misleading"

// ErrSessionClosed is returned by session operations after Close.
var ErrSessionClosed = errors.New("session closed")

// Session owns the event loop and all orchestration state.
//
// Every mutation — transport events, timer firings, verdict completions,
// public API calls — runs as a thunk on one goroutine, so the ledger,
// dispatcher and coordinator need no locks. The verdict call is the only
// suspending operation and runs in its own goroutine, posting its completion
// back with a ticket.
type Session struct {
	cfg    Config
	logger *slog.Logger

	tr         transport.Transport
	ledger     *ConversationLedger
	alert      *AlertScheduler
	dispatcher *DetectionDispatcher
	ingest     *TranscriptIngestor
	coord      *CallStateCoordinator

	detLog *verdict.DetectionLog

	loop   chan func()
	events chan Event
	done   chan struct{}
	closed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDetectionLog wires a JSONL detection log; every resolved verdict is
// recorded there, detection or not.
func WithDetectionLog(dl *verdict.DetectionLog) Option {
	return func(s *Session) { s.detLog = dl }
}

// NewSession wires the orchestration core around tr and svc.
func NewSession(cfg Config, tr transport.Transport, svc VerdictService, opts ...Option) *Session {
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:    cfg,
		tr:     tr,
		loop:   make(chan func(), 256),
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.ledger = NewConversationLedger()
	s.alert = NewAlertScheduler()
	s.dispatcher = NewDetectionDispatcher(svc, cfg.DispatchTimeout, s.post)
	s.ingest = NewTranscriptIngestor(cfg, s.ledger, s.dispatcher, s.alert)
	s.coord = NewCallStateCoordinator(tr, cfg.AssistantID, s.post, s.logger)

	s.alert.SetCallbacks(
		func(expiresAt time.Time) { s.emit(&AlertShownEvent{ExpiresAt: expiresAt}) },
		func() { s.emit(&AlertHiddenEvent{}) },
	)
	s.dispatcher.SetCallbacks(
		s.dispatchStarted,
		s.applyVerdict,
		s.dispatchTimedOut,
		s.dispatchFailed,
	)
	s.ingest.SetCallbacks(
		func(e Entry) { s.emit(&EntryAppendedEvent{Entry: e}) },
		func(e Entry) { s.emit(&EntryReplacedEvent{Entry: e}) },
		func(e Entry) { s.emit(&DetectionEvent{Entry: e}) },
	)
	s.coord.SetCallbacks(
		func(from, to Lifecycle) { s.emit(&StateChangedEvent{From: from, To: to}) },
		func(status string) { s.emit(&StatusChangedEvent{Status: status}) },
		func(seconds int) { s.emit(&DurationEvent{Seconds: seconds}) },
		func(level float64) { s.emit(&VolumeLevelEvent{Level: level}) },
		func(muted bool) { s.emit(&MuteChangedEvent{Muted: muted}) },
	)

	return s
}

// Start spawns the event loop and the transport reader. It does not join a
// call; see StartCall.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.runLoop()
	go s.transportLoop()
	return nil
}

// Events returns the observer event channel. Delivery is best-effort: a slow
// consumer loses events rather than stalling the loop.
func (s *Session) Events() <-chan Event {
	return s.events
}

// StartCall joins the configured call.
func (s *Session) StartCall() error {
	var startErr error
	if err := s.do(func() { startErr = s.coord.Start(s.ctx) }); err != nil {
		return err
	}
	return startErr
}

// StopCall leaves the call, abandons any in-flight check and wipes the
// per-call state. A verdict resolving after this does not repopulate the
// ledger.
func (s *Session) StopCall() error {
	return s.do(func() {
		s.coord.Stop()
		s.dispatcher.Invalidate()
		s.alert.Hide()
		s.ledger.Clear()
		s.emit(&LedgerClearedEvent{})
	})
}

// ToggleMute flips the local microphone mute.
func (s *Session) ToggleMute() (bool, error) {
	var (
		muted   bool
		toggErr error
	)
	if err := s.do(func() { muted, toggErr = s.coord.ToggleMute() }); err != nil {
		return false, err
	}
	return muted, toggErr
}

// Entries returns a snapshot of the conversation ledger.
func (s *Session) Entries() ([]Entry, error) {
	var out []Entry
	if err := s.do(func() { out = s.ledger.Entries() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Close shuts the session down. Idempotent.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	if s.tr != nil {
		return s.tr.Close()
	}
	return nil
}

// post serializes fn onto the event loop; after Close it is dropped.
func (s *Session) post(fn func()) {
	select {
	case s.loop <- fn:
	case <-s.done:
	}
}

// do posts fn and waits for it to run.
func (s *Session) do(fn func()) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	ran := make(chan struct{})
	select {
	case s.loop <- func() { fn(); close(ran) }:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// emit delivers an observer event without blocking the loop.
func (s *Session) emit(ev Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("event dropped", "type", ev.EventType())
	}
}

func (s *Session) runLoop() {
	for {
		select {
		case <-s.ctx.Done():
			// Context cancellation shuts the session down so that pending
			// synchronous callers unblock with ErrSessionClosed.
			s.Close()
			return
		case fn := <-s.loop:
			fn()
		}
	}
}

func (s *Session) transportLoop() {
	for ev := range s.tr.Events() {
		ev := ev
		s.post(func() { s.handleTransport(ev) })
	}
}

func (s *Session) handleTransport(ev transport.Event) {
	switch ev.Type {
	case transport.EventCallStart:
		s.coord.HandleCallStart()
	case transport.EventCallEnd:
		s.coord.HandleCallEnd()
	case transport.EventSpeechStart:
		s.coord.HandleSpeechStart(ev.Role)
	case transport.EventSpeechEnd:
		s.coord.HandleSpeechEnd(ev.Role)
	case transport.EventVolumeLevel:
		s.coord.HandleVolume(ev.Level)
	case transport.EventTranscript:
		if ev.Transcript != nil {
			s.ingest.OnTranscript(s.ctx, *ev.Transcript)
		}
	case transport.EventStatus:
		s.logger.Info("call status", "status", ev.Status, "ended_reason", ev.EndedReason)
		if ev.Status == "ended" {
			s.coord.HandleCallEnd()
		}
	case transport.EventError:
		s.logger.Error("transport error", "error", ev.Message)
		s.emit(&ErrorEvent{Message: ev.Message})
	}
}

func (s *Session) dispatchStarted(text string) {
	s.logger.Debug("dispatching claim", "text", text)
	s.emit(&DispatchStartedEvent{Text: text})
}

// applyVerdict runs on the loop for every verdict that won its race. Below
// the threshold it is logged and emitted only; above it, the detection flow
// runs: ledger entry, alert window, and the live interrupt.
func (s *Session) applyVerdict(text string, res verdict.Result) {
	if s.detLog != nil {
		if err := s.detLog.Record(text, res); err != nil {
			s.logger.Warn("detection log write failed", "error", err)
		}
	}

	s.emit(&DispatchResolvedEvent{Text: text, Result: res})

	if res.Score <= s.cfg.ScoreThreshold {
		s.logger.Debug("claim below threshold", "score", res.Score, "text", text)
		return
	}

	entry := Entry{
		Timestamp:  time.Now(),
		Speaker:    SpeakerDetector,
		Text:       detectionBanner,
		Verdict:    &res,
		IsBullshit: true,
	}
	s.ledger.Append(entry)
	s.emit(&EntryAppendedEvent{Entry: entry})
	s.emit(&DetectionEvent{Entry: entry})
	s.alert.Show(s.cfg.AlertDuration)

	s.logger.Info("bullshit detected",
		"score", res.Score,
		"category", res.Category,
		"severity", res.Severity,
		"text", text,
	)

	if s.coord.Lifecycle() == LifecycleActive {
		if err := s.coord.Interrupt(res.Challenge); err != nil {
			s.logger.Warn("interrupt failed", "error", err)
		}
	}
}

func (s *Session) dispatchTimedOut(text string) {
	s.logger.Warn("fact check timed out", "text", text)
	s.coord.SetStatus(StatusCheckTimedOut)
	s.emit(&DispatchTimedOutEvent{Text: text})
}

// dispatchFailed is the service failure path; the caller-visible behavior is
// the same as a timeout.
func (s *Session) dispatchFailed(text string, err error) {
	s.logger.Warn("fact check failed", "text", text, "error", err)
	s.coord.SetStatus(StatusCheckTimedOut)
	s.emit(&DispatchTimedOutEvent{Text: text})
}
