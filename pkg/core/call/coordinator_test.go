package call

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pitchwatch/pitchwatch/pkg/core/transport"
)

// fakeTransport records commands and lets tests inject provider events.
type fakeTransport struct {
	mu       sync.Mutex
	events   chan transport.Event
	started  []string
	stopped  int
	controls []transport.Control
	said     []string
	muted    []bool
	startErr error
	closed   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan transport.Event, 16)}
}

func (f *fakeTransport) Start(_ context.Context, assistantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, assistantID)
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeTransport) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, muted)
	return nil
}

func (f *fakeTransport) SendControl(ctrl transport.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, ctrl)
	return nil
}

func (f *fakeTransport) Say(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
	return nil
}

func (f *fakeTransport) Events() <-chan transport.Event {
	return f.events
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) sentControls() []transport.Control {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Control, len(f.controls))
	copy(out, f.controls)
	return out
}

func (f *fakeTransport) saidTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.said))
	copy(out, f.said)
	return out
}

func (f *fakeTransport) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func TestCallStateCoordinator_StartWithoutAssistantID(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "", loop.post, nil)

	var err error
	loop.run(func() { err = c.Start(context.Background()) })

	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("Start = %v, want ErrConfigMissing", err)
	}
	loop.run(func() {
		if c.Lifecycle() != LifecycleIdle {
			t.Errorf("Lifecycle = %v, want %v", c.Lifecycle(), LifecycleIdle)
		}
		if c.Status() != StatusConfigMissing {
			t.Errorf("Status = %q, want %q", c.Status(), StatusConfigMissing)
		}
	})
}

func TestCallStateCoordinator_StartWithoutTransport(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	c := NewCallStateCoordinator(nil, "asst-123", loop.post, nil)

	var err error
	loop.run(func() { err = c.Start(context.Background()) })

	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start = %v, want ErrNotInitialized", err)
	}
}

func TestCallStateCoordinator_StartJoins(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	var err error
	loop.run(func() { err = c.Start(context.Background()) })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	loop.run(func() {
		if c.Lifecycle() != LifecycleJoining {
			t.Errorf("Lifecycle = %v, want %v", c.Lifecycle(), LifecycleJoining)
		}
		if c.Status() != StatusJoining {
			t.Errorf("Status = %q, want %q", c.Status(), StatusJoining)
		}
	})
	if len(tr.started) != 1 || tr.started[0] != "asst-123" {
		t.Errorf("transport.Start calls = %v, want [asst-123]", tr.started)
	}
}

func TestCallStateCoordinator_StartFailureRevertsToIdle(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	tr.startErr = errors.New("dial tcp: connection refused")
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	var err error
	loop.run(func() { err = c.Start(context.Background()) })
	if err == nil {
		t.Fatal("Start = nil, want join error")
	}
	loop.run(func() {
		if c.Lifecycle() != LifecycleIdle {
			t.Errorf("Lifecycle = %v, want %v", c.Lifecycle(), LifecycleIdle)
		}
		if c.Status() != StatusJoinFailed {
			t.Errorf("Status = %q, want %q", c.Status(), StatusJoinFailed)
		}
	})
}

func TestCallStateCoordinator_CallStartMutesAssistant(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	loop.run(func() {
		c.Start(context.Background())
		c.HandleCallStart()
	})
	defer loop.run(c.Stop)

	loop.run(func() {
		if c.Lifecycle() != LifecycleActive {
			t.Errorf("Lifecycle = %v, want %v", c.Lifecycle(), LifecycleActive)
		}
		if c.Status() != StatusStarted {
			t.Errorf("Status = %q, want %q", c.Status(), StatusStarted)
		}
	})
	controls := tr.sentControls()
	if len(controls) != 1 || controls[0] != transport.ControlMuteAssistant {
		t.Errorf("controls = %v, want an immediate mute-assistant", controls)
	}
}

func TestCallStateCoordinator_SpeechChoreography(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	loop.run(func() {
		c.Start(context.Background())
		c.HandleCallStart()
		c.HandleSpeechStart(transport.RoleAssistant)
	})
	defer loop.run(c.Stop)

	loop.run(func() {
		if c.Status() != StatusSpeaking {
			t.Errorf("Status = %q, want %q", c.Status(), StatusSpeaking)
		}
	})

	loop.run(func() { c.HandleSpeechEnd(transport.RoleAssistant) })
	loop.run(func() {
		if c.Status() != StatusListening {
			t.Errorf("Status = %q, want %q", c.Status(), StatusListening)
		}
	})

	// call start + re-mute after the speech turn
	controls := tr.sentControls()
	if len(controls) != 2 || controls[1] != transport.ControlMuteAssistant {
		t.Errorf("controls = %v, want mute-assistant re-issued on speech end", controls)
	}

	// User speech signals leave assistant choreography alone.
	loop.run(func() { c.HandleSpeechStart(transport.RoleUser) })
	loop.run(func() {
		if c.Status() != StatusListening {
			t.Errorf("Status = %q after user speech, want unchanged %q", c.Status(), StatusListening)
		}
	})
}

func TestCallStateCoordinator_InterruptOnlyWhileActive(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	var err error
	loop.run(func() { err = c.Interrupt("which Fortune 500 companies exactly?") })
	if err != nil {
		t.Fatalf("Interrupt while idle: %v", err)
	}
	if len(tr.saidTexts()) != 0 || len(tr.sentControls()) != 0 {
		t.Fatal("interrupt outside an active call must send nothing")
	}

	loop.run(func() {
		c.Start(context.Background())
		c.HandleCallStart()
		err = c.Interrupt("which Fortune 500 companies exactly?")
	})
	defer loop.run(c.Stop)
	if err != nil {
		t.Fatalf("Interrupt while active: %v", err)
	}

	controls := tr.sentControls()
	if len(controls) != 2 || controls[1] != transport.ControlUnmuteAssistant {
		t.Errorf("controls = %v, want unmute-assistant before speaking", controls)
	}
	said := tr.saidTexts()
	if len(said) != 1 || said[0] != "which Fortune 500 companies exactly?" {
		t.Errorf("said = %v, want the challenge text", said)
	}
}

func TestCallStateCoordinator_StopResetsCall(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	loop.run(func() {
		c.Start(context.Background())
		c.HandleCallStart()
		c.tick()
		c.tick()
	})
	loop.run(func() {
		if c.Duration() != 2 {
			t.Errorf("Duration = %d, want 2", c.Duration())
		}
	})

	loop.run(c.Stop)

	if tr.stopCount() != 1 {
		t.Errorf("transport stops = %d, want 1", tr.stopCount())
	}
	loop.run(func() {
		if c.Lifecycle() != LifecycleEnded {
			t.Errorf("Lifecycle = %v, want %v", c.Lifecycle(), LifecycleEnded)
		}
		if c.Duration() != 0 {
			t.Errorf("Duration = %d after stop, want 0", c.Duration())
		}
		// A tick posted just before stop must not resurrect the counter.
		c.tick()
		if c.Duration() != 0 {
			t.Errorf("Duration = %d after stale tick, want 0", c.Duration())
		}
	})
}

func TestCallStateCoordinator_ToggleMute(t *testing.T) {
	loop := newTestLoop()
	defer loop.close()
	tr := newFakeTransport()
	c := NewCallStateCoordinator(tr, "asst-123", loop.post, nil)

	var muted bool
	var err error
	loop.run(func() { muted, err = c.ToggleMute() })
	if err != nil || !muted {
		t.Fatalf("ToggleMute = %v, %v, want true, nil", muted, err)
	}
	loop.run(func() { muted, err = c.ToggleMute() })
	if err != nil || muted {
		t.Fatalf("second ToggleMute = %v, %v, want false, nil", muted, err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.muted) != 2 || tr.muted[0] != true || tr.muted[1] != false {
		t.Errorf("SetMuted calls = %v, want [true false]", tr.muted)
	}
}

func TestLifecycle_String(t *testing.T) {
	tests := []struct {
		state Lifecycle
		want  string
	}{
		{LifecycleIdle, "IDLE"},
		{LifecycleJoining, "JOINING"},
		{LifecycleActive, "ACTIVE"},
		{LifecycleEnded, "ENDED"},
		{Lifecycle(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
