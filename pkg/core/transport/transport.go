// Package transport defines the boundary to the voice-call provider: the
// event feed the provider pushes (call lifecycle, speech activity,
// transcription) and the commands the detector issues back (start, stop,
// mute, side-channel assistant control, synthesized speech).
//
// The provider performs audio capture, speech recognition, and speech
// synthesis itself; this package only carries its events and commands.
package transport

import "context"

// Role identifies which party an event refers to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Transcript is a speech-to-text fragment. Partial fragments are revised by
// later fragments of the same turn; only final fragments are acted upon.
type Transcript struct {
	Role   Role
	Final  bool
	Text   string
	TurnID string
}

// EventType discriminates transport events.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventVolumeLevel EventType = "volume-level"
	EventTranscript  EventType = "transcript"
	EventStatus      EventType = "status-update"
	EventError       EventType = "error"
)

// Event is a single notification pushed by the provider.
type Event struct {
	Type EventType

	// Transcript is set for EventTranscript.
	Transcript *Transcript

	// Role is the speaking party for EventSpeechStart and EventSpeechEnd.
	Role Role

	// Level is the microphone volume for EventVolumeLevel, in [0, 1].
	Level float64

	// Status and EndedReason are set for EventStatus.
	Status      string
	EndedReason string

	// Message is set for EventError.
	Message string
}

// Control is a side-channel command addressed to the assistant voice.
// The assistant mute channel is independent of the local microphone mute.
type Control string

const (
	ControlMuteAssistant   Control = "mute-assistant"
	ControlUnmuteAssistant Control = "unmute-assistant"
)

// Transport carries events from and commands to the call provider.
// Commands must not block indefinitely; the session loop calls them inline.
type Transport interface {
	// Start asks the provider to join a call with the given assistant.
	Start(ctx context.Context, assistantID string) error

	// Stop asks the provider to leave the call.
	Stop() error

	// SetMuted mutes or unmutes the local microphone.
	SetMuted(muted bool) error

	// SendControl issues a side-channel assistant control command.
	SendControl(ctrl Control) error

	// Say makes the assistant voice speak text immediately.
	Say(text string) error

	// Events returns the provider's event feed. The channel closes when
	// the transport shuts down.
	Events() <-chan Event

	// Close releases the transport.
	Close() error
}
