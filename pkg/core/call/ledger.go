package call

import (
	"time"

	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

// Speaker identifies who a ledger entry is attributed to.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerDetector  Speaker = "detector"
)

// Entry is one row of the conversation ledger.
type Entry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Speaker    Speaker         `json:"speaker"`
	Text       string          `json:"text"`
	Verdict    *verdict.Result `json:"verdict,omitempty"`
	IsBullshit bool            `json:"is_bullshit,omitempty"`
}

// ConversationLedger is the ordered conversation history shown to the
// operator. Entries are only ever appended or the last one replaced, never
// reordered. It carries no lock: the session loop is its sole writer.
type ConversationLedger struct {
	entries []Entry
}

// NewConversationLedger creates an empty ledger.
func NewConversationLedger() *ConversationLedger {
	return &ConversationLedger{}
}

// Append adds an entry at the end.
func (l *ConversationLedger) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// ReplaceLast overwrites the most recent entry. It reports whether a
// replacement happened; on an empty ledger it is a no-op.
func (l *ConversationLedger) ReplaceLast(e Entry) bool {
	if len(l.entries) == 0 {
		return false
	}
	l.entries[len(l.entries)-1] = e
	return true
}

// Clear discards all entries.
func (l *ConversationLedger) Clear() {
	l.entries = nil
}

// Len returns the number of entries.
func (l *ConversationLedger) Len() int {
	return len(l.entries)
}

// Entries returns a snapshot copy of the ledger.
func (l *ConversationLedger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
