package call

import (
	"testing"
	"time"
)

func TestConversationLedger_AppendOrder(t *testing.T) {
	l := NewConversationLedger()

	l.Append(Entry{Speaker: SpeakerAssistant, Text: "first"})
	l.Append(Entry{Speaker: SpeakerAssistant, Text: "second"})
	l.Append(Entry{Speaker: SpeakerDetector, Text: "third"})

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("Len = %d, want 3", len(entries))
	}
	for i, want := range []string{"first", "second", "third"} {
		if entries[i].Text != want {
			t.Errorf("entries[%d].Text = %q, want %q", i, entries[i].Text, want)
		}
	}
}

func TestConversationLedger_ReplaceLast(t *testing.T) {
	l := NewConversationLedger()
	l.Append(Entry{Speaker: SpeakerAssistant, Text: "original"})
	l.Append(Entry{Speaker: SpeakerAssistant, Text: "to be replaced"})

	replaced := l.ReplaceLast(Entry{Speaker: SpeakerDetector, Text: "replacement", IsBullshit: true})
	if !replaced {
		t.Fatal("ReplaceLast = false, want true")
	}

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("Len = %d, want 2 (replace must not grow the ledger)", len(entries))
	}
	if entries[0].Text != "original" {
		t.Errorf("entries[0].Text = %q, want original untouched", entries[0].Text)
	}
	if entries[1].Text != "replacement" || entries[1].Speaker != SpeakerDetector {
		t.Errorf("entries[1] = %+v, want the replacement entry", entries[1])
	}
}

func TestConversationLedger_ReplaceLastEmpty(t *testing.T) {
	l := NewConversationLedger()

	if l.ReplaceLast(Entry{Text: "nothing to replace"}) {
		t.Error("ReplaceLast on empty ledger = true, want no-op false")
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestConversationLedger_Clear(t *testing.T) {
	l := NewConversationLedger()
	l.Append(Entry{Text: "a"})
	l.Append(Entry{Text: "b"})

	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", l.Len())
	}
}

func TestConversationLedger_EntriesIsSnapshot(t *testing.T) {
	l := NewConversationLedger()
	l.Append(Entry{Text: "a", Timestamp: time.Now()})

	snap := l.Entries()
	snap[0].Text = "mutated"

	if got := l.Entries()[0].Text; got != "a" {
		t.Errorf("ledger entry = %q after mutating snapshot, want %q", got, "a")
	}
}
