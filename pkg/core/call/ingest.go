package call

import (
	"context"
	"strings"
	"time"

	"github.com/pitchwatch/pitchwatch/pkg/core/transport"
	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

// selfDetectionExplanation is the fixed verdict text used when the assistant
// audibly calls out a claim itself.
const selfDetectionExplanation = "the voice agent detected a false or misleading claim"

// TranscriptIngestor routes finalized transcript events.
//
// User finals are gated into fact-check dispatches; they never land in the
// ledger directly. Assistant finals are appended as conversation history,
// unless they contain a trigger term, in which case the assistant already
// spoke the detection and the last entry is rewritten into a detector entry.
type TranscriptIngestor struct {
	minLength     int
	alertDuration time.Duration
	triggerTerms  []string

	ledger     *ConversationLedger
	dispatcher *DetectionDispatcher
	alert      *AlertScheduler

	onAppend    func(e Entry)
	onReplace   func(e Entry)
	onDetection func(e Entry)
}

// NewTranscriptIngestor wires the ingestor against its collaborators.
func NewTranscriptIngestor(
	cfg Config,
	ledger *ConversationLedger,
	dispatcher *DetectionDispatcher,
	alert *AlertScheduler,
) *TranscriptIngestor {
	return &TranscriptIngestor{
		minLength:     cfg.MinDispatchLength,
		alertDuration: cfg.AlertDuration,
		triggerTerms:  cfg.TriggerTerms,
		ledger:        ledger,
		dispatcher:    dispatcher,
		alert:         alert,
	}
}

// SetCallbacks sets the ledger mutation callbacks. All run on the session
// loop.
func (in *TranscriptIngestor) SetCallbacks(
	onAppend func(e Entry),
	onReplace func(e Entry),
	onDetection func(e Entry),
) {
	in.onAppend = onAppend
	in.onReplace = onReplace
	in.onDetection = onDetection
}

// OnTranscript processes one transcript event. Partials are ignored.
func (in *TranscriptIngestor) OnTranscript(ctx context.Context, t transport.Transcript) {
	if !t.Final {
		return
	}
	switch t.Role {
	case transport.RoleUser:
		in.onUserFinal(ctx, t.Text)
	case transport.RoleAssistant:
		in.onAssistantFinal(t.Text)
	}
}

// onUserFinal runs the dispatch gate chain. Gate order matters: a busy
// dispatcher drops the utterance before dedup or length are even consulted,
// and a dropped utterance leaves no trace.
func (in *TranscriptIngestor) onUserFinal(ctx context.Context, text string) {
	if in.dispatcher.State() != DispatchIdle {
		return
	}
	if text == in.dispatcher.LastDispatched() {
		return
	}
	if len(text) < in.minLength {
		return
	}
	in.dispatcher.Dispatch(ctx, text)
}

func (in *TranscriptIngestor) onAssistantFinal(text string) {
	if in.matchesTrigger(text) {
		in.selfDetection(text)
		return
	}

	entry := Entry{
		Timestamp: time.Now(),
		Speaker:   SpeakerAssistant,
		Text:      text,
	}
	in.ledger.Append(entry)
	if in.onAppend != nil {
		in.onAppend(entry)
	}
}

func (in *TranscriptIngestor) matchesTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range in.triggerTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// selfDetection handles an assistant utterance that already voices the
// callout. The utterance replaces the last ledger entry rather than
// appending, so the spoken challenge is not duplicated as plain history.
// No interrupt is issued: the assistant is already speaking.
func (in *TranscriptIngestor) selfDetection(text string) {
	v := selfDetectionVerdict(text)
	entry := Entry{
		Timestamp:  time.Now(),
		Speaker:    SpeakerDetector,
		Text:       text,
		Verdict:    &v,
		IsBullshit: true,
	}

	if in.ledger.ReplaceLast(entry) && in.onReplace != nil {
		in.onReplace(entry)
	}
	in.alert.Show(in.alertDuration)
	if in.onDetection != nil {
		in.onDetection(entry)
	}
}

// selfDetectionVerdict builds the fixed verdict attributed to the voice
// agent's own callout.
func selfDetectionVerdict(text string) verdict.Result {
	return verdict.Result{
		Score:       0.95,
		Category:    "voice_agent_detection",
		Severity:    verdict.SeverityHigh,
		Explanation: selfDetectionExplanation,
		RedFlags: []string{
			"AI-detected suspicious claim",
			"Requires evidence",
			"Potentially false information",
		},
		Challenge: text,
	}
}
