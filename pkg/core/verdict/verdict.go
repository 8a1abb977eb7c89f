// Package verdict defines the fact-check verdict model and the client for
// the external claim-analysis service.
//
// The analysis service is an opaque collaborator: it receives an utterance
// and returns a judgment of how likely the claim is fabricated. Responses
// arrive with any subset of fields populated, so every consumer goes through
// Normalize, which maps a raw response into a fully populated Result.
package verdict

// Severity levels reported by the analysis service.
const (
	SeverityLow     = "low"
	SeverityMedium  = "medium"
	SeverityHigh    = "high"
	SeverityExtreme = "extreme"
)

// Result is a fully populated verdict for a single claim.
// Score is always within [0, 1]; all other fields are non-empty.
type Result struct {
	// Score is the confidence that the claim is false or fabricated.
	Score float64 `json:"score"`

	// Category classifies the kind of suspected fabrication,
	// e.g. "fake_partnerships" or "impossible_metrics".
	Category string `json:"category"`

	// Severity is one of low, medium, high, extreme.
	Severity string `json:"severity"`

	// Explanation is the service's reasoning for the verdict.
	Explanation string `json:"explanation"`

	// RedFlags lists the specific suspicious points, in the order the
	// service reported them.
	RedFlags []string `json:"red_flags"`

	// Challenge is the spoken rebuttal to synthesize back into the call.
	Challenge string `json:"challenge"`
}

// RawResult mirrors the analysis service's wire format. Any field may be
// absent; Claims, when present, carries per-claim detail whose first entry
// backfills missing top-level fields.
type RawResult struct {
	BullshitScore *float64   `json:"bullshit_score,omitempty"`
	BullshitType  string     `json:"bullshit_type,omitempty"`
	Severity      string     `json:"severity,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
	RedFlags      []string   `json:"red_flags,omitempty"`
	VoiceResponse string     `json:"voice_response,omitempty"`
	Claims        []RawClaim `json:"claims,omitempty"`
}

// RawClaim is the per-claim detail block of a raw response.
type RawClaim struct {
	Explanation   string   `json:"explanation,omitempty"`
	RedFlags      []string `json:"red_flags,omitempty"`
	VoiceResponse string   `json:"voice_response,omitempty"`
}

// Defaults applied by Normalize when a field is absent from the response.
const (
	DefaultScore       = 0.9
	DefaultCategory    = "suspicious_claim"
	DefaultSeverity    = SeverityHigh
	DefaultExplanation = "this claim appears to be false or misleading based on our analysis"
	DefaultChallenge   = "can you provide evidence for this claim?"
)

func defaultRedFlags() []string {
	return []string{"Unverifiable claim", "Suspicious metrics"}
}

// Normalize maps a raw service response into a fully populated Result.
// Each field falls back individually: first to the first claim's detail,
// then to the package default. The score is clamped into [0, 1].
func Normalize(raw RawResult) Result {
	res := Result{
		Score:       DefaultScore,
		Category:    DefaultCategory,
		Severity:    DefaultSeverity,
		Explanation: raw.Explanation,
		RedFlags:    raw.RedFlags,
		Challenge:   raw.VoiceResponse,
	}

	if raw.BullshitScore != nil {
		res.Score = clamp01(*raw.BullshitScore)
	}
	if raw.BullshitType != "" {
		res.Category = raw.BullshitType
	}
	if raw.Severity != "" {
		res.Severity = raw.Severity
	}

	if len(raw.Claims) > 0 {
		claim := raw.Claims[0]
		if res.Explanation == "" {
			res.Explanation = claim.Explanation
		}
		if len(res.RedFlags) == 0 {
			res.RedFlags = claim.RedFlags
		}
		if res.Challenge == "" {
			res.Challenge = claim.VoiceResponse
		}
	}

	if res.Explanation == "" {
		res.Explanation = DefaultExplanation
	}
	if len(res.RedFlags) == 0 {
		res.RedFlags = defaultRedFlags()
	}
	if res.Challenge == "" {
		res.Challenge = DefaultChallenge
	}

	return res
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
