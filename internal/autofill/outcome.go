package autofill

import (
	"fmt"
	"time"
)

// OutcomeKind is the per-field result of a run.
type OutcomeKind int

const (
	// Filled means a value was injected.
	Filled OutcomeKind = iota
	// Highlighted means a recognized upload field was pointed out to the user.
	Highlighted
	// Skipped means the field was deliberately left alone.
	Skipped
	// Failed means an attempt was made and did not succeed.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Filled:
		return "filled"
	case Highlighted:
		return "highlighted"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Skip and failure reasons.
const (
	ReasonPrefilled      = "already has a value"
	ReasonNotVisible     = "not visible"
	ReasonManualUpload   = "manual upload required"
	ReasonNoValue        = "no value from oracle"
	ReasonUnsupported    = "unsupported control"
	ReasonRejected       = "value rejected by control"
	ReasonCancelled      = "run cancelled"
	reasonPanicPrefix    = "panic: "
	reasonHighlightError = "highlight failed: "
)

// FieldOutcome records what happened to one control.
type FieldOutcome struct {
	Kind    OutcomeKind
	Reason  string
	Locator string
	Field   string
	Label   string
	Value   string
}

// Summary aggregates one FillAll run.
type Summary struct {
	RunID    string
	Filled   int
	Outcomes []FieldOutcome
	Duration time.Duration
}

// Count returns how many outcomes are of kind k.
func (s Summary) Count(k OutcomeKind) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// ManualUploads counts the file fields that still need the user: those
// highlighted and those left for manual upload.
func (s Summary) ManualUploads() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == Highlighted || (o.Kind == Skipped && o.Reason == ReasonManualUpload) {
			n++
		}
	}
	return n
}

// Message is the short human-readable result returned to triggers.
func (s Summary) Message() string {
	msg := fmt.Sprintf("Filled %d elements", s.Filled)
	if m := s.ManualUploads(); m > 0 {
		msg += fmt.Sprintf("; %d file field(s) need manual upload", m)
	}
	return msg
}
