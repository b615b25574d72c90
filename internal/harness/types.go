package harness

import "github.com/roach88/rentledger/internal/ledger"

// OutcomeOK is the outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Phase    string `json:"phase"` // "setup" or "flow"
	Function string `json:"function"`
	Caller   string `json:"caller"`

	// Outcome is OutcomeOK or the error code.
	Outcome string `json:"outcome"`

	// TxID and Event are set for committed submissions.
	TxID  string `json:"tx_id,omitempty"`
	Event string `json:"event,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Events holds every committed ledger event.
	Events []ledger.Event `json:"events"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Events: []ledger.Event{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
