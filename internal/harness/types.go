package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Entry   string `json:"entry,omitempty"`
	Field   string `json:"field,omitempty"`
	Outcome string `json:"outcome"` // "ok" or an error kind
	Result  string `json:"result,omitempty"`
}

// OutcomeOK marks a step that returned no error.
const OutcomeOK = "ok"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the final document text.
	Document string `json:"document"`

	// Ops lists the journaled mutation ops in order.
	Ops []string `json:"ops"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Ops:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	event.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, event)
}
