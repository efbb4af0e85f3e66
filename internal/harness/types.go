package harness

// TraceEvent records one circuit call of a scenario run, committed or
// rejected.
type TraceEvent struct {
	Seq     int64  `json:"seq,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Circuit string `json:"circuit"`
	Args    []any  `json:"args"`

	// Result is the native form of the circuit result; nil for unit.
	Result any `json:"result,omitempty"`

	// Error is the error code of a rejected call.
	Error string `json:"error,omitempty"`

	PreRoot    string `json:"pre_root,omitempty"`
	PostRoot   string `json:"post_root,omitempty"`
	GasCost    uint64 `json:"gas_cost,omitempty"`
	Commitment string `json:"commitment,omitempty"`

	// Transcript is the canonical proof data of a committed call.
	Transcript []byte `json:"-"`
}

// Committed reports whether the call was committed.
func (e TraceEvent) Committed() bool { return e.Error == "" }

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace lists setup and flow calls in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Ledger is the native form of the final ledger.
	Ledger map[string]any `json:"ledger,omitempty"`

	// Head is the final root hash.
	Head string `json:"head"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a call to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Committed returns the committed calls in order.
func (r *Result) Committed() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Committed() {
			out = append(out, ev)
		}
	}
	return out
}
