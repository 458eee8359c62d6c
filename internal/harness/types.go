package harness

// TraceEvent records one flow step and the notifications it caused.
type TraceEvent struct {
	Seq        int64            `json:"seq"`
	Op         string           `json:"op"`
	Target     string           `json:"target"`
	Present    bool             `json:"present"`
	Identifier string           `json:"identifier,omitempty"`
	Count      *int             `json:"count,omitempty"`
	Rows       []map[string]any `json:"rows,omitempty"`
	Error      string           `json:"error,omitempty"`
	Notified   []string         `json:"notified"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the flow steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notifications returns every notified identifier in trace order.
func (r *Result) Notifications() []string {
	var out []string
	for _, ev := range r.Trace {
		out = append(out, ev.Notified...)
	}
	return out
}
