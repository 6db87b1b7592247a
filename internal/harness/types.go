package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Action  string   `json:"action"`
	Target  string   `json:"target,omitempty"`
	Outcome string   `json:"outcome"`           // "ok" or an error code
	Removed []string `json:"removed,omitempty"` // refund or revoke cascade, ability keys
	Jobs    int      `json:"jobs,omitempty"`    // queued recomputes drained after the step
}

// OfferState is one purchasable ability in offer order.
type OfferState struct {
	Ability string `json:"ability"`
	Cost    int64  `json:"cost"`
}

// CharacterState is the persisted PX state of a character, by catalog key.
type CharacterState struct {
	Total     int64             `json:"px_tot"`
	Used      int64             `json:"px_used"`
	Available int64             `json:"px_avail"`
	Owned     []string          `json:"owned"`
	Free      []string          `json:"free"`
	Offers    []OfferState      `json:"offers"`
	Fields    map[string]string `json:"fields"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Final holds the state of every character after the last step, keyed
	// by character key.
	Final map[string]CharacterState `json:"final"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Final:  make(map[string]CharacterState),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
