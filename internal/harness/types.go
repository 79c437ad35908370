package harness

// Trace event types.
const (
	EventAirdrop     = "airdrop"
	EventTransaction = "transaction"
)

// OutcomeCommitted is the outcome of a transaction that committed. Failed
// transactions carry their error code instead.
const OutcomeCommitted = "committed"

// TraceEvent is one entry of a scenario trace. Principals appear by name,
// never by key, so traces are readable and stable.
type TraceEvent struct {
	Type string `json:"type"`

	// Airdrop fields.
	To       string `json:"to,omitempty"`
	Lamports uint64 `json:"lamports,omitempty"`
	Balance  uint64 `json:"balance,omitempty"`

	// Transaction fields.
	Step        int    `json:"step"`
	Instruction string `json:"instruction,omitempty"`
	Signer      string `json:"signer,omitempty"`
	CodeHash    string `json:"code_hash,omitempty"`
	CodeHashHex string `json:"code_hash_hex,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Count       int    `json:"count"`
	Space       int    `json:"space"`
	RentPaid    uint64 `json:"rent_paid"`
}

// FinalState is the committed log after the flow, principals by name.
type FinalState struct {
	Initialized bool     `json:"initialized"`
	Authority   string   `json:"authority,omitempty"`
	Count       int      `json:"count"`
	Space       int      `json:"space"`
	CodeHashes  []string `json:"code_hashes"`
	// Contributors holds one principal name per record.
	Contributors []string          `json:"contributors"`
	Timestamps   []int64           `json:"timestamps"`
	Balances     map[string]uint64 `json:"balances"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains airdrops and transactions in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	State FinalState `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State: FinalState{
			CodeHashes:   []string{},
			Contributors: []string{},
			Timestamps:   []int64{},
			Balances:     map[string]uint64{},
		},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
