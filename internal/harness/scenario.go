package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contriblog/internal/ledger"
)

// LogSlotTarget names the derived log address in setup airdrops, so a
// scenario can fund the slot before it is initialized.
const LogSlotTarget = "@log"

// Scenario defines a conformance test scenario: a set of named principals,
// funding, a flow of signed transactions with expected outcomes, and
// assertions over the final log.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend is "sqlite" (default) or "pebble".
	Backend string `yaml:"backend,omitempty"`

	// Principals are keypairs derived deterministically from their names.
	Principals []string `yaml:"principals"`

	Clock  *ClockConfig  `yaml:"clock,omitempty"`
	Limits *LimitsConfig `yaml:"limits,omitempty"`

	// Setup funds accounts before the flow. Setup steps must succeed.
	Setup []AirdropStep `yaml:"setup,omitempty"`

	// Flow contains the transactions, executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final log and balances.
	Assertions []Assertion `yaml:"assertions"`
}

// ClockConfig sets the deterministic clock. Each executed transaction
// advances it by Step.
type ClockConfig struct {
	Start int64 `yaml:"start"`
	Step  int64 `yaml:"step"`
}

// LimitsConfig overrides the platform's account size ceilings.
type LimitsConfig struct {
	MaxAccountSize   int `yaml:"max_account_size"`
	MaxGrowthPerCall int `yaml:"max_growth_per_call"`
}

// AirdropStep credits lamports to a principal or to LogSlotTarget.
type AirdropStep struct {
	Airdrop  string `yaml:"airdrop"`
	Lamports uint64 `yaml:"lamports"`
}

// FlowStep is one signed transaction.
type FlowStep struct {
	// Invoke is "initialize" or "log_contribution".
	Invoke string `yaml:"invoke"`

	// Signer is the principal that signs and pays.
	Signer string `yaml:"signer"`

	// CodeHash is the log_contribution argument. With Repeat > 1 the
	// argument is CodeHash repeated Repeat times.
	CodeHash string `yaml:"code_hash,omitempty"`
	Repeat   int    `yaml:"repeat,omitempty"`

	// CodeHashHex gives the argument as hex-encoded bytes, for arguments
	// YAML cannot carry such as invalid UTF-8. Exclusive with CodeHash.
	CodeHashHex string `yaml:"code_hash_hex,omitempty"`

	// Tamper corrupts the signature after signing.
	Tamper bool `yaml:"tamper,omitempty"`

	// Expect specifies the expected receipt. If nil, the transaction must
	// commit.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Argument returns the code hash the step submits.
func (s FlowStep) Argument() string {
	codeHash := s.CodeHash
	if s.CodeHashHex != "" {
		raw, _ := hex.DecodeString(s.CodeHashHex)
		codeHash = string(raw)
	}
	if s.Repeat > 1 {
		return strings.Repeat(codeHash, s.Repeat)
	}
	return codeHash
}

// ExpectClause specifies the expected receipt. Unset fields are not checked.
type ExpectClause struct {
	// Outcome is "committed" or an error code such as AUTHORITY_MISMATCH.
	Outcome  string  `yaml:"outcome"`
	Count    *int    `yaml:"count,omitempty"`
	Space    *int    `yaml:"space,omitempty"`
	RentPaid *uint64 `yaml:"rent_paid,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by log_count and outcome_count.
	Count int `yaml:"count,omitempty"`

	// Principal is used by authority and balance.
	Principal string `yaml:"principal,omitempty"`

	// Contributor and CodeHash are used by log_contains.
	Contributor string `yaml:"contributor,omitempty"`
	CodeHash    string `yaml:"code_hash,omitempty"`

	// CodeHashes is the exact log content, used by log_order.
	CodeHashes []string `yaml:"code_hashes,omitempty"`

	// Space is used by slot_space.
	Space int `yaml:"space,omitempty"`

	// Lamports is used by balance.
	Lamports uint64 `yaml:"lamports,omitempty"`

	// Outcome is used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertLogCount     = "log_count"
	AssertLogContains  = "log_contains"
	AssertLogOrder     = "log_order"
	AssertAuthority    = "authority"
	AssertSlotSpace    = "slot_space"
	AssertBalance      = "balance"
	AssertOutcomeCount = "outcome_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", "sqlite", "pebble":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if len(s.Principals) == 0 {
		return fmt.Errorf("principals list is required and must be non-empty")
	}
	principals := make(map[string]bool, len(s.Principals))
	for i, p := range s.Principals {
		if p == "" || strings.HasPrefix(p, "@") {
			return fmt.Errorf("principals[%d]: invalid name %q", i, p)
		}
		if principals[p] {
			return fmt.Errorf("principals[%d]: duplicate name %q", i, p)
		}
		principals[p] = true
	}

	if s.Clock != nil && s.Clock.Step < 0 {
		return fmt.Errorf("clock.step must not be negative")
	}
	if s.Limits != nil && (s.Limits.MaxAccountSize <= 0 || s.Limits.MaxGrowthPerCall <= 0) {
		return fmt.Errorf("limits must be positive")
	}

	for i, step := range s.Setup {
		if step.Airdrop != LogSlotTarget && !principals[step.Airdrop] {
			return fmt.Errorf("setup[%d]: unknown principal %q", i, step.Airdrop)
		}
		if step.Lamports == 0 {
			return fmt.Errorf("setup[%d]: lamports is required", i)
		}
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, step := range s.Flow {
		var instr ledger.Instruction
		if err := instr.UnmarshalText([]byte(step.Invoke)); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if !principals[step.Signer] {
			return fmt.Errorf("flow[%d]: unknown signer %q", i, step.Signer)
		}
		if instr == ledger.InstructionInitialize && (step.CodeHash != "" || step.CodeHashHex != "") {
			return fmt.Errorf("flow[%d]: initialize takes no code_hash", i)
		}
		if step.CodeHashHex != "" {
			if step.CodeHash != "" {
				return fmt.Errorf("flow[%d]: code_hash and code_hash_hex are exclusive", i)
			}
			if _, err := hex.DecodeString(step.CodeHashHex); err != nil {
				return fmt.Errorf("flow[%d]: code_hash_hex: %w", i, err)
			}
		}
		if step.Repeat < 0 {
			return fmt.Errorf("flow[%d]: repeat must not be negative", i)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, principals); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, principals map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertLogCount, AssertSlotSpace:
	case AssertLogContains:
		if !principals[a.Contributor] {
			return fmt.Errorf("assertions[%d]: log_contains requires a known contributor", index)
		}
	case AssertLogOrder:
		if a.CodeHashes == nil {
			return fmt.Errorf("assertions[%d]: log_order requires code_hashes", index)
		}
	case AssertAuthority, AssertBalance:
		if !principals[a.Principal] {
			return fmt.Errorf("assertions[%d]: %s requires a known principal", index, a.Type)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome_count requires outcome", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
