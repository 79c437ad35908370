package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Type != EventTransaction {
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s by %s", i+1, event.Instruction, event.Signer)
		if event.CodeHash != "" {
			fmt.Fprintf(&buf, " %q", event.CodeHash)
		}
		fmt.Fprintf(&buf, " -> %s\n", event.Outcome)
	}

	return buf.String()
}

func fail(result *Result, typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Trace: result.Trace}
}

func assertLogCount(result *Result, a Assertion) error {
	if result.State.Count != a.Count {
		return fail(result, a.Type,
			fmt.Sprintf("%d records", a.Count),
			fmt.Sprintf("%d records", result.State.Count))
	}
	return nil
}

// assertLogContains checks that some record was appended by the
// contributor with the code hash. An empty code hash matches any record
// of the contributor.
func assertLogContains(result *Result, a Assertion) error {
	for i, hash := range result.State.CodeHashes {
		if result.State.Contributors[i] != a.Contributor {
			continue
		}
		if a.CodeHash == "" || hash == a.CodeHash {
			return nil
		}
	}
	return fail(result, a.Type,
		fmt.Sprintf("record by %s with code hash %q", a.Contributor, a.CodeHash),
		"not found in log")
}

// assertLogOrder checks the exact sequence of code hashes.
func assertLogOrder(result *Result, a Assertion) error {
	if !slices.Equal(result.State.CodeHashes, a.CodeHashes) {
		return fail(result, a.Type,
			fmt.Sprintf("code hashes %q", a.CodeHashes),
			fmt.Sprintf("code hashes %q", result.State.CodeHashes))
	}
	return nil
}

func assertAuthority(result *Result, a Assertion) error {
	if !result.State.Initialized {
		return fail(result, a.Type, "authority "+a.Principal, "log not initialized")
	}
	if result.State.Authority != a.Principal {
		return fail(result, a.Type, "authority "+a.Principal, "authority "+result.State.Authority)
	}
	return nil
}

func assertSlotSpace(result *Result, a Assertion) error {
	if result.State.Space != a.Space {
		return fail(result, a.Type,
			fmt.Sprintf("%d bytes", a.Space),
			fmt.Sprintf("%d bytes", result.State.Space))
	}
	return nil
}

func assertBalance(result *Result, a Assertion) error {
	got := result.State.Balances[a.Principal]
	if got != a.Lamports {
		return fail(result, a.Type,
			fmt.Sprintf("%s holds %d lamports", a.Principal, a.Lamports),
			fmt.Sprintf("%s holds %d lamports", a.Principal, got))
	}
	return nil
}

// assertOutcomeCount checks how many transactions ended with an outcome.
func assertOutcomeCount(result *Result, a Assertion) error {
	count := 0
	for _, event := range result.Trace {
		if event.Type == EventTransaction && event.Outcome == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return fail(result, a.Type,
			fmt.Sprintf("%d transactions with outcome %s", a.Count, a.Outcome),
			fmt.Sprintf("%d transactions", count))
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertLogCount:
			err = assertLogCount(result, a)
		case AssertLogContains:
			err = assertLogContains(result, a)
		case AssertLogOrder:
			err = assertLogOrder(result, a)
		case AssertAuthority:
			err = assertAuthority(result, a)
		case AssertSlotSpace:
			err = assertSlotSpace(result, a)
		case AssertBalance:
			err = assertBalance(result, a)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
