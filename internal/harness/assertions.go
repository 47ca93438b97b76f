package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/immutag/internal/registry"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s -> %s\n", event.Seq, event.Op, event.Entry, event.Field, event.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the final document
// and the journaled ops in result. It returns one message per failure.
func EvaluateAssertions(result *Result, doc *registry.Document, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, doc, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, doc *registry.Document, a Assertion) error {
	switch a.Type {
	case AssertState:
		return assertState(result, doc, a)
	case AssertEntries:
		return assertList(result, AssertEntries, a.Entries, doc.Entries())
	case AssertEntryExists:
		if !doc.EntryExists(a.Entry) {
			return fail(result, a.Type, fmt.Sprintf("entry %q defined", a.Entry), "not defined")
		}
	case AssertEntryAbsent:
		if doc.EntryExists(a.Entry) {
			return fail(result, a.Type, fmt.Sprintf("entry %q absent", a.Entry), "defined")
		}
	case AssertFieldEquals:
		return assertFieldEquals(result, doc, a)
	case AssertJournalOps:
		return assertList(result, AssertJournalOps, a.Ops, result.Ops)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func assertState(result *Result, doc *registry.Document, a Assertion) error {
	if got := doc.State().String(); got != a.Expect {
		return fail(result, a.Type, a.Expect, got)
	}
	return nil
}

func assertFieldEquals(result *Result, doc *registry.Document, a Assertion) error {
	got, err := doc.Lookup(a.Entry, a.Field)
	if err != nil {
		return fail(result, a.Type, fmt.Sprintf("%s.%s = %q", a.Entry, a.Field, a.Value), err.Error())
	}
	if got != a.Value {
		return fail(result, a.Type, fmt.Sprintf("%s.%s = %q", a.Entry, a.Field, a.Value), fmt.Sprintf("%q", got))
	}
	return nil
}

// assertList compares ordered string lists. nil and empty are equal.
func assertList(result *Result, kind string, want, got []string) error {
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if diff := cmp.Diff(want, got); diff != "" {
		return fail(result, kind, fmt.Sprintf("%v", want), fmt.Sprintf("%v (-want +got):\n%s", got, diff))
	}
	return nil
}

func fail(result *Result, kind, expected, actual string) error {
	return &AssertionError{Type: kind, Expected: expected, Actual: actual, Trace: result.Trace}
}
