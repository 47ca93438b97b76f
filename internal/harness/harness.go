package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/journal"
	"github.com/roach88/immutag/internal/registry"
	"github.com/roach88/immutag/internal/testutil"
)

// documentName is the document path recorded in scenario journals.
const documentName = "scenario.toml"

// clockStart is the first timestamp of every scenario journal.
var clockStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness executes one scenario against an in-memory document.
type Harness struct {
	doc     *registry.Document
	journal *journal.Store
	logger  *zap.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes step logs to logger. Runs are silent by default.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs with a fresh in-memory journal for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Build the initial document from the scenario
// 2. Execute steps, recording successful mutations in the journal
// 3. Evaluate assertions against the final document and journal
// 4. Return result with pass/fail, trace, and errors
//
// The returned error reports harness failures only. Steps and assertions
// that do not match are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	schema, err := registry.SchemaByName(scenario.Schema)
	if err != nil {
		return nil, err
	}

	doc, err := initialDocument(scenario, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial document: %w", err)
	}

	st, err := journal.Open(":memory:",
		journal.WithIDGenerator(testutil.NewSequenceGenerator(scenario.Name)),
		journal.WithClock(testutil.NewStepClock(clockStart, time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	h := &Harness{doc: doc, journal: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("scenario", scenario.Name))

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result.Document = h.doc.String()

	entries, err := st.List(ctx, journal.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	for _, e := range entries {
		result.Ops = append(result.Ops, string(e.Op))
	}

	for _, msg := range EvaluateAssertions(result, h.doc, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func initialDocument(s *Scenario, schema registry.Schema) (*registry.Document, error) {
	if s.Initial != "" {
		return registry.Parse([]byte(s.Initial), schema)
	}
	return registry.New(schema, s.About...)
}

// execute runs one step. Outcome mismatches are added to result; only
// journal failures are returned.
func (h *Harness) execute(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{Op: step.Op, Entry: step.Entry, Field: step.Field, Outcome: OutcomeOK}

	var (
		value string
		err   error
	)
	if isMutation(step.Op) {
		err = h.mutate(ctx, step)
		var he *harnessError
		if errors.As(err, &he) {
			return he
		}
	} else {
		value, err = h.query(step)
		event.Result = value
	}
	if err != nil {
		event.Outcome = outcome(err)
	}
	result.AddTrace(event)

	log := h.logger.With(zap.Int("step", index), zap.String("op", step.Op), zap.String("entry", step.Entry))
	log.Debug("step executed", zap.String("outcome", event.Outcome))

	switch {
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got success", index, step.Op, step.Entry, step.ExpectError))
	case step.ExpectError != "" && event.Outcome != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %v", index, step.Op, step.Entry, step.ExpectError, err))
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v", index, step.Op, step.Entry, err))
	case step.Expect != nil && err == nil && value != *step.Expect:
		result.AddError(fmt.Sprintf("step %d (%s %s): expected %q, got %q", index, step.Op, step.Entry, *step.Expect, value))
	}
	return nil
}

func (h *Harness) mutate(ctx context.Context, step Step) error {
	var (
		next *registry.Document
		op   journal.Op
		err  error
	)
	switch step.Op {
	case OpAdd:
		next, err = h.doc.AddEntry(step.Entry, step.Field, step.Value)
		op = journal.OpAdd
	case OpAddAbout:
		next, err = h.doc.AddAboutField(step.Field, step.Value)
		op = journal.OpAddAbout
	case OpUpdate:
		next, err = h.doc.UpdateEntry(step.Entry, step.Field, step.Value)
		op = journal.OpUpdate
	case OpUpdateAbout:
		next, err = h.doc.UpdateAboutField(step.Field, step.Value)
		op = journal.OpUpdateAbout
	case OpDelete:
		next, err = h.doc.DeleteEntry(step.Entry)
		op = journal.OpDelete
	default:
		return fmt.Errorf("unknown mutation %q", step.Op)
	}
	if err != nil {
		return err
	}

	h.doc = next
	entry := step.Entry
	if op == journal.OpAddAbout || op == journal.OpUpdateAbout {
		entry = registry.AboutKey
	}
	if _, err := h.journal.Record(ctx, journal.Entry{
		Op:       op,
		Document: documentName,
		EntryKey: entry,
		Field:    step.Field,
		DocHash:  journal.DocumentHash(next.Bytes()),
	}); err != nil {
		return &harnessError{err: err}
	}
	return nil
}

func (h *Harness) query(step Step) (string, error) {
	switch step.Op {
	case OpLookup:
		return h.doc.Lookup(step.Entry, step.Field)
	case OpLookupRoot:
		return h.doc.LookupRoot(step.Field)
	case OpExists:
		return strconv.FormatBool(h.doc.EntryExists(step.Entry)), nil
	case OpFieldExists:
		return strconv.FormatBool(h.doc.FieldExists(step.Entry, step.Field)), nil
	case OpState:
		return h.doc.State().String(), nil
	default:
		return "", fmt.Errorf("unknown query %q", step.Op)
	}
}

// harnessError marks a failure of the harness itself rather than of the
// operation under test.
type harnessError struct{ err error }

func (e *harnessError) Error() string { return "journal: " + e.err.Error() }
func (e *harnessError) Unwrap() error { return e.err }

// outcome names the error kind of a failed step.
func outcome(err error) string {
	if kind := registry.KindOf(err); kind != "" {
		return string(kind)
	}
	return "ERROR"
}
