package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/immutag/internal/registry"
)

// Scenario defines a registry scenario: an initial document, a sequence
// of operations with expected outcomes, and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema names the document schema: identities or annotations.
	Schema string `yaml:"schema"`

	// About lists the fields of the initial about table, in order.
	// Ignored when Initial is set.
	About []registry.Field `yaml:"about,omitempty"`

	// Initial is the starting document text. When empty the document is
	// built from About.
	Initial string `yaml:"initial,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document and journal.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one document operation.
type Step struct {
	// Op is one of the step operation constants.
	Op string `yaml:"op"`

	Entry string `yaml:"entry,omitempty"`
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`

	// ExpectError is the error kind the step must fail with, e.g.
	// DUPLICATE_KEY. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Expect is the expected result of a query step. Booleans are
	// written "true" or "false"; states by name.
	Expect *string `yaml:"expect,omitempty"`
}

// Step operation constants.
const (
	OpAdd         = "add"
	OpAddAbout    = "add_about"
	OpUpdate      = "update"
	OpUpdateAbout = "update_about"
	OpDelete      = "delete"
	OpLookup      = "lookup"
	OpLookupRoot  = "lookup_root"
	OpExists      = "exists"
	OpFieldExists = "field_exists"
	OpState       = "state"
)

// isMutation reports whether op changes the document.
func isMutation(op string) bool {
	switch op {
	case OpAdd, OpAddAbout, OpUpdate, OpUpdateAbout, OpDelete:
		return true
	}
	return false
}

func isQuery(op string) bool {
	switch op {
	case OpLookup, OpLookupRoot, OpExists, OpFieldExists, OpState:
		return true
	}
	return false
}

// Assertion validates the final document or journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state": Check the document state
	// - "entries": Check entry keys in order
	// - "entry_exists" / "entry_absent": Check one entry key
	// - "field_equals": Check one field value
	// - "journal_ops": Check the journaled ops in order
	Type string `yaml:"type"`

	Entry string `yaml:"entry,omitempty"`
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Expect is the expected state (used by state).
	Expect string `yaml:"expect,omitempty"`

	// Entries is the expected key list (used by entries).
	Entries []string `yaml:"entries,omitempty"`

	// Ops is the expected op list (used by journal_ops).
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertState       = "state"
	AssertEntries     = "entries"
	AssertEntryExists = "entry_exists"
	AssertEntryAbsent = "entry_absent"
	AssertFieldEquals = "field_equals"
	AssertJournalOps  = "journal_ops"
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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)

	scenarios := make([]*Scenario, 0, len(files))
	names := make(map[string]string, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if prev, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(f), s.Name, prev)
		}
		names[s.Name] = filepath.Base(f)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := registry.SchemaByName(s.Schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	switch {
	case isMutation(step.Op):
		if step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect is only valid on query steps", index)
		}
	case isQuery(step.Op):
	case step.Op == "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.ExpectError != "" && !knownKind(step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error kind %q", index, step.ExpectError)
	}
	return nil
}

func knownKind(kind string) bool {
	switch registry.Kind(kind) {
	case registry.KindInvalidKey, registry.KindInvalidFile, registry.KindDuplicateKey,
		registry.KindNoFile, registry.KindIO, registry.KindParse:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertState:
		if a.Expect == "" {
			return fmt.Errorf("assertions[%d]: expect is required for state", index)
		}
	case AssertEntries, AssertJournalOps:
		// An empty list is a meaningful expectation.
	case AssertEntryExists, AssertEntryAbsent:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for %s", index, a.Type)
		}
	case AssertFieldEquals:
		if a.Entry == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: entry and field are required for field_equals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q (want one of %s)", index, a.Type,
			strings.Join([]string{AssertState, AssertEntries, AssertEntryExists, AssertEntryAbsent, AssertFieldEquals, AssertJournalOps}, ", "))
	}

	return nil
}
