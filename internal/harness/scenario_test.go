package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
schema: identities
about:
  - { name: version, value: "0.1.0" }
steps:
  - op: add
    entry: key
    field: xpriv
    value: "K"
  - op: exists
    entry: key
    expect: "true"
assertions:
  - type: entries
    entries: [key]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "identities", scenario.Schema)
	require.Len(t, scenario.About, 1)
	assert.Equal(t, "version", scenario.About[0].Name)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, OpAdd, scenario.Steps[0].Op)
	assert.Nil(t, scenario.Steps[0].Expect)
	require.NotNil(t, scenario.Steps[1].Expect)
	assert.Equal(t, "true", *scenario.Steps[1].Expect)
	assert.Equal(t, []string{"key"}, scenario.Assertions[0].Entries)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "misspelled assertions key"
schema: identities
steps:
  - op: state
assertion:
  - type: state
    expect: valid
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nschema: identities\nsteps: [{op: state}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nschema: identities\nsteps: [{op: state}]\n",
			wantErr: "description is required",
		},
		{
			name:    "unknown schema",
			content: "name: n\ndescription: d\nschema: wallets\nsteps: [{op: state}]\n",
			wantErr: `unknown schema "wallets"`,
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nschema: identities\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nschema: identities\nsteps: [{op: rename}]\n",
			wantErr: `steps[0]: unknown op "rename"`,
		},
		{
			name:    "expect on mutation",
			content: "name: n\ndescription: d\nschema: identities\nsteps: [{op: delete, entry: k, expect: 'true'}]\n",
			wantErr: "expect is only valid on query steps",
		},
		{
			name:    "unknown error kind",
			content: "name: n\ndescription: d\nschema: identities\nsteps: [{op: delete, entry: k, expect_error: MISSING}]\n",
			wantErr: `unknown error kind "MISSING"`,
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nschema: identities\nsteps: [{op: state}]\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "field_equals without field",
			content: "name: n\ndescription: d\nschema: identities\nsteps: [{op: state}]\nassertions: [{type: field_equals, entry: about}]\n",
			wantErr: "entry and field are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_RejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	content := []byte("name: same\ndescription: d\nschema: identities\nsteps: [{op: state}]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), content, 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used by a.yaml`)
}

func TestLoadScenarios_TestdataSorted(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"annotations_lifecycle", "identities_registry", "invalid_document"}, names)
}
