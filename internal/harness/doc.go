// Package harness runs registry scenarios: scripted sequences of document
// operations with expected outcomes, checked against golden documents.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: annotations          # identities | annotations
//	about:                       # fields of the initial about table
//	  - { name: version, value: "0.1.0" }
//	initial: |                   # optional; replaces about with a parsed document
//	  ['about']
//	  version = "0.1.0"
//	steps:
//	  - op: add
//	    entry: src/lib.rs
//	    field: immutag
//	    value: "Entry point to the library."
//	  - op: add
//	    entry: src/lib.rs
//	    field: immutag
//	    value: "again"
//	    expect_error: DUPLICATE_KEY
//	  - op: lookup
//	    entry: about
//	    field: version
//	    expect: "0.1.0"
//	assertions:
//	  - type: entries
//	    entries: [src/lib.rs]
//	  - type: journal_ops
//	    ops: [add]
//
// # Step Operations
//
// Mutations: add, add_about, update, update_about, delete. A failed
// mutation leaves the document unchanged; the step passes when its
// expect_error names the error kind.
//
// Queries: lookup, lookup_root, exists, field_exists, state. Their result
// is compared with expect.
//
// # Assertion Types
//
//   - state: the final document state (valid, invalid, non-existent)
//   - entries: the final entry keys, in document order
//   - entry_exists / entry_absent: one entry key
//   - field_equals: one field value
//   - journal_ops: the recorded mutation ops, in order
//
// # Deterministic Testing
//
// Each scenario records its successful mutations in a fresh in-memory
// journal with sequential IDs and a stepping clock, so the trace and the
// final document are identical across runs.
package harness
