// Package registry implements the immutag document engine.
//
// A registry document holds one reserved table, "about", describing the
// document itself, and any number of entry tables keyed by an arbitrary
// string: a file path, a directory path or an identity address. Which
// about fields are required and which field introduces a new entry is
// decided by the document's Schema.
//
// Documents are values. Every mutation leaves its receiver untouched and
// returns a new Document; callers persist the result with Write, which
// replaces the file atomically.
package registry
