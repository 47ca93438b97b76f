// Package tomldoc keeps a TOML document as an ordered tree of raw text
// fragments so it can be edited and written back without disturbing the
// parts that were not touched.
//
// Validation and scalar decoding are delegated to go-toml. The tree only
// tracks where each table header and key/value line starts and ends, plus
// the comments and blank lines between them. Serializing an unmodified
// document reproduces its input byte for byte.
//
// Tables are addressed by their first key segment. The empty string
// addresses the root table, which holds the key/value lines that appear
// before the first header.
package tomldoc
