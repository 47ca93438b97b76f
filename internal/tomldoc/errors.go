package tomldoc

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// Sentinel errors returned by document mutations.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrDuplicateKey  = errors.New("key already defined")
	ErrKeyConflict   = errors.New("key conflicts with a nested definition")
	ErrEmptyKey      = errors.New("key must not be empty")
	ErrUnsupported   = errors.New("unsupported value")
)

// ParseError reports malformed input along with its 1-based position.
type ParseError struct {
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func fromDecodeError(err error) error {
	var de *toml.DecodeError
	if errors.As(err, &de) {
		row, col := de.Position()
		return &ParseError{Line: row, Column: col, Message: de.Error(), Err: err}
	}
	return &ParseError{Line: 1, Column: 1, Message: err.Error(), Err: err}
}

func fromParserError(p *unstable.Parser, err error) error {
	var pe *unstable.ParserError
	if errors.As(err, &pe) && len(pe.Highlight) > 0 {
		pos := p.Shape(p.Range(pe.Highlight)).Start
		return &ParseError{Line: pos.Line, Column: pos.Column, Message: pe.Message, Err: err}
	}
	return &ParseError{Line: 1, Column: 1, Message: err.Error(), Err: err}
}
