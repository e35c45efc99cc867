package track

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify a failure returned by any stage.
var (
	ErrParse = errors.New("parse error")
	ErrIO    = errors.New("i/o error")
)

// ParseError reports malformed input or a missing required field.
type ParseError struct {
	Source string // "gpx" or "csv"
	Line   int    // 0 when unknown
	Field  string // offending field, if any
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Source
	if e.Line > 0 {
		msg = fmt.Sprintf("%s line %d", msg, e.Line)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, e.Field)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// IOError reports an unreadable input or an unwritable output.
type IOError struct {
	Op   string // "open", "read", "write", "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }
