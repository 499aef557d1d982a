package parse

import (
	"errors"
	"fmt"

	"github.com/roach88/tasksync/internal/checklist"
)

// ParseError reports content that could not be parsed at all.
type ParseError struct {
	SourceType checklist.SourceType
	Line       int // 1-based; 0 when not tied to a line
	Reason     string
	Err        error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %s", e.SourceType, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("parse %s: line %d: %s", e.SourceType, e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
