// CLAUDE:SUMMARY ParseError type and ErrParse sentinel for malformed position strings.
package position

import (
	"errors"
	"fmt"
)

// ErrParse matches every *ParseError through errors.Is.
var ErrParse = errors.New("position: malformed position")

// ParseError is returned when a position string does not follow the
// CHANNEL:START-END grammar or is not a usable read identifier.
type ParseError struct {
	Input  string
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("position: cannot parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
