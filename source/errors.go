// CLAUDE:SUMMARY Typed errors of the signal source (unsupported format, open failure, missing read, context decode) and Kind classification.
package source

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/bulkvis/position"
)

var (
	// ErrUnsupportedFormat matches every *UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("source: unsupported format")

	// ErrSourceOpen matches every *SourceOpenError.
	ErrSourceOpen = errors.New("source: cannot open")

	// ErrReadNotFound matches every *ReadNotFoundError.
	ErrReadNotFound = errors.New("source: read not found")

	// ErrContextDecode matches every *ContextDecodeError.
	ErrContextDecode = errors.New("source: context attribute is not valid UTF-8")

	// ErrWindowTooLarge is returned when a window exceeds the configured limit.
	ErrWindowTooLarge = errors.New("source: window too large")

	// ErrNoData is returned when an action needs a loaded recording and none is.
	ErrNoData = errors.New("source: no recording loaded")
)

// UnsupportedFormatError reports a location whose extension or scheme has
// no reader.
type UnsupportedFormatError struct {
	Location string
	Reason   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("source: unsupported %s: %s", e.Reason, e.Location)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// SourceOpenError wraps the reason a recognised container could not be opened:
// missing file, refused credentials, corrupt data.
type SourceOpenError struct {
	Location string
	Err      error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("source: open %s: %v", e.Location, e.Err)
}

func (e *SourceOpenError) Unwrap() error { return e.Err }

func (e *SourceOpenError) Is(target error) bool { return target == ErrSourceOpen }

// ReadNotFoundError reports an absent read identifier or channel.
type ReadNotFoundError struct {
	Location string
	ID       string
}

func (e *ReadNotFoundError) Error() string {
	return fmt.Sprintf("source: %q not found in %s", e.ID, e.Location)
}

func (e *ReadNotFoundError) Is(target error) bool { return target == ErrReadNotFound }

// ContextDecodeError names the first attribute that is not valid UTF-8.
type ContextDecodeError struct {
	Group string
	Attr  string
}

func (e *ContextDecodeError) Error() string {
	return fmt.Sprintf("source: attribute %s/%s is not valid UTF-8", e.Group, e.Attr)
}

func (e *ContextDecodeError) Is(target error) bool { return target == ErrContextDecode }

// Kind classifies err into a short stable string for API responses and the
// action history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, position.ErrParse):
		return "parse"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrReadNotFound):
		return "read_not_found"
	case errors.Is(err, ErrContextDecode):
		return "context_decode"
	case errors.Is(err, ErrWindowTooLarge):
		return "window_too_large"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrSourceOpen):
		return "source_open"
	default:
		return "internal"
	}
}
