// CLAUDE:SUMMARY Parses "CHANNEL:START-END" windows and opaque read identifiers into typed positions.
// Package position turns the user's position string into typed coordinates.
//
// Two shapes exist. Bulk recordings are addressed by a channel window:
//
//	50:88360-88900    channel 50, seconds 88360 to 88900
//	3:1.5-2.25        fractional seconds are accepted
//
// Read-based containers (multi-read fast5, pod5) are addressed by an opaque
// read identifier, usually a UUID. No whitespace is trimmed: "50:1-2 " is an
// error, not a window.
package position

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultChannelTemplate names a channel group inside a bulk fast5 file.
const DefaultChannelTemplate = "Channel_%d"

// Kind tags which half of a Position is populated.
type Kind int

const (
	KindWindow Kind = iota + 1
	KindRead
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

// Position is an immutable, parsed user position.
type Position struct {
	Kind    Kind    `json:"kind"`
	Channel int     `json:"channel,omitempty"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
	ReadID  string  `json:"read_id,omitempty"`
}

// Window builds a channel window position. start must not exceed end.
func Window(channel int, start, end float64) (Position, error) {
	if channel < 0 {
		return Position{}, &ParseError{Input: fmt.Sprint(channel), Reason: "negative channel"}
	}
	if start > end {
		return Position{}, &ParseError{
			Input:  fmt.Sprintf("%d:%g-%g", channel, start, end),
			Reason: "start after end",
		}
	}
	return Position{Kind: KindWindow, Channel: channel, Start: start, End: end}, nil
}

// Read builds a read-identifier position.
func Read(id string) Position {
	return Position{Kind: KindRead, ReadID: id}
}

// Label renders the channel through template (e.g. "Channel_%d").
// An empty template uses DefaultChannelTemplate.
func (p Position) Label(template string) string {
	if template == "" {
		template = DefaultChannelTemplate
	}
	return fmt.Sprintf(template, p.Channel)
}

// Duration is End-Start for windows and 0 for reads.
func (p Position) Duration() float64 {
	if p.Kind != KindWindow {
		return 0
	}
	return p.End - p.Start
}

// String returns the canonical input form.
func (p Position) String() string {
	if p.Kind == KindRead {
		return p.ReadID
	}
	return fmt.Sprintf("%d:%s-%s", p.Channel, formatSeconds(p.Start), formatSeconds(p.End))
}

// Parse dispatches on the container's addressing mode: windowed containers
// require a channel window, the others take an opaque read identifier.
func Parse(s string, windowed bool) (Position, error) {
	if windowed {
		return ParseWindow(s)
	}
	return ParseReadID(s)
}

// ParseWindow parses "CHANNEL:START-END". CHANNEL is a decimal integer,
// START and END are unsigned decimals with an optional fractional part.
func ParseWindow(s string) (Position, error) {
	chanPart, rangePart, ok := strings.Cut(s, ":")
	if !ok {
		return Position{}, &ParseError{Input: s, Reason: "missing ':' separator"}
	}
	if !isDigits(chanPart) {
		return Position{}, &ParseError{Input: s, Reason: "channel is not an integer"}
	}
	startPart, endPart, ok := strings.Cut(rangePart, "-")
	if !ok {
		return Position{}, &ParseError{Input: s, Reason: "missing '-' separator"}
	}
	if !isDecimal(startPart) {
		return Position{}, &ParseError{Input: s, Reason: "start is not a number"}
	}
	if !isDecimal(endPart) {
		return Position{}, &ParseError{Input: s, Reason: "end is not a number"}
	}

	channel, err := strconv.Atoi(chanPart)
	if err != nil {
		return Position{}, &ParseError{Input: s, Reason: "channel out of range", Cause: err}
	}
	start, err := strconv.ParseFloat(startPart, 64)
	if err != nil {
		return Position{}, &ParseError{Input: s, Reason: "start out of range", Cause: err}
	}
	end, err := strconv.ParseFloat(endPart, 64)
	if err != nil {
		return Position{}, &ParseError{Input: s, Reason: "end out of range", Cause: err}
	}
	if start > end {
		return Position{}, &ParseError{Input: s, Reason: "start after end"}
	}
	return Position{Kind: KindWindow, Channel: channel, Start: start, End: end}, nil
}

// ParseReadID accepts any non-empty identifier without whitespace.
func ParseReadID(s string) (Position, error) {
	if s == "" {
		return Position{}, &ParseError{Input: s, Reason: "empty read identifier"}
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return Position{}, &ParseError{Input: s, Reason: "read identifier contains whitespace"}
	}
	return Read(s), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimal matches [0-9]+(\.[0-9]+)?
func isDecimal(s string) bool {
	whole, frac, hasDot := strings.Cut(s, ".")
	if !isDigits(whole) {
		return false
	}
	return !hasDot || isDigits(frac)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
