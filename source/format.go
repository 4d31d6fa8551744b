// CLAUDE:SUMMARY Container detection from the location extension and scheme, plus the resolved Format variant.
package source

import (
	"net/url"
	"path"
	"strings"
)

// Container is the file family selected from the location extension.
type Container string

const (
	ContainerFast5 Container = "fast5"
	ContainerPOD5  Container = "pod5"
)

// Format is the resolved layout of an open recording.
type Format string

const (
	// FormatBulk is a fast5 bulk recording: per-channel raw arrays, state
	// tables and run metadata, addressed by channel window.
	FormatBulk Format = "bulk"
	// FormatMultiRead is a fast5 file holding read_<id> groups.
	FormatMultiRead Format = "multi-read"
	// FormatPOD5 is a pod5 columnar read container.
	FormatPOD5 Format = "pod5"
)

// Windowed reports whether positions are CHANNEL:START-END windows.
func (f Format) Windowed() bool { return f == FormatBulk }

// Location is a parsed input path or URI.
type Location struct {
	Raw    string
	Scheme string // "", "s3" or "https"
	Host   string // bucket for s3
	Path   string // local path, or object key / URL path
}

// Remote reports whether the location is read over the network.
func (l Location) Remote() bool { return l.Scheme != "" }

// ParseLocation splits a local path or s3/https URI. Other schemes are
// rejected with *UnsupportedFormatError.
func ParseLocation(raw string) (Location, error) {
	if !strings.Contains(raw, "://") {
		return Location{Raw: raw, Path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, &UnsupportedFormatError{Location: raw, Reason: "location"}
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "s3":
		return Location{Raw: raw, Scheme: scheme, Host: u.Host, Path: strings.TrimPrefix(u.Path, "/")}, nil
	case "https":
		return Location{Raw: raw, Scheme: scheme, Host: u.Host, Path: u.Path}, nil
	default:
		return Location{}, &UnsupportedFormatError{Location: raw, Reason: "scheme " + scheme}
	}
}

// Detect returns the container family from the location extension. Query
// strings and fragments of URIs are ignored.
func Detect(raw string) (Container, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(path.Ext(loc.Path)) {
	case ".fast5":
		return ContainerFast5, nil
	case ".pod5":
		return ContainerPOD5, nil
	default:
		return "", &UnsupportedFormatError{Location: raw, Reason: "extension " + path.Ext(loc.Path)}
	}
}

// Formats lists every resolvable format with its container and windowing.
func Formats() []FormatInfo {
	return []FormatInfo{
		{Format: FormatBulk, Container: ContainerFast5, Windowed: true, Annotations: true, Context: true},
		{Format: FormatMultiRead, Container: ContainerFast5, Context: true},
		{Format: FormatPOD5, Container: ContainerPOD5},
	}
}

// FormatInfo describes the capabilities of one format.
type FormatInfo struct {
	Format      Format    `json:"format"`
	Container   Container `json:"container"`
	Windowed    bool      `json:"windowed"`
	Annotations bool      `json:"annotations"`
	Context     bool      `json:"context"`
}
