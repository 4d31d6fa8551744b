// CLAUDE:SUMMARY Opens fast5/pod5 recordings (local, s3, https), dispatches on the resolved format and reads decimated or whole-read sample slices.
// Package source is the signal source adapter of bulkvis.
//
// Open resolves a location to one of three formats and owns the resulting
// handle until Close:
//
//	bulk fast5       CHANNEL:START-END windows, decimated, state annotations, run context
//	multi-read fast5 whole reads by id, run context of the read
//	pod5             whole reads by UUID
//
// Usage:
//
//	src, err := source.Open(ctx, "run.fast5", source.Config{})
//	defer src.Close()
//	pos, err := src.Parse("50:88360-88900")
//	slice, err := src.ReadSlice(pos)
package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/hazyhaar/bulkvis/position"
)

// S3Config holds object storage credentials and addressing.
type S3Config struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint"`
	AccessKeyID     string `json:"-" yaml:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"secret_access_key"`
}

// Config configures how recordings are opened and sliced.
type Config struct {
	// Frequency is the acquisition rate in Hz (default: 4000).
	Frequency float64 `json:"frequency" yaml:"frequency"`

	// Stride keeps every Nth sample of a window for display (default: 30).
	Stride int `json:"stride" yaml:"stride"`

	// ChannelTemplate renders a channel number into its group name (default: "Channel_%d").
	ChannelTemplate string `json:"channel_template" yaml:"channel_template"`

	// MaxWindowSeconds rejects longer windows. Zero disables the check.
	MaxWindowSeconds float64 `json:"max_window_seconds" yaml:"max_window_seconds"`

	// DetectFrequency reads sample_frequency from the bulk run context when present.
	DetectFrequency bool `json:"detect_frequency" yaml:"detect_frequency"`

	// DataRoot confines local paths to this directory when set.
	DataRoot string `json:"data_root" yaml:"data_root"`

	// AllowPrivateHosts lets https locations resolve to loopback or private addresses.
	AllowPrivateHosts bool `json:"allow_private_hosts" yaml:"allow_private_hosts"`

	S3 S3Config `json:"s3" yaml:"s3"`

	HTTPClient *http.Client `json:"-" yaml:"-"`
	Logger     *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Frequency <= 0 {
		c.Frequency = 4000
	}
	if c.Stride <= 0 {
		c.Stride = 30
	}
	if c.ChannelTemplate == "" {
		c.ChannelTemplate = position.DefaultChannelTemplate
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// SampleSlice is the display series plus the raw samples it was built from.
// Times and Values always have the same length.
type SampleSlice struct {
	Times      []float64 `json:"times"`
	Values     []int16   `json:"values"`
	Raw        []int16   `json:"-"`
	StartIndex uint64    `json:"start_index"`
	Frequency  float64   `json:"frequency,omitempty"`
	Stride     int       `json:"stride"`
}

// Len returns the number of display points.
func (s *SampleSlice) Len() int { return len(s.Values) }

// backend is implemented once per Format.
type backend interface {
	slice(pos position.Position) (SampleSlice, error)
	annotations(channel int, start, end float64) ([]AnnotationRow, Catalog, error)
	context() (*RunContext, error)
	keys() ([]string, error)
	close() error
}

// Source is one open recording. It is not safe for concurrent use; the
// owner serialises calls.
type Source struct {
	cfg    Config
	loc    Location
	format Format
	freq   float64
	be     backend
}

// Open detects the container, opens it and resolves its format. On failure
// nothing stays open.
func Open(ctx context.Context, raw string, cfg Config) (*Source, error) {
	cfg.defaults()

	container, err := Detect(raw)
	if err != nil {
		return nil, err
	}
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}

	s := &Source{cfg: cfg, loc: loc, freq: cfg.Frequency}
	switch container {
	case ContainerFast5:
		err = s.openFast5(ctx)
	case ContainerPOD5:
		err = s.openPOD5(ctx)
	default:
		err = &UnsupportedFormatError{Location: raw, Reason: "container " + string(container)}
	}
	if err != nil {
		cfg.Logger.Debug("source open failed", "location", raw, "error", err)
		return nil, err
	}

	cfg.Logger.Debug("source opened", "location", raw, "format", s.format, "frequency", s.freq)
	return s, nil
}

// Location returns the parsed location the source was opened from.
func (s *Source) Location() Location { return s.loc }

// Format returns the resolved format.
func (s *Source) Format() Format { return s.format }

// Frequency returns the acquisition rate used for windowed reads.
func (s *Source) Frequency() float64 { return s.freq }

// Stride returns the decimation stride used for windowed reads.
func (s *Source) Stride() int { return s.cfg.Stride }

// ChannelTemplate returns the template turning channel numbers into group names.
func (s *Source) ChannelTemplate() string { return s.cfg.ChannelTemplate }

// Parse reads key with the grammar of the source's format.
func (s *Source) Parse(key string) (position.Position, error) {
	return position.Parse(key, s.format.Windowed())
}

// ReadSlice returns the samples addressed by pos.
func (s *Source) ReadSlice(pos position.Position) (SampleSlice, error) {
	if s.be == nil {
		return SampleSlice{}, ErrNoData
	}
	if (pos.Kind == position.KindWindow) != s.format.Windowed() {
		return SampleSlice{}, &position.ParseError{
			Input:  pos.String(),
			Reason: fmt.Sprintf("position kind does not match %s format", s.format),
		}
	}
	if pos.Kind == position.KindWindow && s.cfg.MaxWindowSeconds > 0 && pos.Duration() > s.cfg.MaxWindowSeconds {
		return SampleSlice{}, fmt.Errorf("%w: %gs exceeds %gs", ErrWindowTooLarge, pos.Duration(), s.cfg.MaxWindowSeconds)
	}
	return s.be.slice(pos)
}

// Annotations returns the state transitions of channel inside [start, end]
// and the catalog of every declared state. Formats without state tables
// return nil, nil, nil.
func (s *Source) Annotations(channel int, start, end float64) ([]AnnotationRow, Catalog, error) {
	if s.be == nil {
		return nil, nil, ErrNoData
	}
	return s.be.annotations(channel, start, end)
}

// Context returns the run metadata. Formats without it return nil, nil.
func (s *Source) Context() (*RunContext, error) {
	if s.be == nil {
		return nil, ErrNoData
	}
	return s.be.context()
}

// Keys lists what positions can address: channel group names for bulk
// files, read ids otherwise.
func (s *Source) Keys() ([]string, error) {
	if s.be == nil {
		return nil, ErrNoData
	}
	return s.be.keys()
}

// Close releases the handle and any remote connection. Safe to call twice.
func (s *Source) Close() error {
	if s == nil || s.be == nil {
		return nil
	}
	err := s.be.close()
	s.be = nil
	return err
}

// windowBounds converts seconds to raw sample indices by flooring.
func windowBounds(start, end, freq float64) (lo, hi uint64) {
	return uint64(math.Floor(start * freq)), uint64(math.Floor(end * freq))
}

// decimate keeps every stride-th sample of raw, which starts at sample lo.
func decimate(raw []int16, lo uint64, freq float64, stride int) SampleSlice {
	n := (len(raw) + stride - 1) / stride
	out := SampleSlice{
		Times:      make([]float64, n),
		Values:     make([]int16, n),
		Raw:        raw,
		StartIndex: lo,
		Frequency:  freq,
		Stride:     stride,
	}
	for i := 0; i < n; i++ {
		out.Values[i] = raw[i*stride]
		out.Times[i] = float64(lo+uint64(i*stride)) / freq
	}
	return out
}

// indexed exposes a whole read with sample-index time.
func indexed(raw []int16) SampleSlice {
	out := SampleSlice{
		Times:  make([]float64, len(raw)),
		Values: raw,
		Raw:    raw,
		Stride: 1,
	}
	for i := range raw {
		out.Times[i] = float64(i)
	}
	return out
}
