// CLAUDE:SUMMARY Repackages an in-memory sample slice as a single-read multi-read fast5 (or pod5) byte buffer for download.
// Package export builds standalone single-read containers from a loaded slice.
//
// Nothing touches the filesystem: fast5 output is built with the libhdf5
// core driver and returned as the file image, pod5 output is assembled in a
// byte buffer.
//
// The exported read gets a fresh random id on every call. Acquisition
// attributes that the source does not carry (start_time, end_reason,
// read_number, start_mux, median_before) are written with fixed values.
package export

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hazyhaar/bulkvis/hdf5"
	"github.com/hazyhaar/bulkvis/idgen"
	"github.com/hazyhaar/bulkvis/pod5"
	"github.com/hazyhaar/bulkvis/source"
)

// Fixed acquisition attributes of an exported read.
const (
	FileVersion  = "2.2"
	StartTime    = 400
	EndReason    = 0
	ReadNumber   = 1
	StartMux     = 1
	MedianBefore = 0.0
	PoreType     = "not_set"
)

// Format names an export container.
type Format string

const (
	FormatFast5 Format = "fast5"
	FormatPOD5  Format = "pod5"
)

// ParseFormat maps a query value to a Format. Empty means fast5.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatFast5):
		return FormatFast5, nil
	case string(FormatPOD5):
		return FormatPOD5, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatPOD5 {
		return "application/x-pod5"
	}
	return "application/x-hdf5"
}

// Options tunes an export.
type Options struct {
	// NewID generates the read id (default: random UUIDv4).
	NewID idgen.Generator

	// RunID is stored on the read group. Defaults to tracking_id/run_id of
	// the context, then "unknown".
	RunID string

	// SampleRate for pod5 run info (default: slice frequency, then 4000).
	SampleRate uint16
}

func (o *Options) defaults(ctx *source.RunContext, slice *source.SampleSlice) {
	if o.NewID == nil {
		o.NewID = idgen.UUIDv4()
	}
	if o.RunID == "" && ctx != nil {
		o.RunID = ctx.TrackingID["run_id"]
	}
	if o.RunID == "" {
		o.RunID = "unknown"
	}
	if o.SampleRate == 0 && slice.Frequency > 0 && slice.Frequency <= 65535 {
		o.SampleRate = uint16(slice.Frequency)
	}
	if o.SampleRate == 0 {
		o.SampleRate = 4000
	}
}

func samples(slice *source.SampleSlice) []int16 {
	if slice.Raw != nil {
		return slice.Raw
	}
	return slice.Values
}

// Fast5 writes slice as the only read of a multi-read fast5 file. When ctx
// is non-nil its tracking_id and context_tags groups are embedded.
func Fast5(slice source.SampleSlice, ctx *source.RunContext, opts Options) ([]byte, error) {
	opts.defaults(ctx, &slice)
	readID := opts.NewID()
	raw := samples(&slice)

	f, err := hdf5.CreateImage()
	if err != nil {
		return nil, fmt.Errorf("export: create image: %w", err)
	}
	defer f.Close()

	group := "/read_" + readID
	steps := []func() error{
		func() error { return f.SetAttr("/", "file_type", "multi-read") },
		func() error { return f.SetAttr("/", "file_version", FileVersion) },
		func() error { return f.WriteInt16(group+"/Raw/Signal", raw) },
		func() error { return f.SetAttr(group, "run_id", opts.RunID) },
		func() error { return f.SetAttr(group, "pore_type", PoreType) },
	}
	rawAttrs := []struct {
		name  string
		value any
	}{
		{"duration", uint32(len(raw))},
		{"median_before", MedianBefore},
		{"read_id", readID},
		{"read_number", int32(ReadNumber)},
		{"start_mux", uint8(StartMux)},
		{"start_time", uint64(StartTime)},
		{"end_reason", uint8(EndReason)},
	}
	for _, a := range rawAttrs {
		steps = append(steps, func() error { return f.SetAttr(group+"/Raw", a.name, a.value) })
	}
	if ctx != nil {
		steps = append(steps,
			func() error { return writeGroup(f, group+"/tracking_id", ctx.TrackingID) },
			func() error { return writeGroup(f, group+"/context_tags", ctx.ContextTags) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("export: fast5: %w", err)
		}
	}

	img, err := f.Image()
	if err != nil {
		return nil, fmt.Errorf("export: fast5 image: %w", err)
	}
	return img, nil
}

func writeGroup(f *hdf5.File, path string, attrs map[string]string) error {
	if err := f.CreateGroup(path); err != nil {
		return err
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := f.SetAttr(path, k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

// POD5 writes slice as the only read of a pod5 file, signal VBZ-compressed.
// The acquisition id follows the same run_id rule as Fast5.
func POD5(slice source.SampleSlice, ctx *source.RunContext, opts Options) ([]byte, error) {
	opts.defaults(ctx, &slice)
	rd, err := pod5Read(slice, opts)
	if err != nil {
		return nil, err
	}
	data, err := pod5.Bytes([]pod5.Read{rd}, pod5.WriteOptions{SampleRate: opts.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("export: pod5: %w", err)
	}
	return data, nil
}

// pod5Read builds the exported read; opts must have their defaults applied.
func pod5Read(slice source.SampleSlice, opts Options) (pod5.Read, error) {
	id, err := uuid.Parse(opts.NewID())
	if err != nil {
		return pod5.Read{}, fmt.Errorf("export: pod5 read id: %w", err)
	}
	return pod5.Read{
		ID:            id,
		ReadNumber:    ReadNumber,
		Start:         slice.StartIndex,
		Signal:        samples(&slice),
		MedianBefore:  MedianBefore,
		AcquisitionID: opts.RunID,
	}, nil
}

// Export dispatches on format.
func Export(format Format, slice source.SampleSlice, ctx *source.RunContext, opts Options) ([]byte, error) {
	switch format {
	case FormatPOD5:
		return POD5(slice, ctx, opts)
	case FormatFast5, "":
		return Fast5(slice, ctx, opts)
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}
