package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/bulkvis/hdf5"
	"github.com/hazyhaar/bulkvis/horosafe"
	"github.com/hazyhaar/bulkvis/position"
)

const (
	readGroupPrefix = "read_"
	contextTagsName = "context_tags"
	trackingIDName  = "tracking_id"
)

func (s *Source) openFast5(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &SourceOpenError{Location: s.loc.Raw, Err: err}
	}

	var (
		f   *hdf5.File
		err error
	)
	if s.loc.Scheme == "https" && !s.cfg.AllowPrivateHosts {
		if err := horosafe.ValidateURL(s.loc.Raw); err != nil {
			return &SourceOpenError{Location: s.loc.Raw, Err: err}
		}
	}
	if s.loc.Remote() {
		f, err = hdf5.Open(s.ros3URL(), hdf5.WithROS3(s.cfg.S3.Region, s.cfg.S3.AccessKeyID, s.cfg.S3.SecretAccessKey))
	} else {
		var p string
		if p, err = s.localPath(); err == nil {
			f, err = hdf5.Open(p)
		}
	}
	if err != nil {
		return &SourceOpenError{Location: s.loc.Raw, Err: err}
	}

	switch {
	case f.Exists("/Raw"):
		s.format = FormatBulk
		b := &bulkFile{f: f, loc: s.loc.Raw, template: s.cfg.ChannelTemplate, stride: s.cfg.Stride}
		if s.cfg.DetectFrequency {
			if freq, ok := b.sampleFrequency(); ok {
				s.freq = freq
			}
		}
		b.freq = s.freq
		s.be = b
	default:
		reads, err := readGroups(f)
		if err != nil || len(reads) == 0 {
			f.Close()
			if err == nil {
				err = errors.New("neither a /Raw group nor read_* groups")
			}
			return &SourceOpenError{Location: s.loc.Raw, Err: err}
		}
		s.format = FormatMultiRead
		s.be = &multiReadFile{f: f, loc: s.loc.Raw, reads: reads}
	}
	return nil
}

// localPath applies the data root confinement.
func (s *Source) localPath() (string, error) {
	if s.cfg.DataRoot == "" {
		return s.loc.Path, nil
	}
	return horosafe.Confine(s.cfg.DataRoot, s.loc.Path)
}

// ros3URL turns the location into the https URL the ros3 driver expects.
// s3://bucket/key becomes the virtual-hosted form for the configured region,
// or path-style under a custom endpoint.
func (s *Source) ros3URL() string {
	if s.loc.Scheme != "s3" {
		return s.loc.Raw
	}
	if ep := s.cfg.S3.Endpoint; ep != "" {
		if !strings.Contains(ep, "://") {
			ep = "https://" + ep
		}
		return strings.TrimSuffix(ep, "/") + "/" + s.loc.Host + "/" + s.loc.Path
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.loc.Host, s.cfg.S3.Region, s.loc.Path)
}

func readGroups(f *hdf5.File) ([]string, error) {
	names, err := f.Children("/")
	if err != nil {
		return nil, err
	}
	var reads []string
	for _, n := range names {
		if strings.HasPrefix(n, readGroupPrefix) {
			reads = append(reads, n)
		}
	}
	return reads, nil
}

// bulkFile is a fast5 bulk recording.
type bulkFile struct {
	f        *hdf5.File
	loc      string
	template string
	freq     float64
	stride   int
}

func (b *bulkFile) channelPath(group, label, leaf string) string {
	return "/" + group + "/" + label + "/" + leaf
}

func (b *bulkFile) slice(pos position.Position) (SampleSlice, error) {
	label := pos.Label(b.template)
	path := b.channelPath("Raw", label, "Signal")
	if !b.f.Exists(path) {
		return SampleSlice{}, &ReadNotFoundError{Location: b.loc, ID: label}
	}
	lo, hi := windowBounds(pos.Start, pos.End, b.freq)
	raw, err := b.f.ReadInt16(path, lo, hi)
	if err != nil {
		return SampleSlice{}, fmt.Errorf("source: read %s: %w", path, err)
	}
	return decimate(raw, lo, b.freq, b.stride), nil
}

func (b *bulkFile) context() (*RunContext, error) {
	return readContext(b.f, "/UniqueGlobalKey")
}

func (b *bulkFile) keys() ([]string, error) {
	names, err := b.f.Children("/Raw")
	if err != nil {
		return nil, err
	}
	sortChannels(names)
	return names, nil
}

// sampleFrequency reads context_tags/sample_frequency.
func (b *bulkFile) sampleFrequency() (float64, bool) {
	attrs, err := b.f.Attrs("/UniqueGlobalKey/" + contextTagsName)
	if err != nil {
		return 0, false
	}
	for _, a := range attrs {
		if a.Name != "sample_frequency" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(string(a.Text())), 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func (b *bulkFile) close() error { return b.f.Close() }

// sortChannels orders Channel_2 before Channel_10.
func sortChannels(names []string) {
	num := func(s string) (int, bool) {
		i := strings.LastIndexByte(s, '_')
		n, err := strconv.Atoi(s[i+1:])
		return n, err == nil
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, okA := num(names[i])
		b, okB := num(names[j])
		if okA && okB {
			return a < b
		}
		return names[i] < names[j]
	})
}

// multiReadFile is a fast5 file of read_<id> groups.
type multiReadFile struct {
	f     *hdf5.File
	loc   string
	reads []string
}

func (m *multiReadFile) group(id string) string {
	if strings.HasPrefix(id, readGroupPrefix) {
		return "/" + id
	}
	return "/" + readGroupPrefix + id
}

func (m *multiReadFile) slice(pos position.Position) (SampleSlice, error) {
	path := m.group(pos.ReadID) + "/Raw/Signal"
	if !m.f.Exists(path) {
		return SampleSlice{}, &ReadNotFoundError{Location: m.loc, ID: pos.ReadID}
	}
	n, err := m.f.Extent(path)
	if err != nil {
		return SampleSlice{}, fmt.Errorf("source: extent %s: %w", path, err)
	}
	raw, err := m.f.ReadInt16(path, 0, n)
	if err != nil {
		return SampleSlice{}, fmt.Errorf("source: read %s: %w", path, err)
	}
	return indexed(raw), nil
}

func (m *multiReadFile) annotations(int, float64, float64) ([]AnnotationRow, Catalog, error) {
	return nil, nil, nil
}

// context reads the run metadata stored under the first read.
func (m *multiReadFile) context() (*RunContext, error) {
	return readContext(m.f, "/"+m.reads[0])
}

func (m *multiReadFile) keys() ([]string, error) {
	ids := make([]string, len(m.reads))
	for i, r := range m.reads {
		ids[i] = strings.TrimPrefix(r, readGroupPrefix)
	}
	return ids, nil
}

func (m *multiReadFile) close() error { return m.f.Close() }
