package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/bulkvis/pod5"
	"github.com/hazyhaar/bulkvis/position"
)

func (s *Source) openPOD5(ctx context.Context) error {
	var (
		r   *pod5.Reader
		err error
	)
	if s.loc.Remote() {
		// The handle outlives the opening request; Close releases it.
		var obj ReaderAt
		obj, err = openRemote(context.WithoutCancel(ctx), s.loc, s.cfg)
		if err == nil {
			if r, err = pod5.Open(obj, obj.Size()); err != nil {
				obj.Close()
			} else {
				r.WithCloser(obj)
			}
		}
	} else {
		var p string
		if p, err = s.localPath(); err == nil {
			r, err = pod5.OpenFile(p)
		}
	}
	if err != nil {
		var unsupported *UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return err
		}
		return &SourceOpenError{Location: s.loc.Raw, Err: err}
	}

	s.format = FormatPOD5
	s.be = &columnarFile{r: r, loc: s.loc.Raw}
	return nil
}

// columnarFile is a pod5 container. Reads carry no state tables or run
// context here.
type columnarFile struct {
	r   *pod5.Reader
	loc string
}

func (c *columnarFile) slice(pos position.Position) (SampleSlice, error) {
	raw, err := c.r.Signal(pos.ReadID)
	if errors.Is(err, pod5.ErrReadNotFound) {
		return SampleSlice{}, &ReadNotFoundError{Location: c.loc, ID: pos.ReadID}
	}
	if err != nil {
		return SampleSlice{}, fmt.Errorf("source: pod5 read %s: %w", pos.ReadID, err)
	}
	return indexed(raw), nil
}

func (c *columnarFile) annotations(int, float64, float64) ([]AnnotationRow, Catalog, error) {
	return nil, nil, nil
}

func (c *columnarFile) context() (*RunContext, error) { return nil, nil }

func (c *columnarFile) keys() ([]string, error) { return c.r.ReadIDs() }

func (c *columnarFile) close() error { return c.r.Close() }
