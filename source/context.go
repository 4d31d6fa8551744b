// CLAUDE:SUMMARY Reads the context_tags and tracking_id attribute groups into a strictly UTF-8 RunContext.
package source

import (
	"errors"
	"unicode/utf8"

	"github.com/hazyhaar/bulkvis/hdf5"
)

// RunContext is the run configuration and tracking metadata of a recording.
type RunContext struct {
	ContextTags map[string]string `json:"context_tags"`
	TrackingID  map[string]string `json:"tracking_id"`
}

// readContext reads both groups under parent. A missing group yields an empty
// map; both missing yields a nil context. Any attribute that is not valid
// UTF-8 fails the whole call.
func readContext(f *hdf5.File, parent string) (*RunContext, error) {
	tags, okTags, err := readAttrGroup(f, parent+"/"+contextTagsName)
	if err != nil {
		return nil, err
	}
	tracking, okTracking, err := readAttrGroup(f, parent+"/"+trackingIDName)
	if err != nil {
		return nil, err
	}
	if !okTags && !okTracking {
		return nil, nil
	}
	return &RunContext{ContextTags: tags, TrackingID: tracking}, nil
}

func readAttrGroup(f *hdf5.File, path string) (map[string]string, bool, error) {
	attrs, err := f.Attrs(path)
	if errors.Is(err, hdf5.ErrNotFound) {
		return map[string]string{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		v := a.Text()
		if !utf8.Valid(v) {
			return nil, false, &ContextDecodeError{Group: path, Attr: a.Name}
		}
		out[a.Name] = string(v)
	}
	return out, true, nil
}
