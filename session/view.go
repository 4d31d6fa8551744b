// CLAUDE:SUMMARY Immutable result of a load: series, window annotations, label catalog and selection, run context.
package session

import (
	"slices"

	"github.com/hazyhaar/bulkvis/position"
	"github.com/hazyhaar/bulkvis/source"
)

// View is what one load produced plus the current label selection.
// Slices are shared with the memo cache and must not be mutated.
type View struct {
	Location    string                 `json:"location"`
	Format      source.Format          `json:"format"`
	Key         string                 `json:"key"`
	Position    position.Position      `json:"-"`
	Label       string                 `json:"label"`
	Slice       source.SampleSlice     `json:"signal"`
	Annotations []source.AnnotationRow `json:"annotations"`
	Catalog     source.Catalog         `json:"-"`
	Selected    []string               `json:"selected"`
	Context     *source.RunContext     `json:"context,omitempty"`
}

// Markers returns the annotations whose label is selected.
func (v *View) Markers() []source.AnnotationRow {
	return source.FilterLabels(v.Annotations, v.Selected)
}

// Summary counts the window's annotations per label.
func (v *View) Summary() []source.LabelCount {
	return source.Summary(v.Annotations)
}

// withSelection returns a shallow copy carrying its own selection slice.
func (v *View) withSelection(selected []string) *View {
	c := *v
	c.Selected = selected
	return &c
}

// intersect keeps the labels of selected declared in catalog, in catalog
// order. A nil selection selects everything.
func intersect(catalog source.Catalog, selected []string) []string {
	labels := catalog.Labels()
	if selected == nil {
		return labels
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if slices.Contains(selected, l) {
			out = append(out, l)
		}
	}
	return out
}
