// CLAUDE:SUMMARY Decodes a channel's state-transition table into time-stamped labelled rows and the full declared label catalog.
package source

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hazyhaar/bulkvis/hdf5"
	"github.com/hazyhaar/bulkvis/position"
)

const (
	statesIndexField = "acquisition_raw_index"
	statesEnumField  = "summary_state"
)

// AnnotationRow is one state transition.
type AnnotationRow struct {
	Time  float64 `json:"time"`
	Code  int64   `json:"code"`
	Label string  `json:"label"`
}

// Catalog maps every declared state code to its label.
type Catalog map[int64]string

// CatalogEntry is one code/label pair.
type CatalogEntry struct {
	Code  int64  `json:"code"`
	Label string `json:"label"`
}

// Entries returns the catalog sorted by code.
func (c Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(c))
	for code, label := range c {
		out = append(out, CatalogEntry{Code: code, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Labels returns the labels sorted by code.
func (c Catalog) Labels() []string {
	entries := c.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

// Has reports whether label is declared.
func (c Catalog) Has(label string) bool {
	for _, l := range c {
		if l == label {
			return true
		}
	}
	return false
}

func (b *bulkFile) annotations(channel int, start, end float64) ([]AnnotationRow, Catalog, error) {
	label := position.Position{Kind: position.KindWindow, Channel: channel}.Label(b.template)
	path := b.channelPath("StateData", label, "States")

	table, err := b.f.ReadEnumTable(path, statesIndexField, statesEnumField)
	if errors.Is(err, hdf5.ErrNotFound) {
		return nil, Catalog{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("source: states %s: %w", path, err)
	}

	catalog := make(Catalog, len(table.Members))
	for _, m := range table.Members {
		catalog[m.Value] = m.Name
	}

	var rows []AnnotationRow
	for i, idx := range table.Index {
		t := float64(idx) / b.freq
		if t < start || t > end {
			continue
		}
		code := table.Codes[i]
		rows = append(rows, AnnotationRow{Time: t, Code: code, Label: catalog[code]})
	}
	return rows, catalog, nil
}

// LabelCount is the number of transitions into one state.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary counts rows per label, most frequent first.
func Summary(rows []AnnotationRow) []LabelCount {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Label]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, LabelCount{Label: l, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// FilterLabels keeps the rows whose label is in selected, in order.
func FilterLabels(rows []AnnotationRow, selected []string) []AnnotationRow {
	keep := make(map[string]bool, len(selected))
	for _, s := range selected {
		keep[s] = true
	}
	var out []AnnotationRow
	for _, r := range rows {
		if keep[r.Label] {
			out = append(out, r)
		}
	}
	return out
}
