package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/bulkvis/hdf5"
	"github.com/hazyhaar/bulkvis/position"
	"github.com/hazyhaar/bulkvis/source"
)

const fixedID = "5f0c2a7e-3b1d-4c8e-9a6f-0123456789ab"

func fixed() string { return fixedID }

func testSlice() source.SampleSlice {
	raw := make([]int16, 300)
	for i := range raw {
		raw[i] = int16(i*3 - 200)
	}
	return source.SampleSlice{
		Times:      []float64{1, 1.0075},
		Values:     []int16{raw[0], raw[30]},
		Raw:        raw,
		StartIndex: 4000,
		Frequency:  4000,
		Stride:     30,
	}
}

func attrMap(t *testing.T, f *hdf5.File, path string) map[string]hdf5.Attr {
	t.Helper()
	attrs, err := f.Attrs(path)
	if err != nil {
		t.Fatalf("attrs %s: %v", path, err)
	}
	out := map[string]hdf5.Attr{}
	for _, a := range attrs {
		out[a.Name] = a
	}
	return out
}

func TestFast5_Layout(t *testing.T) {
	ctx := &source.RunContext{
		ContextTags: map[string]string{"experiment_type": "genomic_dna"},
		TrackingID:  map[string]string{"run_id": "run-42", "device_id": "MN1"},
	}
	data, err := Fast5(testSlice(), ctx, Options{NewID: fixed})
	if err != nil {
		t.Fatal(err)
	}

	f, err := hdf5.OpenImage(data)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	root := attrMap(t, f, "/")
	if string(root["file_type"].Text()) != "multi-read" || string(root["file_version"].Text()) != FileVersion {
		t.Fatalf("root attrs: %+v", root)
	}

	group := "/read_" + fixedID
	read := attrMap(t, f, group)
	if string(read["run_id"].Text()) != "run-42" || string(read["pore_type"].Text()) != PoreType {
		t.Fatalf("read attrs: %+v", read)
	}

	raw := attrMap(t, f, group+"/Raw")
	want := map[string]string{
		"duration":      "300",
		"median_before": "0",
		"read_id":       fixedID,
		"read_number":   "1",
		"start_mux":     "1",
		"start_time":    "400",
		"end_reason":    "0",
	}
	for k, v := range want {
		if got := string(raw[k].Text()); got != v {
			t.Errorf("Raw/%s = %q, want %q", k, got, v)
		}
	}

	sig, err := f.ReadInt16(group+"/Raw/Signal", 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 300 || sig[0] != -200 || sig[299] != 697 {
		t.Fatalf("signal: len %d", len(sig))
	}

	if tags := attrMap(t, f, group+"/context_tags"); string(tags["experiment_type"].Text()) != "genomic_dna" {
		t.Fatalf("context_tags: %+v", tags)
	}
	if tracking := attrMap(t, f, group+"/tracking_id"); string(tracking["device_id"].Text()) != "MN1" {
		t.Fatalf("tracking_id: %+v", tracking)
	}
}

func TestFast5_NoContext(t *testing.T) {
	data, err := Fast5(testSlice(), nil, Options{NewID: fixed})
	if err != nil {
		t.Fatal(err)
	}
	f, err := hdf5.OpenImage(data)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	group := "/read_" + fixedID
	if f.Exists(group+"/tracking_id") || f.Exists(group+"/context_tags") {
		t.Fatal("metadata groups written without a context")
	}
	if read := attrMap(t, f, group); string(read["run_id"].Text()) != "unknown" {
		t.Fatalf("run_id placeholder: %+v", read)
	}
}

func TestFast5_FreshIDs(t *testing.T) {
	a, err := Fast5(testSlice(), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fast5(testSlice(), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	idsOf := func(data []byte) []string {
		f, err := hdf5.OpenImage(data)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		names, err := f.Children("/")
		if err != nil {
			t.Fatal(err)
		}
		return names
	}
	ia, ib := idsOf(a), idsOf(b)
	if len(ia) != 1 || len(ib) != 1 || ia[0] == ib[0] {
		t.Fatalf("read groups: %v %v", ia, ib)
	}
}

// roundTrip writes data to disk and reads the single read back.
func roundTrip(t *testing.T, name string, data []byte, key string) source.SampleSlice {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := source.Open(context.Background(), path, source.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	got, err := src.ReadSlice(position.Read(key))
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	slice := testSlice()

	f5, err := Fast5(slice, nil, Options{NewID: fixed})
	if err != nil {
		t.Fatal(err)
	}
	p5, err := POD5(slice, nil, Options{NewID: fixed})
	if err != nil {
		t.Fatal(err)
	}

	for name, got := range map[string]source.SampleSlice{
		"fast5": roundTrip(t, "export.fast5", f5, fixedID),
		"pod5":  roundTrip(t, "export.pod5", p5, fixedID),
	} {
		if len(got.Values) != len(slice.Raw) {
			t.Fatalf("%s: %d samples, want %d", name, len(got.Values), len(slice.Raw))
		}
		for i := range slice.Raw {
			if got.Values[i] != slice.Raw[i] {
				t.Fatalf("%s: sample %d = %d, want %d", name, i, got.Values[i], slice.Raw[i])
			}
		}
	}
}

func TestPOD5_BadGenerator(t *testing.T) {
	if _, err := POD5(testSlice(), nil, Options{NewID: func() string { return "nope" }}); err == nil {
		t.Fatal("expected error for non-UUID read id")
	}
}

func TestPOD5_RunID(t *testing.T) {
	slice := testSlice()
	ctx := &source.RunContext{TrackingID: map[string]string{"run_id": "run42"}}

	tests := []struct {
		name string
		ctx  *source.RunContext
		opts Options
		want string
	}{
		{"from context", ctx, Options{NewID: fixed}, "run42"},
		{"no context", nil, Options{NewID: fixed}, "unknown"},
		{"explicit", ctx, Options{NewID: fixed, RunID: "override"}, "override"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.defaults(tt.ctx, &slice)
			rd, err := pod5Read(slice, opts)
			if err != nil {
				t.Fatal(err)
			}
			if rd.AcquisitionID != tt.want || rd.ID.String() != fixedID {
				t.Fatalf("acquisition %q id %s, want %q", rd.AcquisitionID, rd.ID, tt.want)
			}
		})
	}

	data, err := Export(FormatPOD5, slice, ctx, Options{NewID: fixed})
	if err != nil || len(data) == 0 {
		t.Fatalf("export: %d bytes, %v", len(data), err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatFast5, "fast5": FormatFast5, "pod5": FormatPOD5} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Fatal("expected error for csv")
	}
}
