package hdf5

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func buildImage(t *testing.T) []byte {
	t.Helper()
	f, err := CreateImage()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	signal := make([]int16, 1000)
	for i := range signal {
		signal[i] = int16(i - 500)
	}
	if err := f.WriteInt16("/Raw/Channel_1/Signal", signal); err != nil {
		t.Fatal(err)
	}
	if err := f.CreateGroup("/UniqueGlobalKey/context_tags"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttr("/UniqueGlobalKey/context_tags", "sample_frequency", "4000"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttr("/UniqueGlobalKey/context_tags", "count", uint32(7)); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttr("/UniqueGlobalKey/context_tags", "offset", int32(-3)); err != nil {
		t.Fatal(err)
	}
	if err := f.SetAttr("/UniqueGlobalKey/context_tags", "scale", 0.5); err != nil {
		t.Fatal(err)
	}

	members := []EnumMember{{Name: "unclassified", Value: 0}, {Name: "pore", Value: 1}, {Name: "strand", Value: 2}}
	if err := f.WriteEnumTable("/StateData/Channel_1/States", "acquisition_raw_index", "summary_state",
		members, []uint64{0, 400, 800}, []int64{1, 2, 1}); err != nil {
		t.Fatal(err)
	}

	img, err := f.Image()
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestImageRoundTrip(t *testing.T) {
	f, err := OpenImage(buildImage(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if !f.Exists("/Raw/Channel_1/Signal") {
		t.Fatal("signal dataset missing")
	}
	if f.Exists("/Raw/Channel_2/Signal") {
		t.Fatal("unexpected Channel_2")
	}

	n, err := f.Extent("/Raw/Channel_1/Signal")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1000 {
		t.Fatalf("extent: got %d", n)
	}

	got, err := f.ReadInt16("/Raw/Channel_1/Signal", 10, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 || got[0] != -490 || got[9] != -481 {
		t.Fatalf("slice: %v", got)
	}

	clamped, err := f.ReadInt16("/Raw/Channel_1/Signal", 990, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(clamped) != 10 {
		t.Fatalf("clamped slice length: %d", len(clamped))
	}

	empty, err := f.ReadInt16("/Raw/Channel_1/Signal", 2000, 3000)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("past-the-end slice: %d", len(empty))
	}
}

func TestReadEnumTable(t *testing.T) {
	f, err := OpenImage(buildImage(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	table, err := f.ReadEnumTable("/StateData/Channel_1/States", "acquisition_raw_index", "summary_state")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Index) != 3 || table.Index[1] != 400 {
		t.Fatalf("index column: %v", table.Index)
	}
	if table.Codes[0] != 1 || table.Codes[1] != 2 || table.Codes[2] != 1 {
		t.Fatalf("codes column: %v", table.Codes)
	}
	names := map[int64]string{}
	for _, m := range table.Members {
		names[m.Value] = m.Name
	}
	if len(names) != 3 || names[0] != "unclassified" || names[2] != "strand" {
		t.Fatalf("members: %v", table.Members)
	}
}

func TestAttrs(t *testing.T) {
	f, err := OpenImage(buildImage(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	attrs, err := f.Attrs("/UniqueGlobalKey/context_tags")
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]Attr{}
	for _, a := range attrs {
		byName[a.Name] = a
	}
	if string(byName["sample_frequency"].Text()) != "4000" {
		t.Fatalf("string attr: %+v", byName["sample_frequency"])
	}
	if byName["count"].Kind != AttrUint || string(byName["count"].Text()) != "7" {
		t.Fatalf("uint attr: %+v", byName["count"])
	}
	if byName["offset"].Kind != AttrInt || byName["offset"].Int != -3 {
		t.Fatalf("int attr: %+v", byName["offset"])
	}
	if byName["scale"].Kind != AttrFloat || string(byName["scale"].Text()) != "0.5" {
		t.Fatalf("float attr: %+v", byName["scale"])
	}

	if _, err := f.Attrs("/UniqueGlobalKey/tracking_id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing group: got %v", err)
	}
}

func TestChildren(t *testing.T) {
	f, err := OpenImage(buildImage(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	names, err := f.Children("/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Raw", "StateData", "UniqueGlobalKey"}
	if len(names) != len(want) {
		t.Fatalf("children: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("children[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bulk.fast5")
	if err := os.WriteFile(path, buildImage(t), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != path {
		t.Fatalf("name: %q", f.Name())
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.fast5")); err == nil {
		t.Fatal("expected error for missing file")
	}

	junk := filepath.Join(t.TempDir(), "junk.fast5")
	os.WriteFile(junk, []byte("not an hdf5 file"), 0o644)
	if _, err := Open(junk); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
