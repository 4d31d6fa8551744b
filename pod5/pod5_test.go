package pod5

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestVBZRoundTrip(t *testing.T) {
	tests := map[string][]int16{
		"empty":    {},
		"single":   {42},
		"small":    {1, 2, 3, 2, 1, 0, -1, -2},
		"extremes": {32767, -32768, 0, 32767, -32768, -1, 1},
	}
	wide := make([]int16, 5000)
	for i := range wide {
		wide[i] = int16((i * 7919) % 3000)
	}
	tests["wide"] = wide

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			enc := EncodeVBZ(in)
			out, err := DecodeVBZ(enc, len(in))
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != len(in) {
				t.Fatalf("length %d, want %d", len(out), len(in))
			}
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("sample %d: %d, want %d", i, out[i], in[i])
				}
			}
		})
	}
}

func TestDecodeVBZ_Truncated(t *testing.T) {
	enc := EncodeVBZ([]int16{1, 2, 3})
	if _, err := DecodeVBZ(enc, 100); err == nil {
		t.Fatal("expected error when count exceeds payload")
	}
	if _, err := DecodeVBZ([]byte("garbage"), 3); err == nil {
		t.Fatal("expected zstd error")
	}
}

func sampleReads() []Read {
	long := make([]int16, MaxChunkSamples+1234)
	for i := range long {
		long[i] = int16(i % 900)
	}
	return []Read{
		{ID: uuid.MustParse("0e2d4f5a-6b7c-4d8e-9f00-112233445566"), ReadNumber: 3, Channel: 12, Signal: []int16{5, 6, 7, 8}, AcquisitionID: "run-a"},
		{ID: uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"), ReadNumber: 4, Channel: 12, Signal: long, AcquisitionID: "run-a"},
		{ID: uuid.MustParse("11111111-2222-4333-8444-555555555555"), ReadNumber: 5, Channel: 40, AcquisitionID: "run-a"},
	}
}

func TestWriteRead(t *testing.T) {
	reads := sampleReads()
	data, err := Bytes(reads, WriteOptions{SampleRate: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, Signature[:]) || !bytes.HasSuffix(data, Signature[:]) {
		t.Fatal("missing signatures")
	}

	r, err := Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Footer().Version != Version || r.Footer().Software != "bulkvis" {
		t.Fatalf("footer: %+v", r.Footer())
	}
	if len(r.Footer().Contents) != 3 {
		t.Fatalf("embedded files: %+v", r.Footer().Contents)
	}

	ids, err := r.ReadIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != len(reads) {
		t.Fatalf("ids: %v", ids)
	}
	for i, rd := range reads {
		if ids[i] != rd.ID.String() {
			t.Fatalf("ids[%d] = %s, want %s", i, ids[i], rd.ID)
		}
		sig, err := r.Signal(rd.ID.String())
		if err != nil {
			t.Fatalf("signal %s: %v", rd.ID, err)
		}
		if len(sig) != len(rd.Signal) {
			t.Fatalf("signal %s length %d, want %d", rd.ID, len(sig), len(rd.Signal))
		}
		for j := range sig {
			if sig[j] != rd.Signal[j] {
				t.Fatalf("signal %s sample %d: %d, want %d", rd.ID, j, sig[j], rd.Signal[j])
			}
		}
	}
}

func TestSignal_NotFound(t *testing.T) {
	data, err := Bytes(sampleReads()[:1], WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, id := range []string{"ffffffff-ffff-4fff-8fff-ffffffffffff", "not-a-uuid"} {
		if _, err := r.Signal(id); !errors.Is(err, ErrReadNotFound) {
			t.Errorf("Signal(%q): got %v, want ErrReadNotFound", id, err)
		}
	}
}

func TestOpenFile(t *testing.T) {
	data, err := Bytes(sampleReads()[:1], WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "reads.pod5")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadIDs(); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestOpen_Corrupt(t *testing.T) {
	cases := map[string][]byte{
		"tiny":      []byte("pod5"),
		"signature": bytes.Repeat([]byte{0}, 128),
	}
	data, _ := Bytes(sampleReads()[:1], WriteOptions{})
	bad := append([]byte(nil), data...)
	// Footer length field sits before the trailing section marker and signature.
	for i := len(bad) - 32; i < len(bad)-24; i++ {
		bad[i] = 0xFF
	}
	cases["footer-length"] = bad

	for name, c := range cases {
		if _, err := Open(bytes.NewReader(c), int64(len(c))); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
