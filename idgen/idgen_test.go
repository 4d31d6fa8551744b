package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNanoID(t *testing.T) {
	for _, length := range []int{6, 12, 20} {
		id := NanoID(length)()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("NanoID: unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestGenerators_Unique(t *testing.T) {
	gens := map[string]Generator{
		"nanoid": NanoID(12),
		"uuidv4": UUIDv4(),
		"uuidv7": UUIDv7(),
	}
	for name, gen := range gens {
		seen := make(map[string]struct{}, 500)
		for i := 0; i < 500; i++ {
			id := gen()
			if _, ok := seen[id]; ok {
				t.Fatalf("%s: duplicate at iteration %d: %q", name, i, id)
			}
			seen[id] = struct{}{}
		}
	}
}

func TestUUIDVersions(t *testing.T) {
	v4, err := uuid.Parse(UUIDv4()())
	if err != nil {
		t.Fatal(err)
	}
	if v4.Version() != 4 {
		t.Fatalf("UUIDv4: version %d", v4.Version())
	}
	v7, err := uuid.Parse(Default())
	if err != nil {
		t.Fatal(err)
	}
	if v7.Version() != 7 {
		t.Fatalf("Default: version %d", v7.Version())
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("sess_", NanoID(8))()
	if !strings.HasPrefix(id, "sess_") || len(id) != 5+8 {
		t.Fatalf("Prefixed: got %q", id)
	}
}
