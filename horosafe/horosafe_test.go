package horosafe

import (
	"errors"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateSecret(t *testing.T) {
	if err := ValidateSecret([]byte("short")); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("short secret: %v", err)
	}
	if err := ValidateSecret([]byte(strings.Repeat("k", MinSecretLen))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"runs/a.fast5", "/data/runs/a.fast5", false},
		{"a..b.fast5", "/data/a..b.fast5", false},
		{"../etc/passwd", "", true},
		{"runs/../a.fast5", "", true},
		{"runs/../../outside", "", true},
		{"/runs/a.pod5", "/data/runs/a.pod5", false},
	}
	for _, tt := range tests {
		got, err := SafePath("/data", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q) error=%v, wantErr=%v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SafePath(%q) error %v is not ErrPathTraversal", tt.input, err)
		}
		if got != filepath.FromSlash(tt.want) && !tt.wantErr {
			t.Errorf("SafePath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestConfine(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "runs", "a.fast5")

	if got, err := Confine(root, inside); err != nil || got != inside {
		t.Fatalf("absolute inside: %q %v", got, err)
	}
	if got, err := Confine(root, "runs/a.fast5"); err != nil || got != inside {
		t.Fatalf("relative: %q %v", got, err)
	}
	if _, err := Confine(root, filepath.Join(filepath.Dir(root), "other.fast5")); !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("absolute outside: %v", err)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		err error
	}{
		{"https://93.184.216.34/reads.pod5", nil},
		{"http://8.8.8.8/x", nil},
		{"ftp://8.8.8.8/data", ErrUnsafeScheme},
		{"javascript:alert(1)", ErrUnsafeScheme},
		{"http://127.0.0.1/admin", ErrSSRF},
		{"http://10.0.0.1/internal", ErrSSRF},
		{"http://192.168.1.1/api", ErrSSRF},
		{"http://[::1]/api", ErrSSRF},
		{"http://172.16.0.1/secret", ErrSSRF},
		{"http://169.254.169.254/latest/meta-data", ErrSSRF},
		{"http://0.0.0.0/", ErrSSRF},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.err == nil && err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
		}
		if tt.err != nil && !errors.Is(err, tt.err) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.err)
		}
	}
	if err := ValidateURL("https:///nohost"); err == nil {
		t.Error("missing host accepted")
	}
}

func TestValidateIdentifier(t *testing.T) {
	if err := ValidateIdentifier("V1StGXR8_Z5jdHi6B-myT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "../etc/passwd", "has spaces", "a.b", strings.Repeat("a", 129)} {
		if err := ValidateIdentifier(bad); err == nil {
			t.Errorf("ValidateIdentifier(%q) accepted", bad)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := LimitedReadAll(strings.NewReader(data), 200)
	if err != nil || len(got) != 100 {
		t.Fatalf("got %d bytes, err %v", len(got), err)
	}
	if _, err := LimitedReadAll(strings.NewReader(data), 50); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("oversized read: %v", err)
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"::ffff:10.1.2.3", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"::1", true},
	}
	for _, tt := range tests {
		if got := isPrivate(netip.MustParseAddr(tt.ip)); got != tt.private {
			t.Errorf("isPrivate(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}
