package position

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		channel int
		start   float64
		end     float64
	}{
		{"50:88360-88900", 50, 88360, 88900},
		{"1:0-0", 1, 0, 0},
		{"3:1.5-2.25", 3, 1.5, 2.25},
		{"512:10-10.5", 512, 10, 10.5},
	}

	for _, tt := range tests {
		p, err := ParseWindow(tt.in)
		if err != nil {
			t.Errorf("ParseWindow(%q): %v", tt.in, err)
			continue
		}
		if p.Kind != KindWindow {
			t.Errorf("ParseWindow(%q) kind = %v", tt.in, p.Kind)
		}
		if p.Channel != tt.channel || p.Start != tt.start || p.End != tt.end {
			t.Errorf("ParseWindow(%q) = %d:%g-%g, want %d:%g-%g",
				tt.in, p.Channel, p.Start, p.End, tt.channel, tt.start, tt.end)
		}
		want := fmt.Sprintf("Channel_%d", tt.channel)
		if got := p.Label(""); got != want {
			t.Errorf("Label = %q, want %q", got, want)
		}
	}
}

func TestParseWindow_Property(t *testing.T) {
	for c := 0; c < 20; c++ {
		for s := 0; s < 5; s++ {
			for e := s; e < s+5; e++ {
				in := fmt.Sprintf("%d:%d-%d", c, s, e)
				p, err := ParseWindow(in)
				if err != nil {
					t.Fatalf("ParseWindow(%q): %v", in, err)
				}
				if p.Label(DefaultChannelTemplate) != fmt.Sprintf("Channel_%d", c) {
					t.Fatalf("label for %q: %s", in, p.Label(""))
				}
				if p.Start != float64(s) || p.End != float64(e) {
					t.Fatalf("bounds for %q: %g-%g", in, p.Start, p.End)
				}
				if p.String() != in {
					t.Fatalf("String() = %q, want %q", p.String(), in)
				}
			}
		}
	}
}

func TestParseWindow_Malformed(t *testing.T) {
	bad := []string{
		"",
		"50",
		"50:88360",
		"50-88360-88900",
		"88360-88900",
		":1-2",
		"a:1-2",
		"50:x-2",
		"50:1-y",
		"50:1-",
		"50:-2",
		"50:1--2",
		"50:1.-2",
		"50:.5-2",
		" 50:1-2",
		"50:1-2 ",
		"50:1-2x",
		"50 :1-2",
		"-1:1-2",
		"50:2-1",
		"50:1e3-2e3",
	}

	for _, in := range bad {
		_, err := ParseWindow(in)
		if err == nil {
			t.Errorf("ParseWindow(%q): expected error", in)
			continue
		}
		if !errors.Is(err, ErrParse) {
			t.Errorf("ParseWindow(%q): error %v is not ErrParse", in, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseWindow(%q): error %T is not *ParseError", in, err)
		}
	}
}

func TestParseReadID(t *testing.T) {
	p, err := ParseReadID("0e2d4f5a-6b7c-4d8e-9f00-112233445566")
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindRead || p.ReadID != "0e2d4f5a-6b7c-4d8e-9f00-112233445566" {
		t.Fatalf("unexpected position %+v", p)
	}
	if p.String() != p.ReadID {
		t.Fatalf("String() = %q", p.String())
	}

	for _, in := range []string{"", "abc def", "abc\n"} {
		if _, err := ParseReadID(in); !errors.Is(err, ErrParse) {
			t.Errorf("ParseReadID(%q): got %v, want ErrParse", in, err)
		}
	}
}

func TestParse_Dispatch(t *testing.T) {
	if _, err := Parse("some-read", true); !errors.Is(err, ErrParse) {
		t.Fatalf("windowed parse of read id: got %v", err)
	}
	p, err := Parse("50:1-2", false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindRead || p.ReadID != "50:1-2" {
		t.Fatalf("read-based parse keeps the raw string: %+v", p)
	}
}

func TestWindow(t *testing.T) {
	if _, err := Window(1, 5, 4); !errors.Is(err, ErrParse) {
		t.Fatalf("start after end: got %v", err)
	}
	p, err := Window(7, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p.Duration() != 1 {
		t.Fatalf("duration: %g", p.Duration())
	}
	if got := p.Label("ch%03d"); got != "ch007" {
		t.Fatalf("custom template: %q", got)
	}
}
