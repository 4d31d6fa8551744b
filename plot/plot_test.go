package plot

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/hazyhaar/bulkvis/source"
)

func testSlice(n int) source.SampleSlice {
	s := source.SampleSlice{Times: make([]float64, n), Values: make([]int16, n), Stride: 30, Frequency: 4000}
	for i := range s.Times {
		s.Times[i] = float64(i*30) / 4000
		s.Values[i] = int16(400 + (i%50)*4)
	}
	return s
}

func TestRender_PNG(t *testing.T) {
	markers := []source.AnnotationRow{
		{Time: 0.1, Code: 1, Label: "pore"},
		{Time: 0.5, Code: 2, Label: "strand"},
	}
	data, err := Render(testSlice(134), markers, Options{Width: 640, Height: 320, Title: "Channel_1"})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 320 {
		t.Fatalf("size: %v", b)
	}
}

func TestRender_SVG(t *testing.T) {
	data, err := Render(testSlice(10), []source.AnnotationRow{{Time: 0.02, Label: "unblocking"}}, Options{Format: SVG})
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, "unblocking") {
		t.Fatalf("svg output: %.120s", svg)
	}
	if !strings.Contains(svg, "stroke-dasharray") {
		t.Fatal("markers must be dashed")
	}
}

func TestRender_FlatAndMarkerOutside(t *testing.T) {
	s := source.SampleSlice{Times: []float64{0, 1, 2}, Values: []int16{5, 5, 5}}
	if _, err := Render(s, []source.AnnotationRow{{Time: 3, Label: "pore"}}, Options{}); err != nil {
		t.Fatalf("flat series: %v", err)
	}
}

func TestRender_TooFewPoints(t *testing.T) {
	for _, n := range []int{0, 1} {
		if _, err := Render(testSlice(n), nil, Options{}); !errors.Is(err, ErrTooFewPoints) {
			t.Fatalf("n=%d: %v", n, err)
		}
	}
}

func TestFormat_ContentType(t *testing.T) {
	if PNG.ContentType() != "image/png" || SVG.ContentType() != "image/svg+xml" {
		t.Fatal("content types")
	}
}
