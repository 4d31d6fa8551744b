// CLAUDE:SUMMARY Renders a signal slice with dashed orange state markers and rotated labels to PNG or SVG through go-chart.
// Package plot draws the squiggle view of a loaded slice: the decimated
// signal as one continuous line, and each selected state transition as a
// dashed orange vertical line labelled with its state.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/hazyhaar/bulkvis/source"
)

// ErrTooFewPoints is returned for slices with fewer than two samples.
var ErrTooFewPoints = errors.New("plot: at least two points are needed")

// Format is an output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Options tunes a rendering.
type Options struct {
	Width  int    // default 1200
	Height int    // default 500
	Title  string // e.g. the channel label or read id
	Format Format // default PNG

	// XName names the time axis (default "Time (s)").
	XName string
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 500
	}
	if o.Format == "" {
		o.Format = PNG
	}
	if o.XName == "" {
		o.XName = "Time (s)"
	}
}

var (
	signalColor = chart.ColorBlue
	markerColor = chart.ColorOrange
	markerDash  = []float64{5, 5}
)

// Render draws slice and markers.
func Render(slice source.SampleSlice, markers []source.AnnotationRow, opts Options) ([]byte, error) {
	opts.defaults()
	if len(slice.Times) < 2 || len(slice.Times) != len(slice.Values) {
		return nil, ErrTooFewPoints
	}

	ys := make([]float64, len(slice.Values))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i, v := range slice.Values {
		ys[i] = float64(v)
		yMin = math.Min(yMin, ys[i])
		yMax = math.Max(yMax, ys[i])
	}
	if yMin == yMax {
		yMin, yMax = yMin-1, yMax+1
	}
	xMin, xMax := slice.Times[0], slice.Times[len(slice.Times)-1]
	for _, m := range markers {
		xMin = math.Min(xMin, m.Time)
		xMax = math.Max(xMax, m.Time)
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Signal",
			XValues: slice.Times,
			YValues: ys,
			Style:   chart.Style{StrokeColor: signalColor, StrokeWidth: 1},
		},
	}
	labels := make([]chart.Value2, 0, len(markers))
	for _, m := range markers {
		series = append(series, chart.ContinuousSeries{
			Name:    m.Label,
			XValues: []float64{m.Time, m.Time},
			YValues: []float64{yMin, yMax},
			Style:   markerStyle(),
		})
		labels = append(labels, chart.Value2{XValue: m.Time, YValue: yMax, Label: m.Label})
	}
	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{
			Name:        "States",
			Annotations: labels,
			Style: chart.Style{
				FontColor:           markerColor,
				StrokeColor:         markerColor,
				FillColor:           drawing.ColorWhite,
				FontSize:            9,
				TextRotationDegrees: 45,
			},
		})
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           opts.XName,
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: formatTick,
		},
		YAxis: chart.YAxis{
			Name:           "Signal",
			Range:          &chart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: formatTick,
		},
		Series: series,
	}

	provider := chart.PNG
	if opts.Format == SVG {
		provider = chart.SVG
	}
	var buf bytes.Buffer
	if err := ch.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("plot: render: %w", err)
	}
	return buf.Bytes(), nil
}

func markerStyle() chart.Style {
	return chart.Style{
		StrokeColor:     markerColor,
		StrokeWidth:     1,
		StrokeDashArray: markerDash,
	}
}

func formatTick(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', 6, 64)
	}
	return fmt.Sprint(v)
}
