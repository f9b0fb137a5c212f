// Package render draws grouped infection series onto a single line chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/vjranagit/exacorona-plot/pkg/types"
)

const (
	Title  = "ExaCorona"
	XLabel = "time (s)"
	YLabel = "Total #infections"
)

// ErrNoSeries is returned when there is nothing to draw
var ErrNoSeries = errors.New("no series to render")

// Options controls the chart canvas. Zero values keep the library defaults.
type Options struct {
	Width  int
	Height int
}

// Chart builds the chart for the given series, one line per series in the
// order given.
func Chart(series []types.Series, opts Options) (*chart.Chart, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	xr, yr := dataRanges(series)

	graph := &chart.Chart{
		Title:  Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:  40,
				Left: 10,
			},
		},
		XAxis: chart.XAxis{
			Name:  XLabel,
			Range: xr,
		},
		YAxis: chart.YAxis{
			Name:  YLabel,
			Range: yr,
		},
		Series: make([]chart.Series, 0, len(series)),
	}

	for _, s := range series {
		if s.Empty() {
			graph.Series = append(graph.Series, emptySeries{name: s.Label})
			continue
		}
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: s.XValues(),
			YValues: s.YValues(),
		})
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(graph),
	}

	return graph, nil
}

// PNG renders the series as a PNG image into w
func PNG(w io.Writer, series []types.Series, opts Options) error {
	graph, err := Chart(series, opts)
	if err != nil {
		return err
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	return nil
}

// dataRanges returns explicit axis ranges only where the data range is
// degenerate; nil lets the chart compute the range itself.
func dataRanges(series []types.Series) (x, y chart.Range) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for _, s := range series {
		for _, p := range s.Points {
			minX = math.Min(minX, p.Timestamp)
			maxX = math.Max(maxX, p.Timestamp)
			minY = math.Min(minY, p.Value)
			maxY = math.Max(maxY, p.Value)
		}
	}

	return padRange(minX, maxX), padRange(minY, maxY)
}

func padRange(lo, hi float64) chart.Range {
	if math.IsInf(lo, 1) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if lo != hi {
		return nil
	}

	pad := math.Abs(lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// emptySeries keeps a legend entry for a series id that has no points
type emptySeries struct {
	name  string
	style chart.Style
}

func (es emptySeries) GetName() string { return es.name }

func (es emptySeries) GetStyle() chart.Style { return es.style }

func (es emptySeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }

func (es emptySeries) Validate() error { return nil }

func (es emptySeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
}
