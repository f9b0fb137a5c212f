package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/vjranagit/exacorona-plot/pkg/types"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleSeries() []types.Series {
	return []types.Series{
		{ID: 0, Label: types.Label(0), Points: []types.Point{{Timestamp: 0, Value: 10}, {Timestamp: 1, Value: 12}}},
		{ID: 1, Label: types.Label(1), Points: []types.Point{{Timestamp: 0, Value: 5}}},
	}
}

func TestChartLabels(t *testing.T) {
	graph, err := Chart(sampleSeries(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "ExaCorona", graph.Title)
	assert.Equal(t, "time (s)", graph.XAxis.Name)
	assert.Equal(t, "Total #infections", graph.YAxis.Name)
	require.Len(t, graph.Series, 2)
	assert.Equal(t, "Location 0", graph.Series[0].GetName())
	assert.Equal(t, "Location 1", graph.Series[1].GetName())
	assert.Len(t, graph.Elements, 1)
}

func TestChartSeriesValues(t *testing.T) {
	graph, err := Chart(sampleSeries(), Options{})
	require.NoError(t, err)

	cs, ok := graph.Series[0].(chart.ContinuousSeries)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, cs.XValues)
	assert.Equal(t, []float64{10, 12}, cs.YValues)
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, sampleSeries(), Options{}))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGWithEmptySeries(t *testing.T) {
	series := []types.Series{
		{ID: 0, Label: types.Label(0), Points: []types.Point{{Timestamp: 0, Value: 1}, {Timestamp: 1, Value: 2}}},
		{ID: 1, Label: types.Label(1), Points: []types.Point{}},
		{ID: 2, Label: types.Label(2), Points: []types.Point{{Timestamp: 0, Value: 3}, {Timestamp: 2, Value: 4}}},
	}

	graph, err := Chart(series, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Location 1", graph.Series[1].GetName())

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, series, Options{Width: 640, Height: 320}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGSinglePoint(t *testing.T) {
	series := []types.Series{
		{ID: 7, Label: types.Label(7), Points: []types.Point{{Timestamp: 3, Value: 0}}},
	}

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, series, Options{}))
	assert.NotZero(t, buf.Len())
}

func TestPNGNoSeries(t *testing.T) {
	err := PNG(&bytes.Buffer{}, nil, Options{})
	assert.True(t, errors.Is(err, ErrNoSeries))
}

func TestPadRange(t *testing.T) {
	assert.Nil(t, padRange(0, 10))

	r := padRange(100, 100)
	require.NotNil(t, r)
	assert.Equal(t, 95.0, r.GetMin())
	assert.Equal(t, 105.0, r.GetMax())

	r = padRange(0, 0)
	assert.Equal(t, -1.0, r.GetMin())
	assert.Equal(t, 1.0, r.GetMax())
}
