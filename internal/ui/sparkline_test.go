package ui

import (
	"testing"

	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/stretchr/testify/assert"
)

func floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = monitor.Float(v)
	}
	return out
}

func TestRenderSparkline_EmptyData(t *testing.T) {
	assert.Empty(t, RenderSparkline(nil, 10))
	assert.Empty(t, RenderSparkline([]*float64{}, 10))
}

func TestRenderSparkline_ZeroWidth(t *testing.T) {
	assert.Empty(t, RenderSparkline(floats(50, 60, 70), 0))
	assert.Empty(t, RenderSparkline(floats(50, 60, 70), -5))
}

func TestRenderSparkline_AllMissing(t *testing.T) {
	assert.Empty(t, RenderSparkline([]*float64{nil, nil}, 10))
}

func TestRenderSparkline_AllSameValues(t *testing.T) {
	result := stripANSI(RenderSparkline(floats(50, 50, 50, 50), 10))
	assert.Equal(t, "▅▅▅▅", result)
}

func TestRenderSparkline_IncreasingValues(t *testing.T) {
	result := stripANSI(RenderSparkline(floats(0, 25, 50, 75, 100), 10))
	runes := []rune(result)
	assert.Len(t, runes, 5, "one block per data point")
	assert.Equal(t, '▁', runes[0])
	assert.Equal(t, '█', runes[4])
}

func TestRenderSparkline_WidthKeepsMostRecent(t *testing.T) {
	result := stripANSI(RenderSparkline(floats(0, 0, 0, 10, 20, 30), 3))
	assert.Equal(t, "▁▄█", result)
}

func TestRenderSparkline_GapsStayBlank(t *testing.T) {
	data := []*float64{monitor.Float(0), nil, monitor.Float(100)}
	result := stripANSI(RenderSparkline(data, 10))
	assert.Equal(t, "▁ █", result)
}

func TestSeriesValues(t *testing.T) {
	points := []monitor.SeriesPoint{
		{Values: map[string]*float64{"host-1": monitor.Float(10), "c1": nil}},
		{Values: map[string]*float64{"host-1": monitor.Float(20), "c1": monitor.Float(5)}},
	}

	host := SeriesValues(points, "host-1")
	assert.Equal(t, []*float64{monitor.Float(10), monitor.Float(20)}, host)

	c1 := SeriesValues(points, "c1")
	assert.Nil(t, c1[0])
	assert.Equal(t, 5.0, *c1[1])

	assert.Equal(t, []*float64{nil, nil}, SeriesValues(points, "unknown"))
}

func TestThresholdColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, string(ColorSuccess)},
		{59.9, string(ColorSuccess)},
		{60, string(ColorWarning)},
		{79.9, string(ColorWarning)},
		{80, string(ColorError)},
		{100, string(ColorError)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(thresholdColor(tt.percent)), "percent %.1f", tt.percent)
	}
}
