package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline draws the most recent width values as a sparkline
// scaled to their min/max range. A nil value leaves a blank gap. The
// color follows the last present value's usage threshold.
func RenderSparkline(data []*float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var minVal, maxVal, last float64
	present := 0
	for _, v := range data {
		if v == nil {
			continue
		}
		if present == 0 || *v < minVal {
			minVal = *v
		}
		if present == 0 || *v > maxVal {
			maxVal = *v
		}
		last = *v
		present++
	}
	if present == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal

	for _, v := range data {
		if v == nil {
			sb.WriteRune(' ')
			continue
		}
		level := numLevels / 2
		if valueRange > 0 {
			level = int((*v - minVal) / valueRange * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	style := lipgloss.NewStyle().Foreground(thresholdColor(last))
	return style.Render(sb.String())
}

// SeriesValues extracts one entity's values from a series, nil where the
// entity had no reading.
func SeriesValues(points []monitor.SeriesPoint, entityID string) []*float64 {
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = p.Values[entityID]
	}
	return out
}
