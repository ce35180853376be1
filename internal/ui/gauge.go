package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	gaugeFilled = '█'
	gaugeEmpty  = '░'
)

// RenderGauge draws a usage bar like "[████████░░░░]  67%". Values are
// clamped to 0-100. A missing or NaN reading renders an empty bar and "n/a".
func RenderGauge(percent *float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent == nil || math.IsNaN(*percent) {
		muted := lipgloss.NewStyle().Foreground(ColorMuted)
		return muted.Render("["+strings.Repeat(string(gaugeEmpty), width)+"]") + "  n/a"
	}

	p := *percent
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}

	filled := int((p / 100.0) * float64(width))
	var sb strings.Builder
	sb.Grow(width*3 + 2)
	sb.WriteRune('[')
	sb.WriteString(strings.Repeat(string(gaugeFilled), filled))
	sb.WriteString(strings.Repeat(string(gaugeEmpty), width-filled))
	sb.WriteRune(']')

	style := lipgloss.NewStyle().Foreground(thresholdColor(p))
	return style.Render(sb.String()) + fmt.Sprintf(" %3.0f%%", p)
}
