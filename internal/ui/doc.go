// Package ui renders sentinel's terminal output: host and container
// tables, usage gauges and sparklines of metric history.
//
// # Components Overview
//
//	RenderHostTable      - one row per host with status and current readings
//	RenderContainerTable - the containers of one host
//	RenderSummaryTable   - current and average value per chart entity
//	RenderSparkline      - mini line graph of a series, gaps left blank
//	RenderGauge          - usage bar with color thresholds
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility. Usage values are
// colored green below 60%, yellow below 80% and red above. Call
// ConfigureColors once at startup; it drops to monochrome for --no-color,
// NO_COLOR or when output isn't a terminal.
package ui
