package ui

import "github.com/rileyhilliard/sentinel/internal/monitor"

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolOnline  = "●"
	SymbolStopped = "○"
	SymbolStale   = "◐"
	SymbolError   = "⊘"
)

// HostSymbol returns the indicator for a host status.
func HostSymbol(s monitor.HostStatus) string {
	if s == monitor.StatusOnline {
		return SymbolOnline
	}
	return SymbolFail
}

// ContainerSymbol returns the indicator for a container status.
func ContainerSymbol(s monitor.ContainerStatus) string {
	switch s {
	case monitor.ContainerRunning:
		return SymbolOnline
	case monitor.ContainerError:
		return SymbolError
	default:
		return SymbolStopped
	}
}
