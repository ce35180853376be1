package ui

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// NotAvailable marks a missing reading.
const NotAvailable = "-"

const bytesPerGiB = 1 << 30

// Percent formats an optional percentage with one decimal.
func Percent(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// Gigabytes formats an optional GiB reading in IEC units.
func Gigabytes(gb *float64) string {
	if gb == nil || *gb < 0 || math.IsNaN(*gb) {
		return NotAvailable
	}
	return humanize.IBytes(uint64(*gb * bytesPerGiB))
}

// UsedOfTotal formats "used / total", or NotAvailable when either is missing.
func UsedOfTotal(used, total *float64) string {
	if used == nil || total == nil {
		return NotAvailable
	}
	return Gigabytes(used) + " / " + Gigabytes(total)
}

// Ago formats t relative to now. A zero time reads "never".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
