package fleet

import (
	"time"

	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// Stats is the aggregated view of one host's history for a single metric.
type Stats struct {
	Host     monitor.Host          `json:"host"`
	Key      monitor.MetricKey     `json:"metric"`
	From     time.Time             `json:"from"`
	To       time.Time             `json:"to"`
	Samples  int                   `json:"samples"`
	Entities []monitor.ChartEntity `json:"entities"`

	// Summaries are computed over every sample in the window.
	Summaries []monitor.EntitySummary `json:"summaries"`

	// Series is down-sampled to at most the configured threshold.
	Series []monitor.SeriesPoint `json:"series"`
}

// Stats aggregates the host's history over [now-window, now]. A window of
// zero or less covers the whole history.
func (f *Fleet) Stats(id string, key monitor.MetricKey, window time.Duration, now time.Time) (Stats, error) {
	h, ok := f.Host(id)
	if !ok {
		return Stats{}, unknownHost(id)
	}

	var from time.Time
	if window > 0 {
		from = now.Add(-window)
	}
	history := monitor.Window(h.History, from, now)
	entities := monitor.EntitiesFor(h)

	return Stats{
		Host:      h,
		Key:       key,
		From:      from,
		To:        now,
		Samples:   len(history),
		Entities:  entities,
		Summaries: monitor.Summaries(history, entities, key),
		Series:    monitor.Series(monitor.Downsample(history, f.opts.DownsampleThreshold), entities, key),
	}, nil
}
