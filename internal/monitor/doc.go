// Package monitor holds the fleet data model and the pure transformations
// applied to it: history retention, aggregation and down-sampling.
//
// # Data Model
//
//	Host        - a monitored machine, its current readings and history
//	Container   - a workload on a host, fully replaced each poll
//	HostMetric  - one timestamped history entry (host + per-container readings)
//	Snapshot    - what one poll of one host produced
//	ChartEntity - a host or container selected for aggregation
//
// # History
//
// Append builds a HostMetric from a Snapshot and returns a new history with
// the retention policy applied. Timestamps are clamped so the log is always
// non-decreasing. Policies:
//
//	MaxAge(d)    - drop entries older than d
//	MaxCount(n)  - keep the n most recent entries
//	Both(p...)   - apply each policy in turn
//
// # Aggregation
//
// CurrentValue, Average, Series and Summaries read a history that has
// already been narrowed with Window. Missing readings default to 0 for
// scalar results and nil for series points. Downsample reduces long
// histories to a bounded number of chunk averages while keeping the
// original time span.
package monitor
