package monitor

import "time"

// Default retention bounds.
const (
	DefaultMaxAge   = 24 * time.Hour
	DefaultMaxCount = 20000
)

// RetentionPolicy prunes a history after an append. Implementations must
// return a suffix of the input: entries are only ever dropped from the front.
type RetentionPolicy interface {
	Apply(history []HostMetric, now time.Time) []HostMetric
}

// RetentionFunc adapts a function to RetentionPolicy.
type RetentionFunc func(history []HostMetric, now time.Time) []HostMetric

// Apply calls f.
func (f RetentionFunc) Apply(history []HostMetric, now time.Time) []HostMetric {
	return f(history, now)
}

// MaxAge drops entries older than now-d.
func MaxAge(d time.Duration) RetentionPolicy {
	return RetentionFunc(func(history []HostMetric, now time.Time) []HostMetric {
		if d <= 0 {
			return history
		}
		cutoff := now.Add(-d)
		i := 0
		for i < len(history) && history[i].Timestamp.Before(cutoff) {
			i++
		}
		return history[i:]
	})
}

// MaxCount keeps the n most recent entries.
func MaxCount(n int) RetentionPolicy {
	return RetentionFunc(func(history []HostMetric, _ time.Time) []HostMetric {
		if n <= 0 || len(history) <= n {
			return history
		}
		return history[len(history)-n:]
	})
}

// Both applies each policy in order.
func Both(policies ...RetentionPolicy) RetentionPolicy {
	return RetentionFunc(func(history []HostMetric, now time.Time) []HostMetric {
		for _, p := range policies {
			if p != nil {
				history = p.Apply(history, now)
			}
		}
		return history
	})
}

// DefaultRetention keeps a day of samples, capped at DefaultMaxCount entries.
func DefaultRetention() RetentionPolicy {
	return Both(MaxAge(DefaultMaxAge), MaxCount(DefaultMaxCount))
}

// NewMetric builds the history entry for a snapshot. Containers only
// contribute when both their readings are present.
func NewMetric(snap Snapshot, at time.Time) HostMetric {
	m := HostMetric{
		Timestamp:   at,
		CPUUsage:    cloneFloat(snap.CPUUsage),
		MemoryUsage: cloneFloat(snap.MemoryUsage),
	}

	for _, c := range snap.Containers {
		if c.CPUUsage == nil || c.MemoryUsage == nil {
			continue
		}
		if m.Containers == nil {
			m.Containers = make(map[string]ContainerMetric)
		}
		m.Containers[c.ID] = ContainerMetric{CPUUsage: *c.CPUUsage, MemoryUsage: *c.MemoryUsage}
	}
	return m
}

// Append returns a new history with one entry for snap at time at, pruned
// by policy. The input slice is never modified. If at is earlier than the
// last entry, the last entry's timestamp is reused so the log never goes
// backwards.
func Append(history []HostMetric, snap Snapshot, at time.Time, policy RetentionPolicy) []HostMetric {
	if n := len(history); n > 0 && at.Before(history[n-1].Timestamp) {
		at = history[n-1].Timestamp
	}

	out := make([]HostMetric, len(history), len(history)+1)
	copy(out, history)
	out = append(out, NewMetric(snap, at))

	if policy == nil {
		return out
	}
	return policy.Apply(out, at)
}

// Window returns the entries with from <= Timestamp <= to. A zero from or
// to leaves that side open. The result shares memory with history.
func Window(history []HostMetric, from, to time.Time) []HostMetric {
	start := 0
	if !from.IsZero() {
		for start < len(history) && history[start].Timestamp.Before(from) {
			start++
		}
	}
	end := len(history)
	if !to.IsZero() {
		for end > start && history[end-1].Timestamp.After(to) {
			end--
		}
	}
	return history[start:end]
}
