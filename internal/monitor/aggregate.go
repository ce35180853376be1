package monitor

import "time"

// SeriesPoint is one history entry projected onto a set of entities.
// Values holds nil for entities with no reading at that timestamp.
type SeriesPoint struct {
	Timestamp time.Time           `json:"timestamp"`
	Values    map[string]*float64 `json:"values"`
}

// EntitySummary is the current and mean value of one entity.
type EntitySummary struct {
	Entity  ChartEntity `json:"entity"`
	Current float64     `json:"current"`
	Average float64     `json:"average"`
	Samples int         `json:"samples"`
}

// ValueOf reads the entity's value for key from one history entry.
func ValueOf(m HostMetric, entity ChartEntity, key MetricKey) (float64, bool) {
	if entity.Kind == KindContainer {
		cm, ok := m.Containers[entity.ID]
		if !ok {
			return 0, false
		}
		switch key {
		case MetricCPU:
			return cm.CPUUsage, true
		case MetricMemory:
			return cm.MemoryUsage, true
		}
		return 0, false
	}

	var p *float64
	switch key {
	case MetricCPU:
		p = m.CPUUsage
	case MetricMemory:
		p = m.MemoryUsage
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// CurrentValue returns the entity's value in the last entry, or 0 when the
// history is empty or the last entry has no reading for it.
func CurrentValue(history []HostMetric, entity ChartEntity, key MetricKey) float64 {
	if len(history) == 0 {
		return 0
	}
	v, _ := ValueOf(history[len(history)-1], entity, key)
	return v
}

// Average returns the mean of every reading the entity has in history, or
// 0 when it has none.
func Average(history []HostMetric, entity ChartEntity, key MetricKey) float64 {
	avg, _ := average(history, entity, key)
	return avg
}

func average(history []HostMetric, entity ChartEntity, key MetricKey) (float64, int) {
	var sum float64
	var n int
	for _, m := range history {
		if v, ok := ValueOf(m, entity, key); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Series returns one point per history entry. Every entity has a key in
// every point so series stay aligned on the time axis.
func Series(history []HostMetric, entities []ChartEntity, key MetricKey) []SeriesPoint {
	points := make([]SeriesPoint, len(history))
	for i, m := range history {
		values := make(map[string]*float64, len(entities))
		for _, e := range entities {
			if v, ok := ValueOf(m, e, key); ok {
				values[e.ID] = Float(v)
			} else {
				values[e.ID] = nil
			}
		}
		points[i] = SeriesPoint{Timestamp: m.Timestamp, Values: values}
	}
	return points
}

// Summaries computes CurrentValue and Average for each entity, in order.
func Summaries(history []HostMetric, entities []ChartEntity, key MetricKey) []EntitySummary {
	out := make([]EntitySummary, len(entities))
	for i, e := range entities {
		avg, n := average(history, e, key)
		out[i] = EntitySummary{
			Entity:  e,
			Current: CurrentValue(history, e, key),
			Average: avg,
			Samples: n,
		}
	}
	return out
}
