package monitor

import "time"

// DefaultDownsampleThreshold is the point count charts are reduced to.
const DefaultDownsampleThreshold = 100

// Downsample reduces history to at most threshold entries by averaging
// consecutive chunks of ceil(n/threshold) entries. Host and per-container
// readings are averaged over the entries that have them. The first output
// entry keeps the first input timestamp and the last keeps the last, so the
// covered span is unchanged. The input is never modified.
func Downsample(history []HostMetric, threshold int) []HostMetric {
	n := len(history)
	if threshold <= 0 || n <= threshold {
		out := make([]HostMetric, n)
		for i, m := range history {
			out[i] = m.Clone()
		}
		return out
	}

	size := (n + threshold - 1) / threshold
	out := make([]HostMetric, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, reduceChunk(history[start:end]))
	}

	out[0].Timestamp = history[0].Timestamp
	out[len(out)-1].Timestamp = history[n-1].Timestamp
	return out
}

type containerSums struct {
	cpu, mem float64
	n        int
}

func reduceChunk(chunk []HostMetric) HostMetric {
	var (
		cpuSum, memSum float64
		cpuN, memN     int
		nanos          int64
		base           = chunk[0].Timestamp
		containers     map[string]*containerSums
	)

	for _, m := range chunk {
		nanos += int64(m.Timestamp.Sub(base))
		if m.CPUUsage != nil {
			cpuSum += *m.CPUUsage
			cpuN++
		}
		if m.MemoryUsage != nil {
			memSum += *m.MemoryUsage
			memN++
		}
		for id, cm := range m.Containers {
			if containers == nil {
				containers = make(map[string]*containerSums)
			}
			s, ok := containers[id]
			if !ok {
				s = &containerSums{}
				containers[id] = s
			}
			s.cpu += cm.CPUUsage
			s.mem += cm.MemoryUsage
			s.n++
		}
	}

	out := HostMetric{
		Timestamp: base.Add(time.Duration(nanos / int64(len(chunk)))),
	}
	if cpuN > 0 {
		out.CPUUsage = Float(cpuSum / float64(cpuN))
	}
	if memN > 0 {
		out.MemoryUsage = Float(memSum / float64(memN))
	}
	if len(containers) > 0 {
		out.Containers = make(map[string]ContainerMetric, len(containers))
		for id, s := range containers {
			out.Containers[id] = ContainerMetric{
				CPUUsage:    s.cpu / float64(s.n),
				MemoryUsage: s.mem / float64(s.n),
			}
		}
	}
	return out
}
