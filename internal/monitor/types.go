package monitor

import (
	"sort"
	"time"
)

// HostStatus is a host's reachability as of its last poll.
type HostStatus string

const (
	StatusOnline  HostStatus = "online"
	StatusOffline HostStatus = "offline"
)

// ContainerStatus is the normalized runtime status of a container.
type ContainerStatus string

const (
	ContainerRunning ContainerStatus = "running"
	ContainerStopped ContainerStatus = "stopped"
	ContainerError   ContainerStatus = "error"
)

// DefaultSSHPort is used when a host record doesn't name a port.
const DefaultSSHPort = 22

// Host is one monitored machine. Identity fields (ID, Name, Address,
// SSHPort, CreatedAt) are set on add and never changed by polling.
type Host struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Address    string      `json:"ipAddress" yaml:"ipAddress"`
	SSHPort    int         `json:"sshPort,omitempty" yaml:"sshPort,omitempty"`
	Status     HostStatus  `json:"status" yaml:"status"`
	CreatedAt  time.Time   `json:"createdAt" yaml:"createdAt"`
	Containers []Container `json:"containers" yaml:"containers"`

	CPUUsage      *float64 `json:"cpuUsage,omitempty" yaml:"cpuUsage,omitempty"`
	MemoryUsage   *float64 `json:"memoryUsage,omitempty" yaml:"memoryUsage,omitempty"`
	MemoryUsedGB  *float64 `json:"memoryUsedGb,omitempty" yaml:"memoryUsedGb,omitempty"`
	MemoryTotalGB *float64 `json:"memoryTotalGb,omitempty" yaml:"memoryTotalGb,omitempty"`
	DiskUsage     *float64 `json:"diskUsage,omitempty" yaml:"diskUsage,omitempty"`
	DiskUsedGB    *float64 `json:"diskUsedGb,omitempty" yaml:"diskUsedGb,omitempty"`
	DiskTotalGB   *float64 `json:"diskTotalGb,omitempty" yaml:"diskTotalGb,omitempty"`

	History []HostMetric `json:"history" yaml:"history"`

	LastPolled time.Time `json:"lastPolled,omitempty" yaml:"lastPolled,omitempty"`
	LastError  string    `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// Port returns the SSH port, defaulting to 22.
func (h Host) Port() int {
	if h.SSHPort > 0 {
		return h.SSHPort
	}
	return DefaultSSHPort
}

// IsLocal reports whether the host is polled through the local executor.
func (h Host) IsLocal(localAddress string) bool {
	return h.Address == localAddress
}

// Clone returns a deep copy so callers can't mutate shared state.
func (h Host) Clone() Host {
	out := h
	out.CPUUsage = cloneFloat(h.CPUUsage)
	out.MemoryUsage = cloneFloat(h.MemoryUsage)
	out.MemoryUsedGB = cloneFloat(h.MemoryUsedGB)
	out.MemoryTotalGB = cloneFloat(h.MemoryTotalGB)
	out.DiskUsage = cloneFloat(h.DiskUsage)
	out.DiskUsedGB = cloneFloat(h.DiskUsedGB)
	out.DiskTotalGB = cloneFloat(h.DiskTotalGB)

	if h.Containers != nil {
		out.Containers = make([]Container, len(h.Containers))
		for i, c := range h.Containers {
			out.Containers[i] = c.Clone()
		}
	}
	if h.History != nil {
		out.History = make([]HostMetric, len(h.History))
		for i, m := range h.History {
			out.History[i] = m.Clone()
		}
	}
	return out
}

// Container is a single workload on a host, as of the last poll.
type Container struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Image      string          `json:"image" yaml:"image"`
	Status     ContainerStatus `json:"status" yaml:"status"`
	StatusText string          `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	State      string          `json:"state,omitempty" yaml:"state,omitempty"`
	CreatedAt  time.Time       `json:"createdAt" yaml:"createdAt"`

	// Present only when the stats output had a matching row.
	CPUUsage    *float64 `json:"cpuUsage,omitempty" yaml:"cpuUsage,omitempty"`
	MemoryUsage *float64 `json:"memoryUsage,omitempty" yaml:"memoryUsage,omitempty"`
}

// Clone returns a deep copy.
func (c Container) Clone() Container {
	out := c
	out.CPUUsage = cloneFloat(c.CPUUsage)
	out.MemoryUsage = cloneFloat(c.MemoryUsage)
	return out
}

// ContainerMetric is one container's readings inside a history entry.
type ContainerMetric struct {
	CPUUsage    float64 `json:"cpuUsage" yaml:"cpuUsage"`
	MemoryUsage float64 `json:"memoryUsage" yaml:"memoryUsage"`
}

// HostMetric is one history entry. Created once per successful poll and
// never mutated afterwards.
type HostMetric struct {
	Timestamp   time.Time                  `json:"timestamp" yaml:"timestamp"`
	CPUUsage    *float64                   `json:"cpuUsage,omitempty" yaml:"cpuUsage,omitempty"`
	MemoryUsage *float64                   `json:"memoryUsage,omitempty" yaml:"memoryUsage,omitempty"`
	Containers  map[string]ContainerMetric `json:"containers,omitempty" yaml:"containers,omitempty"`
}

// Clone returns a deep copy.
func (m HostMetric) Clone() HostMetric {
	out := m
	out.CPUUsage = cloneFloat(m.CPUUsage)
	out.MemoryUsage = cloneFloat(m.MemoryUsage)
	if m.Containers != nil {
		out.Containers = make(map[string]ContainerMetric, len(m.Containers))
		for id, cm := range m.Containers {
			out.Containers[id] = cm
		}
	}
	return out
}

// Snapshot is the result of one poll of one host.
type Snapshot struct {
	Containers    []Container
	CPUUsage      *float64
	MemoryUsage   *float64
	MemoryUsedGB  *float64
	MemoryTotalGB *float64
	DiskUsage     *float64
	DiskUsedGB    *float64
	DiskTotalGB   *float64

	// Reachable is false when no command could reach the host.
	Reachable bool
	// Err is the connectivity cause when Reachable is false.
	Err error
	// ContainersStale is set when the container list came from the
	// previous poll because this poll's list command failed.
	ContainersStale bool
}

// Unreachable builds the snapshot for a host that couldn't be reached.
func Unreachable(err error) Snapshot {
	return Snapshot{Containers: []Container{}, Err: err}
}

// MetricKey selects which reading an aggregation covers.
type MetricKey string

const (
	MetricCPU    MetricKey = "cpuUsage"
	MetricMemory MetricKey = "memoryUsage"
)

// ParseMetricKey accepts the canonical keys plus the short forms "cpu" and "memory"/"mem".
func ParseMetricKey(s string) (MetricKey, bool) {
	switch s {
	case "cpuUsage", "cpu":
		return MetricCPU, true
	case "memoryUsage", "memory", "mem":
		return MetricMemory, true
	default:
		return "", false
	}
}

// EntityKind tells a chart entity's reading where to come from.
type EntityKind string

const (
	KindHost      EntityKind = "host"
	KindContainer EntityKind = "container"
)

// ChartEntity selects one series for aggregation. Not persisted.
type ChartEntity struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind EntityKind `json:"kind"`
}

// EntitiesFor returns the host entity followed by one entity per current
// container, sorted by container name.
func EntitiesFor(h Host) []ChartEntity {
	entities := make([]ChartEntity, 0, len(h.Containers)+1)
	entities = append(entities, ChartEntity{ID: h.ID, Name: h.Name, Kind: KindHost})

	containers := make([]Container, len(h.Containers))
	copy(containers, h.Containers)
	sort.SliceStable(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })

	for _, c := range containers {
		entities = append(entities, ChartEntity{ID: c.ID, Name: c.Name, Kind: KindContainer})
	}
	return entities
}

// Float returns a pointer to v, for optional readings.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
