package collector

// Commands is the shell command set run against every host. An empty
// command is skipped and its metric stays absent.
type Commands struct {
	// Containers lists all containers as newline-delimited JSON.
	Containers string
	// Stats lists per-container CPU and memory percentages as
	// newline-delimited JSON.
	Stats string
	// CPU prints a single number: idle percentage when CPUReportsIdle is
	// set, utilization otherwise.
	CPU            string
	CPUReportsIdle bool
	// Memory prints "<totalKB> <usedKB>".
	Memory string
	// Disk prints "<total> <used> <percent>" for the root filesystem.
	Disk string
}

// cpuIdleFilter pulls the idle percentage out of top's last "%Cpu(s)" line.
// It keys on the "id" label rather than a field position, since top runs
// fields together once one reaches 100.0 ("ni,100.0 id,").
const cpuIdleFilter = `grep '%Cpu' | tail -1 | sed 's/.*, *\([0-9.]*\) *id.*/\1/'`

// DefaultCommands targets a Linux host with the docker CLI and procps. top
// runs two frames because the first one averages since boot.
func DefaultCommands() Commands {
	return Commands{
		Containers:     "docker ps -a --no-trunc --format '{{json .}}'",
		Stats:          "docker stats --no-stream --no-trunc --format '{{json .}}'",
		CPU:            "LC_ALL=C top -bn2 -d0.5 | " + cpuIdleFilter,
		CPUReportsIdle: true,
		Memory:         "free -k | awk '/^Mem:/ {print $2, $3}'",
		Disk:           "df -h / | awk 'NR==2 {print $2, $3, $5}'",
	}
}

type metric int

const (
	metricContainers metric = iota
	metricStats
	metricCPU
	metricMemory
	metricDisk
	metricCount
)

var metricNames = [metricCount]string{"containers", "stats", "cpu", "memory", "disk"}

func (m metric) String() string {
	if m < 0 || m >= metricCount {
		return "unknown"
	}
	return metricNames[m]
}

func (c Commands) byMetric() [metricCount]string {
	return [metricCount]string{c.Containers, c.Stats, c.CPU, c.Memory, c.Disk}
}
