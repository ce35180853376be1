package parsers

import (
	"math"
	"strings"
)

// MemoryReading is host memory in GB plus the used percentage.
type MemoryReading struct {
	UsedGB       float64
	TotalGB      float64
	UsagePercent float64
}

// DiskReading is root filesystem usage. Each field is nil when its token
// didn't parse.
type DiskReading struct {
	TotalGB      *float64
	UsedGB       *float64
	UsagePercent *float64
}

const kbPerGB = 1024 * 1024

// ParseCPU reads the first number in output. When reportsIdle is set the
// number is idle time and utilization is 100 minus it. The result is
// clamped to [0, 100]; nil means no reading.
func ParseCPU(output string, reportsIdle bool) *float64 {
	for _, field := range strings.Fields(output) {
		field = strings.TrimRight(field, ",%")
		v, err := parseNumber(field)
		if err != nil {
			continue
		}
		if reportsIdle {
			v = 100 - v
		}
		v = math.Max(0, math.Min(100, v))
		return &v
	}
	return nil
}

// ParseMemory parses "<totalKB> <usedKB>", as printed by
// `free -k | awk '/^Mem:/ {print $2, $3}'`. Values are rounded to one
// decimal. Returns nil when the total is zero or either token is bad.
func ParseMemory(output string) *MemoryReading {
	fields := strings.Fields(output)
	if len(fields) < 2 {
		return nil
	}

	total, err := parseNumber(fields[0])
	if err != nil || total <= 0 {
		return nil
	}
	used, err := parseNumber(fields[1])
	if err != nil || used < 0 {
		return nil
	}

	return &MemoryReading{
		UsedGB:       round1(used / kbPerGB),
		TotalGB:      round1(total / kbPerGB),
		UsagePercent: round1(used / total * 100),
	}
}

// ParseDisk parses "<total> <used> <percent>", for example "458G 151G 34%".
// Each dimension stands alone: a bad token only blanks its own field.
func ParseDisk(output string) DiskReading {
	fields := strings.Fields(output)
	var r DiskReading

	if len(fields) > 0 {
		if v, err := ParseQuantity(fields[0]); err == nil {
			r.TotalGB = &v
		}
	}
	if len(fields) > 1 {
		if v, err := ParseQuantity(fields[1]); err == nil {
			r.UsedGB = &v
		}
	}
	if len(fields) > 2 {
		if v, err := ParsePercent(fields[2]); err == nil {
			r.UsagePercent = &v
		}
	}
	return r
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
