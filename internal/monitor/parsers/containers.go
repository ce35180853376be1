package parsers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// Skip records an input line that could not be turned into a record.
// Line is 1-based. Reason always carries errors.ErrParse.
type Skip struct {
	Line   int
	Reason error
}

func (s Skip) String() string {
	return fmt.Sprintf("line %d: %s", s.Line, errors.Summary(s.Reason))
}

// DockerTimeLayout is how `docker ps` prints CreatedAt.
const DockerTimeLayout = "2006-01-02 15:04:05 -0700 MST"

var exitCodeRe = regexp.MustCompile(`Exited \((-?\d+)\)`)

// PSRecord is one `docker ps --format '{{json .}}'` record.
type PSRecord struct {
	ID        string `json:"ID"`
	Names     string `json:"Names"`
	Image     string `json:"Image"`
	State     string `json:"State"`
	Status    string `json:"Status"`
	CreatedAt string `json:"CreatedAt"`
}

// ParseContainerList parses newline-delimited JSON from
// `docker ps -a --no-trunc --format '{{json .}}'`. Containers come back in
// line order. Lines that fail to decode are returned as skips and don't
// affect the others. now is used when a creation time can't be parsed.
func ParseContainerList(output string, now time.Time) ([]monitor.Container, []Skip) {
	containers := []monitor.Container{}
	var skips []Skip

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		c, err := parseContainerLine(line, now)
		if err != nil {
			skips = append(skips, Skip{Line: lineNo, Reason: err})
			continue
		}
		containers = append(containers, c)
	}
	if err := scanner.Err(); err != nil {
		skips = append(skips, Skip{Line: lineNo + 1, Reason: errors.Parsef(err, "container list truncated")})
	}

	return containers, skips
}

func parseContainerLine(line string, now time.Time) (monitor.Container, error) {
	var rec PSRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return monitor.Container{}, errors.Parsef(err, "invalid container record")
	}
	if rec.ID == "" {
		return monitor.Container{}, errors.Parsef(nil, "container record has no ID")
	}

	name, _, _ := strings.Cut(rec.Names, ",")

	return monitor.Container{
		ID:         rec.ID,
		Name:       strings.TrimPrefix(strings.TrimSpace(name), "/"),
		Image:      rec.Image,
		Status:     ClassifyState(rec.State, rec.Status),
		StatusText: rec.Status,
		State:      rec.State,
		CreatedAt:  parseCreatedAt(rec.CreatedAt, now),
	}, nil
}

// ClassifyState maps a runtime state and its status text to a container
// status. Exited or created containers are errors only when the status text
// records a non-zero exit code.
func ClassifyState(state, status string) monitor.ContainerStatus {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running":
		return monitor.ContainerRunning
	case "exited", "created":
		m := exitCodeRe.FindStringSubmatch(status)
		if m == nil {
			return monitor.ContainerStopped
		}
		code, err := strconv.Atoi(m[1])
		if err != nil || code == 0 {
			return monitor.ContainerStopped
		}
		return monitor.ContainerError
	default:
		return monitor.ContainerError
	}
}

func parseCreatedAt(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range []string{DockerTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return now
}
