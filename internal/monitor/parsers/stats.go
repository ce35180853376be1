package parsers

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/errors"
)

// ContainerStats is one row of `docker stats` output.
type ContainerStats struct {
	ID            string
	Name          string
	CPUPercent    float64
	MemoryPercent float64
}

// StatsRecord is one `docker stats --format '{{json .}}'` record.
type StatsRecord struct {
	ID        string `json:"ID"`
	Container string `json:"Container"`
	Name      string `json:"Name"`
	CPUPerc   string `json:"CPUPerc"`
	MemPerc   string `json:"MemPerc"`
}

// ParseContainerStats parses newline-delimited JSON from
// `docker stats --no-stream --format '{{json .}}'`, keyed by container ID.
// Percentages that don't parse default to 0. IDs may be the short form;
// callers join them against full IDs by prefix.
func ParseContainerStats(output string) (map[string]ContainerStats, []Skip) {
	stats := make(map[string]ContainerStats)
	var skips []Skip

	scanner := bufio.NewScanner(strings.NewReader(output))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec StatsRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skips = append(skips, Skip{Line: lineNo, Reason: errors.Parsef(err, "invalid stats record")})
			continue
		}

		id := rec.ID
		if id == "" {
			id = rec.Container
		}
		if id == "" {
			skips = append(skips, Skip{Line: lineNo, Reason: errors.Parsef(nil, "stats record has no container ID")})
			continue
		}

		cpu, _ := ParsePercent(rec.CPUPerc)
		mem, _ := ParsePercent(rec.MemPerc)
		stats[id] = ContainerStats{
			ID:            id,
			Name:          rec.Name,
			CPUPercent:    cpu,
			MemoryPercent: mem,
		}
	}
	if err := scanner.Err(); err != nil {
		skips = append(skips, Skip{Line: lineNo + 1, Reason: errors.Parsef(err, "stats output truncated")})
	}

	return stats, skips
}

// MatchStats finds the stats row for a full container ID: an exact match
// first, then a unique row whose ID is a prefix of it.
func MatchStats(stats map[string]ContainerStats, id string) (ContainerStats, bool) {
	if id == "" {
		return ContainerStats{}, false
	}
	if s, ok := stats[id]; ok {
		return s, true
	}

	var found ContainerStats
	matches := 0
	for key, s := range stats {
		if key != "" && (strings.HasPrefix(id, key) || strings.HasPrefix(key, id)) {
			found = s
			matches++
		}
	}
	return found, matches == 1
}
