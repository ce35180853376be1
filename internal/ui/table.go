package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.
		Foreground(ColorPrimary)
	// Nothing is focused in CLI output; render the first row like the rest.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// RenderHostTable lists hosts with their status and current readings.
func RenderHostTable(hosts []monitor.Host, now time.Time) string {
	if len(hosts) == 0 {
		return "No hosts configured. Add one with 'sentinel host add <name> <address>'."
	}

	columns := []TableColumn{
		{Title: "", Width: 2},
		{Title: "ID", Width: 14},
		{Title: "NAME", Width: 16},
		{Title: "ADDRESS", Width: 20},
		{Title: "CPU", Width: 7},
		{Title: "MEMORY", Width: 7},
		{Title: "DISK", Width: 7},
		{Title: "CONTAINERS", Width: 10},
		{Title: "POLLED", Width: 16},
	}

	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		rows[i] = []string{
			HostSymbol(h.Status),
			ShortID(h.ID),
			h.Name,
			hostAddress(h),
			Percent(h.CPUUsage),
			Percent(h.MemoryUsage),
			Percent(h.DiskUsage),
			containerCounts(h.Containers),
			Ago(h.LastPolled, now),
		}
	}
	return RenderSimpleTable(columns, rows)
}

// RenderContainerTable lists one host's containers.
func RenderContainerTable(containers []monitor.Container, now time.Time) string {
	if len(containers) == 0 {
		return "No containers."
	}

	columns := []TableColumn{
		{Title: "", Width: 2},
		{Title: "NAME", Width: 20},
		{Title: "ID", Width: 12},
		{Title: "IMAGE", Width: 24},
		{Title: "STATUS", Width: 22},
		{Title: "CPU", Width: 7},
		{Title: "MEMORY", Width: 7},
		{Title: "CREATED", Width: 14},
	}

	rows := make([][]string, len(containers))
	for i, c := range containers {
		status := c.StatusText
		if status == "" {
			status = string(c.Status)
		}
		rows[i] = []string{
			ContainerSymbol(c.Status),
			c.Name,
			truncate(c.ID, 12),
			c.Image,
			status,
			Percent(c.CPUUsage),
			Percent(c.MemoryUsage),
			Ago(c.CreatedAt, now),
		}
	}
	return RenderSimpleTable(columns, rows)
}

// RenderSummaryTable shows the current and average value of each entity,
// with a sparkline drawn from its series.
func RenderSummaryTable(summaries []monitor.EntitySummary, series []monitor.SeriesPoint, sparkWidth int) string {
	if len(summaries) == 0 {
		return ""
	}

	columns := []TableColumn{
		{Title: "ENTITY", Width: 20},
		{Title: "KIND", Width: 10},
		{Title: "CURRENT", Width: 8},
		{Title: "AVERAGE", Width: 8},
		{Title: "SAMPLES", Width: 8},
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.Entity.Name,
			string(s.Entity.Kind),
			fmt.Sprintf("%.1f%%", s.Current),
			fmt.Sprintf("%.1f%%", s.Average),
			Count(s.Samples),
		}
	}

	var b strings.Builder
	b.WriteString(RenderSimpleTable(columns, rows))
	b.WriteString("\n")

	if sparkWidth > 0 && len(series) > 0 {
		b.WriteString("\n")
		label := lipgloss.NewStyle().Foreground(ColorMuted)
		for _, s := range summaries {
			line := RenderSparkline(SeriesValues(series, s.Entity.ID), sparkWidth)
			if line == "" {
				line = label.Render("no data")
			}
			b.WriteString("  " + padRight(truncate(s.Entity.Name, 20), 22) + line + "\n")
		}
	}
	return b.String()
}

// ShortID trims the uuid part of a host ID for display.
func ShortID(id string) string {
	return truncate(id, 13)
}

func hostAddress(h monitor.Host) string {
	if h.SSHPort != 0 && h.SSHPort != monitor.DefaultSSHPort {
		return fmt.Sprintf("%s:%d", h.Address, h.SSHPort)
	}
	return h.Address
}

func containerCounts(containers []monitor.Container) string {
	running := 0
	for _, c := range containers {
		if c.Status == monitor.ContainerRunning {
			running++
		}
	}
	return fmt.Sprintf("%d/%d", running, len(containers))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
