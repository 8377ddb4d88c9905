package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/series"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	resolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)

// chartOptions controls the size of a plotted series
type chartOptions struct {
	Height int
	Width  int
}

// renderChart plots a chart with its axis labels and a min/max/last summary
func renderChart(chart *series.Chart, opts chartOptions) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s, %s", chart.Label, chart.Title)))
	b.WriteString("\n\n")

	if len(chart.Points) == 0 {
		b.WriteString(mutedStyle.Render("No readings in this period"))
		b.WriteString("\n")
		return b.String()
	}

	values := make([]float64, len(chart.Points))
	for i, p := range chart.Points {
		values[i] = p.Value
	}

	plotOpts := []asciigraph.Option{
		asciigraph.Height(opts.Height),
		asciigraph.Caption(fmt.Sprintf("%s (%s)", chart.Label, chart.Unit)),
		asciigraph.SeriesColors(asciigraph.Green),
	}
	if opts.Width > 0 {
		plotOpts = append(plotOpts, asciigraph.Width(opts.Width))
	}
	b.WriteString(asciigraph.Plot(values, plotOpts...))
	b.WriteString("\n\n")

	b.WriteString(mutedStyle.Render("Axis: " + strings.Join(chart.AxisLabels, " | ")))
	b.WriteString("\n")

	low, high := values[0], values[0]
	for _, v := range values {
		low, high = min(low, v), max(high, v)
	}
	last := chart.Tooltips[len(chart.Tooltips)-1]
	fmt.Fprintf(&b, "min %s  max %s  last %s at %s\n",
		chartValue(chart, low), chartValue(chart, high), last.Value, last.Heading)
	return b.String()
}

func chartValue(chart *series.Chart, v float64) string {
	profile, err := series.ProfileFor(string(chart.Quantity))
	if err != nil {
		return fmt.Sprintf("%g", v)
	}
	return series.ValueString(profile, v)
}

// renderOutages lays the outages out as a table. now anchors the relative start column.
func renderOutages(views []outage.View, now time.Time) string {
	if len(views) == 0 {
		return mutedStyle.Render("No outages found") + "\n"
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = []string{
			v.ID,
			v.Status.String(),
			v.FormattedStart,
			v.FormattedEnd,
			v.Duration,
			formatVoltage(&v.VoltageBefore),
			formatVoltage(v.VoltageAfter),
			formatCause(v.Cause),
			humanize.RelTime(v.StartTime, now, "ago", "from now"),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "STATUS", "START", "END", "DURATION", "V BEFORE", "V AFTER", "CAUSE", "STARTED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(views) {
				if views[row].IsActive() {
					return cellStyle.Inherit(activeStyle)
				}
				return cellStyle.Inherit(resolvedStyle)
			}
			return cellStyle
		})

	active := 0
	for _, v := range views {
		if v.IsActive() {
			active++
		}
	}
	summary := fmt.Sprintf("%s, %d active", pluralize(len(views), "outage"), active)
	return t.String() + "\n" + mutedStyle.Render(summary) + "\n"
}

func formatVoltage(v *float64) string {
	if v == nil {
		return outage.Placeholder
	}
	return fmt.Sprintf("%.1f V", *v)
}

func formatCause(cause *string) string {
	if cause == nil || *cause == "" {
		return outage.Placeholder
	}
	return *cause
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
