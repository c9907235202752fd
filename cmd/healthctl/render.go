package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/thisdougb/gamehealth"
)

// Spinner abstracts the terminal spinner so tests can replace it.
type Spinner interface {
	Start()
	Stop()
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start()                     { rs.s.Start() }
func (rs *realSpinner) Stop()                      { rs.s.Stop() }
func (rs *realSpinner) UpdateSuffix(suffix string) { rs.s.Suffix = suffix }

var newSpinner = func(options ...spinner.Option) Spinner {
	return &realSpinner{spinner.New(spinner.CharSets[11], 100*time.Millisecond, options...)}
}

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func colorStatus(status string) string {
	switch status {
	case string(health.StatusHealthy), "UP":
		return green(status)
	case string(health.StatusWarning):
		return yellow(status)
	default:
		return red(status)
	}
}

func exitCode(status health.Status) int {
	switch status {
	case health.StatusHealthy:
		return 0
	case health.StatusWarning:
		return 1
	default:
		return 2
	}
}

// RenderReport prints a report, one line per module and failed check.
func RenderReport(w io.Writer, report health.SystemHealthReport) {
	fmt.Fprintf(w, "overall      %s  (%.1fms)\n", colorStatus(string(report.Overall)), report.DurationMs)

	p := report.Persistence
	if p.Connected {
		fmt.Fprintf(w, "persistence  %s  (%.1fms)\n", green("connected"), p.ResponseTimeMs)
	} else {
		fmt.Fprintf(w, "persistence  %s  %s\n", red("disconnected"), p.Error)
	}

	for _, m := range report.Modules {
		name := m.ModuleName
		if name == "" {
			name = m.ModuleID
		}
		fmt.Fprintf(w, "  %-20s %s\n", name, colorStatus(string(m.Status)))
		for _, c := range m.Checks {
			if c.Passed {
				continue
			}
			label := "failed"
			if c.Advisory {
				label = "advisory"
			}
			fmt.Fprintf(w, "    %s %s: %s\n", faint(label), c.CheckName, c.Message)
		}
	}
}

func RenderStatus(w io.Writer, status string) {
	fmt.Fprintln(w, colorStatus(status))
}

func RenderSummary(w io.Writer, s health.Summary) {
	label := colorStatus(s.Health)
	fmt.Fprintf(w, "health   %s\nlogs     %d\nerrors   %d\nwarnings %d\n", label, s.TotalLogs, s.ErrorCount, s.WarningCount)
}

// RenderLogs prints one event per line, errors in red.
func RenderLogs(w io.Writer, logs []health.LogEvent) {
	for _, e := range logs {
		category := string(e.Category)
		switch e.Category {
		case health.CategoryError:
			category = red(category)
		case health.CategoryWarning:
			category = yellow(category)
		}
		line := fmt.Sprintf("%s  %-11s %s", faint(e.Timestamp.Format(time.RFC3339)), category, e.Message)
		if e.SubjectID != "" {
			line += faint(" subject=" + e.SubjectID)
		}
		if e.ModuleID != "" {
			line += faint(" module=" + e.ModuleID)
		}
		fmt.Fprintln(w, line)
	}
	if len(logs) == 0 {
		fmt.Fprintln(w, faint("no events"))
	}
}
