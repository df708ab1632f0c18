// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// printEmpty prints a single-line box.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printEmpty(message string) {
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, message)
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}

// PrintTopics outputs the topics of one listing crawl with their files.
func (p *Printer) PrintTopics(topics []types.Topic) {
	if len(topics) == 0 {
		p.printEmpty("NO TOPICS WITH FILES FOUND")
		return
	}

	var sb strings.Builder
	files := 0
	for _, t := range topics {
		files += len(t.Files)
	}
	sb.WriteString(fmt.Sprintf("Topics: %d   Files: %d\n\n", len(topics), files))

	count := min(len(topics), maxItemsToShow)
	for i := 0; i < count; i++ {
		topic := topics[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, topic.Title))
		sb.WriteString(fmt.Sprintf("    %s\n", topic.TopicURL))
		for _, f := range topic.Files {
			sb.WriteString(fmt.Sprintf("    • [%s] %s\n", f.Size, f.Title))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(topics) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more topics", len(topics)-maxItemsToShow))
	}

	p.printBox("SOURCE LISTING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStatus outputs the controller state and run counters.
func (p *Printer) PrintStatus(st monitor.Status) {
	var sb strings.Builder

	state := "idle"
	if st.Running {
		state = "running"
	}
	sb.WriteString(fmt.Sprintf("State:        %s\n", state))
	sb.WriteString(fmt.Sprintf("Upload chat:  %s\n", orDash(st.UploadChat.String())))
	sb.WriteString(fmt.Sprintf("Command chat: %s\n", orDash(st.CommandChat.String())))

	if !st.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Run:          %s\n", st.RunID))
		sb.WriteString(fmt.Sprintf("Started:      %s\n", st.StartedAt.Format(time.RFC3339)))
		sb.WriteString("\n")

		s := st.Stats
		sb.WriteString(fmt.Sprintf("Cycles:       %d\n", s.Cycles))
		if !s.LastCycleAt.IsZero() {
			sb.WriteString(fmt.Sprintf("Last cycle:   %s\n", s.LastCycleAt.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("Topics seen:  %d\n", s.TopicsSeen))
		sb.WriteString(fmt.Sprintf("Links seen:   %d\n", s.LinksSeen))
		sb.WriteString(fmt.Sprintf("Delivered:    %d\n", s.Delivered))

		var failures []string
		for _, f := range []struct {
			name string
			n    int64
		}{
			{"source", s.SourceErrors},
			{"fetch", s.FetchFailures},
			{"delivery", s.DeliveryFailures},
			{"trigger", s.TriggerFailures},
		} {
			if f.n > 0 {
				failures = append(failures, fmt.Sprintf("%s=%d", f.name, f.n))
			}
		}
		if len(failures) > 0 {
			sb.WriteString(fmt.Sprintf("⚠ Failures:   %s\n", strings.Join(failures, " ")))
		}
	}

	p.printBox("AUTO-LEECH STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRuns outputs journaled monitor runs, newest first.
func (p *Printer) PrintRuns(runs []types.RunRecord) {
	if len(runs) == 0 {
		p.printEmpty("NO RUNS RECORDED")
		return
	}

	var sb strings.Builder
	for i, r := range runs {
		end := "running"
		if r.StoppedAt != nil {
			end = fmt.Sprintf("%s (%s)", r.StoppedAt.Format(time.RFC3339), orDash(r.StopReason))
		}
		sb.WriteString(fmt.Sprintf("%s\n", r.ID))
		sb.WriteString(fmt.Sprintf("  %s → %s\n", r.StartedAt.Format(time.RFC3339), end))
		sb.WriteString(fmt.Sprintf("  upload %s, commands %s\n", r.UploadChat, orDash(r.CommandChat.String())))
		if i < len(runs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("MONITOR RUNS", sb.String())
}

// PrintDeliveries outputs journaled deliveries, newest first.
func (p *Printer) PrintDeliveries(deliveries []types.Delivery) {
	if len(deliveries) == 0 {
		p.printEmpty("NO DELIVERIES RECORDED")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Deliveries: %d\n\n", len(deliveries)))
	for i, d := range deliveries {
		sb.WriteString(fmt.Sprintf("%s  %s\n", d.DeliveredAt.Format(time.RFC3339), d.Filename))
		sb.WriteString(fmt.Sprintf("  %s [%s] → %s\n", d.Title, d.Size, d.Chat))
		if i < len(deliveries)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DELIVERIES", sb.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
