package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintTopics(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTopics([]types.Topic{
		{
			TopicURL: "https://forum.example/forums/topic/1-leo/",
			Title:    "Leo (2023) Tamil",
			Files: []types.File{
				{Title: "Leo (2023) Tamil 1080p", Size: "2.4GB", Link: "L1"},
				{Title: "Leo (2023) Tamil 720p", Size: "1.4GB", Link: "L2"},
			},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "SOURCE LISTING")
	assert.Contains(t, output, "Topics: 1   Files: 2")
	assert.Contains(t, output, "Leo (2023) Tamil 1080p")
	assert.Contains(t, output, "[1.4GB]")
	assert.Contains(t, output, "/forums/topic/1-leo/")
}

func TestPrintTopics_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTopics(nil)
	assert.Contains(t, buf.String(), "NO TOPICS WITH FILES FOUND")
}

func TestPrintTopics_LimitsItems(t *testing.T) {
	var buf bytes.Buffer
	topics := make([]types.Topic, maxItemsToShow+3)
	for i := range topics {
		topics[i] = types.Topic{TopicURL: fmt.Sprintf("u%d", i), Title: fmt.Sprintf("T%d", i)}
	}
	NewPrinter(&buf).PrintTopics(topics)
	assert.Contains(t, buf.String(), "... and 3 more topics")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	NewPrinter(&buf).PrintStatus(monitor.Status{
		Running:     true,
		RunID:       uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		StartedAt:   started,
		UploadChat:  "-1001",
		CommandChat: "@leech",
		Stats:       monitor.Stats{Cycles: 3, Delivered: 5, FetchFailures: 2},
	})
	output := buf.String()

	assert.Contains(t, output, "AUTO-LEECH STATUS")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "11111111-2222-3333-4444-555555555555")
	assert.Contains(t, output, "2024-05-01T12:00:00Z")
	assert.Contains(t, output, "Delivered:    5")
	assert.Contains(t, output, "fetch=2")
	assert.NotContains(t, output, "delivery=")
}

func TestPrintStatus_NeverStarted(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStatus(monitor.Status{})
	output := buf.String()

	assert.Contains(t, output, "idle")
	assert.NotContains(t, output, "Cycles")
}

func TestPrintRunsAndDeliveries(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	stopped := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	p.PrintRuns([]types.RunRecord{
		{ID: uuid.New(), UploadChat: "-1001", StartedAt: stopped.Add(-time.Hour), StoppedAt: &stopped, StopReason: "stopped"},
		{ID: uuid.New(), UploadChat: "-1001", StartedAt: stopped},
	})
	p.PrintDeliveries([]types.Delivery{
		{Filename: "Leo_2023.torrent", Title: "Leo 2023", Size: "2GB", Chat: "-1001", DeliveredAt: stopped},
	})
	output := buf.String()

	assert.Contains(t, output, "MONITOR RUNS")
	assert.Contains(t, output, "(stopped)")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "Leo_2023.torrent")
	assert.Contains(t, output, "[2GB]")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("த", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
