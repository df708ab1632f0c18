package monitor

import (
	"sync/atomic"
	"time"
)

// Stats are point-in-time counters for one run.
type Stats struct {
	Cycles           int64     `json:"cycles"`
	TopicsSeen       int64     `json:"topics_seen"`
	LinksSeen        int64     `json:"links_seen"`
	Delivered        int64     `json:"delivered"`
	DeliveryFailures int64     `json:"delivery_failures"`
	FetchFailures    int64     `json:"fetch_failures"`
	TriggerFailures  int64     `json:"trigger_failures"`
	SourceErrors     int64     `json:"source_errors"`
	LastCycleAt      time.Time `json:"last_cycle_at,omitempty"`
}

// counters are written by the loop and read by Status from other goroutines.
type counters struct {
	cycles           atomic.Int64
	topicsSeen       atomic.Int64
	linksSeen        atomic.Int64
	delivered        atomic.Int64
	deliveryFailures atomic.Int64
	fetchFailures    atomic.Int64
	triggerFailures  atomic.Int64
	sourceErrors     atomic.Int64
	lastCycleNs      atomic.Int64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Cycles:           c.cycles.Load(),
		TopicsSeen:       c.topicsSeen.Load(),
		LinksSeen:        c.linksSeen.Load(),
		Delivered:        c.delivered.Load(),
		DeliveryFailures: c.deliveryFailures.Load(),
		FetchFailures:    c.fetchFailures.Load(),
		TriggerFailures:  c.triggerFailures.Load(),
		SourceErrors:     c.sourceErrors.Load(),
	}
	if ns := c.lastCycleNs.Load(); ns > 0 {
		s.LastCycleAt = time.Unix(0, ns).UTC()
	}
	return s
}
