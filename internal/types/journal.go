package types

import (
	"time"

	"github.com/google/uuid"
)

// Delivery is one successfully delivered file, as recorded in the journal.
type Delivery struct {
	ID          int64     `json:"id,omitempty"`
	RunID       uuid.UUID `json:"run_id"`
	TopicURL    string    `json:"topic_url"`
	Link        string    `json:"link"`
	Title       string    `json:"title"`
	Size        string    `json:"size"`
	Filename    string    `json:"filename"`
	Chat        ChatRef   `json:"chat"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// RunRecord describes one monitor run, from start to termination.
type RunRecord struct {
	ID          uuid.UUID  `json:"id"`
	UploadChat  ChatRef    `json:"upload_chat"`
	CommandChat ChatRef    `json:"command_chat,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	StopReason  string     `json:"stop_reason,omitempty"`
}
