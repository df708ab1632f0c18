package types

import (
	"time"

	"github.com/google/uuid"
)

// TriggerRequest carries exactly what a downstream leech action needs to act on a
// delivered item: where to report, what to fetch, and who asked for it.
type TriggerRequest struct {
	ID        uuid.UUID    `json:"id"`
	Chat      ResolvedChat `json:"chat"`
	Link      string       `json:"link"`
	Title     string       `json:"title"`
	IssuerID  int64        `json:"issuer_id"`
	Command   string       `json:"command"`
	Args      []string     `json:"args"`
	Qbit      bool         `json:"qbit"`
	Leech     bool         `json:"leech"`
	CreatedAt time.Time    `json:"created_at"`
}

// Text renders the synthesized command line, e.g. "/qbleech magnet:?xt=...".
func (r TriggerRequest) Text() string {
	text := "/" + r.Command
	for _, arg := range r.Args {
		text += " " + arg
	}
	return text
}
