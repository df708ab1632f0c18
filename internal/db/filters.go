package db

import (
	"fmt"

	"github.com/google/uuid"
)

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// DeliveryFilters holds optional filters for listing deliveries
type DeliveryFilters struct {
	RunID uuid.UUID
	Link  string
	Limit int
}

// ClampLimit maps a requested page size into [1, MaxListLimit], using
// DefaultListLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func (f DeliveryFilters) query() (string, []any) {
	query := `SELECT id, run_id, topic_url, link, title, size, filename, chat, delivered_at
		FROM deliveries WHERE 1=1`
	args := []any{}
	argNum := 1

	if f.RunID != uuid.Nil {
		query += fmt.Sprintf(" AND run_id = $%d", argNum)
		args = append(args, f.RunID)
		argNum++
	}
	if f.Link != "" {
		query += fmt.Sprintf(" AND link = $%d", argNum)
		args = append(args, f.Link)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY delivered_at DESC, id DESC LIMIT $%d", argNum)
	args = append(args, ClampLimit(f.Limit))
	return query, args
}
