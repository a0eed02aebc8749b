package models

import (
	"github.com/uptrace/bun"
)

// EventCounter is the running ticket total for one event. The event name is
// the primary key: webhooks and admin operations both address counters by
// name, so the store never carries a second identifier for the same event.
type EventCounter struct {
	bun.BaseModel `bun:"table:tickets"`

	EventName string `bun:"event_name,pk"`
	Total     int    `bun:"total,notnull"`
}
