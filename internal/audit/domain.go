package audit

import (
	"errors"
	"time"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actorId"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Filter narrows timeline queries. Zero values mean no constraint.
type Filter struct {
	Entity   string
	EntityID string
	ActorID  int64
	Action   string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// ErrValidation indicates invalid input.
var ErrValidation = errors.New("audit: invalid input")
