package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies the kind of physical movement an event records.
type EventType string

const (
	// EventPutAway records a label's (re)placement at a location with an
	// absolute quantity and container count.
	EventPutAway EventType = "PUTAWAY"

	// EventTransfer records a relocation between two locations without
	// necessarily restating quantity.
	EventTransfer EventType = "TRANSFER"

	// EventConsume records a partial reduction (delta) of the label's
	// remaining quantity/containers at its current location.
	EventConsume EventType = "CONSUME"

	// EventEmptyOut records a label's removal from tracked inventory.
	EventEmptyOut EventType = "EMPTY_OUT"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventPutAway, EventTransfer, EventConsume, EventEmptyOut:
		return true
	}
	return false
}

// MovementEvent is one append-only record in the movement ledger.
// For PUTAWAY and TRANSFER, Quantity/Containers are absolute values;
// for CONSUME they are deltas. Events are never updated or deleted.
type MovementEvent struct {
	ID           string           `db:"id" json:"id"`
	LabelID      string           `db:"label_id" json:"label_id"`
	Type         EventType        `db:"event_type" json:"event_type"`
	FromLocation *string          `db:"from_location" json:"from_location,omitempty"`
	ToLocation   *string          `db:"to_location" json:"to_location,omitempty"`
	Quantity     *decimal.Decimal `db:"quantity" json:"quantity,omitempty"`
	Containers   *int             `db:"containers" json:"containers,omitempty"`
	Reason       string           `db:"reason" json:"reason"`
	Note         *string          `db:"note" json:"note,omitempty"`
	ActorID      string           `db:"actor_id" json:"actor_id"`
	ActorName    string           `db:"actor_name" json:"actor_name"`
	OccurredAt   time.Time        `db:"occurred_at" json:"occurred_at"`
	RecordedAt   time.Time        `db:"recorded_at" json:"recorded_at"`
}

// Validate checks the per-type structural invariants before any write:
// PUTAWAY/TRANSFER carry a destination, CONSUME/EMPTY_OUT carry a source
// and no destination, and quantities are never negative.
func (e *MovementEvent) Validate() map[string]string {
	details := make(map[string]string)

	if e.LabelID == "" {
		details["label_id"] = "this field is required"
	}
	if e.ActorID == "" {
		details["actor_id"] = "this field is required"
	}
	if !e.Type.Valid() {
		details["event_type"] = "must be one of: PUTAWAY, TRANSFER, CONSUME, EMPTY_OUT"
		return details
	}

	switch e.Type {
	case EventPutAway, EventTransfer:
		if e.ToLocation == nil || *e.ToLocation == "" {
			details["to_location"] = "this field is required"
		}
	case EventConsume, EventEmptyOut:
		if e.FromLocation == nil || *e.FromLocation == "" {
			details["from_location"] = "this field is required"
		}
		if e.ToLocation != nil {
			details["to_location"] = "must not be set"
		}
	}

	if e.Quantity != nil && e.Quantity.IsNegative() {
		details["quantity"] = "must not be negative"
	}
	if e.Containers != nil && *e.Containers < 0 {
		details["containers"] = "must not be negative"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}
