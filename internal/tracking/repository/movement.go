package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

const movementColumns = `
	id, label_id, event_type, from_location, to_location, quantity, containers,
	reason, note, actor_id, actor_name, occurred_at, recorded_at
`

// MovementRepository is the append-only movement ledger. Rows are never
// updated or deleted; concurrent writers are safe because conflicts
// resolve through event ordering, not row mutation.
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Append validates and appends one movement event. Malformed events are
// rejected before any write; there are no partial writes.
func (r *MovementRepository) Append(ctx context.Context, event *domain.MovementEvent) (string, error) {
	if details := event.Validate(); details != nil {
		return "", errors.Validation(details)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO movement_events (
			id, label_id, event_type, from_location, to_location, quantity,
			containers, reason, note, actor_id, actor_name, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING recorded_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		event.ID, event.LabelID, event.Type, event.FromLocation, event.ToLocation,
		event.Quantity, event.Containers, event.Reason, event.Note,
		event.ActorID, event.ActorName, event.OccurredAt,
	).Scan(&event.RecordedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return "", mapped
		}
		return "", err
	}

	return event.ID, nil
}

// ListByLabel lists all events for a label ordered by occurrence time
func (r *MovementRepository) ListByLabel(ctx context.Context, labelID string) ([]domain.MovementEvent, error) {
	var events []domain.MovementEvent
	query := `
		SELECT ` + movementColumns + `
		FROM movement_events WHERE label_id = $1
		ORDER BY occurred_at, id
	`
	if err := r.db.SelectContext(ctx, &events, query, labelID); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return events, nil
}

// ListForLabels lists all events for a set of labels ordered by occurrence
// time ascending, the order the replay fold expects.
func (r *MovementRepository) ListForLabels(ctx context.Context, labelIDs []string) ([]domain.MovementEvent, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+movementColumns+`
		FROM movement_events WHERE label_id IN (?)
		ORDER BY occurred_at, id
	`, labelIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var events []domain.MovementEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return events, nil
}

// LabelIDsTouchingLocation returns the distinct labels that ever moved
// into or out of a location. Used to seed a per-location replay.
func (r *MovementRepository) LabelIDsTouchingLocation(ctx context.Context, code string) ([]string, error) {
	var ids []string
	query := `
		SELECT DISTINCT label_id FROM movement_events
		WHERE to_location = $1 OR from_location = $1
	`
	if err := r.db.SelectContext(ctx, &ids, query, code); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return ids, nil
}

// DistinctLabelIDs returns every label the ledger has ever seen.
// Used to seed a global replay.
func (r *MovementRepository) DistinctLabelIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT label_id FROM movement_events`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return ids, nil
}
