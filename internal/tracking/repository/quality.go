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

// QualityRepository is the append-only quality transition ledger.
// The log never auto-seeds: a label with no rows is QUARANTINE by
// convention, and the put-away service seeds the first row on placement.
type QualityRepository struct {
	db *database.DB
}

// NewQualityRepository creates a new quality repository
func NewQualityRepository(db *database.DB) *QualityRepository {
	return &QualityRepository{db: db}
}

// Append appends one quality transition
func (r *QualityRepository) Append(ctx context.Context, event *domain.QualityEvent) (string, error) {
	details := make(map[string]string)
	if event.LabelID == "" {
		details["label_id"] = "this field is required"
	}
	if event.ActorID == "" {
		details["actor_id"] = "this field is required"
	}
	if !event.Status.Valid() {
		details["status"] = "must be a known quality status"
	}
	if len(details) > 0 {
		return "", errors.Validation(details)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO quality_events (id, label_id, status, reason, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.LabelID, event.Status, event.Reason, event.ActorID, event.OccurredAt,
	)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return "", mapped
		}
		return "", err
	}

	return event.ID, nil
}

// ListByLabel lists a label's full quality history, newest first
func (r *QualityRepository) ListByLabel(ctx context.Context, labelID string) ([]domain.QualityEvent, error) {
	var events []domain.QualityEvent
	query := `
		SELECT id, label_id, status, reason, actor_id, occurred_at
		FROM quality_events WHERE label_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	if err := r.db.SelectContext(ctx, &events, query, labelID); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return events, nil
}

// LatestByLabel returns each label's latest quality event. Labels with no
// history are absent from the map; callers treat them as QUARANTINE.
func (r *QualityRepository) LatestByLabel(ctx context.Context, labelIDs []string) (map[string]domain.QualityEvent, error) {
	result := make(map[string]domain.QualityEvent, len(labelIDs))
	if len(labelIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT ON (label_id)
			id, label_id, status, reason, actor_id, occurred_at
		FROM quality_events WHERE label_id IN (?)
		ORDER BY label_id, occurred_at DESC, id DESC
	`, labelIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var events []domain.QualityEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}

	for _, ev := range events {
		result[ev.LabelID] = ev
	}
	return result, nil
}
