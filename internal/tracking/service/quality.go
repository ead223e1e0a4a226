package service

import (
	"context"
	"time"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/actor"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// QualityService owns writes against the quality ledger. QC_RELEASED is
// role-gated: only QA and admin operators may release material.
type QualityService struct {
	labels    LabelStore
	quality   QualityStore
	publisher EventPublisher
	log       *logger.Logger
}

// NewQualityService creates the quality write service
func NewQualityService(labels LabelStore, quality QualityStore, publisher EventPublisher, log *logger.Logger) *QualityService {
	return &QualityService{
		labels:    labels,
		quality:   quality,
		publisher: publisher,
		log:       log.WithComponent("quality-service"),
	}
}

// SetStatusInput is one quality-status transition request
type SetStatusInput struct {
	LabelID    string
	Status     domain.QualityStatus
	Reason     string
	OccurredAt *time.Time
}

// SetStatus appends a quality-status transition for a label
func (s *QualityService) SetStatus(ctx context.Context, input SetStatusInput) (*domain.QualityEvent, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("operator identity required")
	}
	if !input.Status.Valid() {
		return nil, errors.Validation(map[string]string{
			"status": "must be one of: QUARANTINE, UNDER_QC, QC_RELEASED, RESTRICTED, UNRESTRICTED, PROD_RETURNED, REJECTED",
		})
	}
	if input.Status == domain.StatusQCReleased && !act.CanReleaseQC() {
		return nil, errors.Forbidden("only QA may release material from quality control")
	}

	if _, err := s.labels.GetByID(ctx, input.LabelID); err != nil {
		return nil, err
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	ev := domain.QualityEvent{
		LabelID:    input.LabelID,
		Status:     input.Status,
		Reason:     input.Reason,
		ActorID:    act.ID,
		OccurredAt: occurredAt,
	}
	id, err := s.quality.Append(ctx, &ev)
	if err != nil {
		return nil, err
	}
	ev.ID = id

	s.log.Info().
		Str("label_id", ev.LabelID).
		Str("status", string(ev.Status)).
		Str("actor_id", act.ID).
		Msg("Quality status changed")

	s.publisher.PublishQualityChanged(ctx, &ev)
	return &ev, nil
}
