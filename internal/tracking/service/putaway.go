package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/actor"
	"github.com/pharmtrace/pharmtrace-backend/pkg/config"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// EventPublisher emits broker notifications after ledger writes.
// Implementations must be best-effort and never return.
type EventPublisher interface {
	PublishMovementRecorded(ctx context.Context, ev *domain.MovementEvent)
	PublishQualityChanged(ctx context.Context, ev *domain.QualityEvent)
	PublishLabelEmptied(ctx context.Context, ev *domain.MovementEvent)
}

// MovementService owns every write against the movement ledger: put-away
// scans, picks, transfers, and empty-outs. Each write validates against
// the label's resolved current state, appends the ledger event(s), then
// refreshes the read-side projection and notifies the broker best-effort.
type MovementService struct {
	labels     LabelStore
	movements  MovementStore
	quality    QualityStore
	locations  LocationStore
	projection ProjectionStore
	resolver   *Resolver
	publisher  EventPublisher
	cfg        *config.TrackingConfig
	log        *logger.Logger

	// sleep is swapped out by tests to keep confirmation polling fast
	sleep func(time.Duration)
}

// NewMovementService creates the movement write service
func NewMovementService(
	labels LabelStore,
	movements MovementStore,
	quality QualityStore,
	locations LocationStore,
	projection ProjectionStore,
	resolver *Resolver,
	publisher EventPublisher,
	cfg *config.TrackingConfig,
	log *logger.Logger,
) *MovementService {
	return &MovementService{
		labels:     labels,
		movements:  movements,
		quality:    quality,
		locations:  locations,
		projection: projection,
		resolver:   resolver,
		publisher:  publisher,
		cfg:        cfg,
		log:        log.WithComponent("movement-service"),
		sleep:      time.Sleep,
	}
}

// PutAwayInput is a put-away scan: label at location, with optional
// restated quantity/containers when the operator corrects the counts.
type PutAwayInput struct {
	LabelID    string
	Location   string
	Quantity   *decimal.Decimal
	Containers *int
	Reason     string
	Note       *string
	OccurredAt *time.Time
}

// PutAwayResult reports what a put-away scan actually did
type PutAwayResult struct {
	// Events holds the ledger events the scan appended, in order
	Events []domain.MovementEvent `json:"events"`
	// State is the label's state after the scan
	State domain.CurrentState `json:"state"`
	// Confirmed reports whether the read-side projection reflected the
	// write within the polling budget
	Confirmed bool `json:"confirmed"`
	// Warning carries a non-fatal message for the operator terminal
	Warning string `json:"warning,omitempty"`
}

// PutAway handles a put-away scan. The outcome depends on where the label
// currently is:
//
//   - not mapped anywhere: a PUTAWAY placement, seeding the quality ledger
//     with QUARANTINE if the label has no quality history yet
//   - already at the scanned location: one PUTAWAY restating the scan,
//     with the quantity/containers adjustment when the operator supplies one
//   - at a different location: recorded as a TRANSFER, followed by an
//     adjustment PUTAWAY when the scan restates quantity or containers
func (s *MovementService) PutAway(ctx context.Context, input PutAwayInput) (*PutAwayResult, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("operator identity required")
	}
	if !s.cfg.ReasonAllowed(input.Reason) {
		return nil, errors.Validation(map[string]string{"reason": "unknown reason code"})
	}

	if _, err := s.destination(ctx, input.Location); err != nil {
		return nil, err
	}
	label, err := s.labels.GetByID(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}

	current, _, err := s.resolver.ByLabel(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	result := &PutAwayResult{}

	switch {
	case current == nil || current.Status == domain.StatusOut:
		ev := domain.MovementEvent{
			LabelID:    input.LabelID,
			Type:       domain.EventPutAway,
			ToLocation: &input.Location,
			Quantity:   input.Quantity,
			Containers: input.Containers,
			Reason:     input.Reason,
			Note:       input.Note,
			ActorID:    act.ID,
			ActorName:  act.Name,
			OccurredAt: occurredAt,
		}
		if err := s.append(ctx, &ev); err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
		s.seedQuarantine(ctx, input.LabelID, act, occurredAt)
		s.publisher.PublishMovementRecorded(ctx, &ev)

	case current.Location == input.Location:
		// Re-scan at the same spot. The event keeps the scan on the audit
		// trail; without restated counts it is a no-op under replay.
		ev := domain.MovementEvent{
			LabelID:    input.LabelID,
			Type:       domain.EventPutAway,
			ToLocation: &input.Location,
			Quantity:   input.Quantity,
			Containers: input.Containers,
			Reason:     input.Reason,
			Note:       input.Note,
			ActorID:    act.ID,
			ActorName:  act.Name,
			OccurredAt: occurredAt,
		}
		if err := s.append(ctx, &ev); err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
		s.publisher.PublishMovementRecorded(ctx, &ev)

	default:
		// Scanned at a new spot while mapped elsewhere. The pallet was
		// moved without an explicit transfer; record the relocation as one,
		// and restate counts with a follow-up adjustment when supplied.
		from := current.Location
		ev := domain.MovementEvent{
			LabelID:      input.LabelID,
			Type:         domain.EventTransfer,
			FromLocation: &from,
			ToLocation:   &input.Location,
			Reason:       input.Reason,
			Note:         input.Note,
			ActorID:      act.ID,
			ActorName:    act.Name,
			OccurredAt:   occurredAt,
		}
		if err := s.append(ctx, &ev); err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
		s.publisher.PublishMovementRecorded(ctx, &ev)

		if input.Quantity != nil || input.Containers != nil {
			// Bumped past the transfer so replay order does not hinge on
			// the event ID tiebreak.
			adj := domain.MovementEvent{
				LabelID:    input.LabelID,
				Type:       domain.EventPutAway,
				ToLocation: &input.Location,
				Quantity:   input.Quantity,
				Containers: input.Containers,
				Reason:     input.Reason,
				Note:       input.Note,
				ActorID:    act.ID,
				ActorName:  act.Name,
				OccurredAt: occurredAt.Add(time.Millisecond),
			}
			if err := s.append(ctx, &adj); err != nil {
				return nil, err
			}
			result.Events = append(result.Events, adj)
			s.publisher.PublishMovementRecorded(ctx, &adj)
		}
	}

	state, err := s.refreshState(ctx, label)
	if err != nil {
		return nil, err
	}
	result.State = state

	confirmed := s.confirmPlacement(ctx, input.LabelID, input.Location)
	result.Confirmed = confirmed
	if !confirmed {
		result.Warning = errors.ConfirmationTimeout(input.LabelID, input.Location).Message
	}
	return result, nil
}

// PickInput is a partial consumption at a location
type PickInput struct {
	LabelID    string
	Location   string
	Quantity   *decimal.Decimal
	Containers *int
	Reason     string
	Note       *string
	OccurredAt *time.Time
}

// Pick consumes part of a label's quantity at its current location.
// The label must be present at the scanned location; anything else,
// including a never-placed label, fails with NotPresentAtLocation.
func (s *MovementService) Pick(ctx context.Context, input PickInput) (*domain.CurrentState, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("operator identity required")
	}
	if !s.cfg.ReasonAllowed(input.Reason) {
		return nil, errors.Validation(map[string]string{"reason": "unknown reason code"})
	}
	if input.Quantity == nil && input.Containers == nil {
		return nil, errors.Validation(map[string]string{"quantity": "quantity or containers required"})
	}

	label, err := s.labels.GetByID(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}

	current, _, err := s.resolver.ByLabel(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status == domain.StatusOut || current.Location != input.Location {
		return nil, errors.NotPresentAtLocation(input.LabelID, input.Location)
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	from := current.Location
	ev := domain.MovementEvent{
		LabelID:      input.LabelID,
		Type:         domain.EventConsume,
		FromLocation: &from,
		Quantity:     input.Quantity,
		Containers:   input.Containers,
		Reason:       input.Reason,
		Note:         input.Note,
		ActorID:      act.ID,
		ActorName:    act.Name,
		OccurredAt:   occurredAt,
	}
	if err := s.append(ctx, &ev); err != nil {
		return nil, err
	}
	s.publisher.PublishMovementRecorded(ctx, &ev)

	state, err := s.refreshState(ctx, label)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// TransferInput is an explicit relocation
type TransferInput struct {
	LabelID    string
	ToLocation string
	Quantity   *decimal.Decimal
	Containers *int
	Reason     string
	Note       *string
	OccurredAt *time.Time
}

// Transfer relocates a mapped label to another location
func (s *MovementService) Transfer(ctx context.Context, input TransferInput) (*domain.CurrentState, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("operator identity required")
	}
	if !s.cfg.ReasonAllowed(input.Reason) {
		return nil, errors.Validation(map[string]string{"reason": "unknown reason code"})
	}

	if _, err := s.destination(ctx, input.ToLocation); err != nil {
		return nil, err
	}
	label, err := s.labels.GetByID(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}

	current, _, err := s.resolver.ByLabel(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status == domain.StatusOut {
		return nil, errors.NotMapped(input.LabelID)
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	from := current.Location
	ev := domain.MovementEvent{
		LabelID:      input.LabelID,
		Type:         domain.EventTransfer,
		FromLocation: &from,
		ToLocation:   &input.ToLocation,
		Quantity:     input.Quantity,
		Containers:   input.Containers,
		Reason:       input.Reason,
		Note:         input.Note,
		ActorID:      act.ID,
		ActorName:    act.Name,
		OccurredAt:   occurredAt,
	}
	if err := s.append(ctx, &ev); err != nil {
		return nil, err
	}
	s.publisher.PublishMovementRecorded(ctx, &ev)

	state, err := s.refreshState(ctx, label)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// MoveOutInput removes a label from tracked inventory
type MoveOutInput struct {
	LabelID    string
	Location   string
	Reason     string
	Note       *string
	OccurredAt *time.Time
}

// MoveOut empties a label out of its current location. The label must be
// mapped, and when the caller states a location it must match.
func (s *MovementService) MoveOut(ctx context.Context, input MoveOutInput) (*domain.CurrentState, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("operator identity required")
	}
	if !s.cfg.ReasonAllowed(input.Reason) {
		return nil, errors.Validation(map[string]string{"reason": "unknown reason code"})
	}

	label, err := s.labels.GetByID(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}

	current, _, err := s.resolver.ByLabel(ctx, input.LabelID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status == domain.StatusOut {
		return nil, errors.NotMapped(input.LabelID)
	}
	if input.Location != "" && current.Location != input.Location {
		return nil, errors.NotPresentAtLocation(input.LabelID, input.Location)
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	from := current.Location
	ev := domain.MovementEvent{
		LabelID:      input.LabelID,
		Type:         domain.EventEmptyOut,
		FromLocation: &from,
		Reason:       input.Reason,
		Note:         input.Note,
		ActorID:      act.ID,
		ActorName:    act.Name,
		OccurredAt:   occurredAt,
	}
	if err := s.append(ctx, &ev); err != nil {
		return nil, err
	}
	s.publisher.PublishMovementRecorded(ctx, &ev)
	s.publisher.PublishLabelEmptied(ctx, &ev)

	state, err := s.refreshState(ctx, label)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// destination resolves a movement destination from the location master
// and rejects inactive locations before anything is appended
func (s *MovementService) destination(ctx context.Context, code string) (*domain.Location, error) {
	loc, err := s.locations.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, errors.Validation(map[string]string{"location": "location " + code + " is not active"})
	}
	return loc, nil
}

// append writes one ledger event, filling in the generated ID
func (s *MovementService) append(ctx context.Context, ev *domain.MovementEvent) error {
	id, err := s.movements.Append(ctx, ev)
	if err != nil {
		return err
	}
	ev.ID = id
	return nil
}

// seedQuarantine ensures a freshly placed label has a quality status.
// Failures are logged, not fatal: the display convention already treats
// missing history as QUARANTINE.
func (s *MovementService) seedQuarantine(ctx context.Context, labelID string, act *actor.Actor, occurredAt time.Time) {
	latest, err := s.quality.LatestByLabel(ctx, []string{labelID})
	if err == nil && len(latest) > 0 {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("label_id", labelID).
			Msg("Could not check quality history before seeding")
		return
	}

	qe := domain.QualityEvent{
		LabelID:    labelID,
		Status:     domain.StatusQuarantine,
		Reason:     "INITIAL_PLACEMENT",
		ActorID:    act.ID,
		OccurredAt: occurredAt,
	}
	id, err := s.quality.Append(ctx, &qe)
	if err != nil {
		s.log.Warn().Err(err).Str("label_id", labelID).
			Msg("Failed to seed quarantine status")
		return
	}
	qe.ID = id
	s.publisher.PublishQualityChanged(ctx, &qe)
}

// refreshState re-folds the label's full history and pushes the result
// into the read-side projection. The ledger write already succeeded;
// projection failures degrade reads but never fail the scan.
func (s *MovementService) refreshState(ctx context.Context, label *domain.Label) (domain.CurrentState, error) {
	events, err := s.movements.ListByLabel(ctx, label.ID)
	if err != nil {
		return domain.CurrentState{}, err
	}
	domain.SortEvents(events)
	state := domain.Replay(label, events)

	if err := s.projection.Upsert(ctx, &state); err != nil {
		s.log.Warn().Err(err).Str("label_id", label.ID).
			Msg("Failed to refresh state projection")
	}
	return state, nil
}

// confirmPlacement polls the projection until it reflects the placement,
// bounded by the configured attempt budget. Attempt n backs off n times
// the base delay. Returns false when the projection never catches up or
// is unavailable; the scan itself already succeeded.
func (s *MovementService) confirmPlacement(ctx context.Context, labelID, location string) bool {
	attempts := s.cfg.ConfirmAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		state, err := s.projection.GetByLabel(ctx, labelID)
		if err == nil && state != nil &&
			state.Status == domain.StatusIn && state.Location == location {
			return true
		}
		if err != nil && errors.IsProjectionUnavailable(err) {
			return false
		}

		if attempt < attempts {
			s.sleep(time.Duration(attempt) * s.cfg.ConfirmBackoff)
		}
	}
	return false
}
