package service

import (
	"context"
	stderrors "errors"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// errNoAnswer makes the chain try the next tier without treating the
// current one as broken. A per-label miss in a cache tier is
// indistinguishable from staleness, so the lookup falls through; listing
// queries never use it because an empty set is a real answer.
var errNoAnswer = stderrors.New("state source has no answer")

// LabelStore reads label reference records
type LabelStore interface {
	GetByID(ctx context.Context, id string) (*domain.Label, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Label, error)
}

// MovementStore reads and appends the movement ledger
type MovementStore interface {
	Append(ctx context.Context, event *domain.MovementEvent) (string, error)
	ListByLabel(ctx context.Context, labelID string) ([]domain.MovementEvent, error)
	ListForLabels(ctx context.Context, labelIDs []string) ([]domain.MovementEvent, error)
	LabelIDsTouchingLocation(ctx context.Context, code string) ([]string, error)
	DistinctLabelIDs(ctx context.Context) ([]string, error)
}

// QualityStore reads and appends the quality ledger
type QualityStore interface {
	Append(ctx context.Context, event *domain.QualityEvent) (string, error)
	ListByLabel(ctx context.Context, labelID string) ([]domain.QualityEvent, error)
	LatestByLabel(ctx context.Context, labelIDs []string) (map[string]domain.QualityEvent, error)
}

// LocationStore reads the location master
type LocationStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Location, error)
	GetMany(ctx context.Context, codes []string) (map[string]*domain.Location, error)
	List(ctx context.Context, filter *domain.LocationFilter) ([]*domain.Location, error)
}

// ProjectionStore reads the optional read-side tiers and refreshes the
// materialized state table after writes
type ProjectionStore interface {
	GetByLabel(ctx context.Context, labelID string) (*domain.CurrentState, error)
	ListAtLocation(ctx context.Context, code string) ([]domain.CurrentState, error)
	List(ctx context.Context) ([]domain.CurrentState, error)
	Upsert(ctx context.Context, state *domain.CurrentState) error
	ViewAtLocation(ctx context.Context, code string) ([]domain.StateRow, error)
	ViewByLabel(ctx context.Context, labelID string) (*domain.StateRow, error)
	ViewList(ctx context.Context) ([]domain.StateRow, error)
}

// Source names, reported to callers so operators can tell which tier
// answered a stock query.
const (
	SourceProjection = "projection"
	SourceView       = "view"
	SourceReplay     = "replay"
	SourceNone       = "none"
)

// StateSource is one tier of the current-state resolution chain. A source
// that cannot serve this deployment returns ProjectionUnavailable; any
// other error is a real failure and stops the chain.
type StateSource interface {
	Name() string
	AtLocation(ctx context.Context, code string) ([]domain.StateRow, error)
	ByLabel(ctx context.Context, labelID string) (*domain.StateRow, error)
	Global(ctx context.Context) ([]domain.StateRow, error)
}

// Resolver walks the resolution chain in order: materialized state table,
// denormalized view, ledger replay. It only falls through on
// ProjectionUnavailable; when every tier is out it returns an empty result
// tagged SourceNone rather than an error, so a scanner terminal never
// blocks on a read-side outage.
type Resolver struct {
	sources []StateSource
	log     *logger.Logger
}

// NewResolver builds the default three-tier chain
func NewResolver(projection ProjectionStore, labels LabelStore, movements MovementStore, quality QualityStore, log *logger.Logger) *Resolver {
	return &Resolver{
		sources: []StateSource{
			&projectionSource{projection: projection, labels: labels, quality: quality},
			&viewSource{projection: projection},
			&replaySource{movements: movements, labels: labels, quality: quality},
		},
		log: log.WithComponent("state-resolver"),
	}
}

// NewResolverWithSources builds a resolver over an explicit chain
func NewResolverWithSources(log *logger.Logger, sources ...StateSource) *Resolver {
	return &Resolver{sources: sources, log: log.WithComponent("state-resolver")}
}

// AtLocation resolves the labels currently placed at a location.
// The second return value names the tier that answered.
func (r *Resolver) AtLocation(ctx context.Context, code string) ([]domain.StateRow, string, error) {
	var rows []domain.StateRow
	source, err := r.resolve(ctx, func(s StateSource) error {
		var srcErr error
		rows, srcErr = s.AtLocation(ctx, code)
		return srcErr
	})
	if err != nil {
		return nil, SourceNone, err
	}
	if source == SourceNone {
		rows = []domain.StateRow{}
	}
	return rows, source, nil
}

// ByLabel resolves a single label's current state, or nil when the label
// has no resolvable state.
func (r *Resolver) ByLabel(ctx context.Context, labelID string) (*domain.StateRow, string, error) {
	var row *domain.StateRow
	source, err := r.resolve(ctx, func(s StateSource) error {
		var srcErr error
		row, srcErr = s.ByLabel(ctx, labelID)
		return srcErr
	})
	if err != nil {
		return nil, SourceNone, err
	}
	if source == SourceNone {
		row = nil
	}
	return row, source, nil
}

// Global resolves every label currently in tracked inventory
func (r *Resolver) Global(ctx context.Context) ([]domain.StateRow, string, error) {
	var rows []domain.StateRow
	source, err := r.resolve(ctx, func(s StateSource) error {
		var srcErr error
		rows, srcErr = s.Global(ctx)
		return srcErr
	})
	if err != nil {
		return nil, SourceNone, err
	}
	if source == SourceNone {
		rows = []domain.StateRow{}
	}
	return rows, source, nil
}

func (r *Resolver) resolve(ctx context.Context, try func(StateSource) error) (string, error) {
	for _, s := range r.sources {
		if ctx.Err() != nil {
			break
		}
		err := try(s)
		if err == nil {
			return s.Name(), nil
		}
		if stderrors.Is(err, errNoAnswer) {
			continue
		}
		// A cancelled or timed-out tier falls through like an unavailable
		// one; the caller gets a flagged empty result, never a hang.
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			continue
		}
		if errors.IsProjectionUnavailable(err) {
			r.log.Warn().Err(err).Str("source", s.Name()).
				Msg("State source unavailable, falling through")
			continue
		}
		return SourceNone, err
	}
	return SourceNone, nil
}

// projectionSource serves tier one: the materialized per-label state table,
// joined against labels and latest quality in application code.
type projectionSource struct {
	projection ProjectionStore
	labels     LabelStore
	quality    QualityStore
}

func (s *projectionSource) Name() string { return SourceProjection }

func (s *projectionSource) AtLocation(ctx context.Context, code string) ([]domain.StateRow, error) {
	states, err := s.projection.ListAtLocation(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, states)
}

func (s *projectionSource) ByLabel(ctx context.Context, labelID string) (*domain.StateRow, error) {
	state, err := s.projection.GetByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errNoAnswer
	}
	rows, err := s.join(ctx, []domain.CurrentState{*state})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *projectionSource) Global(ctx context.Context) ([]domain.StateRow, error) {
	states, err := s.projection.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, states)
}

func (s *projectionSource) join(ctx context.Context, states []domain.CurrentState) ([]domain.StateRow, error) {
	if len(states) == 0 {
		return []domain.StateRow{}, nil
	}

	ids := make([]string, len(states))
	for i, st := range states {
		ids[i] = st.LabelID
	}

	labels, err := s.labels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	latest, err := s.quality.LatestByLabel(ctx, ids)
	if err != nil {
		return nil, err
	}

	return joinStateRows(states, labels, latest), nil
}

// viewSource serves tier two: the denormalized stock view, which carries
// the label and quality joins in SQL.
type viewSource struct {
	projection ProjectionStore
}

func (s *viewSource) Name() string { return SourceView }

func (s *viewSource) AtLocation(ctx context.Context, code string) ([]domain.StateRow, error) {
	return s.projection.ViewAtLocation(ctx, code)
}

func (s *viewSource) ByLabel(ctx context.Context, labelID string) (*domain.StateRow, error) {
	row, err := s.projection.ViewByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errNoAnswer
	}
	return row, nil
}

func (s *viewSource) Global(ctx context.Context) ([]domain.StateRow, error) {
	return s.projection.ViewList(ctx)
}

// replaySource is the tier of last resort: fold the movement ledger from
// scratch. Slow but always correct, and it has no schema beyond the two
// ledgers, so it survives any read-side migration.
type replaySource struct {
	movements MovementStore
	labels    LabelStore
	quality   QualityStore
}

func (s *replaySource) Name() string { return SourceReplay }

func (s *replaySource) AtLocation(ctx context.Context, code string) ([]domain.StateRow, error) {
	// Any label whose history touches the location might currently sit
	// there; replay each candidate and keep the ones that do.
	ids, err := s.movements.LabelIDsTouchingLocation(ctx, code)
	if err != nil {
		return nil, err
	}
	rows, err := s.replayLabels(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StateRow, 0, len(rows))
	for _, row := range rows {
		if row.Status == domain.StatusIn && row.Location == code {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *replaySource) ByLabel(ctx context.Context, labelID string) (*domain.StateRow, error) {
	events, err := s.movements.ListByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	label, err := s.labels.GetByID(ctx, labelID)
	if err != nil {
		return nil, err
	}

	domain.SortEvents(events)
	state := domain.Replay(label, events)

	latest, err := s.quality.LatestByLabel(ctx, []string{labelID})
	if err != nil {
		return nil, err
	}

	rows := joinStateRows([]domain.CurrentState{state}, map[string]*domain.Label{labelID: label}, latest)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *replaySource) Global(ctx context.Context) ([]domain.StateRow, error) {
	ids, err := s.movements.DistinctLabelIDs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.replayLabels(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StateRow, 0, len(rows))
	for _, row := range rows {
		if row.Status == domain.StatusIn {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *replaySource) replayLabels(ctx context.Context, ids []string) ([]domain.StateRow, error) {
	if len(ids) == 0 {
		return []domain.StateRow{}, nil
	}

	events, err := s.movements.ListForLabels(ctx, ids)
	if err != nil {
		return nil, err
	}
	labels, err := s.labels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	latest, err := s.quality.LatestByLabel(ctx, ids)
	if err != nil {
		return nil, err
	}

	states := domain.ReplayAll(labels, events)
	flat := make([]domain.CurrentState, 0, len(states))
	for _, st := range states {
		flat = append(flat, st)
	}
	return joinStateRows(flat, labels, latest), nil
}

// joinStateRows merges states with their label records and latest quality
// status. States whose label record is missing locally are dropped; they
// cannot be displayed or ranked without nominal attributes. Labels with no
// quality history show as QUARANTINE.
func joinStateRows(states []domain.CurrentState, labels map[string]*domain.Label, latest map[string]domain.QualityEvent) []domain.StateRow {
	rows := make([]domain.StateRow, 0, len(states))
	for _, st := range states {
		label, ok := labels[st.LabelID]
		if !ok || label == nil {
			continue
		}
		row := domain.StateRow{
			CurrentState: st,
			Label:        *label,
			Quality:      domain.StatusQuarantine,
		}
		if q, ok := latest[st.LabelID]; ok {
			row.Quality = q.Status
		}
		rows = append(rows, row)
	}
	return rows
}
