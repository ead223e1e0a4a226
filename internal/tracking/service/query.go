package service

import (
	"context"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/config"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// QueryService serves the read side: stock listings, label details, and
// movement/quality histories. Listings resolve through the state chain
// and come back ranked for retrieval.
type QueryService struct {
	resolver  *Resolver
	labels    LabelStore
	movements MovementStore
	quality   QualityStore
	locations LocationStore
	cfg       *config.TrackingConfig
	log       *logger.Logger
}

// NewQueryService creates the read-side service
func NewQueryService(
	resolver *Resolver,
	labels LabelStore,
	movements MovementStore,
	quality QualityStore,
	locations LocationStore,
	cfg *config.TrackingConfig,
	log *logger.Logger,
) *QueryService {
	return &QueryService{
		resolver:  resolver,
		labels:    labels,
		movements: movements,
		quality:   quality,
		locations: locations,
		cfg:       cfg,
		log:       log.WithComponent("query-service"),
	}
}

// policyOrDefault falls back to the configured default ranking policy
func (s *QueryService) policyOrDefault(policy string) domain.Policy {
	if policy == "" {
		policy = s.cfg.DefaultPolicy
	}
	return domain.ParsePolicy(policy)
}

// CurrentAtLocation lists the labels placed at a location, ranked by the
// requested retrieval policy. The location must exist; an empty listing
// for a real location is a normal answer, not an error.
func (s *QueryService) CurrentAtLocation(ctx context.Context, code, policy string) ([]domain.StateRow, string, error) {
	if _, err := s.locations.GetByCode(ctx, code); err != nil {
		return nil, SourceNone, err
	}

	rows, source, err := s.resolver.AtLocation(ctx, code)
	if err != nil {
		return nil, SourceNone, err
	}
	return domain.Rank(rows, s.policyOrDefault(policy)), source, nil
}

// GlobalCurrent lists all labels in tracked inventory, optionally
// narrowed by the location hierarchy and material, ranked for retrieval.
func (s *QueryService) GlobalCurrent(ctx context.Context, filter *domain.StockFilter, policy string) ([]domain.StateRow, string, error) {
	rows, source, err := s.resolver.Global(ctx)
	if err != nil {
		return nil, SourceNone, err
	}

	if filter != nil {
		rows, err = s.applyFilter(ctx, rows, filter)
		if err != nil {
			return nil, SourceNone, err
		}
	}
	return domain.Rank(rows, s.policyOrDefault(policy)), source, nil
}

// applyFilter narrows rows by their location's hierarchy attributes
func (s *QueryService) applyFilter(ctx context.Context, rows []domain.StateRow, filter *domain.StockFilter) ([]domain.StateRow, error) {
	codes := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.Location != "" && !seen[row.Location] {
			seen[row.Location] = true
			codes = append(codes, row.Location)
		}
	}

	locs, err := s.locations.GetMany(ctx, codes)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StateRow, 0, len(rows))
	for i := range rows {
		if filter.Matches(&rows[i], locs[rows[i].Location]) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// LabelDetails is the full picture of one label: reference record,
// resolved state, latest quality, and both histories.
type LabelDetails struct {
	Label          domain.Label           `json:"label"`
	State          *domain.CurrentState   `json:"state,omitempty"`
	Quality        domain.QualityStatus   `json:"quality_status"`
	Movements      []domain.MovementEvent `json:"movements"`
	QualityHistory []domain.QualityEvent  `json:"quality_history"`
}

// Details returns everything known about a label. A label with no
// movement history comes back with a nil state.
func (s *QueryService) Details(ctx context.Context, labelID string) (*LabelDetails, error) {
	label, err := s.labels.GetByID(ctx, labelID)
	if err != nil {
		return nil, err
	}

	row, _, err := s.resolver.ByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	movements, err := s.movements.ListByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}
	qualityHistory, err := s.quality.ListByLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	details := &LabelDetails{
		Label:          *label,
		Quality:        domain.StatusQuarantine,
		Movements:      movements,
		QualityHistory: qualityHistory,
	}
	if row != nil {
		details.State = &row.CurrentState
		details.Quality = row.Quality
	} else if len(qualityHistory) > 0 {
		details.Quality = qualityHistory[0].Status
	}
	return details, nil
}

// MovementHistory returns a label's movement ledger, oldest first
func (s *QueryService) MovementHistory(ctx context.Context, labelID string) ([]domain.MovementEvent, error) {
	if _, err := s.labels.GetByID(ctx, labelID); err != nil {
		return nil, err
	}
	return s.movements.ListByLabel(ctx, labelID)
}

// GetLocation returns one location from the master
func (s *QueryService) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	return s.locations.GetByCode(ctx, code)
}

// ListLocations lists locations, optionally narrowed by hierarchy
func (s *QueryService) ListLocations(ctx context.Context, filter *domain.LocationFilter) ([]*domain.Location, error) {
	return s.locations.List(ctx, filter)
}

// QualityHistory returns a label's quality ledger, newest first
func (s *QueryService) QualityHistory(ctx context.Context, labelID string) ([]domain.QualityEvent, error) {
	if _, err := s.labels.GetByID(ctx, labelID); err != nil {
		return nil, err
	}
	return s.quality.ListByLabel(ctx, labelID)
}
