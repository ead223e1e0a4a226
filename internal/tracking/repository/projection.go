package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
)

// ProjectionRepository reads the two optional read-side tiers: the
// materialized per-label state table and the denormalized stock view.
// Both are disposable caches over the movement ledger; depending on the
// deployment either may be stale, permission-restricted, or absent, in
// which case queries surface ProjectionUnavailable and the resolution
// chain falls through to replay.
type ProjectionRepository struct {
	db *database.DB
}

// NewProjectionRepository creates a new projection repository
func NewProjectionRepository(db *database.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

const stateColumns = `
	label_id, location_code, status, quantity, containers, placed_at, updated_at
`

// GetByLabel reads one label's projected state. Returns nil (no error)
// when the projection has no row for the label.
func (r *ProjectionRepository) GetByLabel(ctx context.Context, labelID string) (*domain.CurrentState, error) {
	var state currentStateRow
	query := `SELECT ` + stateColumns + ` FROM label_location_state WHERE label_id = $1`
	if err := r.db.GetContext(ctx, &state, query, labelID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	s := state.toDomain()
	return &s, nil
}

// ListAtLocation reads the projected states of all labels currently at a location
func (r *ProjectionRepository) ListAtLocation(ctx context.Context, code string) ([]domain.CurrentState, error) {
	var rows []currentStateRow
	query := `
		SELECT ` + stateColumns + `
		FROM label_location_state
		WHERE location_code = $1 AND status = 'IN'
	`
	if err := r.db.SelectContext(ctx, &rows, query, code); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return toDomainStates(rows), nil
}

// List reads every projected IN state
func (r *ProjectionRepository) List(ctx context.Context) ([]domain.CurrentState, error) {
	var rows []currentStateRow
	query := `SELECT ` + stateColumns + ` FROM label_location_state WHERE status = 'IN'`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return toDomainStates(rows), nil
}

// Upsert refreshes a label's projected state after a write. The projection
// is an optimization only; upsert failures must never fail the write path.
func (r *ProjectionRepository) Upsert(ctx context.Context, state *domain.CurrentState) error {
	query := `
		INSERT INTO label_location_state (
			label_id, location_code, status, quantity, containers, placed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (label_id) DO UPDATE SET
			location_code = EXCLUDED.location_code,
			status = EXCLUDED.status,
			quantity = EXCLUDED.quantity,
			containers = EXCLUDED.containers,
			placed_at = EXCLUDED.placed_at,
			updated_at = EXCLUDED.updated_at
	`
	var loc *string
	if state.Location != "" {
		loc = &state.Location
	}
	_, err := r.db.ExecContext(ctx, query,
		state.LabelID, loc, state.Status, state.Quantity, state.Containers,
		state.PlacedAt, state.UpdatedAt,
	)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// ViewAtLocation reads the denormalized stock view for one location.
// Used when the state table is schema-incompatible with this deployment.
func (r *ProjectionRepository) ViewAtLocation(ctx context.Context, code string) ([]domain.StateRow, error) {
	var rows []stockViewRow
	query := viewSelect + ` WHERE v.location_code = $1 AND v.status = 'IN'`
	if err := r.db.SelectContext(ctx, &rows, query, code); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return toStateRows(rows), nil
}

// ViewByLabel reads one label's row from the denormalized stock view
func (r *ProjectionRepository) ViewByLabel(ctx context.Context, labelID string) (*domain.StateRow, error) {
	var row stockViewRow
	query := viewSelect + ` WHERE v.label_id = $1`
	if err := r.db.GetContext(ctx, &row, query, labelID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	s := row.toDomain()
	return &s, nil
}

// ViewList reads every IN row from the denormalized stock view
func (r *ProjectionRepository) ViewList(ctx context.Context) ([]domain.StateRow, error) {
	var rows []stockViewRow
	query := viewSelect + ` WHERE v.status = 'IN'`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return toStateRows(rows), nil
}

const viewSelect = `
	SELECT
		v.label_id, v.location_code, v.status, v.quantity, v.containers,
		v.placed_at, v.updated_at, v.material_code, v.material_name,
		v.unit_of_measure, v.net_quantity, v.nominal_containers, v.batch_number,
		v.expiry_date, v.issued_at, v.quality_status, v.retrieval_rank
	FROM v_stock_full v
`

// currentStateRow scans the state table, keeping NULL location distinct
// from an empty code.
type currentStateRow struct {
	LabelID    string           `db:"label_id"`
	Location   *string          `db:"location_code"`
	Status     domain.MapStatus `db:"status"`
	Quantity   decimal.Decimal  `db:"quantity"`
	Containers int              `db:"containers"`
	PlacedAt   *time.Time       `db:"placed_at"`
	UpdatedAt  time.Time        `db:"updated_at"`
}

func (r currentStateRow) toDomain() domain.CurrentState {
	s := domain.CurrentState{
		LabelID:    r.LabelID,
		Status:     r.Status,
		Quantity:   r.Quantity,
		Containers: r.Containers,
		PlacedAt:   r.PlacedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Location != nil {
		s.Location = *r.Location
	}
	return s
}

func toDomainStates(rows []currentStateRow) []domain.CurrentState {
	out := make([]domain.CurrentState, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}

// stockViewRow is the explicit mapping for the denormalized view's shape;
// one mapping function per known source schema, no field guessing.
type stockViewRow struct {
	LabelID           string               `db:"label_id"`
	Location          *string              `db:"location_code"`
	Status            domain.MapStatus     `db:"status"`
	Quantity          decimal.Decimal      `db:"quantity"`
	Containers        int                  `db:"containers"`
	PlacedAt          *time.Time           `db:"placed_at"`
	UpdatedAt         time.Time            `db:"updated_at"`
	MaterialCode      string               `db:"material_code"`
	MaterialName      string               `db:"material_name"`
	UnitOfMeasure     string               `db:"unit_of_measure"`
	NetQuantity       decimal.Decimal      `db:"net_quantity"`
	NominalContainers int                  `db:"nominal_containers"`
	BatchNumber       string               `db:"batch_number"`
	ExpiryDate        *time.Time           `db:"expiry_date"`
	IssuedAt          time.Time            `db:"issued_at"`
	QualityStatus     *domain.QualityStatus `db:"quality_status"`
	RetrievalRank     *int                 `db:"retrieval_rank"`
}

func (r stockViewRow) toDomain() domain.StateRow {
	row := domain.StateRow{
		CurrentState: domain.CurrentState{
			LabelID:    r.LabelID,
			Status:     r.Status,
			Quantity:   r.Quantity,
			Containers: r.Containers,
			PlacedAt:   r.PlacedAt,
			UpdatedAt:  r.UpdatedAt,
		},
		Label: domain.Label{
			ID:            r.LabelID,
			MaterialCode:  r.MaterialCode,
			MaterialName:  r.MaterialName,
			UnitOfMeasure: r.UnitOfMeasure,
			NetQuantity:   r.NetQuantity,
			Containers:    r.NominalContainers,
			BatchNumber:   r.BatchNumber,
			ExpiryDate:    r.ExpiryDate,
			IssuedAt:      r.IssuedAt,
		},
		Quality:  domain.StatusQuarantine,
		RankHint: r.RetrievalRank,
	}
	if r.Location != nil {
		row.CurrentState.Location = *r.Location
	}
	if r.QualityStatus != nil {
		row.Quality = *r.QualityStatus
	}
	return row
}

func toStateRows(rows []stockViewRow) []domain.StateRow {
	out := make([]domain.StateRow, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
