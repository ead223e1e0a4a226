package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

const labelColumns = `
	id, material_code, material_name, unit_of_measure, net_quantity, containers,
	container_index, batch_number, expiry_date, retest_date, vendor_code,
	vendor_batch, manufacturer, lr_number, invoice_number, vehicle_number, issued_at
`

// LabelRepository resolves immutable label reference records.
// Labels are owned by the label-issuing system; this repository only reads
// them, except for Upsert which applies labeling events to the local copy.
type LabelRepository struct {
	db *database.DB
}

// NewLabelRepository creates a new label repository
func NewLabelRepository(db *database.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// GetByID gets a label by its identifier
func (r *LabelRepository) GetByID(ctx context.Context, id string) (*domain.Label, error) {
	var label domain.Label
	query := `SELECT ` + labelColumns + ` FROM labels WHERE id = $1`
	if err := r.db.GetContext(ctx, &label, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("label")
		}
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}
	return &label, nil
}

// GetByIDs gets a batch of labels keyed by identifier. Unknown identifiers
// are simply absent from the result.
func (r *LabelRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Label, error) {
	result := make(map[string]*domain.Label, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+labelColumns+` FROM labels WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var labels []*domain.Label
	if err := r.db.SelectContext(ctx, &labels, query, args...); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}

	for _, l := range labels {
		result[l.ID] = l
	}
	return result, nil
}

// Upsert applies a labeling event to the local reference copy. Label
// attributes are immutable after issuance, so conflicts only refresh the
// row with identical values (re-delivered events are harmless).
func (r *LabelRepository) Upsert(ctx context.Context, label *domain.Label) error {
	query := `
		INSERT INTO labels (
			id, material_code, material_name, unit_of_measure, net_quantity, containers,
			container_index, batch_number, expiry_date, retest_date, vendor_code,
			vendor_batch, manufacturer, lr_number, invoice_number, vehicle_number, issued_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			material_code = EXCLUDED.material_code,
			material_name = EXCLUDED.material_name,
			net_quantity = EXCLUDED.net_quantity,
			containers = EXCLUDED.containers,
			expiry_date = EXCLUDED.expiry_date,
			retest_date = EXCLUDED.retest_date
	`
	_, err := r.db.ExecContext(ctx, query,
		label.ID, label.MaterialCode, label.MaterialName, label.UnitOfMeasure,
		label.NetQuantity, label.Containers, label.ContainerIndex, label.BatchNumber,
		label.ExpiryDate, label.RetestDate, label.VendorCode, label.VendorBatch,
		label.Manufacturer, label.LRNumber, label.InvoiceNumber, label.VehicleNumber,
		label.IssuedAt,
	)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}
