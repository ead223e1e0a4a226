package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Label is the immutable reference record for a labeled material container,
// owned by the label-issuing system. The tracking core reads it but never
// writes it; the local copy is kept fresh by the labeling event consumer.
type Label struct {
	ID             string          `db:"id" json:"id"`
	MaterialCode   string          `db:"material_code" json:"material_code"`
	MaterialName   string          `db:"material_name" json:"material_name"`
	UnitOfMeasure  string          `db:"unit_of_measure" json:"unit_of_measure"`
	NetQuantity    decimal.Decimal `db:"net_quantity" json:"net_quantity"`
	Containers     int             `db:"containers" json:"containers"`
	ContainerIndex *int            `db:"container_index" json:"container_index,omitempty"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	ExpiryDate     *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	RetestDate     *time.Time      `db:"retest_date" json:"retest_date,omitempty"`
	VendorCode     string          `db:"vendor_code" json:"vendor_code"`
	VendorBatch    string          `db:"vendor_batch" json:"vendor_batch"`
	Manufacturer   string          `db:"manufacturer" json:"manufacturer"`
	LRNumber       string          `db:"lr_number" json:"lr_number"`
	InvoiceNumber  string          `db:"invoice_number" json:"invoice_number"`
	VehicleNumber  string          `db:"vehicle_number" json:"vehicle_number"`
	IssuedAt       time.Time       `db:"issued_at" json:"issued_at"`
}
