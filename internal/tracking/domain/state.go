package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MapStatus says whether a label currently occupies a location.
type MapStatus string

const (
	StatusIn  MapStatus = "IN"
	StatusOut MapStatus = "OUT"
)

// CurrentState is the derived location state of a single label. It is a
// projection of the movement ledger, never a source of truth: it must
// always be reconstructible from MovementEvent + Label data alone.
type CurrentState struct {
	LabelID    string          `db:"label_id" json:"label_id"`
	Status     MapStatus       `db:"status" json:"status"`
	Location   string          `db:"location_code" json:"location_code"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	Containers int             `db:"containers" json:"containers"`
	PlacedAt   *time.Time      `db:"placed_at" json:"placed_at,omitempty"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// StateRow is the display row for stock listings: current state joined
// with the label reference and the latest quality status.
type StateRow struct {
	CurrentState
	Label   Label         `json:"label"`
	Quality QualityStatus `json:"quality_status"`

	// RankHint is an explicit precomputed retrieval rank. When present it
	// overrides the policy's derived sort key.
	RankHint *int `json:"rank_hint,omitempty"`
}

// StockFilter narrows global stock listings.
type StockFilter struct {
	Plant        string
	SubPlant     string
	Department   string
	Area         string
	MaterialCode string
}

// Matches reports whether a row passes the filter given its location's
// hierarchy. Empty filter fields match everything.
func (f *StockFilter) Matches(row *StateRow, loc *Location) bool {
	if f == nil {
		return true
	}
	if f.MaterialCode != "" && row.Label.MaterialCode != f.MaterialCode {
		return false
	}
	if loc == nil {
		return f.Plant == "" && f.SubPlant == "" && f.Department == "" && f.Area == ""
	}
	if f.Plant != "" && loc.Plant != f.Plant {
		return false
	}
	if f.SubPlant != "" && loc.SubPlant != f.SubPlant {
		return false
	}
	if f.Department != "" && loc.Department != f.Department {
		return false
	}
	if f.Area != "" && loc.Area != f.Area {
		return false
	}
	return true
}
