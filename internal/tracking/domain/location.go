package domain

// Location is a scannable storage location within the plant hierarchy.
// Read-only reference data for the tracking core.
type Location struct {
	Code       string `db:"code" json:"code"`
	Name       string `db:"name" json:"name"`
	Area       string `db:"area" json:"area"`
	Department string `db:"department" json:"department"`
	SubPlant   string `db:"sub_plant" json:"sub_plant"`
	Plant      string `db:"plant" json:"plant"`
	Active     bool   `db:"is_active" json:"is_active"`
}

// LocationFilter narrows location listings by hierarchy level.
// Empty fields match everything.
type LocationFilter struct {
	Plant      string
	SubPlant   string
	Department string
	Area       string
}
