package domain

import (
	"sort"
	"strings"
	"time"
)

// Policy selects the retrieval ordering for stock listings.
type Policy string

const (
	// PolicyFEFO ranks first-expired-first-out: expiry ascending with
	// null expiries last, tiebreak on placement time.
	PolicyFEFO Policy = "fefo"

	// PolicyFIFO ranks first-in-first-out by placement time.
	PolicyFIFO Policy = "fifo"

	// PolicyManual preserves the input order.
	PolicyManual Policy = "manual"
)

// ParsePolicy maps a query-string value onto a policy, defaulting to FEFO.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(s) {
	case "fifo":
		return PolicyFIFO
	case "manual":
		return PolicyManual
	default:
		return PolicyFEFO
	}
}

// Rank orders rows for picking guidance. The sort is stable, has no side
// effects on the input, and breaks all remaining ties by label ID so equal
// keys rank deterministically. An explicit RankHint overrides the derived
// key under FEFO and FIFO.
func Rank(rows []StateRow, policy Policy) []StateRow {
	out := make([]StateRow, len(rows))
	copy(out, rows)

	if policy == PolicyManual {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]

		if a.RankHint != nil || b.RankHint != nil {
			if a.RankHint == nil {
				return false
			}
			if b.RankHint == nil {
				return true
			}
			if *a.RankHint != *b.RankHint {
				return *a.RankHint < *b.RankHint
			}
			return a.LabelID < b.LabelID
		}

		if policy == PolicyFEFO {
			ae, be := a.Label.ExpiryDate, b.Label.ExpiryDate
			switch {
			case ae == nil && be != nil:
				return false
			case ae != nil && be == nil:
				return true
			case ae != nil && be != nil && !ae.Equal(*be):
				return ae.Before(*be)
			}
		}

		at, bt := placementTime(a), placementTime(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.LabelID < b.LabelID
	})

	return out
}

// placementTime is the FIFO key: when the label was placed, falling back
// to label issuance for rows whose projection lacks a placed-at stamp.
func placementTime(r *StateRow) time.Time {
	if r.PlacedAt != nil {
		return *r.PlacedAt
	}
	return r.Label.IssuedAt
}
