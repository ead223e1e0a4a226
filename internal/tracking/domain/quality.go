package domain

import "time"

// QualityStatus is a label's quality lifecycle attribute, tracked
// independently of its physical location.
type QualityStatus string

const (
	StatusQuarantine   QualityStatus = "QUARANTINE"
	StatusUnderQC      QualityStatus = "UNDER_QC"
	StatusQCReleased   QualityStatus = "QC_RELEASED"
	StatusRestricted   QualityStatus = "RESTRICTED"
	StatusUnrestricted QualityStatus = "UNRESTRICTED"
	StatusProdReturned QualityStatus = "PROD_RETURNED"
	StatusRejected     QualityStatus = "REJECTED"
)

// Valid reports whether s is a known quality status.
func (s QualityStatus) Valid() bool {
	switch s {
	case StatusQuarantine, StatusUnderQC, StatusQCReleased, StatusRestricted,
		StatusUnrestricted, StatusProdReturned, StatusRejected:
		return true
	}
	return false
}

// QualityEvent is one append-only quality-status transition.
// The latest event by timestamp per label is authoritative; a label with
// no quality history is treated as QUARANTINE by convention.
type QualityEvent struct {
	ID         string        `db:"id" json:"id"`
	LabelID    string        `db:"label_id" json:"label_id"`
	Status     QualityStatus `db:"status" json:"status"`
	Reason     string        `db:"reason" json:"reason"`
	ActorID    string        `db:"actor_id" json:"actor_id"`
	OccurredAt time.Time     `db:"occurred_at" json:"occurred_at"`
}
