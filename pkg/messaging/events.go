package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Tracking events
	EventMovementRecorded = "tracking.movement.recorded"
	EventQualityChanged   = "tracking.quality.changed"
	EventLabelEmptied     = "tracking.label.emptied"

	// Labeling events (consumed from the label-issuing system)
	EventLabelIssued = "labeling.label.issued"
	EventLabelVoided = "labeling.label.voided"
)

// Exchange names
const (
	ExchangeTrackingEvents = "tracking.events"
	ExchangeLabelingEvents = "labeling.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Tracking events

// MovementRecordedEvent is published for every appended movement event
type MovementRecordedEvent struct {
	EventID      string  `json:"event_id"`
	LabelID      string  `json:"label_id"`
	EventType    string  `json:"event_type"`
	FromLocation *string `json:"from_location,omitempty"`
	ToLocation   *string `json:"to_location,omitempty"`
	Quantity     *string `json:"quantity,omitempty"`
	Containers   *int    `json:"containers,omitempty"`
	Reason       string  `json:"reason"`
	ActorID      string  `json:"actor_id"`
}

// QualityChangedEvent is published when a label's quality status transitions
type QualityChangedEvent struct {
	EventID string `json:"event_id"`
	LabelID string `json:"label_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

// LabelEmptiedEvent is published when a label leaves tracked inventory
type LabelEmptiedEvent struct {
	EventID  string `json:"event_id"`
	LabelID  string `json:"label_id"`
	Location string `json:"location"`
	ActorID  string `json:"actor_id"`
}

// Labeling events (produced by the label-issuing collaborator)

// LabelIssuedEvent carries the immutable attributes of a freshly printed label
type LabelIssuedEvent struct {
	LabelID        string     `json:"label_id"`
	MaterialCode   string     `json:"material_code"`
	MaterialName   string     `json:"material_name"`
	UnitOfMeasure  string     `json:"unit_of_measure"`
	NetQuantity    string     `json:"net_quantity"`
	Containers     int        `json:"containers"`
	ContainerIndex *int       `json:"container_index,omitempty"`
	BatchNumber    string     `json:"batch_number"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	RetestDate     *time.Time `json:"retest_date,omitempty"`
	VendorCode     string     `json:"vendor_code"`
	VendorBatch    string     `json:"vendor_batch"`
	Manufacturer   string     `json:"manufacturer"`
	LRNumber       string     `json:"lr_number"`
	InvoiceNumber  string     `json:"invoice_number"`
	VehicleNumber  string     `json:"vehicle_number"`
	IssuedAt       time.Time  `json:"issued_at"`
}
