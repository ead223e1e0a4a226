package consumers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/repository"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
	"github.com/pharmtrace/pharmtrace-backend/pkg/messaging"
)

// LabelEventConsumer keeps the local label reference copy in sync with
// the label-issuing system. Movements can only be interpreted against a
// label's nominal attributes, so every issued label is mirrored here.
type LabelEventConsumer struct {
	consumer  *messaging.Consumer
	labelRepo *repository.LabelRepository
	logger    *logger.Logger
}

// NewLabelEventConsumer creates a new label event consumer
func NewLabelEventConsumer(rmq *messaging.RabbitMQ, labelRepo *repository.LabelRepository, log *logger.Logger) (*LabelEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "tracking-service.labeling-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeLabelingEvents, "labeling.#"); err != nil {
		return nil, err
	}

	c := &LabelEventConsumer{
		consumer:  consumer,
		labelRepo: labelRepo,
		logger:    log,
	}

	consumer.RegisterHandler(messaging.EventLabelIssued, c.handleLabelIssued)
	consumer.RegisterHandler(messaging.EventLabelVoided, c.handleLabelVoided)

	return c, nil
}

// Start starts consuming messages
func (c *LabelEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *LabelEventConsumer) handleLabelIssued(ctx context.Context, event *messaging.Event) error {
	var data messaging.LabelIssuedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	netQty, err := decimal.NewFromString(data.NetQuantity)
	if err != nil {
		return fmt.Errorf("invalid net quantity %q for label %s: %w", data.NetQuantity, data.LabelID, err)
	}

	c.logger.Info().
		Str("label_id", data.LabelID).
		Str("material_code", data.MaterialCode).
		Msg("received label issued event")

	return c.labelRepo.Upsert(ctx, &domain.Label{
		ID:             data.LabelID,
		MaterialCode:   data.MaterialCode,
		MaterialName:   data.MaterialName,
		UnitOfMeasure:  data.UnitOfMeasure,
		NetQuantity:    netQty,
		Containers:     data.Containers,
		ContainerIndex: data.ContainerIndex,
		BatchNumber:    data.BatchNumber,
		ExpiryDate:     data.ExpiryDate,
		RetestDate:     data.RetestDate,
		VendorCode:     data.VendorCode,
		VendorBatch:    data.VendorBatch,
		Manufacturer:   data.Manufacturer,
		LRNumber:       data.LRNumber,
		InvoiceNumber:  data.InvoiceNumber,
		VehicleNumber:  data.VehicleNumber,
		IssuedAt:       data.IssuedAt,
	})
}

// handleLabelVoided is a no-op beyond logging. A voided label keeps its
// local reference record; its movement history, if any, must stay
// interpretable for audit.
func (c *LabelEventConsumer) handleLabelVoided(ctx context.Context, event *messaging.Event) error {
	var data struct {
		LabelID string `json:"label_id"`
	}
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("label_id", data.LabelID).
		Msg("received label voided event")
	return nil
}
