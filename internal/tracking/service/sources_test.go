package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

// stubSource is a StateSource with canned answers
type stubSource struct {
	name  string
	rows  []domain.StateRow
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) AtLocation(_ context.Context, _ string) ([]domain.StateRow, error) {
	s.calls++
	return s.rows, s.err
}

func (s *stubSource) ByLabel(_ context.Context, _ string) (*domain.StateRow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.rows) == 0 {
		return nil, nil
	}
	return &s.rows[0], nil
}

func (s *stubSource) Global(_ context.Context) ([]domain.StateRow, error) {
	s.calls++
	return s.rows, s.err
}

func stubRow(labelID string) domain.StateRow {
	return domain.StateRow{
		CurrentState: domain.CurrentState{
			LabelID:  labelID,
			Status:   domain.StatusIn,
			Location: "WH1-R01",
		},
		Label:   domain.Label{ID: labelID},
		Quality: domain.StatusQuarantine,
	}
}

func unavailable() error {
	return errors.ProjectionUnavailable(fmt.Errorf("permission denied"))
}

func TestResolver_FirstSourceAnswers(t *testing.T) {
	first := &stubSource{name: "projection", rows: []domain.StateRow{stubRow("LBL-1")}}
	second := &stubSource{name: "view"}
	r := service.NewResolverWithSources(logger.New("test", "test"), first, second)

	rows, source, err := r.AtLocation(context.Background(), "WH1-R01")
	require.NoError(t, err)
	assert.Equal(t, "projection", source)
	assert.Len(t, rows, 1)
	assert.Equal(t, 0, second.calls)
}

func TestResolver_FallsThroughOnUnavailable(t *testing.T) {
	first := &stubSource{name: "projection", err: unavailable()}
	second := &stubSource{name: "view", err: unavailable()}
	third := &stubSource{name: "replay", rows: []domain.StateRow{stubRow("LBL-1")}}
	r := service.NewResolverWithSources(logger.New("test", "test"), first, second, third)

	rows, source, err := r.AtLocation(context.Background(), "WH1-R01")
	require.NoError(t, err)
	assert.Equal(t, "replay", source)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestResolver_ExhaustedChainReturnsEmpty(t *testing.T) {
	first := &stubSource{name: "projection", err: unavailable()}
	second := &stubSource{name: "replay", err: unavailable()}
	r := service.NewResolverWithSources(logger.New("test", "test"), first, second)

	rows, source, err := r.AtLocation(context.Background(), "WH1-R01")
	require.NoError(t, err)
	assert.Equal(t, service.SourceNone, source)
	assert.Empty(t, rows)

	row, source, err := r.ByLabel(context.Background(), "LBL-1")
	require.NoError(t, err)
	assert.Equal(t, service.SourceNone, source)
	assert.Nil(t, row)
}

func TestResolver_RealErrorStopsChain(t *testing.T) {
	first := &stubSource{name: "projection", err: errors.Internal("connection reset")}
	second := &stubSource{name: "replay"}
	r := service.NewResolverWithSources(logger.New("test", "test"), first, second)

	_, source, err := r.Global(context.Background())
	require.Error(t, err)
	assert.Equal(t, service.SourceNone, source)
	assert.Equal(t, 0, second.calls)
}

func TestResolver_CancelledContext(t *testing.T) {
	first := &stubSource{name: "projection", rows: []domain.StateRow{stubRow("LBL-1")}}
	r := service.NewResolverWithSources(logger.New("test", "test"), first)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, source, err := r.AtLocation(ctx, "WH1-R01")
	require.NoError(t, err)
	assert.Equal(t, service.SourceNone, source)
	assert.Empty(t, rows)
	assert.Equal(t, 0, first.calls)
}

// End-to-end over the real three-tier chain with the fake stores.
func TestResolver_ReplayTierReconstructsState(t *testing.T) {
	label := trackedLabel()
	labels := newFakeLabels(label)
	movements := &fakeMovements{}
	quality := &fakeQuality{}
	projection := newFakeProjection()
	projection.unavailable = true

	loc := "WH1-R01"
	occurred := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	_, err := movements.Append(context.Background(), &domain.MovementEvent{
		LabelID: label.ID, Type: domain.EventPutAway,
		ToLocation: &loc, ActorID: "op-1", OccurredAt: occurred,
	})
	require.NoError(t, err)

	qty := decimal.NewFromInt(30)
	_, err = movements.Append(context.Background(), &domain.MovementEvent{
		LabelID: label.ID, Type: domain.EventConsume,
		FromLocation: &loc, Quantity: &qty, ActorID: "op-1",
		OccurredAt: occurred.Add(time.Hour),
	})
	require.NoError(t, err)

	r := service.NewResolver(projection, labels, movements, quality, logger.New("test", "test"))

	rows, source, err := r.AtLocation(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, service.SourceReplay, source)
	require.Len(t, rows, 1)
	assert.Equal(t, label.ID, rows[0].LabelID)
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, domain.StatusQuarantine, rows[0].Quality)

	row, source, err := r.ByLabel(context.Background(), label.ID)
	require.NoError(t, err)
	assert.Equal(t, service.SourceReplay, source)
	require.NotNil(t, row)
	assert.Equal(t, loc, row.Location)
}
