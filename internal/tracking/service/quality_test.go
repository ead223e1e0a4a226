package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/actor"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
)

func newQualityFixture(t *testing.T) (*service.QualityService, *fakeQuality, *fakePublisher) {
	t.Helper()
	labels := newFakeLabels(trackedLabel())
	quality := &fakeQuality{}
	publisher := &fakePublisher{}
	svc := service.NewQualityService(labels, quality, publisher, logger.New("test", "test"))
	return svc, quality, publisher
}

func qaCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{
		ID: "qa-1", Name: "Ravi", Role: actor.RoleQA,
	})
}

func TestSetStatus_AppendsTransition(t *testing.T) {
	svc, quality, publisher := newQualityFixture(t)

	ev, err := svc.SetStatus(operatorCtx(), service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.StatusUnderQC,
		Reason:  "QC_SAMPLING",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, domain.StatusUnderQC, ev.Status)
	assert.Equal(t, "op-1", ev.ActorID)

	history, err := quality.ListByLabel(context.Background(), "LBL-0001")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, publisher.quality, 1)
}

func TestSetStatus_QCReleaseRequiresQARole(t *testing.T) {
	svc, _, _ := newQualityFixture(t)

	_, err := svc.SetStatus(operatorCtx(), service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.StatusQCReleased,
		Reason:  "QC_SAMPLING",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestSetStatus_QARoleCanRelease(t *testing.T) {
	svc, _, _ := newQualityFixture(t)

	ev, err := svc.SetStatus(qaCtx(), service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.StatusQCReleased,
		Reason:  "QC_SAMPLING",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQCReleased, ev.Status)
	assert.Equal(t, "qa-1", ev.ActorID)
}

func TestSetStatus_AdminCanRelease(t *testing.T) {
	svc, _, _ := newQualityFixture(t)
	ctx := actor.WithActor(context.Background(), &actor.Actor{
		ID: "adm-1", Name: "Root", Role: actor.RoleAdmin,
	})

	_, err := svc.SetStatus(ctx, service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.StatusQCReleased,
		Reason:  "QC_SAMPLING",
	})
	require.NoError(t, err)
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	svc, _, _ := newQualityFixture(t)

	_, err := svc.SetStatus(qaCtx(), service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.QualityStatus("RELEASED"),
		Reason:  "QC_SAMPLING",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSetStatus_UnknownLabel(t *testing.T) {
	svc, _, _ := newQualityFixture(t)

	_, err := svc.SetStatus(qaCtx(), service.SetStatusInput{
		LabelID: "LBL-9999",
		Status:  domain.StatusUnderQC,
		Reason:  "QC_SAMPLING",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSetStatus_RequiresOperator(t *testing.T) {
	svc, _, _ := newQualityFixture(t)

	_, err := svc.SetStatus(context.Background(), service.SetStatusInput{
		LabelID: "LBL-0001",
		Status:  domain.StatusUnderQC,
		Reason:  "QC_SAMPLING",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
