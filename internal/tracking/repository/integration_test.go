package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/events"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/repository"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/actor"
	"github.com/pharmtrace/pharmtrace-backend/pkg/config"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
	"github.com/pharmtrace/pharmtrace-backend/pkg/testutil"
)

// setupIntegrationDB starts a disposable PostgreSQL container with the
// tracking schema applied. Skipped with -short.
func setupIntegrationDB(t *testing.T) *database.DB {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	raw, err := container.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, container.CreateTrackingSchema(ctx, raw))

	return database.NewFromDB(raw, logger.New("integration-test", "test"))
}

func seedLocation(t *testing.T, db *database.DB, code string) {
	_, err := db.Exec(`
		INSERT INTO locations (code, name, area, department, sub_plant, plant, is_active)
		VALUES ($1, $1, 'RM-STORE', 'WAREHOUSE', 'SP1', 'P1', true)
	`, code)
	require.NoError(t, err)
}

func TestTrackingLifecycle_Postgres(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := actor.WithActor(context.Background(),
		&actor.Actor{ID: "op-1", Name: "Asha", Role: actor.RoleOperator})

	labelRepo := repository.NewLabelRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	qualityRepo := repository.NewQualityRepository(db)
	projectionRepo := repository.NewProjectionRepository(db)

	seedLocation(t, db, "WH1-R01")
	seedLocation(t, db, "WH2-R05")

	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, labelRepo.Upsert(ctx, &domain.Label{
		ID:            "LBL-0001",
		MaterialCode:  "API-204",
		MaterialName:  "Paracetamol API",
		UnitOfMeasure: "KG",
		NetQuantity:   decimal.NewFromInt(100),
		Containers:    4,
		BatchNumber:   "B-2026-014",
		ExpiryDate:    &expiry,
		IssuedAt:      time.Now().UTC(),
	}))

	log := logger.New("integration-test", "test")
	cfg := &config.TrackingConfig{
		ConfirmAttempts: 3,
		ConfirmBackoff:  10 * time.Millisecond,
		DefaultPolicy:   "fefo",
	}
	resolver := service.NewResolver(projectionRepo, labelRepo, movementRepo, qualityRepo, log)
	svc := service.NewMovementService(
		labelRepo, movementRepo, qualityRepo, locationRepo, projectionRepo,
		resolver, events.NewPublisher(nil, log), cfg, log,
	)

	// Put away, confirmed against the real projection table.
	result, err := svc.PutAway(ctx, service.PutAwayInput{
		LabelID: "LBL-0001", Location: "WH1-R01", Reason: "GRN_RECEIPT",
	})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.True(t, result.Confirmed)
	assert.Equal(t, domain.StatusIn, result.State.Status)
	assert.Equal(t, "WH1-R01", result.State.Location)
	assert.True(t, result.State.Quantity.Equal(decimal.NewFromInt(100)))

	// First placement seeded the quality ledger.
	latest, err := qualityRepo.LatestByLabel(ctx, []string{"LBL-0001"})
	require.NoError(t, err)
	require.Contains(t, latest, "LBL-0001")
	assert.Equal(t, domain.StatusQuarantine, latest["LBL-0001"].Status)

	// Partial pick.
	qty := decimal.NewFromInt(25)
	containers := 1
	state, err := svc.Pick(ctx, service.PickInput{
		LabelID: "LBL-0001", Location: "WH1-R01",
		Quantity: &qty, Containers: &containers, Reason: "QC_SAMPLING",
	})
	require.NoError(t, err)
	assert.True(t, state.Quantity.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, 3, state.Containers)

	// Relocation by re-scan at another spot.
	result, err = svc.PutAway(ctx, service.PutAwayInput{
		LabelID: "LBL-0001", Location: "WH2-R05", Reason: "INTER_TRANSFER",
	})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, domain.EventTransfer, result.Events[0].Type)
	assert.Equal(t, "WH2-R05", result.State.Location)

	// The projection table tracked every write.
	projected, err := projectionRepo.GetByLabel(ctx, "LBL-0001")
	require.NoError(t, err)
	require.NotNil(t, projected)
	assert.Equal(t, "WH2-R05", projected.Location)
	assert.True(t, projected.Quantity.Equal(decimal.NewFromInt(75)))

	// Empty out.
	state, err = svc.MoveOut(ctx, service.MoveOutInput{
		LabelID: "LBL-0001", Reason: "DISPOSAL",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOut, state.Status)
	assert.True(t, state.Quantity.IsZero())

	projected, err = projectionRepo.GetByLabel(ctx, "LBL-0001")
	require.NoError(t, err)
	require.NotNil(t, projected)
	assert.Equal(t, domain.StatusOut, projected.Status)

	// The ledger kept the full trail in order.
	trail, err := movementRepo.ListByLabel(ctx, "LBL-0001")
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, domain.EventPutAway, trail[0].Type)
	assert.Equal(t, domain.EventConsume, trail[1].Type)
	assert.Equal(t, domain.EventTransfer, trail[2].Type)
	assert.Equal(t, domain.EventEmptyOut, trail[3].Type)
}

func TestLabelIDsTouchingLocation_Postgres(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	movementRepo := repository.NewMovementRepository(db)

	loc1, loc2 := "WH1-R01", "WH2-R05"
	appendEvent := func(labelID string, typ domain.EventType, from, to *string) {
		_, err := movementRepo.Append(ctx, &domain.MovementEvent{
			LabelID:      labelID,
			Type:         typ,
			FromLocation: from,
			ToLocation:   to,
			Reason:       "GRN_RECEIPT",
			ActorID:      "op-1",
			OccurredAt:   time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	appendEvent("LBL-0001", domain.EventPutAway, nil, &loc1)
	appendEvent("LBL-0002", domain.EventPutAway, nil, &loc2)
	appendEvent("LBL-0002", domain.EventTransfer, &loc2, &loc1)

	ids, err := movementRepo.LabelIDsTouchingLocation(ctx, loc1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"LBL-0001", "LBL-0002"}, ids)

	all, err := movementRepo.DistinctLabelIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"LBL-0001", "LBL-0002"}, all)
}
