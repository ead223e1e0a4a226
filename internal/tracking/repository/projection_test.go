package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/repository"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
	"github.com/pharmtrace/pharmtrace-backend/pkg/testutil"
)

func newProjectionRepo(t *testing.T) (*repository.ProjectionRepository, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	repo := repository.NewProjectionRepository(database.NewFromDB(mockDB.DB, logger.New("test", "test")))
	return repo, mockDB
}

func TestProjectionGetByLabel(t *testing.T) {
	repo, mockDB := newProjectionRepo(t)

	placed := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"label_id", "location_code", "status", "quantity", "containers", "placed_at", "updated_at",
	}).AddRow("LBL-0001", "WH1-R01", "IN", "75", 3, placed, placed)

	mockDB.Mock.ExpectQuery("FROM label_location_state WHERE label_id").
		WithArgs("LBL-0001").
		WillReturnRows(rows)

	state, err := repo.GetByLabel(context.Background(), "LBL-0001")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, domain.StatusIn, state.Status)
	assert.Equal(t, "WH1-R01", state.Location)
	assert.Equal(t, 3, state.Containers)

	mockDB.ExpectationsWereMet(t)
}

func TestProjectionGetByLabel_NoRowMeansNoState(t *testing.T) {
	repo, mockDB := newProjectionRepo(t)

	mockDB.Mock.ExpectQuery("FROM label_location_state WHERE label_id").
		WithArgs("LBL-9999").
		WillReturnRows(sqlmock.NewRows([]string{
			"label_id", "location_code", "status", "quantity", "containers", "placed_at", "updated_at",
		}))

	state, err := repo.GetByLabel(context.Background(), "LBL-9999")
	require.NoError(t, err)
	assert.Nil(t, state)

	mockDB.ExpectationsWereMet(t)
}

func TestProjection_MissingTableSurfacesAsUnavailable(t *testing.T) {
	repo, mockDB := newProjectionRepo(t)

	mockDB.Mock.ExpectQuery("FROM label_location_state").
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "label_location_state" does not exist`})

	_, err := repo.ListAtLocation(context.Background(), "WH1-R01")
	require.Error(t, err)
	assert.True(t, errors.IsProjectionUnavailable(err))

	mockDB.ExpectationsWereMet(t)
}

func TestProjection_PermissionDeniedSurfacesAsUnavailable(t *testing.T) {
	repo, mockDB := newProjectionRepo(t)

	mockDB.Mock.ExpectQuery("FROM v_stock_full").
		WillReturnError(&pq.Error{Code: "42501", Message: "permission denied for view v_stock_full"})

	_, err := repo.ViewList(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsProjectionUnavailable(err))

	mockDB.ExpectationsWereMet(t)
}

func TestProjectionUpsert(t *testing.T) {
	repo, mockDB := newProjectionRepo(t)

	mockDB.Mock.ExpectExec("INSERT INTO label_location_state").
		WillReturnResult(sqlmock.NewResult(0, 1))

	placed := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	state := &domain.CurrentState{
		LabelID:    "LBL-0001",
		Status:     domain.StatusIn,
		Location:   "WH1-R01",
		Containers: 3,
		PlacedAt:   &placed,
		UpdatedAt:  placed,
	}

	require.NoError(t, repo.Upsert(context.Background(), state))
	mockDB.ExpectationsWereMet(t)
}
