package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/domain"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

// LocationRepository resolves storage locations from master data.
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// GetByCode gets a location by its scannable code
func (r *LocationRepository) GetByCode(ctx context.Context, code string) (*domain.Location, error) {
	var loc domain.Location
	query := `
		SELECT code, name, area, department, sub_plant, plant, is_active
		FROM locations WHERE code = $1
	`
	if err := r.db.GetContext(ctx, &loc, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("location")
		}
		return nil, err
	}
	return &loc, nil
}

// List lists active locations matching the hierarchy filter, ordered by code
func (r *LocationRepository) List(ctx context.Context, filter *domain.LocationFilter) ([]*domain.Location, error) {
	query := `
		SELECT code, name, area, department, sub_plant, plant, is_active
		FROM locations WHERE is_active = true
	`
	args := []interface{}{}
	pos := 1

	if filter != nil {
		if filter.Plant != "" {
			query += fmt.Sprintf(" AND plant = $%d", pos)
			args = append(args, filter.Plant)
			pos++
		}
		if filter.SubPlant != "" {
			query += fmt.Sprintf(" AND sub_plant = $%d", pos)
			args = append(args, filter.SubPlant)
			pos++
		}
		if filter.Department != "" {
			query += fmt.Sprintf(" AND department = $%d", pos)
			args = append(args, filter.Department)
			pos++
		}
		if filter.Area != "" {
			query += fmt.Sprintf(" AND area = $%d", pos)
			args = append(args, filter.Area)
			pos++
		}
	}

	query += " ORDER BY code"

	var locations []*domain.Location
	if err := r.db.SelectContext(ctx, &locations, query, args...); err != nil {
		return nil, err
	}
	return locations, nil
}

// GetMany fetches several locations keyed by code.
func (r *LocationRepository) GetMany(ctx context.Context, codes []string) (map[string]*domain.Location, error) {
	result := make(map[string]*domain.Location, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	query := `
		SELECT code, name, area, department, sub_plant, plant, is_active
		FROM locations WHERE code = ANY($1)
	`
	var locations []*domain.Location
	if err := r.db.SelectContext(ctx, &locations, query, pq.Array(codes)); err != nil {
		return nil, err
	}
	for _, l := range locations {
		result[l.Code] = l
	}
	return result, nil
}
