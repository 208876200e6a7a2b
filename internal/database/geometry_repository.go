package database

import (
	"context"
	"fmt"

	"github.com/smarttransit/network-index/internal/models"
)

// GeometryRepository reads stop geometry and gate metadata
type GeometryRepository struct {
	db DB
}

// NewGeometryRepository creates a new GeometryRepository
func NewGeometryRepository(db DB) *GeometryRepository {
	return &GeometryRepository{db: db}
}

// ListStopGeometries returns every stop geometry row
func (r *GeometryRepository) ListStopGeometries(ctx context.Context) ([]models.StopGeometry, error) {
	query := `
		SELECT stop_code, gtfs_id, geo_json, COALESCE(gates, '') AS gates
		FROM stop_geometry
		ORDER BY stop_code
	`

	rows := []models.StopGeometry{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list stop geometries: %w", err)
	}

	return rows, nil
}
