package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smarttransit/network-index/internal/models"
)

// VehicleRepository reads live vehicle tracking records
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByVehicleNumber returns the most recently updated record for a vehicle.
// Returns nil, nil when the vehicle is not tracked.
func (r *VehicleRepository) GetByVehicleNumber(ctx context.Context, vehicleNo string) (*models.LiveVehicleRecord, error) {
	query := `
		SELECT waybill_id, service_type, vehicle_no, schedule_no, last_updated, duty_date
		FROM vehicle_tracking
		WHERE vehicle_no = $1
		ORDER BY last_updated DESC NULLS LAST
		LIMIT 1
	`

	var record models.LiveVehicleRecord
	err := r.db.GetContext(ctx, &record, query, vehicleNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle %s: %w", vehicleNo, err)
	}

	return &record, nil
}
