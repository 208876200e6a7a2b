package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/network"
	"github.com/smarttransit/network-index/pkg/normalize"
)

// VehicleStore looks up live vehicle records
type VehicleStore interface {
	GetByVehicleNumber(ctx context.Context, vehicleNo string) (*models.LiveVehicleRecord, error)
}

// VehicleService joins live tracking records with the published network
type VehicleService struct {
	store  VehicleStore
	logger *logrus.Logger
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(store VehicleStore, logger *logrus.Logger) *VehicleService {
	return &VehicleService{
		store:  store,
		logger: logger,
	}
}

// GetServiceType returns the vehicle's live record with its service type normalized
func (s *VehicleService) GetServiceType(ctx context.Context, vehicleNo string) (*models.VehicleServiceTypeResponse, error) {
	record, err := s.lookup(ctx, vehicleNo)
	if err != nil {
		return nil, err
	}

	response := &models.VehicleServiceTypeResponse{
		VehicleNo:   record.VehicleNo,
		ServiceType: normalize.NormalizeVehicleType(record.ServiceType),
		LastUpdated: record.LastUpdated,
	}
	if record.WaybillID != "" {
		response.WaybillID = &record.WaybillID
	}
	if record.ScheduleNo != "" {
		response.ScheduleNo = &record.ScheduleNo
	}

	return response, nil
}

// ResolveRoute correlates the vehicle with a route of the feed in the given snapshot.
// Zero or several candidate routes are reported in the result, not as errors.
func (s *VehicleService) ResolveRoute(
	ctx context.Context,
	snapshot *network.Snapshot,
	feedID string,
	vehicleNo string,
) (*network.VehicleRouteMatch, error) {
	record, err := s.lookup(ctx, vehicleNo)
	if err != nil {
		return nil, err
	}

	match := snapshot.ResolveVehicleRoute(*record, feedID)

	s.logger.WithFields(logrus.Fields{
		"vehicle_no":   record.VehicleNo,
		"feed_id":      feedID,
		"service_type": record.ServiceType,
		"status":       match.Status,
		"candidates":   len(match.Candidates),
	}).Debug("Resolved vehicle route")

	return &match, nil
}

func (s *VehicleService) lookup(ctx context.Context, vehicleNo string) (*models.LiveVehicleRecord, error) {
	vehicleNo = strings.TrimSpace(vehicleNo)
	if vehicleNo == "" {
		return nil, models.NewRequestValidationError("vehicle number is required")
	}

	record, err := s.store.GetByVehicleNumber(ctx, vehicleNo)
	if err != nil {
		s.logger.WithError(err).WithField("vehicle_no", vehicleNo).Error("Failed to fetch vehicle record")
		return nil, models.NewDatabaseError("fetch vehicle record", err)
	}
	if record == nil {
		return nil, models.NewNotFoundError("Vehicle", vehicleNo)
	}

	return record, nil
}
