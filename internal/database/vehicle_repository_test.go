package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*SQLDB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	cleanup := func() {
		db.Close()
	}

	return &SQLDB{DB: sqlxDB}, mock, cleanup
}

func TestVehicleRepository_GetByVehicleNumber(t *testing.T) {
	columns := []string{"waybill_id", "service_type", "vehicle_no", "schedule_no", "last_updated", "duty_date"}

	t.Run("Success", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewVehicleRepository(db)

		updated := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
		duty := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM vehicle_tracking WHERE vehicle_no = \\$1").
			WithArgs("TN01AB1234").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("WB-1", "RAIL", "TN01AB1234", "S-12", updated, duty))

		record, err := repo.GetByVehicleNumber(context.Background(), "TN01AB1234")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "WB-1", record.WaybillID)
		assert.Equal(t, "RAIL", record.ServiceType, "raw service type is stored")
		assert.Equal(t, "S-12", record.ScheduleNo)
		require.NotNil(t, record.LastUpdated)
		assert.True(t, updated.Equal(*record.LastUpdated))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Null timestamps", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewVehicleRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM vehicle_tracking").
			WithArgs("V2").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("WB-2", "BUS", "V2", "S-1", nil, nil))

		record, err := repo.GetByVehicleNumber(context.Background(), "V2")
		require.NoError(t, err)
		assert.Nil(t, record.LastUpdated)
		assert.Nil(t, record.DutyDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewVehicleRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM vehicle_tracking").
			WithArgs("UNKNOWN").
			WillReturnRows(sqlmock.NewRows(columns))

		record, err := repo.GetByVehicleNumber(context.Background(), "UNKNOWN")
		assert.NoError(t, err)
		assert.Nil(t, record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewVehicleRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM vehicle_tracking").
			WithArgs("V3").
			WillReturnError(errors.New("connection reset"))

		record, err := repo.GetByVehicleNumber(context.Background(), "V3")
		assert.Error(t, err)
		assert.Nil(t, record)
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
