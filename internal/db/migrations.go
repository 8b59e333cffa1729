package db

import (
	"fmt"

	"gorm.io/gorm"
)

// The trip/behaviour tables are owned by the ingestion side; this service
// only adds the indexes its aggregation queries lean on, guarded so a
// fresh environment without the tables still boots.
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'trips') THEN
			CREATE INDEX IF NOT EXISTS idx_trips_driver_start ON trips (driver_profile_id, start_date);
			CREATE INDEX IF NOT EXISTS idx_trips_start_time ON trips (start_time);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'unsafe_behaviours') THEN
			CREATE INDEX IF NOT EXISTS idx_unsafe_behaviours_trip ON unsafe_behaviours (trip_id);
			CREATE INDEX IF NOT EXISTS idx_unsafe_behaviours_driver ON unsafe_behaviours (driver_profile_id);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'raw_sensor_data') THEN
			CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_trip ON raw_sensor_data (trip_id);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'locations') THEN
			CREATE INDEX IF NOT EXISTS idx_locations_raw_sensor ON locations (raw_sensor_data_id);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'fleet_driver_assignments') THEN
			CREATE INDEX IF NOT EXISTS idx_fleet_assignments_fleet ON fleet_driver_assignments (fleet_id) WHERE active;
			CREATE INDEX IF NOT EXISTS idx_fleet_assignments_driver ON fleet_driver_assignments (driver_profile_id) WHERE active;
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'insurance_partner_drivers') THEN
			CREATE INDEX IF NOT EXISTS idx_partner_drivers_partner ON insurance_partner_drivers (insurance_partner_id);
			CREATE INDEX IF NOT EXISTS idx_partner_drivers_driver ON insurance_partner_drivers (driver_profile_id);
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
