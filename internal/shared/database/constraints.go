package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds database constraints that AutoMigrate cannot
// express. These back the concurrency guarantees of the booking path.
func MigrateConstraints(db *gorm.DB) error {
	// Capacity enforcement: promoting a seat to reserved/booked when the
	// event is already full must fail inside the promoting transaction.
	err := db.Exec(`
		CREATE OR REPLACE FUNCTION enforce_event_capacity() RETURNS trigger AS $$
		DECLARE
			event_capacity integer;
			taken_count integer;
		BEGIN
			IF NEW.status IN ('reserved', 'booked') AND OLD.status = 'available' THEN
				SELECT capacity INTO event_capacity FROM events WHERE id = NEW.event_id;
				SELECT COUNT(*) INTO taken_count FROM seats
					WHERE event_id = NEW.event_id AND status <> 'available' AND id <> NEW.id;
				IF taken_count >= event_capacity THEN
					RAISE EXCEPTION 'event % is at capacity', NEW.event_id;
				END IF;
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
	`).Error
	if err != nil {
		return err
	}

	err = db.Exec(`
		DROP TRIGGER IF EXISTS trg_enforce_event_capacity ON seats;
		CREATE TRIGGER trg_enforce_event_capacity
			BEFORE UPDATE OF status ON seats
			FOR EACH ROW EXECUTE FUNCTION enforce_event_capacity();
	`).Error
	if err != nil {
		return err
	}

	// Status/timestamp consistency on bookings.
	err = db.Exec(`
		DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT chk_booking_confirmed_at
				CHECK (status <> 'confirmed' OR confirmed_at IS NOT NULL);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;
	`).Error
	if err != nil {
		return err
	}

	err = db.Exec(`
		DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT chk_booking_cancelled_at
				CHECK (status <> 'cancelled' OR cancelled_at IS NOT NULL);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;
	`).Error
	if err != nil {
		return err
	}

	err = db.Exec(`
		DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT chk_booking_total_positive
				CHECK (total_amount > 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;
	`).Error
	if err != nil {
		return err
	}

	// Index for the booking list path (newest first per user).
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_user_created
			ON bookings (user_id, created_at DESC);
	`).Error
	if err != nil {
		return err
	}

	// Index for seat availability scans per event.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seats_event_status
			ON seats (event_id, status);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
