package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS venues (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'EUR',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	booking_number BIGINT GENERATED ALWAYS AS IDENTITY (START WITH 1001) UNIQUE,
	client_name TEXT NOT NULL,
	client_email TEXT,
	client_phone TEXT,
	venue_id TEXT NOT NULL REFERENCES venues(id),
	booking_date TEXT NOT NULL,
	booking_time TEXT NOT NULL,
	total_price NUMERIC(12,2) NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'EUR',
	status TEXT NOT NULL DEFAULT 'pending',
	therapist_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS booking_proposed_slots (
	id TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL REFERENCES bookings(id),
	date_1 TEXT NOT NULL,
	time_1 TEXT NOT NULL,
	date_2 TEXT,
	time_2 TEXT,
	validated_slot SMALLINT CHECK (validated_slot IN (1, 2)),
	expires_at TIMESTAMPTZ NOT NULL,
	admin_notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_bookings_venue ON bookings(venue_id);
CREATE INDEX IF NOT EXISTS idx_proposed_slots_sweep ON booking_proposed_slots(expires_at)
	WHERE validated_slot IS NULL AND admin_notified_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_proposed_slots_booking ON booking_proposed_slots(booking_id);
CREATE INDEX IF NOT EXISTS idx_proposed_slots_created ON booking_proposed_slots(created_at);
`

// Migrate creates the schema if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}
