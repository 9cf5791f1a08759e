package postgres

const schema = `
CREATE TABLE IF NOT EXISTS time_slots (
	id           SERIAL PRIMARY KEY,
	slot_date    DATE NOT NULL,
	slot_time    TIME NOT NULL,
	is_available BOOLEAN NOT NULL DEFAULT true,
	UNIQUE (slot_date, slot_time)
);

CREATE TABLE IF NOT EXISTS bookings (
	id             SERIAL PRIMARY KEY,
	slot_id        INTEGER NOT NULL REFERENCES time_slots(id),
	client_name    VARCHAR(100) NOT NULL,
	client_contact VARCHAR(100) NOT NULL,
	booking_type   VARCHAR(32) NOT NULL,
	comment        TEXT NOT NULL DEFAULT '',
	payment_status VARCHAR(32) NOT NULL DEFAULT 'pending',
	receipt_url    TEXT,
	telegram_sent  BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS bookings_created_at_idx ON bookings (created_at DESC);

CREATE TABLE IF NOT EXISTS booking_photos (
	id         SERIAL PRIMARY KEY,
	booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	photo_url  TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS admin_sessions (
	id         SERIAL PRIMARY KEY,
	token      VARCHAR(64) UNIQUE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);
`
