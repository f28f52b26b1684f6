package store

import "database/sql"

// migrate creates the schema if it doesn't exist.
//
// The UNIQUE constraint on (device_address, seq, finished_at) is the
// measurement identity: the device re-sends its whole history on every
// sync, and the upsert in Save keeps re-syncs idempotent.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS measurements (
			id             TEXT PRIMARY KEY,
			device_address TEXT NOT NULL,
			seq            INTEGER NOT NULL,
			started_at     TEXT NOT NULL,
			finished_at    TEXT NOT NULL,
			spo2_max       INTEGER NOT NULL,
			spo2_min       INTEGER NOT NULL,
			spo2_avg       INTEGER NOT NULL,
			pulse_max      INTEGER,
			pulse_min      INTEGER,
			pulse_avg      INTEGER,
			received_at    TEXT NOT NULL,
			raw            TEXT NOT NULL DEFAULT '[]',
			UNIQUE (device_address, seq, finished_at)
		);

		CREATE INDEX IF NOT EXISTS idx_measurements_finished
			ON measurements (finished_at DESC);

		CREATE INDEX IF NOT EXISTS idx_measurements_device
			ON measurements (device_address, finished_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}
