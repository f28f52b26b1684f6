// Package store persists measurements in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"oxylog/internal/domain"
)

// timeLayout keeps timestamps lexicographically sortable in TEXT columns.
const timeLayout = time.RFC3339

// Store implements domain.MeasurementStore backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// New opens (or creates) a SQLite database at dbPath and runs migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %v", domain.ErrStoreFailure, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrStoreFailure, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	// Pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrStoreFailure, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreFailure, err)
	}

	return &Store{db: db, logger: logger, dbPath: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a measurement. A row with the same identity keeps its
// original id and received_at but picks up pulse-rate data that may have
// arrived on a later sync.
func (s *Store) Save(ctx context.Context, m domain.Measurement) error {
	if m.ID == "" {
		m.ID = domain.NewMeasurementID()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}

	raw, err := json.Marshal(m.Raw)
	if err != nil {
		return fmt.Errorf("%w: marshal raw: %v", domain.ErrStoreFailure, err)
	}

	var pulseMax, pulseMin, pulseAvg sql.NullInt64
	if m.PulseRate != nil {
		pulseMax = sql.NullInt64{Int64: int64(m.PulseRate.Max), Valid: true}
		pulseMin = sql.NullInt64{Int64: int64(m.PulseRate.Min), Valid: true}
		pulseAvg = sql.NullInt64{Int64: int64(m.PulseRate.Avg), Valid: true}
	}

	const q = `
		INSERT INTO measurements (
			id, device_address, seq, started_at, finished_at,
			spo2_max, spo2_min, spo2_avg,
			pulse_max, pulse_min, pulse_avg,
			received_at, raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_address, seq, finished_at) DO UPDATE SET
			pulse_max = COALESCE(excluded.pulse_max, pulse_max),
			pulse_min = COALESCE(excluded.pulse_min, pulse_min),
			pulse_avg = COALESCE(excluded.pulse_avg, pulse_avg),
			raw       = excluded.raw
	`
	_, err = s.db.ExecContext(ctx, q,
		m.ID, m.DeviceAddress, m.Seq,
		m.StartedAt.Format(timeLayout), m.FinishedAt.Format(timeLayout),
		m.SpO2.Max, m.SpO2.Min, m.SpO2.Avg,
		pulseMax, pulseMin, pulseAvg,
		m.ReceivedAt.Format(timeLayout), string(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: save: %v", domain.ErrStoreFailure, err)
	}
	return nil
}

const selectColumns = `
	id, device_address, seq, started_at, finished_at,
	spo2_max, spo2_min, spo2_avg,
	pulse_max, pulse_min, pulse_avg,
	received_at, raw
`

// Latest returns the measurement with the greatest finished-at time, or
// domain.ErrNoMeasurements when the store (or the device filter) is empty.
func (s *Store) Latest(ctx context.Context, device string) (*domain.Measurement, error) {
	q := `SELECT ` + selectColumns + ` FROM measurements`
	args := []any{}
	if device != "" {
		q += ` WHERE device_address = ?`
		args = append(args, device)
	}
	q += ` ORDER BY finished_at DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, q, args...)
	m, err := scanMeasurement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("store.latest", domain.ErrNoMeasurements, device)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest: %v", domain.ErrStoreFailure, err)
	}
	return &m, nil
}

// List returns measurements ordered newest first.
func (s *Store) List(ctx context.Context, device string, limit int) ([]domain.Measurement, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + selectColumns + ` FROM measurements`
	args := []any{}
	if device != "" {
		q += ` WHERE device_address = ?`
		args = append(args, device)
	}
	q += ` ORDER BY finished_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", domain.ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []domain.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreFailure, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrStoreFailure, err)
	}
	return out, nil
}

// Count returns the total number of stored measurements.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrStoreFailure, err)
	}
	return n, nil
}

// DeleteOlderThan removes measurements finished before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM measurements WHERE finished_at < ?`, cutoff.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("%w: delete: %v", domain.ErrStoreFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrStoreFailure, err)
	}
	if n > 0 {
		s.logger.Info("retention pruned measurements", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row rowScanner) (domain.Measurement, error) {
	var (
		m                             domain.Measurement
		startedAt, finishedAt, recvAt string
		pulseMax, pulseMin, pulseAvg  sql.NullInt64
		raw                           string
	)

	err := row.Scan(
		&m.ID, &m.DeviceAddress, &m.Seq, &startedAt, &finishedAt,
		&m.SpO2.Max, &m.SpO2.Min, &m.SpO2.Avg,
		&pulseMax, &pulseMin, &pulseAvg,
		&recvAt, &raw,
	)
	if err != nil {
		return m, err
	}

	if m.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return m, err
	}
	if m.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return m, err
	}
	if m.ReceivedAt, err = time.Parse(timeLayout, recvAt); err != nil {
		return m, err
	}

	if pulseMax.Valid && pulseMin.Valid && pulseAvg.Valid {
		m.PulseRate = &domain.TriValue{
			Max: uint8(pulseMax.Int64),
			Min: uint8(pulseMin.Int64),
			Avg: uint8(pulseAvg.Int64),
		}
	}

	if err := json.Unmarshal([]byte(raw), &m.Raw); err != nil {
		return m, err
	}
	return m, nil
}
