package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/packing.report/internal/results"
)

const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

// isSQLiteBusy reports whether err is a transient lock error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with linear backoff while SQLite reports
// the database as locked.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * busyBackoff)
	}
	return err
}

// Record persists a completed run. It satisfies lab.Recorder. A missing
// RunID is filled with a fresh UUID and a zero Created with the current time.
func (db *DB) Record(r *results.Result) error {
	if r == nil {
		return errors.New("nil result")
	}
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.Created.IsZero() {
		r.Created = time.Now()
	}

	err := retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO experiment_runs (
				run_id, sweep_id, experiment_index,
				packing_density, big_percentage, small_percentage,
				container_big_ratio, big_small_ratio, expected_small_fraction,
				big_count, small_count, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.SweepID, r.Index,
			r.PackingDensity, r.BigPercentage, r.SmallPercentage,
			r.ContainerBigRatio, r.BigSmallRatio, r.ExpectedSmallFraction,
			r.BigCount, r.SmallCount, r.Created.UnixNano(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}
	return nil
}

// ListResults returns every stored run in insertion order.
func (db *DB) ListResults() ([]results.Result, error) {
	return db.queryResults(`WHERE 1 = 1`)
}

// ListSweep returns the runs recorded under sweepID in insertion order.
func (db *DB) ListSweep(sweepID string) ([]results.Result, error) {
	return db.queryResults(`WHERE sweep_id = ?`, sweepID)
}

func (db *DB) queryResults(where string, args ...any) ([]results.Result, error) {
	rows, err := db.Query(`
		SELECT run_id, sweep_id, experiment_index,
			packing_density, big_percentage, small_percentage,
			container_big_ratio, big_small_ratio, expected_small_fraction,
			big_count, small_count, created_at
		FROM experiment_runs `+where+`
		ORDER BY created_at, experiment_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []results.Result
	for rows.Next() {
		var (
			r       results.Result
			created int64
		)
		if err := rows.Scan(
			&r.RunID, &r.SweepID, &r.Index,
			&r.PackingDensity, &r.BigPercentage, &r.SmallPercentage,
			&r.ContainerBigRatio, &r.BigSmallRatio, &r.ExpectedSmallFraction,
			&r.BigCount, &r.SmallCount, &created,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Created = time.Unix(0, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteAll removes every stored run and returns how many were removed.
func (db *DB) DeleteAll() (int64, error) {
	var n int64
	err := retryOnBusy(func() error {
		res, err := db.Exec(`DELETE FROM experiment_runs`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return n, nil
}
