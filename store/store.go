package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	logalign "github.com/lucasjlepore/logalign"
	"github.com/lucasjlepore/logalign/pipeline"
)

// Store persists formatted datasets in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS logalign;

CREATE TABLE IF NOT EXISTS logalign.runs (
    run_id        text PRIMARY KEY,
    source_name   text NOT NULL,
    label         text NOT NULL DEFAULT '',
    sensors       text[] NOT NULL,
    frequency_hz  double precision NOT NULL,
    window_start  double precision,
    window_stop   double precision,
    columns       text[],
    warnings      text[],
    created_at    timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS logalign.inertial_samples (
    run_id  text NOT NULL REFERENCES logalign.runs(run_id) ON DELETE CASCADE,
    ts      double precision NOT NULL,
    channel_values  double precision[] NOT NULL
);
CREATE INDEX IF NOT EXISTS inertial_samples_run_ts_idx ON logalign.inertial_samples (run_id, ts);

CREATE TABLE IF NOT EXISTS logalign.radio_observations (
    run_id      text NOT NULL REFERENCES logalign.runs(run_id) ON DELETE CASCADE,
    kind        text NOT NULL,
    ts          double precision NOT NULL,
    identifier  text NOT NULL,
    rssi        smallint NOT NULL
);
CREATE INDEX IF NOT EXISTS radio_observations_run_idx ON logalign.radio_observations (run_id, kind);
`

// EnsureSchema creates the logalign tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertRunSQL = `
INSERT INTO logalign.runs (run_id, source_name, label, sensors, frequency_hz, window_start, window_stop, columns, warnings)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

// Save writes the run row and bulk-loads its samples in one transaction.
func (s *Store) Save(ctx context.Context, ds *pipeline.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sensors := make([]string, 0, len(ds.Config.InertialSensors))
	for _, k := range ds.Config.InertialSensors {
		sensors = append(sensors, string(k))
	}
	var start, stop *float64
	var columns []string
	if t := ds.Inertial; t != nil {
		start, stop = &t.Start, &t.Stop
		columns = t.Columns
	}
	if _, err := tx.Exec(ctx, insertRunSQL,
		ds.RunID, ds.SourceName, ds.Label, sensors, ds.Config.FrequencyHz,
		start, stop, columns, ds.Warnings,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if t := ds.Inertial; t != nil && t.Len() > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"logalign", "inertial_samples"},
			[]string{"run_id", "ts", "channel_values"},
			pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
				return []any{ds.RunID, t.Timestamps[i], t.Values[i]}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy inertial samples: %w", err)
		}
	}

	radio := append(radioRows(ds.RunID, ds.BLE), radioRows(ds.RunID, ds.WiFi)...)
	if len(radio) > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"logalign", "radio_observations"},
			[]string{"run_id", "kind", "ts", "identifier", "rssi"},
			pgx.CopyFromRows(radio),
		)
		if err != nil {
			return fmt.Errorf("copy radio observations: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func radioRows(runID string, t *logalign.RadioTable) [][]any {
	if t == nil {
		return nil
	}
	rows := make([][]any, 0, t.Len())
	for i := range t.Unix {
		rows = append(rows, []any{runID, string(t.Kind), t.Unix[i], t.Identifiers[i], int16(t.RSSI[i])})
	}
	return rows
}

// RunSummary is one stored run.
type RunSummary struct {
	RunID        string   `json:"run_id"`
	SourceName   string   `json:"source_name"`
	Label        string   `json:"label"`
	Sensors      []string `json:"sensors"`
	FrequencyHz  float64  `json:"frequency_hz"`
	InertialRows int64    `json:"inertial_rows"`
	RadioRows    int64    `json:"radio_rows"`
}

const loadRunSQL = `
SELECT r.run_id, r.source_name, r.label, r.sensors, r.frequency_hz,
       (SELECT COUNT(*) FROM logalign.inertial_samples i WHERE i.run_id = r.run_id),
       (SELECT COUNT(*) FROM logalign.radio_observations o WHERE o.run_id = r.run_id)
FROM logalign.runs r
WHERE r.run_id = $1`

// LoadRun returns the stored summary for runID.
func (s *Store) LoadRun(ctx context.Context, runID string) (*RunSummary, error) {
	var out RunSummary
	err := s.pool.QueryRow(ctx, loadRunSQL, runID).Scan(
		&out.RunID,
		&out.SourceName,
		&out.Label,
		&out.Sensors,
		&out.FrequencyHz,
		&out.InertialRows,
		&out.RadioRows,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var _ pipeline.Sink = (*Store)(nil)
