package store

import (
	"database/sql"
	"time"
)

// IngestRun represents a single provider fetch for auditing.
type IngestRun struct {
	ID                int64
	TickID            string
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Source            string // "aviationweather"
	Endpoint          string // "metar", "taf"
	StationID         string
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	Outcome           sql.NullString // "rendered", "no_data", "fetch_error", "parse_error", "sink_error"
	QualityFlags      sql.NullString // JSON array of report quality flags
	Success           bool
	ErrorMessage      sql.NullString
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(tickID, source, endpoint, stationID string) (*IngestRun, error) {
	run := &IngestRun{
		TickID:    tickID,
		StartedAt: s.now(),
		Source:    source,
		Endpoint:  endpoint,
		StationID: stationID,
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (tick_id, started_at, source, endpoint, station_id, success)
		VALUES (?, ?, ?, ?, ?, FALSE)
	`, run.TickID, run.StartedAt, run.Source, run.Endpoint, run.StationID)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: s.now(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			outcome = ?,
			quality_flags = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.Outcome,
		run.QualityFlags, run.Success, run.ErrorMessage, run.ID)
	return err
}

// IngestHealthSummary represents a daily ingest health summary.
type IngestHealthSummary struct {
	Date        string `json:"date"`
	Endpoint    string `json:"endpoint"`
	TotalRuns   int    `json:"total_runs"`
	SuccessRuns int    `json:"success_runs"`
	FailedRuns  int    `json:"failed_runs"`
}

// GetIngestHealth returns per-day, per-endpoint run counts since the given time.
func (s *Store) GetIngestHealth(since time.Time) ([]IngestHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			SUBSTR(started_at, 1, 10) as date,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs
		FROM ingest_runs
		WHERE started_at >= ?
		GROUP BY date, endpoint
		ORDER BY date DESC, endpoint
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestHealthSummary
	for rows.Next() {
		var h IngestHealthSummary
		if err := rows.Scan(&h.Date, &h.Endpoint, &h.TotalRuns, &h.SuccessRuns, &h.FailedRuns); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentIngestErrors returns recent failed ingest runs.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	return s.queryIngestRuns(`WHERE success = FALSE AND finished_at IS NOT NULL`, limit)
}

// GetRecentIngestRuns returns the latest ingest runs, newest first.
func (s *Store) GetRecentIngestRuns(limit int) ([]IngestRun, error) {
	return s.queryIngestRuns(``, limit)
}

func (s *Store) queryIngestRuns(where string, limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, tick_id, started_at, finished_at, source, endpoint, station_id,
			   http_status, response_size_bytes, outcome, quality_flags, success, error_message
		FROM ingest_runs
		`+where+`
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.TickID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Endpoint,
			&r.StationID, &r.HTTPStatus, &r.ResponseSizeBytes, &r.Outcome, &r.QualityFlags, &r.Success,
			&r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
