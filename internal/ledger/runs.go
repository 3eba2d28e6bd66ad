package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// DownloadStatus records the outcome of one download attempt.
type DownloadStatus string

const (
	DownloadOK     DownloadStatus = "downloaded"
	DownloadFailed DownloadStatus = "failed"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("ledger: not found")

// Run is one fetch invocation.
type Run struct {
	ID          string
	Destination string
	Status      RunStatus
	StartedAt   time.Time
	FinishedAt  *time.Time
	Courses     int64
	Candidates  int64
	Downloaded  int64
	Failed      int64
	Bytes       int64
}

// Duration reports how long the run took, or how long it has been running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Download is one download attempt belonging to a run.
type Download struct {
	ID     int64
	RunID  string
	Path   string
	URL    string
	Bytes  int64
	Status DownloadStatus
	Error  string
}

// BeginRun records the start of a fetch into destination.
func (s *Store) BeginRun(ctx context.Context, destination string) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		Destination: destination,
		Status:      RunRunning,
		StartedAt:   time.Now().UTC(),
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, destination, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Destination, string(run.Status), run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's outcome and counters.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, courses = ?, candidates = ?,
		 downloaded = ?, failed = ?, bytes = ? WHERE id = ?`,
		string(run.Status), now.Format(time.RFC3339Nano),
		run.Courses, run.Candidates, run.Downloaded, run.Failed, run.Bytes, run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordDownload appends one download outcome to a run. A nil failure marks
// the row downloaded; anything else stores the message alongside.
func (s *Store) RecordDownload(ctx context.Context, runID, path, url string, bytes int64, failure error) error {
	status := DownloadOK
	var message any
	if failure != nil {
		status = DownloadFailed
		message = failure.Error()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO downloads (run_id, path, url, bytes, status, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, path, url, bytes, string(status), message,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

const runColumns = "id, destination, status, started_at, finished_at, courses, candidates, downloaded, failed, bytes"

// GetRun fetches one run by identifier.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunDownloads returns a run's download rows in insertion order.
func (s *Store) RunDownloads(ctx context.Context, runID string) ([]*Download, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, path, url, bytes, status, error_message
		 FROM downloads WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*Download
	for rows.Next() {
		var (
			d       Download
			status  string
			message sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.Path, &d.URL, &d.Bytes, &status, &message); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		d.Status = DownloadStatus(status)
		d.Error = message.String
		downloads = append(downloads, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return downloads, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		destination string
		statusStr   string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		courses     sql.NullInt64
		candidates  sql.NullInt64
		downloaded  sql.NullInt64
		failed      sql.NullInt64
		bytes       sql.NullInt64
	)
	if err := scanner.Scan(
		&id, &destination, &statusStr, &startedRaw, &finishedRaw,
		&courses, &candidates, &downloaded, &failed, &bytes,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:          id,
		Destination: destination,
		Status:      RunStatus(statusStr),
		Courses:     courses.Int64,
		Candidates:  candidates.Int64,
		Downloaded:  downloaded.Int64,
		Failed:      failed.Int64,
		Bytes:       bytes.Int64,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
