package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

// Job is one row of extraction_job.
type Job struct {
	ID           uuid.UUID
	Filename     string
	DocType      constants.DocumentType
	Status       constants.JobStatus
	Strategy     string
	NumPages     int
	ResultJSON   []byte
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

type JobRepository struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewJobRepository(db *DB, log *slog.Logger) *JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &JobRepository{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Start inserts a RUNNING job and returns its id.
func (r *JobRepository) Start(ctx context.Context, filename string, docType constants.DocumentType) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extraction_job (id, filename, doc_type, status, started_at) VALUES (?, ?, ?, ?, ?)`),
		id.String(), filename, string(docType), string(constants.JobStatusRunning), r.now())
	if err != nil {
		r.log.Error("extraction_job start failed", "filename", filename, "err", err)
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.log.Info("extraction_job started", "job_id", id, "filename", filename, "doc_type", docType)
	return id, nil
}

// FinishSuccess stores the response body of a processed document.
func (r *JobRepository) FinishSuccess(ctx context.Context, id uuid.UUID, status constants.JobStatus, strategy string, numPages int, result []byte) error {
	err := r.finish(ctx, id,
		`UPDATE extraction_job SET status = ?, strategy = ?, num_pages = ?, result_json = ?, finished_at = ? WHERE id = ?`,
		string(status), nullString(strategy), numPages, string(result), r.now(), id.String())
	if err != nil {
		r.log.Error("extraction_job finish(OK) failed", "job_id", id, "err", err)
		return err
	}
	r.log.Info("extraction_job finished", "job_id", id, "status", status, "pages", numPages)
	return nil
}

// FinishFailure stores the message of a document that produced no response.
func (r *JobRepository) FinishFailure(ctx context.Context, id uuid.UUID, status constants.JobStatus, message string) error {
	err := r.finish(ctx, id,
		`UPDATE extraction_job SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), message, r.now(), id.String())
	if err != nil {
		r.log.Error("extraction_job finish(FAILED) failed", "job_id", id, "err", err)
		return err
	}
	r.log.Warn("extraction_job finished", "job_id", id, "status", status, "error", message)
	return nil
}

func (r *JobRepository) finish(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return nil
}

const jobColumns = `id, filename, doc_type, status, strategy, num_pages, result_json, error_message, started_at, finished_at`

// Get loads one job.
func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`SELECT `+jobColumns+` FROM extraction_job WHERE id = ?`), id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return job, nil
}

// List returns the most recent jobs, optionally filtered by document type.
func (r *JobRepository) List(ctx context.Context, docType constants.DocumentType, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM extraction_job`
	var args []any
	if docType != "" {
		query += ` WHERE doc_type = ?`
		args = append(args, string(docType))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		id, docType, status string
		strategy, result    sql.NullString
		errMsg              sql.NullString
		finished            sql.NullTime
		job                 Job
	)
	if err := s.Scan(&id, &job.Filename, &docType, &status, &strategy, &job.NumPages, &result, &errMsg, &job.StartedAt, &finished); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", id, err)
	}
	job.ID = parsed
	job.DocType = constants.DocumentType(docType)
	job.Status = constants.JobStatus(status)
	job.Strategy = strategy.String
	job.ErrorMessage = errMsg.String
	if result.Valid {
		job.ResultJSON = []byte(result.String)
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
