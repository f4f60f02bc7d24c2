package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// JobRepository handles best-effort background job persistence
type JobRepository struct {
	db *database.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *database.DB) *JobRepository {
	return &JobRepository{db: db}
}

// EnqueueTx inserts a pending job inside the provisioning transaction so a
// rolled-back provision never leaves a dangling job.
func (r *JobRepository) EnqueueTx(ctx context.Context, tx *sqlx.Tx, job *domain.BackgroundJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = domain.JobPending
	}

	query := `
		INSERT INTO background_jobs (id, kind, tenant_id, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return tx.QueryRowxContext(ctx, query,
		job.ID,
		job.Kind,
		job.TenantID,
		job.Payload,
		job.Status,
	).Scan(&job.CreatedAt)
}

// GetByID retrieves a job, or (nil, nil) when absent.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.BackgroundJob, error) {
	var job domain.BackgroundJob
	query := `
		SELECT id, kind, tenant_id, payload, status, attempts, last_error, created_at, completed_at
		FROM background_jobs
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &job, nil
}

// MarkDone records successful completion.
func (r *JobRepository) MarkDone(ctx context.Context, id string) error {
	query := `
		UPDATE background_jobs
		SET status = $2, attempts = attempts + 1, completed_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, domain.JobDone)
	return err
}

// MarkFailed records a failed attempt with the error message. Jobs are
// best-effort: failures are recorded, never retried synchronously.
func (r *JobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE background_jobs
		SET status = $2, attempts = attempts + 1, last_error = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, domain.JobFailed, errMsg)
	return err
}
