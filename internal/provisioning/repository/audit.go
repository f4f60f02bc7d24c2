package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// AuditRepository handles audit log persistence
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry. Entries are append-only.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Severity == "" {
		log.Severity = domain.AuditSeverityInfo
	}

	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, actor_email, action, resource_type, resource_id, outcome, severity, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		log.ID,
		log.ActorID,
		log.ActorEmail,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.Outcome,
		log.Severity,
		detailsJSON,
		log.IPAddress,
	).Scan(&log.CreatedAt)
}

// ListFilter contains filter options for audit logs
type ListFilter struct {
	ActorID    string
	Action     string
	ResourceID string
}

// List lists audit logs with pagination and filtering, newest first.
func (r *AuditRepository) List(ctx context.Context, filter *ListFilter, page, perPage int) ([]*domain.AuditLog, int64, error) {
	args := []interface{}{}
	where := ` WHERE 1=1`

	if filter != nil {
		if filter.ActorID != "" {
			args = append(args, filter.ActorID)
			where += ` AND actor_id = $` + strconv.Itoa(len(args))
		}
		if filter.Action != "" {
			args = append(args, filter.Action)
			where += ` AND action = $` + strconv.Itoa(len(args))
		}
		if filter.ResourceID != "" {
			args = append(args, filter.ResourceID)
			where += ` AND resource_id = $` + strconv.Itoa(len(args))
		}
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, outcome, severity, details, ip_address, created_at
		FROM audit_logs
	` + where + ` ORDER BY created_at DESC`

	args = append(args, perPage)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (page-1)*perPage)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte

		if err := rows.Scan(
			&log.ID, &log.ActorID, &log.ActorEmail, &log.Action,
			&log.ResourceType, &log.ResourceID, &log.Outcome, &log.Severity,
			&detailsJSON, &log.IPAddress, &log.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		if len(detailsJSON) > 0 {
			json.Unmarshal(detailsJSON, &log.Details)
		}

		logs = append(logs, &log)
	}

	return logs, total, rows.Err()
}

// PurgeOlderThan deletes entries past the retention horizon. This is the only
// delete path for audit rows and is invoked by the scheduled retention job.
func (r *AuditRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
