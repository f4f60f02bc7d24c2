package domain

import "time"

// Background job statuses.
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Background job kinds.
const (
	JobWelcomeEmail = "welcome_email"
)

// BackgroundJob is a best-effort work item. Provisioning enqueues a welcome
// email job and publishes an event; the notification worker processes it.
// Callers never wait on these.
type BackgroundJob struct {
	ID          string     `db:"id" json:"id"`
	Kind        string     `db:"kind" json:"kind"`
	TenantID    *string    `db:"tenant_id" json:"tenant_id,omitempty"`
	Payload     []byte     `db:"payload" json:"-"`
	Status      string     `db:"status" json:"status"`
	Attempts    int        `db:"attempts" json:"attempts"`
	LastError   *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
