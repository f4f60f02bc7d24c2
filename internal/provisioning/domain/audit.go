package domain

import "time"

// Audit outcome values.
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeDenied  = "denied"
	AuditOutcomeFailed  = "failed"
)

// Audit severity values.
const (
	AuditSeverityInfo     = "info"
	AuditSeverityWarning  = "warning"
	AuditSeverityCritical = "critical"
)

// AuditLog is an immutable record of an action taken against a resource.
// Rows are only ever inserted; updates and deletes are blocked by policy and
// a scheduled retention job is the only purge path.
type AuditLog struct {
	ID           string                 `db:"id" json:"id"`
	ActorID      *string                `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail   string                 `db:"actor_email" json:"actor_email"`
	Action       string                 `db:"action" json:"action"`
	ResourceType *string                `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   *string                `db:"resource_id" json:"resource_id,omitempty"`
	Outcome      string                 `db:"outcome" json:"outcome"`
	Severity     string                 `db:"severity" json:"severity"`
	Details      map[string]interface{} `db:"-" json:"details,omitempty"`
	IPAddress    *string                `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}
