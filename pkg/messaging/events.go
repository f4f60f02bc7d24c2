package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Tenant lifecycle events
	EventTenantProvisioned   = "tenant.provisioned"
	EventTenantStatusChanged = "tenant.status.changed"

	// Recovery link events
	EventRecoveryLinkIssued   = "tenant.recovery.issued"
	EventRecoveryLinkRevoked  = "tenant.recovery.revoked"
	EventRecoveryLinkRedeemed = "tenant.recovery.redeemed"

	// Audit events
	EventAuditLogCreated = "audit.log.created"
)

// Exchange names
const (
	ExchangeTenantEvents = "tenant.events"
	ExchangeAuditEvents  = "audit.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// TenantProvisionedEvent is published after a provisioning transaction
// commits. The notification worker picks it up to send the welcome email;
// nothing in the provisioning path waits for that to happen.
type TenantProvisionedEvent struct {
	TenantID      string `json:"tenant_id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	OwnerEmail    string `json:"owner_email"`
	OwnerIsNew    bool   `json:"owner_is_new"`
	ProvisionedBy string `json:"provisioned_by"`
	JobID         string `json:"job_id"`
}

// RecoveryLinkIssuedEvent is published when an admin issues a recovery link.
// The link itself is never part of the event.
type RecoveryLinkIssuedEvent struct {
	RequestID  string    `json:"request_id"`
	TenantID   string    `json:"tenant_id"`
	OwnerEmail string    `json:"owner_email"`
	IssuedBy   string    `json:"issued_by"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RecoveryLinkRevokedEvent is published when a recovery link is revoked early.
type RecoveryLinkRevokedEvent struct {
	RequestID string `json:"request_id"`
	TenantID  string `json:"tenant_id"`
	RevokedBy string `json:"revoked_by"`
	Reason    string `json:"reason,omitempty"`
}
