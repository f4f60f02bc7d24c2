package events

import (
	"context"

	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/messaging"
)

// TenantEventPublisher publishes tenant lifecycle events. Publishing is
// best-effort: a broker failure is logged and never fails the operation that
// triggered it.
type TenantEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewTenantEventPublisher creates a publisher on the tenant events exchange
func NewTenantEventPublisher(rmq *messaging.RabbitMQ, source string, log *logger.Logger) (*TenantEventPublisher, error) {
	pub, err := messaging.NewPublisher(rmq, messaging.ExchangeTenantEvents, source, log)
	if err != nil {
		return nil, err
	}

	return &TenantEventPublisher{
		publisher: pub,
		logger:    log,
	}, nil
}

// TenantProvisioned publishes the event the notification worker listens for.
func (p *TenantEventPublisher) TenantProvisioned(ctx context.Context, event *messaging.TenantProvisionedEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventTenantProvisioned, event); err != nil {
		p.logger.Error().Err(err).Str("tenant_id", event.TenantID).Msg("failed to publish tenant.provisioned")
	}
}

// RecoveryLinkIssued publishes a recovery issuance notification.
func (p *TenantEventPublisher) RecoveryLinkIssued(ctx context.Context, event *messaging.RecoveryLinkIssuedEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventRecoveryLinkIssued, event); err != nil {
		p.logger.Error().Err(err).Str("request_id", event.RequestID).Msg("failed to publish recovery issuance")
	}
}

// RecoveryLinkRevoked publishes a recovery revocation notification.
func (p *TenantEventPublisher) RecoveryLinkRevoked(ctx context.Context, event *messaging.RecoveryLinkRevokedEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventRecoveryLinkRevoked, event); err != nil {
		p.logger.Error().Err(err).Str("request_id", event.RequestID).Msg("failed to publish recovery revocation")
	}
}
