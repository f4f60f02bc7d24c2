package notifications

import (
	"context"
	"fmt"

	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/messaging"
)

// TenantEventHandler processes tenant lifecycle events into outgoing email
// (testable without RabbitMQ)
type TenantEventHandler struct {
	mailer  Mailer
	jobRepo *repository.JobRepository
	cfg     *config.ProvisioningConfig
	logger  *logger.Logger
}

// NewTenantEventHandler creates a new handler for testing purposes
func NewTenantEventHandler(mailer Mailer, jobRepo *repository.JobRepository, cfg *config.ProvisioningConfig, log *logger.Logger) *TenantEventHandler {
	return &TenantEventHandler{
		mailer:  mailer,
		jobRepo: jobRepo,
		cfg:     cfg,
		logger:  log,
	}
}

// HandleTenantProvisioned sends the welcome email for a freshly provisioned
// tenant and settles its job record. A mail failure marks the job failed and
// acks the message: welcome email is best-effort, the tenant already exists.
func (h *TenantEventHandler) HandleTenantProvisioned(ctx context.Context, event *messaging.Event) error {
	var data messaging.TenantProvisionedEvent
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("malformed tenant.provisioned event")
		return err
	}

	email := &WelcomeEmail{
		To:         data.OwnerEmail,
		TenantName: data.Name,
		Slug:       data.Slug,
		LoginURL:   fmt.Sprintf("https://%s.%s", data.Slug, h.cfg.BaseDomain),
		OwnerIsNew: data.OwnerIsNew,
	}

	if err := h.mailer.SendWelcome(ctx, email); err != nil {
		h.logger.Error().Err(err).Str("tenant_id", data.TenantID).Msg("welcome email failed")
		h.settleJob(ctx, data.JobID, err)
		return nil
	}

	h.settleJob(ctx, data.JobID, nil)
	return nil
}

// HandleRecoveryIssued notifies the owner that someone issued a recovery link
// on their account.
func (h *TenantEventHandler) HandleRecoveryIssued(ctx context.Context, event *messaging.Event) error {
	var data messaging.RecoveryLinkIssuedEvent
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("malformed recovery event")
		return err
	}

	notice := &RecoveryNotice{
		To:        data.OwnerEmail,
		ExpiresAt: data.ExpiresAt,
	}
	if err := h.mailer.SendRecoveryNotice(ctx, notice); err != nil {
		h.logger.Error().Err(err).Str("request_id", data.RequestID).Msg("recovery notice failed")
	}
	return nil
}

func (h *TenantEventHandler) settleJob(ctx context.Context, jobID string, mailErr error) {
	if jobID == "" {
		return
	}
	var err error
	if mailErr != nil {
		err = h.jobRepo.MarkFailed(ctx, jobID, mailErr.Error())
	} else {
		err = h.jobRepo.MarkDone(ctx, jobID)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to settle job record")
	}
}

// TenantEventConsumer consumes tenant events for the notification worker
type TenantEventConsumer struct {
	consumer *messaging.Consumer
	handler  *TenantEventHandler
	logger   *logger.Logger
}

// NewTenantEventConsumer creates the consumer bound to the tenant events
// exchange.
func NewTenantEventConsumer(rmq *messaging.RabbitMQ, handler *TenantEventHandler, log *logger.Logger) (*TenantEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "notification-worker.tenant-events", log)
	if err != nil {
		return nil, err
	}

	// Subscribe to all tenant events with pattern tenant.#
	if err := consumer.Subscribe(messaging.ExchangeTenantEvents, "tenant.#"); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventTenantProvisioned, handler.HandleTenantProvisioned)
	consumer.RegisterHandler(messaging.EventRecoveryLinkIssued, handler.HandleRecoveryIssued)

	return &TenantEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   log,
	}, nil
}

// Start starts consuming messages
func (c *TenantEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
