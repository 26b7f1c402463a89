package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/sms"
	"github.com/dukerupert/bidwell/internal/telemetry"
)

// Mailer delivers pre-rendered email. email.Service implements it.
type Mailer interface {
	SendMessage(ctx context.Context, to, subject, htmlBody, textBody string) (string, error)
}

var errChannelDisabled = errors.New("channel not configured")

type dispatcher struct {
	repo      repository.Querier
	mailer    Mailer
	messenger sms.Sender
	logger    *slog.Logger
}

var _ domain.Dispatcher = (*dispatcher)(nil)

// NewDispatcher creates a Dispatcher. A nil mailer or messenger turns that
// channel off; attempts on it are logged as skipped.
func NewDispatcher(repo repository.Querier, mailer Mailer, messenger sms.Sender, logger *slog.Logger) domain.Dispatcher {
	return &dispatcher{
		repo:      repo,
		mailer:    mailer,
		messenger: messenger,
		logger:    logger.With("service", "notification"),
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, to domain.Recipient, msg domain.Message) domain.DispatchResult {
	return domain.DispatchResult{
		domain.ChannelEmail: d.Send(ctx, to, domain.ChannelEmail, msg),
		domain.ChannelSMS:   d.Send(ctx, to, domain.ChannelSMS, msg),
	}
}

// Send never returns provider errors; the outcome is logged and reported as
// a status.
func (d *dispatcher) Send(ctx context.Context, to domain.Recipient, channel domain.Channel, msg domain.Message) domain.NotificationStatus {
	correlationID := ulid.Make().String()
	logger := d.logger.With(
		"correlation_id", correlationID,
		"channel", channel,
		"type", msg.Type,
		"estimate_id", to.EstimateID,
	)

	var (
		status     domain.NotificationStatus
		recipient  string
		providerID string
		cause      error
	)

	switch channel {
	case domain.ChannelEmail:
		recipient = to.Email
		status, providerID, cause = d.sendEmail(ctx, to, msg)
	case domain.ChannelSMS:
		recipient = to.Phone
		status, providerID, cause = d.sendSMS(ctx, to, msg, correlationID)
	default:
		status, cause = domain.NotificationSkipped, errors.New("unknown channel")
	}

	switch status {
	case domain.NotificationSent:
		logger.Info("notification sent", "provider_message_id", providerID)
	case domain.NotificationSkipped:
		if errors.Is(cause, sms.ErrInvalidNumber) {
			logger.Warn("notification skipped", "reason", cause)
		} else {
			logger.Debug("notification skipped", "reason", cause)
		}
	case domain.NotificationFailed:
		logger.Warn("notification failed", "error", cause)
	}

	params := repository.CreateNotificationLogParams{
		CorrelationID:    correlationID,
		OwnerID:          postgres.UUID(to.OwnerID),
		EstimateID:       postgres.UUID(to.EstimateID),
		Channel:          string(channel),
		NotificationType: string(msg.Type),
		Recipient:        recipient,
		Status:           string(status),
	}
	if cause != nil {
		params.Error = postgres.Text(cause.Error())
	}
	if providerID != "" {
		params.ProviderMessageID = postgres.Text(providerID)
	}
	if _, err := d.repo.CreateNotificationLog(ctx, params); err != nil {
		logger.Error("failed to write notification log", "status", status, "error", err)
	}

	telemetry.Business.Notification(string(channel), string(status))
	return status
}

func (d *dispatcher) sendEmail(ctx context.Context, to domain.Recipient, msg domain.Message) (domain.NotificationStatus, string, error) {
	if d.mailer == nil {
		return domain.NotificationSkipped, "", errChannelDisabled
	}
	if to.Email == "" {
		return domain.NotificationSkipped, "", errors.New("no email address")
	}

	id, err := d.mailer.SendMessage(ctx, to.Email, msg.Subject, msg.HTML, msg.Text)
	if err != nil {
		return domain.NotificationFailed, "", &domain.ExternalServiceError{Service: "email", Err: err}
	}
	return domain.NotificationSent, id, nil
}

func (d *dispatcher) sendSMS(ctx context.Context, to domain.Recipient, msg domain.Message, correlationID string) (domain.NotificationStatus, string, error) {
	if d.messenger == nil {
		return domain.NotificationSkipped, "", errChannelDisabled
	}
	if to.Phone == "" {
		return domain.NotificationSkipped, "", errors.New("no phone number")
	}
	if !sms.ValidNumber(to.Phone) {
		return domain.NotificationSkipped, "", sms.ErrInvalidNumber
	}

	body := msg.SMS
	if body == "" {
		body = msg.Text
	}

	id, err := d.messenger.Send(ctx, to.Phone, sms.Clamp(body))
	if err != nil {
		return domain.NotificationFailed, "", &domain.ExternalServiceError{Service: "sms", Err: err}
	}
	return domain.NotificationSent, id, nil
}
