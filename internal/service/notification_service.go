package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/atendimento-service/internal/config"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/functions"
	"github.com/spec-kit/atendimento-service/internal/repository"
)

// Mailer sends a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WebhookPoster delivers a JSON payload to a URL.
type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// SMTPMailer sends email through gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// NotificationService reacts to lifecycle events: it logs them, emails newly
// assigned agents and hands completions and reopens to the backend.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	agents     repository.AgentRepository
	mailer     Mailer
	functions  functions.Invoker
	webhooks   WebhookPoster
}

// NotificationDependencies bundles collaborators. Mailer, Functions and Webhooks are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	Agents     repository.AgentRepository
	Mailer     Mailer
	Functions  functions.Invoker
	Webhooks   WebhookPoster
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		agents:     deps.Agents,
		mailer:     deps.Mailer,
		functions:  deps.Functions,
		webhooks:   deps.Webhooks,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketAgentAssigned, n.handleAgentAssigned)
	n.dispatcher.Subscribe(events.EventTicketCompleted, n.handleCompleted)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleReopened)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleAgentAssigned(ctx context.Context, event events.Event) error {
	if n.mailer == nil || n.agents == nil {
		return nil
	}
	payload, ok := event.Payload.(events.TicketAgentAssignedPayload)
	if !ok {
		return nil
	}
	agent, err := n.agents.GetByID(ctx, payload.NewAgentID)
	if err != nil {
		return fmt.Errorf("load assigned agent: %w", err)
	}
	subject := fmt.Sprintf("Ticket %s atribuído a você", event.TicketID)
	body := fmt.Sprintf("Olá %s,\n\no ticket %s foi atribuído a você por %s.\n", agent.Name, event.TicketID, event.Actor)
	if err := n.mailer.Send(ctx, agent.Email, subject, body); err != nil {
		return fmt.Errorf("email assigned agent: %w", err)
	}
	return nil
}

func (n *NotificationService) handleCompleted(ctx context.Context, event events.Event) error {
	if n.functions != nil {
		err := n.functions.Invoke(ctx, functions.FnDistributeCompletion, event, nil)
		if err != nil && !errors.Is(err, functions.ErrNotConfigured) {
			return fmt.Errorf("distribute completion: %w", err)
		}
	}
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) handleReopened(ctx context.Context, event events.Event) error {
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) postWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" || n.webhooks == nil {
		return nil
	}
	if err := n.webhooks.PostJSON(ctx, url, event); err != nil {
		return fmt.Errorf("webhook %s: %w", event.Type, err)
	}
	return nil
}
