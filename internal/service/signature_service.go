package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/cache"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/functions"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// CustomerActor is recorded for signatures completed through a public link.
var CustomerActor = Actor{Email: "customer"}

// SignatureService runs the signature sub-lifecycle of a ticket.
type SignatureService struct {
	lifecycle
	tokens    cache.SignatureTokenIndex
	functions functions.Invoker
}

// SignatureDependencies bundles collaborators.
type SignatureDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Tokens is optional; without it link tokens resolve through the store only.
	Tokens    cache.SignatureTokenIndex
	Functions functions.Invoker
	Now       func() time.Time
}

// ProviderSigner identifies who signs the provider document.
type ProviderSigner struct {
	Name  string
	Email string
}

// ProviderRequest is the result of opening a provider document.
type ProviderRequest struct {
	Ticket     *domain.Ticket
	DocumentID string
	SignURL    string
}

// NewSignatureService creates the service.
func NewSignatureService(deps SignatureDependencies) *SignatureService {
	inv := deps.Functions
	if inv == nil {
		inv = (*functions.Client)(nil)
	}
	return &SignatureService{
		lifecycle: newLifecycle(deps.Store, deps.Dispatcher, deps.Metrics, deps.Logger, deps.Now),
		tokens:    deps.Tokens,
		functions: inv,
	}
}

// SignInPerson attaches a signature captured at the counter.
func (s *SignatureService) SignInPerson(ctx context.Context, actor Actor, ticketID, url string) (*domain.Ticket, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.NewValidationError("signature url is required", map[string]any{"field": "url"})
	}
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		return t.SignInPerson(url, s.clock())
	})
	if err != nil {
		return nil, err
	}
	s.publishSignature(ctx, actor, ticket)
	return ticket, nil
}

// RequestLink issues a new link token for the customer. A previous pending token stops resolving.
func (s *SignatureService) RequestLink(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, string, error) {
	token := uuid.NewString()
	var previous *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		previous = t.Signature.RequesterToken
		return t.RequestSignatureLink(token, s.clock())
	})
	if err != nil {
		return nil, "", err
	}

	if s.tokens != nil {
		if previous != nil && *previous != token {
			if err := s.tokens.Delete(ctx, *previous); err != nil {
				s.logger.Warn("drop old signature token", zap.String("ticket_id", ticket.ID), zap.Error(err))
			}
		}
		if err := s.tokens.Put(ctx, token, ticket.ID); err != nil {
			s.logger.Warn("cache signature token", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishSignature(ctx, actor, ticket)
	return ticket, token, nil
}

// CompleteLink finishes a link signature from the public endpoint.
func (s *SignatureService) CompleteLink(ctx context.Context, token, url string) (*domain.Ticket, error) {
	token = strings.TrimSpace(token)
	url = strings.TrimSpace(url)
	if token == "" {
		return nil, apperrors.NewNotFound("signature request", nil)
	}
	if url == "" {
		return nil, apperrors.NewValidationError("signature url is required", map[string]any{"field": "url"})
	}

	ticketID, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Signature.RequesterToken == nil || *t.Signature.RequesterToken != token {
			return apperrors.NewNotFound("signature request", nil)
		}
		return t.CompleteSignature(domain.SignatureMethodLinkWhatsApp, url, s.clock())
	})
	if err != nil {
		return nil, err
	}
	if s.tokens != nil {
		if err := s.tokens.Delete(ctx, token); err != nil {
			s.logger.Warn("drop used signature token", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishSignature(ctx, CustomerActor, ticket)
	return ticket, nil
}

func (s *SignatureService) resolveToken(ctx context.Context, token string) (string, error) {
	if s.tokens != nil {
		ticketID, err := s.tokens.Lookup(ctx, token)
		if err == nil {
			return ticketID, nil
		}
		if !errors.Is(err, cache.ErrTokenNotFound) {
			s.logger.Warn("signature token cache lookup failed", zap.Error(err))
		}
	}
	ticket, err := s.store.Tickets().GetBySignatureToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewNotFound("signature request", nil)
		}
		return "", mapStoreError(err, "ticket", "")
	}
	return ticket.ID, nil
}

// RequestProvider creates the provider document and marks the signature pending.
func (s *SignatureService) RequestProvider(ctx context.Context, actor Actor, ticketID string, signer ProviderSigner) (*ProviderRequest, error) {
	ticket, err := s.loadTicket(ctx, s.store.Tickets(), ticketID)
	if err != nil {
		return nil, err
	}
	if err := ticket.Signature.CanStart(domain.SignatureMethodAutentique); err != nil {
		return nil, mapDomainError(err)
	}
	if ticket.Signature.Status == domain.SignatureStatusPending {
		return nil, apperrors.NewConflict("provider signature already pending", map[string]any{"ticket_id": ticket.ID})
	}

	doc, err := functions.CreateSignatureDocument(ctx, s.functions, ticket.ID, signer.Name, signer.Email)
	if err != nil {
		return nil, mapFunctionError(functions.FnCreateSignatureDoc, err)
	}
	if err := ticket.RequestProviderSignature(doc.DocumentID, s.clock()); err != nil {
		return nil, mapDomainError(err)
	}
	if err := s.store.Tickets().Update(ctx, ticket); err != nil {
		return nil, mapStoreError(err, "ticket", ticket.ID)
	}
	s.publishSignature(ctx, actor, ticket)
	return &ProviderRequest{Ticket: ticket, DocumentID: doc.DocumentID, SignURL: doc.SignURL}, nil
}

// CheckProviderSignature asks the provider for the document status and completes
// the signature once signed. It reports whether the ticket is now signed.
func (s *SignatureService) CheckProviderSignature(ctx context.Context, ticketID string) (*domain.Ticket, bool, error) {
	ticket, err := s.loadTicket(ctx, s.store.Tickets(), ticketID)
	if err != nil {
		return nil, false, err
	}
	if ticket.Signature.Method != domain.SignatureMethodAutentique ||
		ticket.Signature.Status != domain.SignatureStatusPending ||
		ticket.Signature.DocumentID == nil {
		return ticket, ticket.Signature.Signed(), nil
	}

	status, err := functions.CheckSignatureDocument(ctx, s.functions, *ticket.Signature.DocumentID)
	if err != nil {
		return nil, false, mapFunctionError(functions.FnCheckSignatureDoc, err)
	}
	if !status.Signed {
		return ticket, false, nil
	}
	if err := s.completeProvider(ctx, ticket, status.SignedFileURL); err != nil {
		return nil, false, err
	}
	return ticket, true, nil
}

// CompleteProvider records a provider push notification for documentID.
func (s *SignatureService) CompleteProvider(ctx context.Context, documentID, url string) (*domain.Ticket, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperrors.NewValidationError("signed file url is required", map[string]any{"field": "signed_file_url"})
	}
	ticket, err := s.store.Tickets().GetBySignatureDocument(ctx, documentID)
	if err != nil {
		return nil, mapStoreError(err, "signature document", documentID)
	}
	if err := s.completeProvider(ctx, ticket, url); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *SignatureService) completeProvider(ctx context.Context, ticket *domain.Ticket, url string) error {
	if err := ticket.CompleteSignature(domain.SignatureMethodAutentique, strings.TrimSpace(url), s.clock()); err != nil {
		return mapDomainError(err)
	}
	if err := s.store.Tickets().Update(ctx, ticket); err != nil {
		return mapStoreError(err, "ticket", ticket.ID)
	}
	s.publishSignature(ctx, SystemActor, ticket)
	return nil
}

// PendingProviderSignatures lists tickets waiting on the provider.
func (s *SignatureService) PendingProviderSignatures(ctx context.Context, limit int) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().ListPendingSignatures(ctx, domain.SignatureMethodAutentique, limit)
	if err != nil {
		return nil, mapStoreError(err, "ticket", "")
	}
	return tickets, nil
}

func (s *SignatureService) publishSignature(ctx context.Context, actor Actor, ticket *domain.Ticket) {
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketSignatureChanged, events.TicketSignatureChangedPayload{
		Method: ticket.Signature.Method,
		Status: ticket.Signature.Status,
		URL:    ticket.Signature.URL,
	})
}
