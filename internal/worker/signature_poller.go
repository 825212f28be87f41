package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

const pendingBatchSize = 100

// SignatureChecker is the part of the signature service the poller drives.
type SignatureChecker interface {
	PendingProviderSignatures(ctx context.Context, limit int) ([]domain.Ticket, error)
	CheckProviderSignature(ctx context.Context, ticketID string) (*domain.Ticket, bool, error)
}

type backoffState struct {
	delay time.Duration
	next  time.Time
}

// SignaturePoller checks pending provider signatures on a cron schedule. A ticket
// whose check fails is retried with a doubling delay capped at maxBackoff.
type SignaturePoller struct {
	checker    SignatureChecker
	logger     *zap.Logger
	interval   time.Duration
	maxBackoff time.Duration
	now        func() time.Time

	mu      sync.Mutex
	backoff map[string]backoffState
}

// NewSignaturePoller creates the poller.
func NewSignaturePoller(checker SignatureChecker, interval, maxBackoff time.Duration, logger *zap.Logger) *SignaturePoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &SignaturePoller{
		checker:    checker,
		logger:     logger,
		interval:   interval,
		maxBackoff: maxBackoff,
		now:        time.Now,
		backoff:    make(map[string]backoffState),
	}
}

// Start runs the schedule. Blocks until ctx is cancelled and the running pass ends.
func (p *SignaturePoller) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %s", p.interval)
	if _, err := c.AddFunc(schedule, func() { p.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("signature poller: invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	p.logger.Info("signature poller started", zap.Duration("interval", p.interval))

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("signature poller stopped")
	return ctx.Err()
}

// RunOnce checks every pending provider signature that is not backing off.
func (p *SignaturePoller) RunOnce(ctx context.Context) {
	pending, err := p.checker.PendingProviderSignatures(ctx, pendingBatchSize)
	if err != nil {
		p.logger.Warn("list pending signatures failed", zap.Error(err))
		return
	}
	p.prune(pending)

	for _, ticket := range pending {
		if ctx.Err() != nil {
			return
		}
		if !p.due(ticket.ID) {
			continue
		}
		_, signed, err := p.checker.CheckProviderSignature(ctx, ticket.ID)
		if err != nil {
			delay := p.fail(ticket.ID)
			p.logger.Warn("signature check failed",
				zap.String("ticket_id", ticket.ID),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			continue
		}
		p.clear(ticket.ID)
		if signed {
			p.logger.Info("provider signature completed", zap.String("ticket_id", ticket.ID))
		}
	}
}

func (p *SignaturePoller) due(ticketID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.backoff[ticketID]
	return !ok || !p.now().Before(state.next)
}

func (p *SignaturePoller) fail(ticketID string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	delay := p.interval
	if state, ok := p.backoff[ticketID]; ok {
		delay = state.delay * 2
	}
	if delay > p.maxBackoff {
		delay = p.maxBackoff
	}
	p.backoff[ticketID] = backoffState{delay: delay, next: p.now().Add(delay)}
	return delay
}

func (p *SignaturePoller) clear(ticketID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.backoff, ticketID)
}

// prune forgets tickets that are no longer pending.
func (p *SignaturePoller) prune(pending []domain.Ticket) {
	live := make(map[string]struct{}, len(pending))
	for _, t := range pending {
		live[t.ID] = struct{}{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.backoff {
		if _, ok := live[id]; !ok {
			delete(p.backoff, id)
		}
	}
}
