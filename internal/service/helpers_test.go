package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/cache"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/persistence"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

var baseTime = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type mockInvoker struct {
	InvokeFn func(ctx context.Context, name string, payload any, out any) error
	calls    []string
}

func (m *mockInvoker) Invoke(ctx context.Context, name string, payload any, out any) error {
	m.calls = append(m.calls, name)
	if m.InvokeFn == nil {
		return errors.New("unexpected call " + name)
	}
	return m.InvokeFn(ctx, name, payload, out)
}

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: map[string]string{}}
}

func (m *memoryTokens) Put(_ context.Context, token, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = ticketID
	return nil
}

func (m *memoryTokens) Lookup(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return "", cache.ErrTokenNotFound
	}
	return id, nil
}

func (m *memoryTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

type fixture struct {
	store       repository.Store
	clock       *fakeClock
	recorder    *recorder
	dispatcher  events.Dispatcher
	tickets     *TicketService
	assignments *AssignmentService
	signatures  *SignatureService
	invoker     *mockInvoker
	tokens      *memoryTokens
	agent       *domain.Agent
	actor       Actor
	queue       *domain.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.MigrateUp(ctx, db, persistence.DialectSQLite, zap.NewNop()))

	f := &fixture{
		store:      repository.NewSQLStore(db),
		clock:      &fakeClock{now: baseTime},
		recorder:   &recorder{},
		dispatcher: events.NewInMemoryDispatcher(),
		invoker:    &mockInvoker{},
		tokens:     newMemoryTokens(),
	}
	events.SubscribeAll(f.dispatcher, f.recorder.handle)

	f.tickets = NewTicketService(TicketDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Now:        f.clock.Now,
	})
	f.assignments = NewAssignmentService(AssignmentDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Functions:  f.invoker,
		Now:        f.clock.Now,
	})
	f.signatures = NewSignatureService(SignatureDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Tokens:     f.tokens,
		Functions:  f.invoker,
		Now:        f.clock.Now,
	})

	f.agent = f.seedAgent(t, "ana@example.com", true)
	f.actor = Actor{AgentID: f.agent.ID, Email: f.agent.Email}
	f.queue = f.seedQueue(t, "Atendimento", true)
	return f
}

func (f *fixture) seedAgent(t *testing.T, email string, active bool) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		Name:         "Agent " + email,
		Email:        email,
		PasswordHash: "x",
		Role:         domain.AgentRoleAgent,
		Active:       active,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.Agents().Create(context.Background(), agent))
	return agent
}

func (f *fixture) seedQueue(t *testing.T, name string, active bool) *domain.Queue {
	t.Helper()
	queue := &domain.Queue{Name: name, Team: "sac", IsActive: active, CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now()}
	require.NoError(t, f.store.Queues().Create(context.Background(), queue))
	return queue
}

func (f *fixture) newTicket(t *testing.T, family domain.TicketFamily) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), f.actor, TicketCreateInput{
		Family:   family,
		Priority: domain.PriorityP2,
		Subject:  "Segunda via do boleto",
	})
	require.NoError(t, err)
	return ticket
}

// workedTicket returns a ticket that has been assigned and answered.
func (f *fixture) workedTicket(t *testing.T, family domain.TicketFamily) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := f.newTicket(t, family)
	_, err := f.assignments.AssignAgent(ctx, f.actor, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	res, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "Olá"})
	require.NoError(t, err)
	return res.Ticket
}

func (f *fixture) reload(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := f.store.Tickets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}
