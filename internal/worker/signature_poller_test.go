package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

type mockChecker struct {
	mu        sync.Mutex
	PendingFn func(ctx context.Context, limit int) ([]domain.Ticket, error)
	CheckFn   func(ctx context.Context, ticketID string) (*domain.Ticket, bool, error)
	checked   []string
}

func (m *mockChecker) PendingProviderSignatures(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return m.PendingFn(ctx, limit)
}

func (m *mockChecker) CheckProviderSignature(ctx context.Context, ticketID string) (*domain.Ticket, bool, error) {
	m.mu.Lock()
	m.checked = append(m.checked, ticketID)
	m.mu.Unlock()
	return m.CheckFn(ctx, ticketID)
}

func (m *mockChecker) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.checked...)
}

func pendingTickets(ids ...string) func(context.Context, int) ([]domain.Ticket, error) {
	return func(context.Context, int) ([]domain.Ticket, error) {
		out := make([]domain.Ticket, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Ticket{ID: id})
		}
		return out, nil
	}
}

func TestRunOnce_BacksOffFailingTickets(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	checker := &mockChecker{
		PendingFn: pendingTickets("t1", "t2"),
		CheckFn: func(_ context.Context, id string) (*domain.Ticket, bool, error) {
			if id == "t1" {
				return nil, false, errors.New("provider down")
			}
			return &domain.Ticket{ID: id}, false, nil
		},
	}
	p := NewSignaturePoller(checker, 30*time.Second, 2*time.Minute, nil)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	p.RunOnce(ctx)
	assert.Equal(t, []string{"t1", "t2"}, checker.calls())
	assert.Equal(t, 30*time.Second, p.backoff["t1"].delay)

	p.RunOnce(ctx)
	assert.Equal(t, []string{"t1", "t2", "t2"}, checker.calls(), "t1 waits out its delay")

	delays := []time.Duration{time.Minute, 2 * time.Minute, 2 * time.Minute}
	for _, want := range delays {
		now = now.Add(p.backoff["t1"].delay)
		p.RunOnce(ctx)
		assert.Equal(t, want, p.backoff["t1"].delay)
	}
}

func TestRunOnce_ClearsBackoffOnSuccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fail := true
	checker := &mockChecker{
		PendingFn: pendingTickets("t1"),
		CheckFn: func(_ context.Context, id string) (*domain.Ticket, bool, error) {
			if fail {
				return nil, false, errors.New("timeout")
			}
			return &domain.Ticket{ID: id}, true, nil
		},
	}
	p := NewSignaturePoller(checker, time.Second, time.Minute, nil)
	p.now = func() time.Time { return now }

	p.RunOnce(context.Background())
	require.Contains(t, p.backoff, "t1")

	fail = false
	now = now.Add(time.Second)
	p.RunOnce(context.Background())
	assert.NotContains(t, p.backoff, "t1")
}

func TestRunOnce_PrunesResolvedTickets(t *testing.T) {
	checker := &mockChecker{
		PendingFn: pendingTickets(),
		CheckFn: func(context.Context, string) (*domain.Ticket, bool, error) {
			return nil, false, nil
		},
	}
	p := NewSignaturePoller(checker, time.Second, time.Minute, nil)
	p.backoff["gone"] = backoffState{delay: time.Second}

	p.RunOnce(context.Background())
	assert.Empty(t, p.backoff)
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	checker := &mockChecker{
		PendingFn: pendingTickets("t1", "t2"),
		CheckFn: func(context.Context, string) (*domain.Ticket, bool, error) {
			return nil, false, nil
		},
	}
	p := NewSignaturePoller(checker, time.Second, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.RunOnce(ctx)
	assert.Empty(t, checker.calls())
}

func TestStart_ReturnsWhenContextEnds(t *testing.T) {
	checker := &mockChecker{
		PendingFn: pendingTickets("t1"),
		CheckFn: func(_ context.Context, id string) (*domain.Ticket, bool, error) {
			return &domain.Ticket{ID: id}, true, nil
		},
	}
	p := NewSignaturePoller(checker, time.Second, time.Minute, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	err := p.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, checker.calls())
}
