package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// TicketFilter captures agent search parameters.
type TicketFilter struct {
	Family      *domain.TicketFamily
	QueueID     *string
	AgentID     *string
	ContactID   *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the ticket if its Version still matches the stored row and bumps Version.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetBySignatureToken(ctx context.Context, token string) (*domain.Ticket, error)
	GetBySignatureDocument(ctx context.Context, documentID string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListPendingSignatures(ctx context.Context, method domain.SignatureMethod, limit int) ([]domain.Ticket, error)
	// ListResolvedBefore returns resolvido tickets of family resolved before the cutoff, oldest first.
	ListResolvedBefore(ctx context.Context, family domain.TicketFamily, before time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db querier
}

const ticketColumns = `id, family, status, priority, subject, description, channel, created_by,
        queue_id, agent_id, contact_id, account_id, contract_id, dependent_id,
        created_at, updated_at, first_response_at, resolved_at, sla_resolution_deadline, sla_breached,
        agent_history, queue_history, reopen_history, reopened_count, attachments,
        signature_method, signature_status, signature_url, signature_date, signature_requester_token, signature_document_id,
        completion_reason, completion_category, completion_subcategory, completion_resolution, completion_description,
        cancellation_reason, cancellation_notes, completed_by_agent_id, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.Version = 1

	args, err := ticketArgs(ticket)
	if err != nil {
		return err
	}
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO tickets (%s) VALUES (%s)`, ticketColumns, strings.Join(placeholders, ","))
	_, err = r.db.exec(ctx, query, args...)
	return mapWriteErr(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	args, err := ticketArgs(ticket)
	if err != nil {
		return err
	}
	// args[0] is the id; every other column is rewritten and version is bumped.
	columns := strings.Split(ticketColumns, ",")
	sets := make([]string, 0, len(columns))
	for i := 1; i < len(columns)-1; i++ {
		sets = append(sets, fmt.Sprintf("%s=$%d", strings.TrimSpace(columns[i]), i+1))
	}
	n := len(args)
	sets = append(sets, fmt.Sprintf("version=$%d", n))
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$1 AND version=$%d`, strings.Join(sets, ", "), n+1)

	values := append(args[:n-1:n-1], ticket.Version+1, ticket.Version)
	affected, err := r.db.exec(ctx, query, values...)
	if err != nil {
		return mapWriteErr(err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, ticket.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetBySignatureToken(ctx context.Context, token string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE signature_requester_token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *ticketRepository) GetBySignatureDocument(ctx context.Context, documentID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE signature_document_id=$1`
	return r.fetchSingle(ctx, query, documentID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.queryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Family != nil {
		args = append(args, string(*filter.Family))
		clauses = append(clauses, fmt.Sprintf("family=$%d", len(args)))
	}
	if filter.QueueID != nil {
		args = append(args, *filter.QueueID)
		clauses = append(clauses, fmt.Sprintf("queue_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if filter.ContactID != nil {
		args = append(args, *filter.ContactID)
		clauses = append(clauses, fmt.Sprintf("contact_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, string(pr))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)
	return r.list(ctx, query, args...)
}

func (r *ticketRepository) ListPendingSignatures(ctx context.Context, method domain.SignatureMethod, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE signature_status=$1 AND signature_method=$2
        ORDER BY updated_at LIMIT %d`, ticketColumns, limit)
	return r.list(ctx, query, string(domain.SignatureStatusPending), string(method))
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, family domain.TicketFamily, before time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE family=$1 AND status=$2 AND resolved_at IS NOT NULL AND resolved_at < $3
        ORDER BY resolved_at LIMIT %d`, ticketColumns, limit)
	return r.list(ctx, query, string(family), string(domain.StatusResolvido), before)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rs, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var result []domain.Ticket
	for rs.Next() {
		ticket, err := scanTicket(rs)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rs.Err()
}

// ticketArgs returns values in ticketColumns order.
func ticketArgs(t *domain.Ticket) ([]any, error) {
	agentHistory, err := marshalList(t.AgentHistory)
	if err != nil {
		return nil, err
	}
	queueHistory, err := marshalList(t.QueueHistory)
	if err != nil {
		return nil, err
	}
	reopenHistory, err := marshalList(t.ReopenHistory)
	if err != nil {
		return nil, err
	}
	attachments, err := marshalList(t.Attachments)
	if err != nil {
		return nil, err
	}
	sigStatus := t.Signature.Status
	if sigStatus == "" {
		sigStatus = domain.SignatureStatusNone
	}

	return []any{
		t.ID,
		string(t.Family),
		string(t.Status),
		string(t.Priority),
		t.Subject,
		t.Description,
		t.Channel,
		t.CreatedBy,
		t.QueueID,
		t.AgentID,
		t.ContactID,
		t.AccountID,
		t.ContractID,
		t.DependentID,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
		utcPtr(t.FirstResponseAt),
		utcPtr(t.ResolvedAt),
		utcPtr(t.SLAResolutionDeadline),
		t.SLABreached,
		agentHistory,
		queueHistory,
		reopenHistory,
		t.ReopenedCount,
		attachments,
		string(t.Signature.Method),
		string(sigStatus),
		t.Signature.URL,
		utcPtr(t.Signature.Date),
		t.Signature.RequesterToken,
		t.Signature.DocumentID,
		t.Completion.Reason,
		t.Completion.Category,
		t.Completion.Subcategory,
		t.Completion.Resolution,
		t.Completion.Description,
		t.Completion.CancellationReason,
		t.Completion.CancellationNotes,
		t.CompletedByAgentID,
		t.Version,
	}, nil
}

func scanTicket(r row) (*domain.Ticket, error) {
	var (
		t                                                  domain.Ticket
		family, status, priority, sigMethod, sigStatus     string
		agentHistory, queueHistory, reopenHistory, attachs []byte
	)
	if err := r.Scan(
		&t.ID,
		&family,
		&status,
		&priority,
		&t.Subject,
		&t.Description,
		&t.Channel,
		&t.CreatedBy,
		&t.QueueID,
		&t.AgentID,
		&t.ContactID,
		&t.AccountID,
		&t.ContractID,
		&t.DependentID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.FirstResponseAt,
		&t.ResolvedAt,
		&t.SLAResolutionDeadline,
		&t.SLABreached,
		&agentHistory,
		&queueHistory,
		&reopenHistory,
		&t.ReopenedCount,
		&attachs,
		&sigMethod,
		&sigStatus,
		&t.Signature.URL,
		&t.Signature.Date,
		&t.Signature.RequesterToken,
		&t.Signature.DocumentID,
		&t.Completion.Reason,
		&t.Completion.Category,
		&t.Completion.Subcategory,
		&t.Completion.Resolution,
		&t.Completion.Description,
		&t.Completion.CancellationReason,
		&t.Completion.CancellationNotes,
		&t.CompletedByAgentID,
		&t.Version,
	); err != nil {
		return nil, err
	}

	t.Family = domain.TicketFamily(family)
	t.Priority = domain.TicketPriority(priority)
	t.Signature.Method = domain.SignatureMethod(sigMethod)
	t.Signature.Status = domain.SignatureStatus(sigStatus)
	// Legacy rows may carry free-text status; keep it verbatim when it is outside the vocabulary.
	if parsed, err := domain.ParseStatus(t.Family, status); err == nil {
		t.Status = parsed
	} else {
		t.Status = domain.TicketStatus(status)
	}

	if err := unmarshalList(agentHistory, &t.AgentHistory); err != nil {
		return nil, fmt.Errorf("decode agent_history: %w", err)
	}
	if err := unmarshalList(queueHistory, &t.QueueHistory); err != nil {
		return nil, fmt.Errorf("decode queue_history: %w", err)
	}
	if err := unmarshalList(reopenHistory, &t.ReopenHistory); err != nil {
		return nil, fmt.Errorf("decode reopen_history: %w", err)
	}
	if err := unmarshalList(attachs, &t.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	return &t, nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalList[T any](raw []byte, out *[]T) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
