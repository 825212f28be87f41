package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// TicketMessageRepository stores the append-only conversation of tickets.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	db querier
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_messages (id, ticket_id, message_type, author_email, body, channel, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.exec(ctx, query,
		msg.ID,
		msg.TicketID,
		string(msg.MessageType),
		msg.AuthorEmail,
		msg.Body,
		msg.Channel,
		msg.CreatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT id, ticket_id, message_type, author_email, body, channel, created_at
        FROM ticket_messages WHERE ticket_id=$1
        ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, limit, offset)

	rs, err := r.db.query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var result []domain.TicketMessage
	for rs.Next() {
		var (
			msg     domain.TicketMessage
			msgType string
		)
		if err := rs.Scan(
			&msg.ID,
			&msg.TicketID,
			&msgType,
			&msg.AuthorEmail,
			&msg.Body,
			&msg.Channel,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		msg.MessageType = domain.TicketMessageType(msgType)
		result = append(result, msg)
	}
	return result, rs.Err()
}
