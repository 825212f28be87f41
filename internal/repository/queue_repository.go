package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// QueueRepository manages persistence for queues.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	Update(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Queue, error)
}

type queueRepository struct {
	db querier
}

const queueColumns = `id, name, team, description, is_active, created_at, updated_at`

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	if queue.ID == "" {
		queue.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO queues (` + queueColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.exec(ctx, query,
		queue.ID,
		queue.Name,
		queue.Team,
		queue.Description,
		queue.IsActive,
		queue.CreatedAt.UTC(),
		queue.UpdatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *queueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	const query = `
        UPDATE queues SET name=$1, team=$2, description=$3, is_active=$4, updated_at=$5
        WHERE id=$6`
	affected, err := r.db.exec(ctx, query,
		queue.Name,
		queue.Team,
		queue.Description,
		queue.IsActive,
		queue.UpdatedAt.UTC(),
		queue.ID,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	queue, err := scanQueue(r.db.queryRow(ctx, `SELECT `+queueColumns+` FROM queues WHERE id=$1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return queue, nil
}

func (r *queueRepository) List(ctx context.Context, activeOnly bool) ([]domain.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues`
	args := []any{}
	if activeOnly {
		query += ` WHERE is_active=$1`
		args = append(args, true)
	}
	query += ` ORDER BY name ASC`

	rs, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var result []domain.Queue
	for rs.Next() {
		queue, err := scanQueue(rs)
		if err != nil {
			return nil, err
		}
		result = append(result, *queue)
	}
	return result, rs.Err()
}

func scanQueue(r row) (*domain.Queue, error) {
	var queue domain.Queue
	if err := r.Scan(
		&queue.ID,
		&queue.Name,
		&queue.Team,
		&queue.Description,
		&queue.IsActive,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &queue, nil
}
