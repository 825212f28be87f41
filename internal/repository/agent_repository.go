package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// AgentRepository handles persistence for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
}

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role   *domain.AgentRole
	Active *bool
	Limit  int
	Offset int
}

type agentRepository struct {
	db querier
}

const agentColumns = `id, name, email, password_hash, role, active, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO agents (` + agentColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := r.db.exec(ctx, query,
		agent.ID,
		agent.Name,
		strings.ToLower(agent.Email),
		agent.PasswordHash,
		string(agent.Role),
		agent.Active,
		agent.CreatedAt.UTC(),
		agent.UpdatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, active=$5, updated_at=$6
        WHERE id=$7`

	affected, err := r.db.exec(ctx, query,
		agent.Name,
		strings.ToLower(agent.Email),
		agent.PasswordHash,
		string(agent.Role),
		agent.Active,
		agent.UpdatedAt.UTC(),
		agent.ID,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	agent, err := scanAgent(r.db.queryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC, id ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rs, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var result []domain.Agent
	for rs.Next() {
		agent, err := scanAgent(rs)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rs.Err()
}

func scanAgent(r row) (*domain.Agent, error) {
	var (
		agent domain.Agent
		role  string
	)
	if err := r.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&role,
		&agent.Active,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	agent.Role = domain.AgentRole(role)
	return &agent, nil
}
