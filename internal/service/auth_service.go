package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/atendimento-service/internal/auth"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// AuthService coordinates agent login.
type AuthService struct {
	agents   repository.AgentRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(agents repository.AgentRepository, tokenMgr *auth.TokenManager) *AuthService {
	return &AuthService{agents: agents, tokenMgr: tokenMgr}
}

// LoginAgent authenticates an agent and returns an access token.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, mapStoreError(err, "agent", "")
	}
	if !agent.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return agent, token, exp, nil
}
