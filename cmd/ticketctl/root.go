package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/bootstrap"
	"github.com/spec-kit/atendimento-service/internal/config"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/service"
	"github.com/spec-kit/atendimento-service/internal/sla"
)

// env is what every subcommand runs against.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *bootstrap.StoreHandle
	tickets *service.TicketService
	out     io.Writer
}

type opener func(ctx context.Context, out io.Writer) (*env, error)

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openEnv)
}

func newRootCmdWith(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Operate the atendimento ticket store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newArchiveCmd(open),
		newAuditCmd(open),
		newSLACmd(open),
	)
	return root
}

func openEnv(ctx context.Context, out io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	policy, err := sla.LoadPolicy(cfg.Lifecycle.SLAPolicyFile)
	if err != nil {
		store.Close()
		return nil, err
	}
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:                  store.Store,
		Logger:                 logger,
		SLAPolicy:              policy,
		AtRiskWindow:           cfg.Lifecycle.SLAAtRiskWindow(),
		ReopenClearsCompletion: cfg.Lifecycle.ReopenClearsCompletion,
	})
	return &env{cfg: cfg, logger: logger, store: store, tickets: tickets, out: out}, nil
}

func (e *env) close() {
	e.store.Close()
	_ = e.logger.Sync()
}
