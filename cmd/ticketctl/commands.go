package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/atendimento-service/internal/persistence"
)

func newMigrateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage schema migrations",
	}
	run := func(action string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.close()
			ctx := cmd.Context()
			switch action {
			case "up":
				return persistence.MigrateUp(ctx, e.store.DB, e.store.Dialect, e.logger)
			case "down":
				return persistence.MigrateDown(ctx, e.store.DB, e.store.Dialect)
			default:
				return persistence.MigrationStatus(ctx, e.store.DB, e.store.Dialect)
			}
		}
	}
	for _, action := range []string{"up", "down", "status"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: "Run migrate " + action,
			Args:  cobra.NoArgs,
			RunE:  run(action),
		})
	}
	return cmd
}

func newArchiveCmd(open opener) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Close support tickets resolved before the cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			e, err := open(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.close()
			result, err := e.tickets.Archive(cmd.Context(), olderThan, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "archived=%d skipped=%d\n", result.Archived, result.Skipped)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum time since resolution")
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum tickets per run")
	return cmd
}

func newAuditCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report tickets whose stored state breaks lifecycle rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.close()
			findings, err := e.tickets.Audit(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range findings {
				fmt.Fprintf(e.out, "%s\t%s\n", f.TicketID, f.Problem)
			}
			if len(findings) > 0 {
				return fmt.Errorf("%d finding(s)", len(findings))
			}
			fmt.Fprintln(e.out, "ok")
			return nil
		},
	}
}

func newSLACmd(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "List open tickets at risk of breaching their resolution deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer e.close()
			details, err := e.tickets.ListAtRisk(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRIORITY\tSTATUS\tDEADLINE\tREMAINING\tBREACHED")
			for _, d := range details {
				deadline := "-"
				if d.SLA.Deadline != nil {
					deadline = d.SLA.Deadline.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					d.Ticket.ID, d.Ticket.Priority, d.Ticket.Status, deadline,
					d.SLA.Remaining.Truncate(time.Minute), d.SLA.Breached)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum tickets to list")
	return cmd
}
