package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Escalate every overdue ticket once",
	Long: `Load the open tickets from Postgres and escalate those past their SLA deadline.
Requires POSTGRES_DSN. Escalations are stored but no notifications are emitted,
since the activity feed belongs to the running server.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Postgres.UsePostgres() {
		return errors.New("sweep needs POSTGRES_DSN")
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repository.NewTicketRepository(pool),
		AccountRepo: repository.NewAccountRepository(pool),
		Logger:      logger,
	})
	watched, err := tickets.RebuildIndex(ctx)
	if err != nil {
		return err
	}
	report, err := tickets.EscalateOverdue(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "watched %d, due %d, escalated %d, failed %d\n",
		watched, report.Due, len(report.Escalated), report.Failed)
	for _, id := range report.Escalated {
		logger.Info("escalated", zap.String("ticket_id", id))
	}
	return err
}
