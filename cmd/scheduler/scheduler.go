// Package scheduler implements the long-running agent scheduler
// command.
package scheduler

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/leadscout/cmd/common"
	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/logger"
	"github.com/jonesrussell/leadscout/internal/scheduler"
)

// Command returns the scheduler command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run saved agents on their intervals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.ConnectDatabase(); err != nil {
				return err
			}

			agents := database.NewAgentRepository(deps.DB)
			leads := database.NewLeadRepository(deps.DB)
			notifications := database.NewNotificationRepository(deps.DB)

			pipeline := scheduler.NewPipeline(
				deps.Logger,
				deps.Orchestrator,
				deps.Dedup,
				deps.Classifier,
				leads,
				notifications,
				scheduler.WithPipelineMetrics(deps.Metrics),
			)

			sched := scheduler.New(deps.Logger, agents, pipeline, deps.Config.Scheduler,
				scheduler.WithSchedulerMetrics(deps.Metrics),
			)

			if err := deps.Sweeper.Start(); err != nil {
				return fmt.Errorf("failed to start registry sweeper: %w", err)
			}
			defer deps.Sweeper.Stop()

			if err := sched.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			deps.Logger.Info("Shutdown signal received", logger.String("signal", sig.String()))

			sched.Stop()
			return nil
		},
	}
}
