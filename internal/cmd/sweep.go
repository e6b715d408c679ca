package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/attestor-io/attestor/internal/retention"
)

var (
	sweepWatch    bool
	sweepSchedule string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire receipts past the retention horizon",
	Long: `Deletes receipts older than retention_days. Runs once and exits by
default; with --watch it stays up and sweeps on a cron schedule.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepWatch, "watch", false, "Keep running and sweep on a schedule")
	sweepCmd.Flags().StringVar(&sweepSchedule, "schedule", retention.DefaultSchedule, "Cron schedule for --watch (5-field format)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return fmt.Errorf("initializing attestor: %w", err)
	}
	defer a.Close()

	if !sweepWatch {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		removed, err := a.Sweeper.SweepOnce(ctx)
		if err != nil {
			return fmt.Errorf("sweeping receipts: %w", err)
		}
		fmt.Printf("Removed %d expired receipt(s) (retention: %d days)\n", removed, a.Config.RetentionDays)
		return nil
	}

	if err := a.Sweeper.Start(sweepSchedule); err != nil {
		return err
	}
	log.Info().Str("schedule", sweepSchedule).Int("retention_days", a.Config.RetentionDays).Msg("sweeper_started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Sweeper.Stop()
	log.Info().Msg("sweeper_stopped")
	return nil
}
