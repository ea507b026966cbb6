package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/scheduler"
)

// NewScheduleCmd creates the schedule command
func NewScheduleCmd() *cobra.Command {
	var (
		at       string
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the automated content run on a daily schedule",
		Long: `Keep running and perform an automated run on the configured schedule
(autorun.schedule, a cron expression, default 09:00 daily).

Examples:
  fais schedule
  fais schedule --at 07:30 --timezone Europe/Kyiv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), at, timezone)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Daily time HH:MM or cron expression (default from config)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (default from config)")

	return cmd
}

func runSchedule(ctx context.Context, at, timezone string) error {
	cfg := config.Get()
	spec := firstNonEmpty(at, cfg.Autorun.Schedule)

	s, err := scheduler.New(firstNonEmpty(timezone, cfg.Autorun.Timezone))
	if err != nil {
		return err
	}

	err = s.Schedule(ctx, spec, func(ctx context.Context) {
		if err := runAutorun(ctx, cfg); err != nil {
			logger.Error("Automated run failed", err)
		}
	})
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Scheduler running") + " " + spec + " (" + firstNonEmpty(timezone, cfg.Autorun.Timezone, "UTC") + ")")
	s.Run(ctx)
	return nil
}
