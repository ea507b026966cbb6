package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/autorun"
	"github.com/faisworld/fais-web-sub000/internal/config"
)

// NewRunCmd creates the run command for one automated run
func NewRunCmd() *cobra.Command {
	var useNews bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one automated content run",
		Long: `Pick one or two topics, generate and publish an article for each with a
delay between them, then refresh the site's knowledge base.

A failing topic is reported and does not stop the run.

Examples:
  fais run
  fais run --news`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if cmd.Flags().Changed("news") {
				cfg.Autorun.UseNews = useNews
			}
			return runAutorun(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&useNews, "news", false, "Derive topics from the latest news (default from config)")

	return cmd
}

func runAutorun(ctx context.Context, cfg *config.Config) error {
	a := newApp(cfg)
	defer a.close()

	driver, err := a.Driver()
	if err != nil {
		return err
	}

	report, err := driver.Run(ctx)
	printReport(os.Stdout, report)
	return err
}

func printReport(w io.Writer, report autorun.Report) {
	topics := make([]string, 0, len(report.Topics))
	for _, t := range report.Topics {
		topics = append(topics, t.Topic)
	}

	fields := []field{
		{"Topics", strings.Join(topics, "\n"+strings.Repeat(" ", 14))},
		{"Generated", fmt.Sprintf("%d %s", len(report.Slugs), okMark(len(report.Failures) == 0))},
		{"Duration", report.Duration.Round(time.Second).String()},
	}
	for _, slug := range report.Slugs {
		fields = append(fields, field{"Slug", slug})
	}
	for _, f := range report.Failures {
		fields = append(fields, field{"Failed", warnStyle.Render(f.Topic + ": " + f.Err.Error())})
	}
	printSummary(w, "Automated run", fields...)
}
