package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/generator"
	"github.com/faisworld/fais-web-sub000/internal/llm"
)

const diagnoseTimeout = 20 * time.Second

// keyChecker verifies an API key against its provider.
type keyChecker interface {
	Check(ctx context.Context) error
}

// NewDiagnoseCmd creates the diagnose command
func NewDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Validate API keys and show resolved settings",
		Long: `Check the configured OpenAI and Gemini keys against their APIs and report
which credentials the generation endpoints will find.

Exits non-zero when a configured key is rejected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context())
		},
	}
}

func runDiagnose(ctx context.Context) error {
	cfg := config.Get()
	ai := cfg.AI

	fields := []field{
		{"Environment", cfg.App.Env},
		{"Endpoint", generator.ResolveBaseURL(cfg.Generation.BaseURL, cfg.App.DeploymentEnvs()...)},
		{"Internal key", present(cfg.Generation.InternalAPIKey != "")},
		{"Replicate", present(cfg.Replicate.APIToken != "")},
		{"Blob", present(cfg.Blob.Token != "")},
		{"Database", present(cfg.Database.URL != "")},
		{"Index", cfg.Content.IndexBackend},
	}

	failed := 0
	check := func(name string, build func() (keyChecker, error)) {
		c, err := build()
		if err == nil {
			checkCtx, cancel := context.WithTimeout(ctx, diagnoseTimeout)
			err = c.Check(checkCtx)
			cancel()
		}
		if err != nil {
			failed++
			fields = append(fields, field{name, okMark(false) + " " + err.Error()})
			return
		}
		fields = append(fields, field{name, okMark(true) + " key accepted"})
	}

	if ai.OpenAI.APIKey != "" {
		check("OpenAI", func() (keyChecker, error) {
			return llm.NewOpenAIClient(ai.OpenAI.APIKey, modelFor("openai", ai), ai.OpenAI.BaseURL)
		})
	} else {
		fields = append(fields, field{"OpenAI", warnStyle.Render("OPENAI_API_KEY not set")})
	}

	if ai.Gemini.APIKey != "" {
		check("Gemini", func() (keyChecker, error) {
			return llm.NewGeminiClient(ctx, ai.Gemini.APIKey, modelFor("gemini", ai))
		})
	} else {
		fields = append(fields, field{"Gemini", warnStyle.Render("GEMINI_API_KEY not set")})
	}

	printSummary(os.Stdout, "Diagnostics", fields...)
	if failed > 0 {
		return fmt.Errorf("%d API key check(s) failed", failed)
	}
	return nil
}

// modelFor returns the configured model when it belongs to provider.
func modelFor(provider string, ai config.AI) string {
	if ai.Provider == provider {
		return ai.Model
	}
	return ""
}

func present(ok bool) string {
	if ok {
		return successStyle.Render("set")
	}
	return warnStyle.Render("not set")
}
