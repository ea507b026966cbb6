package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/generator"
)

// NewGenerateCmd creates the generate command for a single article
func NewGenerateCmd() *cobra.Command {
	var (
		keywords  []string
		tone      string
		wordCount int
		preview   bool
	)

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate one article for a topic",
		Long: `Generate one article through the generation endpoint.

By default the article gets a cover image and is checked for duplicates and
published. With --preview nothing is saved.

Examples:
  fais generate "How AI agents are changing logistics" -k "AI agents,logistics"
  fais generate "Stablecoin regulation in 2026" --tone professional --words 1200
  fais generate "Layer 2 rollups" --preview`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return runGenerate(cmd.Context(), topic, keywords, tone, wordCount, !preview)
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "SEO keywords (comma separated)")
	cmd.Flags().StringVar(&tone, "tone", "", "Writing tone (default from config)")
	cmd.Flags().IntVar(&wordCount, "words", 0, "Target word count (default from config)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Generate without cover image and without saving")

	return cmd
}

func runGenerate(ctx context.Context, topic string, keywords []string, tone string, wordCount int, publish bool) error {
	cfg := config.Get()
	a := newApp(cfg)
	defer a.close()

	gen, err := a.Generator()
	if err != nil {
		return err
	}

	req := generator.NewRequest(topic, keywords)
	req.Tone = firstNonEmpty(tone, cfg.Generation.Tone)
	req.WordCount = firstPositive(wordCount, cfg.Generation.WordCount)
	req.IncludeImage = publish

	result, err := gen.GenerateArticle(ctx, req)
	if err != nil {
		return fmt.Errorf("article generation failed: %w", err)
	}

	fields := []field{
		{"Title", result.Title},
		{"Slug", result.Slug},
		{"Endpoint", gen.BaseURL()},
	}
	if result.ImageURL != "" {
		fields = append(fields, field{"Image", result.ImageURL})
	}
	if !publish {
		fields = append(fields, field{"Saved", warnStyle.Render("no (preview)")})
	}
	printSummary(os.Stdout, "Article generated", fields...)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
