package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/store"
)

// NewCheckDuplicateCmd creates the check-duplicate command
func NewCheckDuplicateCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "check-duplicate <markdown-file>",
		Short: "Check a draft article against published content",
		Long: `Run the duplicate detector on a draft. The file may carry YAML
frontmatter; its title is used unless --title is given.

Examples:
  fais check-duplicate drafts/new-post.md
  fais check-duplicate body.md --title "Smart contract security"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckDuplicate(cmd.Context(), args[0], title)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Article title (default from frontmatter)")

	return cmd
}

func runCheckDuplicate(ctx context.Context, path, title string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read draft: %w", err)
	}

	fm, body, err := store.ParseMarkdown(data)
	if err != nil {
		body = store.StripFrontmatter(string(data))
	}
	title = firstNonEmpty(strings.TrimSpace(title), fm.Title)
	if title == "" {
		return fmt.Errorf("no title: pass --title or add one to the frontmatter")
	}

	a := newApp(config.Get())
	defer a.close()

	detector, err := a.Detector()
	if err != nil {
		return err
	}
	result := detector.Check(ctx, title, body)

	fields := []field{{"Title", title}}
	if result.IsDuplicate {
		fields = append(fields,
			field{"Duplicate", errorStyle.Render("yes")},
			field{"Reason", result.Reason},
			field{"Similarity", fmt.Sprintf("%.2f", result.Similarity)},
		)
		if result.SimilarTitle != "" {
			fields = append(fields, field{"Matches", result.SimilarTitle})
		}
		if result.SimilarFile != "" {
			fields = append(fields, field{"File", result.SimilarFile})
		}
		if result.PhraseOverlap > 0 {
			fields = append(fields, field{"Overlap", fmt.Sprintf("%.2f", result.PhraseOverlap)})
		}
		if len(result.CommonPhrases) > 0 {
			fields = append(fields, field{"Phrases", strings.Join(result.CommonPhrases, "; ")})
		}
	} else {
		fields = append(fields, field{"Duplicate", successStyle.Render("no")})
	}
	printSummary(os.Stdout, "Duplicate check", fields...)
	return nil
}
