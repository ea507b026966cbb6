package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/fetch"
)

// NewCrawlCmd creates the crawl command
func NewCrawlCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl news sources and propose article topics",
		Long: `Crawl the configured news listing pages for AI and blockchain headlines,
fetch the matching articles and print the topic proposals derived from them.

Nothing is generated or saved.

Examples:
  fais crawl
  fais crawl --json > news.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print articles and proposals as JSON")

	return cmd
}

type crawlOutput struct {
	Articles  []core.NewsArticle   `json:"articles"`
	Proposals []core.TopicProposal `json:"proposals"`
}

func runCrawl(ctx context.Context, asJSON bool) error {
	a := newApp(config.Get())
	defer a.close()

	articles, err := a.Crawler().CrawlLatestNews(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	proposals := fetch.GenerateArticleTopicsFromNews(articles)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(crawlOutput{Articles: articles, Proposals: proposals})
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d articles", len(articles))))
	for i, art := range articles {
		fmt.Printf("%2d. %s\n    %s (%s)\n", i+1, art.Title, art.URL, art.Source)
	}
	fmt.Println()

	if len(proposals) == 0 {
		fmt.Println(warnStyle.Render("No topics proposed"))
		return nil
	}
	fmt.Println(titleStyle.Render("Topic proposals"))
	for _, p := range proposals {
		fmt.Printf("  [%s] %s\n      %s\n", p.Kind, p.Topic, strings.Join(p.Keywords, ", "))
	}
	return nil
}
