// Package fetch crawls AI and blockchain news sites for recent headlines and
// article bodies used as inspiration for new posts.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
)

// DefaultUserAgent is a desktop browser string; several news sites reject
// obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// SourceGroup is a named list of news listing pages.
type SourceGroup struct {
	Name string
	URLs []string
}

// DefaultSources are the listing pages crawled when none are configured.
var DefaultSources = []SourceGroup{
	{
		Name: "AI",
		URLs: []string{
			"https://techcrunch.com/category/artificial-intelligence/",
			"https://venturebeat.com/category/ai/",
			"https://www.artificialintelligence-news.com/",
		},
	},
	{
		Name: "Blockchain",
		URLs: []string{
			"https://cointelegraph.com/",
			"https://www.coindesk.com/",
			"https://decrypt.co/",
		},
	},
}

var (
	// headlineSelectors are tried in order on each listing page.
	headlineSelectors = []string{
		"article h2 a",
		"article h3 a",
		".post-title a",
		".entry-title a",
		"h2.title a",
		"h3.title a",
		".headline a",
		"a.story-link",
	}

	// contentSelectors locate the article body; the first one with text wins.
	contentSelectors = []string{
		"article .entry-content",
		"article .post-content",
		".article-body",
		".article-content",
		".entry-content",
		".post-content",
		".story-body",
		"article",
		"main",
		"[role='main']",
	}

	// boilerplateSelector matches elements removed before extracting text.
	boilerplateSelector = "script, style, noscript, nav, footer, header, aside, form, iframe, .ad, .ads, .advertisement, .sidebar, .newsletter, .social-share"

	// Keywords is the allowlist a headline must match to be kept.
	Keywords = []string{
		"ai", "artificial intelligence", "machine learning",
		"blockchain", "crypto", "bitcoin", "ethereum",
		"defi", "smart contract", "nft", "web3",
	}

	spaceRegex      = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `s?\b`)
	}
	return patterns
}

// Config controls the crawl.
type Config struct {
	Sources          []SourceGroup
	UserAgent        string
	Timeout          time.Duration // Per request
	ListingInterval  time.Duration // Minimum gap between listing page fetches
	ArticleInterval  time.Duration // Minimum gap between article fetches
	MaxPerSource     int           // Candidates kept per listing page
	MaxCandidates    int           // Candidates fetched after de-duplication
	TargetArticles   int           // Stop once this many usable articles are collected
	MinTitleLength   int           // Headlines must be longer than this
	MinContentLength int           // Usable articles must be longer than this
	MaxContentLength int           // Extracted bodies are truncated to this many characters
}

// DefaultConfig returns the standard crawl settings.
func DefaultConfig() Config {
	return Config{
		Sources:          DefaultSources,
		UserAgent:        DefaultUserAgent,
		Timeout:          10 * time.Second,
		ListingInterval:  time.Second,
		ArticleInterval:  2 * time.Second,
		MaxPerSource:     5,
		MaxCandidates:    10,
		TargetArticles:   4,
		MinTitleLength:   20,
		MinContentLength: 200,
		MaxContentLength: 2000,
	}
}

// Crawler fetches news listings and articles one request at a time.
type Crawler struct {
	cfg        Config
	httpClient *http.Client
	listing    *rate.Limiter
	article    *rate.Limiter
	now        func() time.Time
	log        zerolog.Logger
}

// NewCrawler creates a crawler. Zero-valued config fields take their defaults;
// a negative interval disables that rate limit.
func NewCrawler(cfg Config) *Crawler {
	d := DefaultConfig()
	if cfg.Sources == nil {
		cfg.Sources = d.Sources
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = d.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.ListingInterval == 0 {
		cfg.ListingInterval = d.ListingInterval
	}
	if cfg.ArticleInterval == 0 {
		cfg.ArticleInterval = d.ArticleInterval
	}
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = d.MaxPerSource
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = d.MaxCandidates
	}
	if cfg.TargetArticles <= 0 {
		cfg.TargetArticles = d.TargetArticles
	}
	if cfg.MinTitleLength <= 0 {
		cfg.MinTitleLength = d.MinTitleLength
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = d.MinContentLength
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = d.MaxContentLength
	}

	return &Crawler{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		listing:    newLimiter(cfg.ListingInterval),
		article:    newLimiter(cfg.ArticleInterval),
		now:        time.Now,
		log:        logger.Component("crawler"),
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval < 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// candidate is a headline found on a listing page.
type candidate struct {
	title  string
	url    string
	source string
}

// CrawlLatestNews fetches the configured listing pages, keeps on-topic
// headlines and returns up to TargetArticles articles with usable bodies.
// Individual page failures are logged and skipped; only context
// cancellation is returned as an error.
func (c *Crawler) CrawlLatestNews(ctx context.Context) ([]core.NewsArticle, error) {
	var candidates []candidate
	for _, group := range c.cfg.Sources {
		for _, listingURL := range group.URLs {
			if err := c.listing.Wait(ctx); err != nil {
				return nil, err
			}
			found, err := c.crawlListing(ctx, listingURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.log.Warn().Err(err).Str("group", group.Name).Str("url", listingURL).Msg("Skipping news source")
				continue
			}
			c.log.Debug().Str("url", listingURL).Int("candidates", len(found)).Msg("Crawled news source")
			candidates = append(candidates, found...)
		}
	}

	candidates = dedupeByTitle(candidates)
	if len(candidates) > c.cfg.MaxCandidates {
		candidates = candidates[:c.cfg.MaxCandidates]
	}

	var articles []core.NewsArticle
	for _, cand := range candidates {
		if len(articles) >= c.cfg.TargetArticles {
			break
		}
		if err := c.article.Wait(ctx); err != nil {
			return articles, err
		}

		content, err := c.fetchArticleContent(ctx, cand.url)
		if err != nil {
			if ctx.Err() != nil {
				return articles, ctx.Err()
			}
			c.log.Warn().Err(err).Str("url", cand.url).Msg("Failed to fetch article")
			continue
		}
		if len([]rune(content)) <= c.cfg.MinContentLength {
			c.log.Debug().Str("url", cand.url).Int("length", len(content)).Msg("Article body too short, skipping")
			continue
		}

		articles = append(articles, core.NewsArticle{
			Title:     cand.title,
			URL:       cand.url,
			Source:    cand.source,
			Content:   content,
			Timestamp: c.now().UTC(),
		})
	}

	c.log.Info().Int("candidates", len(candidates)).Int("articles", len(articles)).Msg("News crawl completed")
	return articles, nil
}

func (c *Crawler) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status code %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", pageURL, err)
	}
	return body, nil
}

func (c *Crawler) crawlListing(ctx context.Context, listingURL string) ([]candidate, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %s: %w", listingURL, err)
	}

	body, err := c.get(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", listingURL, err)
	}

	return extractHeadlines(doc, base, c.cfg.MinTitleLength, c.cfg.MaxPerSource), nil
}

// extractHeadlines walks the headline selectors in order and keeps on-topic
// links until max candidates are found.
func extractHeadlines(doc *goquery.Document, base *url.URL, minTitle, max int) []candidate {
	var found []candidate
	seen := make(map[string]bool)

	for _, selector := range headlineSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			title := strings.Join(strings.Fields(s.Text()), " ")
			href, ok := s.Attr("href")
			if !ok || len(title) <= minTitle || !MatchesKeywords(title) {
				return true
			}

			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return true
			}
			abs := base.ResolveReference(ref).String()
			if seen[abs] {
				return true
			}
			seen[abs] = true

			found = append(found, candidate{title: title, url: abs, source: base.Hostname()})
			return len(found) < max
		})
		if len(found) >= max {
			break
		}
	}
	return found
}

// MatchesKeywords reports whether the lowercased text contains any allowlisted
// keyword. Headlines like "Cryptocurrencies..." or "OpenAI..." must pass, so
// this is a plain substring test; topic classification uses word boundaries.
func MatchesKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func dedupeByTitle(candidates []candidate) []candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c.title] {
			continue
		}
		seen[c.title] = true
		out = append(out, c)
	}
	return out
}

func (c *Crawler) fetchArticleContent(ctx context.Context, articleURL string) (string, error) {
	body, err := c.get(ctx, articleURL)
	if err != nil {
		return "", err
	}

	text, err := ExtractContent(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		text = readabilityText(body, articleURL)
	}
	return truncate(text, c.cfg.MaxContentLength), nil
}

// ExtractContent strips boilerplate from an article page and returns its main
// text, trying the content selectors first and falling back to long paragraphs.
func ExtractContent(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse article HTML: %w", err)
	}
	doc.Find(boilerplateSelector).Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := cleanText(blockText(sel)); text != "" {
			return text, nil
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len(text) > 50 {
			paragraphs = append(paragraphs, text)
		}
	})
	return cleanText(strings.Join(paragraphs, "\n\n")), nil
}

// blockText joins the text of paragraph-like children, keeping breaks.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("p, h2, h3, h4, li, blockquote").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})
	if b.Len() == 0 {
		return sel.Text()
	}
	return b.String()
}

func cleanText(text string) string {
	text = spaceRegex.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = blankLinesRegex.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func readabilityText(html []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		return ""
	}
	return cleanText(article.TextContent)
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max]))
}
