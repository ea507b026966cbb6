package handlers

import (
	"context"
	"fmt"

	"github.com/faisworld/fais-web-sub000/internal/autorun"
	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/contenthash"
	"github.com/faisworld/fais-web-sub000/internal/duplicates"
	"github.com/faisworld/fais-web-sub000/internal/fetch"
	"github.com/faisworld/fais-web-sub000/internal/generator"
	"github.com/faisworld/fais-web-sub000/internal/llm"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/observability"
	"github.com/faisworld/fais-web-sub000/internal/persistence"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/faisworld/fais-web-sub000/internal/visual"
)

// app holds the collaborators built from the configuration. Fields are
// created on first use; close releases whatever was opened.
type app struct {
	cfg *config.Config

	index   store.Index
	hashes  *contenthash.Store
	db      *persistence.PostgresDB
	posthog *observability.PostHogClient

	closers []func() error
}

func newApp(cfg *config.Config) *app {
	return &app{cfg: cfg}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to release resource", "error", err.Error())
		}
	}
	a.closers = nil
}

// Index opens the configured blog index backend.
func (a *app) Index() (store.Index, error) {
	if a.index != nil {
		return a.index, nil
	}

	switch a.cfg.Content.IndexBackend {
	case "flatfile":
		a.index = store.NewFlatFileIndex(a.cfg.Content.IndexPath)
	default:
		idx, err := store.NewSQLiteIndex(a.cfg.Content.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open blog index: %w", err)
		}
		a.closers = append(a.closers, idx.Close)
		a.index = idx
	}
	return a.index, nil
}

// Hashes returns the content-hash store.
func (a *app) Hashes() *contenthash.Store {
	if a.hashes == nil {
		a.hashes = contenthash.NewStore(a.cfg.Content.HashFile)
	}
	return a.hashes
}

// Detector builds the duplicate detector over the index and content dir.
func (a *app) Detector() (*duplicates.Detector, error) {
	idx, err := a.Index()
	if err != nil {
		return nil, err
	}
	d := a.cfg.Duplicates
	return duplicates.NewDetector(idx, a.cfg.Content.Dir, a.Hashes(), duplicates.Options{
		SimilarityThreshold:    d.SimilarityThreshold,
		PhraseOverlapThreshold: d.PhraseOverlapThreshold,
		MinCommonPhrases:       d.MinCommonPhrases,
		PhraseMatchThreshold:   d.PhraseMatchThreshold,
	}), nil
}

// Publisher builds the article publisher.
func (a *app) Publisher() (*store.Publisher, error) {
	idx, err := a.Index()
	if err != nil {
		return nil, err
	}
	return store.NewPublisher(idx, store.PublisherOptions{
		ContentDir:  a.cfg.Content.Dir,
		Hashes:      a.Hashes(),
		Author:      a.cfg.Content.Author,
		AuthorImage: a.cfg.Content.AuthorImage,
	}), nil
}

// Tracker returns the analytics tracker, a no-op when PostHog is disabled.
func (a *app) Tracker() observability.Tracker {
	if a.posthog == nil {
		ph, err := observability.NewPostHogClient(observability.PostHogConfig{
			Enabled: a.cfg.PostHog.Enabled,
			APIKey:  a.cfg.PostHog.APIKey,
			Host:    a.cfg.PostHog.Host,
		})
		if err != nil {
			logger.Warn("Analytics disabled", "error", err.Error())
			return observability.Noop{}
		}
		a.posthog = ph
		a.closers = append(a.closers, func() error { return ph.Shutdown(context.Background()) })
	}
	if !a.posthog.IsEnabled() {
		return observability.Noop{}
	}
	return a.posthog
}

// Generator builds the article generator client with duplicate checking and
// publishing wired in.
func (a *app) Generator() (*generator.Client, error) {
	detector, err := a.Detector()
	if err != nil {
		return nil, err
	}
	publisher, err := a.Publisher()
	if err != nil {
		return nil, err
	}
	baseURL := generator.ResolveBaseURL(a.cfg.Generation.BaseURL, a.cfg.App.DeploymentEnvs()...)
	return generator.NewClient(baseURL, a.cfg.Generation.InternalAPIKey,
		generator.WithDuplicateChecker(detector),
		generator.WithSaver(publisher),
		generator.WithTracker(a.Tracker()),
	), nil
}

// Crawler builds the news crawler from the crawler section.
func (a *app) Crawler() *fetch.Crawler {
	c := a.cfg.Crawler
	var sources []fetch.SourceGroup
	for _, s := range c.Sources {
		sources = append(sources, fetch.SourceGroup{Name: s.Name, URLs: s.URLs})
	}
	return fetch.NewCrawler(fetch.Config{
		Sources:         sources,
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		ListingInterval: c.ListingInterval,
		ArticleInterval: c.ArticleInterval,
		MaxPerSource:    c.MaxPerSource,
		MaxCandidates:   c.MaxCandidates,
		TargetArticles:  c.TargetArticles,
	})
}

// Database connects to the gallery database, or returns nil when no URL is
// configured.
func (a *app) Database(ctx context.Context) (*persistence.PostgresDB, error) {
	if a.db != nil || a.cfg.Database.URL == "" {
		return a.db, nil
	}
	db, err := persistence.NewPostgresDB(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.db = db
	return db, nil
}

// Media builds the media orchestrator, or returns nil when the prediction or
// blob token is missing.
func (a *app) Media(ctx context.Context) (*visual.Orchestrator, error) {
	if !a.cfg.HasMediaTokens() {
		return nil, nil
	}

	var gallery visual.GalleryRecorder
	db, err := a.Database(ctx)
	if err != nil {
		// Gallery rows are optional; uploads still work without them.
		logger.Warn("Gallery database unavailable, images will not be recorded", "error", err.Error())
	} else if db != nil {
		gallery = db.Gallery()
	}

	predictions := visual.NewPredictionClient(a.cfg.Replicate.APIToken, a.cfg.Replicate.BaseURL)
	blobs := visual.NewBlobClient(a.cfg.Blob.Token, a.cfg.Blob.BaseURL)
	return visual.NewOrchestrator(predictions, visual.NewUploader(blobs, gallery),
		visual.WithPolling(a.cfg.Replicate.PollInterval, a.cfg.Replicate.MaxAttempts),
		visual.WithTracker(a.Tracker()),
	), nil
}

// Writer builds the LLM article writer, or returns nil when no key is set.
func (a *app) Writer(ctx context.Context) (llm.Writer, error) {
	ai := a.cfg.AI
	if ai.Provider == "" && ai.OpenAI.APIKey == "" && ai.Gemini.APIKey == "" {
		return nil, nil
	}
	return llm.New(ctx, llm.Config{
		Provider:      ai.Provider,
		Model:         ai.Model,
		OpenAIAPIKey:  ai.OpenAI.APIKey,
		OpenAIBaseURL: ai.OpenAI.BaseURL,
		GeminiAPIKey:  ai.Gemini.APIKey,
	})
}

// Driver builds the automated run driver.
func (a *app) Driver() (*autorun.Driver, error) {
	gen, err := a.Generator()
	if err != nil {
		return nil, err
	}

	opts := autorun.Options{
		Delay:   a.cfg.Autorun.Delay,
		UseNews: a.cfg.Autorun.UseNews,
		Tracker: a.Tracker(),
	}
	if a.cfg.Autorun.UseNews {
		opts.News = a.Crawler()
	}
	if a.cfg.Autorun.RefreshKnowledgeBase {
		opts.KnowledgeBase = autorun.NewRefreshClient(gen.BaseURL(), a.cfg.Generation.InternalAPIKey)
	}
	return autorun.NewDriver(gen, opts), nil
}
