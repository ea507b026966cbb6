// Package observability provides product analytics for the content pipeline.
package observability

import (
	"context"
	"fmt"

	"github.com/posthog/posthog-go"
	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/logger"
)

// Event names captured by the pipeline.
const (
	EventArticleGenerated        = "article_generated"
	EventArticleDuplicateSkipped = "article_duplicate_skipped"
	EventArticleSaveFailed       = "article_save_failed"
	EventMediaGenerated          = "media_generated"
	EventAutorunCompleted        = "autorun_completed"
)

// systemDistinctID attributes pipeline events that have no user.
const systemDistinctID = "system"

// EventProperties contains properties for an event
type EventProperties map[string]interface{}

// Tracker records pipeline events. Implementations must be safe to call when
// analytics is disabled.
type Tracker interface {
	Capture(ctx context.Context, distinctID string, event string, properties EventProperties) error
}

// PostHogConfig configures the PostHog client.
type PostHogConfig struct {
	Enabled bool
	APIKey  string
	Host    string
}

// PostHogClient wraps the PostHog SDK for product analytics
type PostHogClient struct {
	client  posthog.Client
	enabled bool
	log     zerolog.Logger
}

// NewPostHogClient creates a new PostHog analytics client. A disabled config
// yields a client whose methods are no-ops.
func NewPostHogClient(cfg PostHogConfig) (*PostHogClient, error) {
	log := logger.Component("posthog")
	if !cfg.Enabled {
		return &PostHogClient{enabled: false, log: log}, nil
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog enabled but missing API key")
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{
		Endpoint: cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &PostHogClient{
		client:  client,
		enabled: true,
		log:     log,
	}, nil
}

// IsEnabled returns whether PostHog tracking is enabled
func (p *PostHogClient) IsEnabled() bool {
	return p != nil && p.enabled
}

// Capture sends an event to PostHog
func (p *PostHogClient) Capture(ctx context.Context, distinctID string, event string, properties EventProperties) error {
	if !p.IsEnabled() {
		return nil
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	if err := p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	}); err != nil {
		p.log.Warn().Err(err).Str("event", event).Msg("Failed to enqueue analytics event")
		return err
	}
	return nil
}

// Shutdown flushes pending events and closes the client.
func (p *PostHogClient) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() {
		return nil
	}
	return p.client.Close()
}

// Noop is a Tracker that drops every event.
type Noop struct{}

// Capture implements Tracker.
func (Noop) Capture(context.Context, string, string, EventProperties) error { return nil }

// TrackArticleGenerated records a generated article and whether it was saved.
func TrackArticleGenerated(ctx context.Context, t Tracker, id, slug, topic string, saved bool) {
	_ = t.Capture(ctx, systemDistinctID, EventArticleGenerated, EventProperties{
		"article_id": id,
		"slug":       slug,
		"topic":      topic,
		"saved":      saved,
	})
}

// TrackDuplicateSkipped records an article rejected as a duplicate.
func TrackDuplicateSkipped(ctx context.Context, t Tracker, id, title, reason string) {
	_ = t.Capture(ctx, systemDistinctID, EventArticleDuplicateSkipped, EventProperties{
		"article_id": id,
		"title":      title,
		"reason":     reason,
	})
}

// TrackSaveFailed records a persistence failure.
func TrackSaveFailed(ctx context.Context, t Tracker, id, slug string, err error) {
	_ = t.Capture(ctx, systemDistinctID, EventArticleSaveFailed, EventProperties{
		"article_id":    id,
		"slug":          slug,
		"error_message": err.Error(),
	})
}

// TrackMediaGenerated records a finished media generation.
func TrackMediaGenerated(ctx context.Context, t Tracker, model, mediaType string, count int, durationMs int64) {
	_ = t.Capture(ctx, systemDistinctID, EventMediaGenerated, EventProperties{
		"model":       model,
		"media_type":  mediaType,
		"count":       count,
		"duration_ms": durationMs,
	})
}

// TrackAutorunCompleted records the outcome of an automated run.
func TrackAutorunCompleted(ctx context.Context, t Tracker, topics, generated, failed int, durationMs int64) {
	_ = t.Capture(ctx, systemDistinctID, EventAutorunCompleted, EventProperties{
		"topics":      topics,
		"generated":   generated,
		"failed":      failed,
		"duration_ms": durationMs,
	})
}
