// Package generator calls the internal article generation endpoint and hands
// final articles to the duplicate check and the publisher.
package generator

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/observability"
)

const (
	// ProductionBaseURL is used when no override is set and the environment is production.
	ProductionBaseURL = "https://www.fais.world"
	// LocalBaseURL is the development fallback.
	LocalBaseURL = "http://localhost:3000"
	// GeneratePath is the internal article generation endpoint.
	GeneratePath = "/api/admin/ai-tools/generate-article"

	DefaultTone      = "informative"
	DefaultWordCount = 800
)

// ErrMissingTopic is returned when a request has no topic.
var ErrMissingTopic = errors.New("article topic is required")

// APIError is a non-2xx response from the generation endpoint. Body is the
// response body verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("article generation API error (status %d): %s", e.StatusCode, e.Body)
}

// DuplicateChecker decides whether a generated article repeats existing content.
type DuplicateChecker interface {
	Check(ctx context.Context, title, content string) core.DuplicateCheckResult
}

// ArticleSaver persists a generated article. It returns false when the article
// was skipped as a duplicate.
type ArticleSaver interface {
	SaveArticle(ctx context.Context, result core.GenerationResult, id string) (bool, error)
}

// ResolveBaseURL picks the generation endpoint host: an explicit override
// first, then the production host when any of envs is "production", then
// localhost.
func ResolveBaseURL(override string, envs ...string) string {
	if override = strings.TrimSpace(override); override != "" {
		return strings.TrimRight(override, "/")
	}
	for _, env := range envs {
		if strings.EqualFold(strings.TrimSpace(env), "production") {
			return ProductionBaseURL
		}
	}
	return LocalBaseURL
}

// ArticleID derives the short article id from the topic and a timestamp: the
// first 8 hex characters of md5(topic + unix millis).
func ArticleID(topic string, t time.Time) string {
	sum := md5.Sum([]byte(topic + strconv.FormatInt(t.UnixMilli(), 10)))
	return hex.EncodeToString(sum[:])[:8]
}

// NewRequest returns a request with the standard defaults: informative tone,
// 800 words, with a cover image (which also makes the result persist).
func NewRequest(topic string, keywords []string) core.GenerationRequest {
	return core.GenerationRequest{
		Topic:        topic,
		Keywords:     keywords,
		Tone:         DefaultTone,
		WordCount:    DefaultWordCount,
		IncludeImage: true,
	}
}

// Client calls the internal generation endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	detector   DuplicateChecker
	saver      ArticleSaver
	tracker    observability.Tracker
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDuplicateChecker sets the checker run before saving.
func WithDuplicateChecker(d DuplicateChecker) Option {
	return func(c *Client) { c.detector = d }
}

// WithSaver sets the publisher used for final generations.
func WithSaver(s ArticleSaver) Option {
	return func(c *Client) { c.saver = s }
}

// WithTracker sets the analytics tracker.
func WithTracker(t observability.Tracker) Option {
	return func(c *Client) { c.tracker = t }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithClock overrides the clock used for article ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the endpoint at baseURL. apiKey, when set,
// is sent as a bearer token.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// The endpoint can take minutes; no client-side timeout.
		httpClient: &http.Client{},
		tracker:    observability.Noop{},
		now:        time.Now,
		log:        logger.Component("generator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved endpoint host.
func (c *Client) BaseURL() string { return c.baseURL }

// GenerateArticle requests an article for req.Topic. When req.IncludeImage is
// set the result is also checked for duplicates and saved; the result is
// returned whether or not saving succeeded.
func (c *Client) GenerateArticle(ctx context.Context, req core.GenerationRequest) (*core.GenerationResult, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, ErrMissingTopic
	}
	if req.Tone == "" {
		req.Tone = DefaultTone
	}
	if req.WordCount <= 0 {
		req.WordCount = DefaultWordCount
	}
	if req.Keywords == nil {
		req.Keywords = []string{}
	}
	req.ID = ArticleID(req.Topic, c.now())

	c.log.Info().Str("id", req.ID).Str("topic", req.Topic).Bool("include_image", req.IncludeImage).Msg("Generating article")

	result, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	saved := false
	if req.IncludeImage {
		saved = c.persist(ctx, req.ID, *result)
	}
	observability.TrackArticleGenerated(ctx, c.tracker, req.ID, result.Slug, req.Topic, saved)

	return result, nil
}

func (c *Client) post(ctx context.Context, req core.GenerationRequest) (*core.GenerationResult, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result core.GenerationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// persist runs the duplicate check and the save step, logging why an article
// was not saved. It never fails the generation.
func (c *Client) persist(ctx context.Context, id string, result core.GenerationResult) bool {
	if c.detector != nil {
		dup := c.detector.Check(ctx, result.Title, result.Content)
		if dup.IsDuplicate {
			c.log.Warn().
				Str("id", id).
				Str("title", result.Title).
				Str("reason", dup.Reason).
				Msg("Article skipped as duplicate")
			observability.TrackDuplicateSkipped(ctx, c.tracker, id, result.Title, dup.Reason)
			return false
		}
	}

	if c.saver == nil {
		return false
	}

	saved, err := c.saver.SaveArticle(ctx, result, id)
	if err != nil {
		c.log.Warn().Err(err).Str("id", id).Str("slug", result.Slug).Msg("Article save failed")
		observability.TrackSaveFailed(ctx, c.tracker, id, result.Slug, err)
		return false
	}
	if !saved {
		c.log.Warn().Str("id", id).Str("slug", result.Slug).Msg("Article skipped as duplicate by index guard")
		observability.TrackDuplicateSkipped(ctx, c.tracker, id, result.Title, "index guard")
		return false
	}

	c.log.Info().Str("id", id).Str("slug", result.Slug).Msg("Article saved")
	return true
}
