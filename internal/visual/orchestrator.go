// Package visual generates images and videos through the prediction API and
// re-hosts generated images in blob storage.
package visual

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/observability"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
	MaxImageCount       = 9
)

// Error is a generation failure with the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	Detail  any
}

func (e *Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func newError(status int, message string, detail any) *Error {
	return &Error{Status: status, Message: message, Detail: detail}
}

// Request is a media generation request.
type Request struct {
	MediaType         core.MediaType `json:"mediaType" validate:"required"`
	ModelIdentifier   string         `json:"modelIdentifier" validate:"required"`
	Prompt            string         `json:"prompt" validate:"required"`
	AspectRatio       string         `json:"aspectRatio,omitempty"`
	NegativePrompt    string         `json:"negativePrompt,omitempty"`
	Count             int            `json:"count,omitempty" validate:"omitempty,min=1,max=9"`
	Seed              *int           `json:"seed,omitempty"`
	Duration          int            `json:"duration,omitempty" validate:"omitempty,min=1,max=20"`
	CameraMovement    string         `json:"cameraMovement,omitempty"`
	ReferenceImage    string         `json:"referenceImage,omitempty" validate:"omitempty,url"`
	SubjectReference  string         `json:"subjectReference,omitempty" validate:"omitempty,url"`
	FirstFrameImage   string         `json:"firstFrameImage,omitempty" validate:"omitempty,url"`
	PromptOptimizer   *bool          `json:"promptOptimizer,omitempty"`
	SafetyFilterLevel string         `json:"safetyFilterLevel,omitempty"`
	Style             string         `json:"style,omitempty"`
	OutputFormat      string         `json:"outputFormat,omitempty" validate:"omitempty,oneof=webp jpg png"`
	Folder            string         `json:"folder,omitempty"`
}

func (r Request) params() Params {
	return Params{
		Prompt:            r.Prompt,
		AspectRatio:       r.AspectRatio,
		NegativePrompt:    r.NegativePrompt,
		Count:             r.Count,
		Seed:              r.Seed,
		Duration:          r.Duration,
		CameraMovement:    r.CameraMovement,
		ReferenceImage:    r.ReferenceImage,
		SubjectReference:  r.SubjectReference,
		FirstFrameImage:   r.FirstFrameImage,
		PromptOptimizer:   r.PromptOptimizer,
		SafetyFilterLevel: r.SafetyFilterLevel,
		Style:             r.Style,
		OutputFormat:      r.OutputFormat,
	}
}

// Result is a finished generation. Images carry the re-hosted URLs (or the
// provider URL for any image that failed to upload); videos carry the
// provider URL.
type Result struct {
	MediaType    core.MediaType `json:"mediaType"`
	Model        string         `json:"model"`
	PredictionID string         `json:"predictionId"`
	URL          string         `json:"url,omitempty"`
	URLs         []string       `json:"urls,omitempty"`
	VideoURL     string         `json:"videoUrl,omitempty"`
}

// Predictor creates and polls predictions.
type Predictor interface {
	Create(ctx context.Context, version string, input map[string]any) (*Prediction, error)
	Get(ctx context.Context, id string) (*Prediction, error)
}

// ImageUploader re-hosts a provider image and returns the new URL.
type ImageUploader interface {
	Upload(ctx context.Context, sourceURL string, meta UploadMeta) (string, error)
}

// Orchestrator runs one generation at a time: submit, poll, re-host.
type Orchestrator struct {
	predictions  Predictor
	uploader     ImageUploader
	registry     Registry
	pollInterval time.Duration
	maxAttempts  int
	sleep        func(ctx context.Context, d time.Duration) error
	tracker      observability.Tracker
	now          func() time.Time
	log          zerolog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRegistry replaces the model allowlist.
func WithRegistry(r Registry) OrchestratorOption {
	return func(o *Orchestrator) { o.registry = r }
}

// WithPolling sets the poll interval and attempt budget.
func WithPolling(interval time.Duration, maxAttempts int) OrchestratorOption {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.pollInterval = interval
		}
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
	}
}

// WithSleep replaces the function used to wait between polls.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithTracker sets the analytics tracker.
func WithTracker(t observability.Tracker) OrchestratorOption {
	return func(o *Orchestrator) { o.tracker = t }
}

// NewOrchestrator creates an orchestrator. uploader may be nil, in which case
// provider URLs are returned as-is.
func NewOrchestrator(predictions Predictor, uploader ImageUploader, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		predictions:  predictions,
		uploader:     uploader,
		registry:     DefaultRegistry(),
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		sleep:        sleepContext,
		tracker:      observability.Noop{},
		now:          time.Now,
		log:          logger.Component("media"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the model allowlist.
func (o *Orchestrator) Registry() Registry { return o.registry }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks required fields and option bounds.
func (r Request) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return newError(http.StatusBadRequest, "Invalid request", err.Error())
	}

	var missing []string
	invalid := make(map[string]string)
	for _, fe := range ve {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid[fe.Field()] = fe.Tag()
	}
	if len(missing) > 0 {
		return newError(http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "), nil)
	}
	return newError(http.StatusBadRequest, "Invalid request fields", invalid)
}

// Generate runs a generation to completion.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := o.now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.MediaType != core.MediaImage && req.MediaType != core.MediaVideo {
		return nil, newError(http.StatusBadRequest, fmt.Sprintf("Unsupported mediaType %q", req.MediaType), nil)
	}

	profile, ok := o.registry.Lookup(req.ModelIdentifier)
	if !ok {
		return nil, newError(http.StatusBadRequest,
			fmt.Sprintf("Unknown modelIdentifier %q", req.ModelIdentifier),
			map[string]any{"allowedModels": o.registry.Identifiers()})
	}
	if profile.MediaType != "" && profile.MediaType != req.MediaType {
		return nil, newError(http.StatusBadRequest,
			fmt.Sprintf("Model %q generates %s, not %s", req.ModelIdentifier, profile.MediaType, req.MediaType), nil)
	}

	input := profile.Input(req.params())
	o.log.Info().
		Str("model", req.ModelIdentifier).
		Str("media_type", string(req.MediaType)).
		Msg("Submitting prediction")

	prediction, err := o.predictions.Create(ctx, profile.Version, input)
	if err != nil {
		return nil, providerError("Failed to start prediction", err)
	}

	prediction, err = o.poll(ctx, prediction)
	if err != nil {
		return nil, err
	}

	urls, multi, err := prediction.OutputURLs()
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Prediction returned no usable output", err.Error())
	}

	result := &Result{
		MediaType:    req.MediaType,
		Model:        req.ModelIdentifier,
		PredictionID: prediction.ID,
	}

	if req.MediaType == core.MediaVideo {
		result.VideoURL = urls[0]
		observability.TrackMediaGenerated(ctx, o.tracker, req.ModelIdentifier, string(req.MediaType), 1, o.now().Sub(start).Milliseconds())
		return result, nil
	}

	if multi && req.Count > 0 && req.Count < len(urls) {
		urls = urls[:req.Count]
	}
	result.URLs = o.rehost(ctx, urls, req)
	result.URL = result.URLs[0]

	observability.TrackMediaGenerated(ctx, o.tracker, req.ModelIdentifier, string(req.MediaType), len(result.URLs), o.now().Sub(start).Milliseconds())
	o.log.Info().
		Str("model", req.ModelIdentifier).
		Str("prediction_id", prediction.ID).
		Int("images", len(result.URLs)).
		Msg("Media generation completed")
	return result, nil
}

// poll waits for prediction to reach a terminal state.
func (o *Orchestrator) poll(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	if prediction.Status == StatusSucceeded {
		return prediction, nil
	}

	id := prediction.ID
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := o.sleep(ctx, o.pollInterval); err != nil {
			return nil, newError(http.StatusInternalServerError, "Polling interrupted", err.Error())
		}

		current, err := o.predictions.Get(ctx, id)
		if err != nil {
			return nil, providerError("Failed to check prediction status", err)
		}

		switch current.Status {
		case StatusSucceeded:
			return current, nil
		case StatusFailed, StatusCanceled:
			return nil, newError(http.StatusInternalServerError, "Prediction "+current.Status, current.ErrorMessage())
		}
		o.log.Debug().Str("prediction_id", id).Int("attempt", attempt).Str("status", current.Status).Msg("Prediction pending")
	}

	return nil, newError(http.StatusGatewayTimeout,
		fmt.Sprintf("Prediction timed out after %d attempts", o.maxAttempts), map[string]string{"predictionId": id})
}

// rehost uploads each image, keeping the provider URL for any that fail.
func (o *Orchestrator) rehost(ctx context.Context, urls []string, req Request) []string {
	out := make([]string, len(urls))
	for i, src := range urls {
		out[i] = src
		if o.uploader == nil {
			continue
		}
		hosted, err := o.uploader.Upload(ctx, src, UploadMeta{
			Prompt: req.Prompt,
			Model:  req.ModelIdentifier,
			Folder: req.Folder,
			Index:  i,
		})
		if err != nil {
			o.log.Warn().Err(err).Str("source_url", src).Msg("Image upload failed, using provider URL")
			continue
		}
		out[i] = hosted
	}
	return out
}

// providerError maps a prediction API failure to a status: the provider's
// own status for HTTP errors, 500 for network failures.
func providerError(message string, err error) *Error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return newError(pe.StatusCode, message, pe.Body)
	}
	return newError(http.StatusInternalServerError, message, err.Error())
}
