// Package llm writes blog articles with a large language model.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// ArticlePromptTemplate is the instruction sent to every backend.
const ArticlePromptTemplate = `You are a senior writer for Fantastic AI Studio, a consultancy building AI and blockchain solutions.

Write an original blog article about: %s

Requirements:
- Tone: %s
- Length: about %d words
- Naturally include these keywords: %s
- Use Markdown with ## section headings, short paragraphs and at least one list
- Open with a substantial introductory paragraph, no heading before it
- Do not repeat the title inside the content

Respond with a JSON object: {"title": "...", "content": "...", "keywords": ["..."]}`

// ErrEmptyDraft is returned when a model response has no usable article.
var ErrEmptyDraft = errors.New("model returned an empty article")

// Draft is an article written by a model.
type Draft struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords,omitempty"`
}

// Writer drafts articles.
type Writer interface {
	WriteArticle(ctx context.Context, req core.GenerationRequest) (*Draft, error)
	Model() string
}

// TextGenerationOptions contains options for text generation
type TextGenerationOptions struct {
	MaxTokens   int32   // Maximum number of tokens to generate
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	JSON        bool    // Ask for a JSON object response
}

// ArticleOptions are the generation options used for articles.
func ArticleOptions(wordCount int) TextGenerationOptions {
	tokens := int32(wordCount*2 + 512)
	if tokens < 2048 {
		tokens = 2048
	}
	return TextGenerationOptions{MaxTokens: tokens, Temperature: 0.7, JSON: true}
}

// BuildArticlePrompt renders the article prompt for req.
func BuildArticlePrompt(req core.GenerationRequest) string {
	tone := req.Tone
	if tone == "" {
		tone = "informative"
	}
	words := req.WordCount
	if words <= 0 {
		words = 800
	}
	keywords := "none in particular"
	if len(req.Keywords) > 0 {
		keywords = strings.Join(req.Keywords, ", ")
	}
	return fmt.Sprintf(ArticlePromptTemplate, req.Topic, tone, words, keywords)
}

var (
	codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	h1Line    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// ParseDraft reads a model response. JSON responses (optionally fenced) are
// decoded directly; plain Markdown uses its first level-one heading as the
// title.
func ParseDraft(text string) (*Draft, error) {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var d Draft
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, fmt.Errorf("failed to decode article JSON: %w", err)
		}
	} else if m := h1Line.FindStringSubmatchIndex(text); m != nil {
		d.Title = text[m[2]:m[3]]
		d.Content = text[:m[0]] + text[m[1]:]
	}

	d.Title = strings.Trim(strings.TrimSpace(d.Title), `"*`)
	d.Content = strings.TrimSpace(d.Content)
	if d.Title == "" || d.Content == "" {
		return nil, ErrEmptyDraft
	}
	return &d, nil
}

// Config selects and configures a backend.
type Config struct {
	Provider      string // openai or gemini; empty picks whichever key is set, OpenAI first
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

// New creates the configured writer.
func New(ctx context.Context, cfg Config) (Writer, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		switch {
		case cfg.OpenAIAPIKey != "":
			provider = "openai"
		case cfg.GeminiAPIKey != "":
			provider = "gemini"
		default:
			return nil, errors.New("no LLM API key configured (OPENAI_API_KEY or GEMINI_API_KEY)")
		}
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL)
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
