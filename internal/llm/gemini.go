package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// DefaultGeminiModel is the default Gemini model for article writing.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient writes articles with the Gemini API.
type GeminiClient struct {
	modelName string
	gClient   *genai.Client
}

// NewGeminiClient creates a Gemini-backed writer.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini_api_key in config")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{modelName: modelName, gClient: gClient}, nil
}

func (c *GeminiClient) Model() string { return c.modelName }

func articleSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Article title, at most 80 characters",
			},
			"content": {
				Type:        genai.TypeString,
				Description: "Article body in Markdown",
			},
			"keywords": {
				Type:        genai.TypeArray,
				Description: "SEO keywords for the article",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"title", "content"},
	}
}

// GenerateText generates text from a single prompt.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = options.MaxTokens
	}
	if options.Temperature > 0 {
		temp := options.Temperature
		config.Temperature = &temp
	}
	if options.JSON {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = articleSchema()
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// WriteArticle drafts an article for req.
func (c *GeminiClient) WriteArticle(ctx context.Context, req core.GenerationRequest) (*Draft, error) {
	text, err := c.GenerateText(ctx, BuildArticlePrompt(req), ArticleOptions(req.WordCount))
	if err != nil {
		return nil, err
	}
	return ParseDraft(text)
}

// Check verifies the key by looking up the configured model.
func (c *GeminiClient) Check(ctx context.Context) error {
	if _, err := c.gClient.Models.Get(ctx, c.modelName, nil); err != nil {
		return fmt.Errorf("gemini model %s: %w", c.modelName, err)
	}
	return nil
}
