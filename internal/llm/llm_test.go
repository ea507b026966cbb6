package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

func TestBuildArticlePrompt(t *testing.T) {
	prompt := BuildArticlePrompt(core.GenerationRequest{
		Topic:    "Zero-knowledge proofs in supply chains",
		Keywords: []string{"zk", "logistics"},
	})
	assert.Contains(t, prompt, "Write an original blog article about: Zero-knowledge proofs in supply chains")
	assert.Contains(t, prompt, "Tone: informative")
	assert.Contains(t, prompt, "about 800 words")
	assert.Contains(t, prompt, "zk, logistics")

	prompt = BuildArticlePrompt(core.GenerationRequest{Topic: "x", Tone: "playful", WordCount: 1200})
	assert.Contains(t, prompt, "Tone: playful")
	assert.Contains(t, prompt, "about 1200 words")
	assert.Contains(t, prompt, "none in particular")
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantTitle string
		wantBody  string
		wantErr   bool
	}{
		{
			name:      "json",
			in:        `{"title":"AI Agents at Work","content":"Body text.","keywords":["agents"]}`,
			wantTitle: "AI Agents at Work",
			wantBody:  "Body text.",
		},
		{
			name:      "fenced json",
			in:        "```json\n{\"title\":\"Fenced\",\"content\":\"Inside.\"}\n```",
			wantTitle: "Fenced",
			wantBody:  "Inside.",
		},
		{
			name:      "markdown heading",
			in:        "# **Tokenized Real Estate**\n\nIntro paragraph.\n\n## Details\nMore.",
			wantTitle: "Tokenized Real Estate",
			wantBody:  "Intro paragraph.\n\n## Details\nMore.",
		},
		{name: "no title", in: "Just some text without a heading.", wantErr: true},
		{name: "empty content", in: `{"title":"Only title","content":"  "}`, wantErr: true},
		{name: "bad json", in: `{"title":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDraft(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, d.Title)
			assert.Equal(t, tt.wantBody, d.Content)
		})
	}
}

func TestArticleOptions(t *testing.T) {
	assert.Equal(t, int32(2048), ArticleOptions(800).MaxTokens)
	assert.Equal(t, int32(4512), ArticleOptions(2000).MaxTokens)
	assert.True(t, ArticleOptions(800).JSON)
}

func TestOpenAIClientWriteArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.True(t, strings.Contains(req.Messages[0].Content, "DeFi lending"))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		content, _ := json.Marshal(Draft{Title: "DeFi Lending Explained", Content: "Lending pools let..."})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": string(content)}}},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test", "gpt-4o-mini", server.URL)
	require.NoError(t, err)

	d, err := client.WriteArticle(context.Background(), core.GenerationRequest{Topic: "DeFi lending"})
	require.NoError(t, err)
	assert.Equal(t, "DeFi Lending Explained", d.Title)
}

func TestOpenAIClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/gpt-4o" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-bad", "", server.URL)
	require.NoError(t, err)

	err = client.Check(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = client.GenerateText(context.Background(), "hello", TextGenerationOptions{})
	assert.EqualError(t, err, "empty response from model")

	_, err = client.GenerateText(context.Background(), "", TextGenerationOptions{})
	assert.Error(t, err)
}

func TestNewSelectsProvider(t *testing.T) {
	w, err := New(context.Background(), Config{OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, w.Model())

	_, err = New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Provider: "claude", OpenAIAPIKey: "sk"})
	assert.EqualError(t, err, `unknown LLM provider "claude"`)

	_, err = New(context.Background(), Config{Provider: "gemini"})
	assert.Error(t, err)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	assert.Error(t, err)
}
