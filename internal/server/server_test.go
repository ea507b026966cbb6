package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/llm"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/faisworld/fais-web-sub000/internal/visual"
)

const (
	testInternalKey = "internal-key"
	testJWTSecret   = "jwt-secret"
)

type mockMedia struct {
	GenerateFunc func(ctx context.Context, req visual.Request) (*visual.Result, error)
	calls        []visual.Request
}

func (m *mockMedia) Generate(ctx context.Context, req visual.Request) (*visual.Result, error) {
	m.calls = append(m.calls, req)
	return m.GenerateFunc(ctx, req)
}

type mockWriter struct {
	WriteFunc func(ctx context.Context, req core.GenerationRequest) (*llm.Draft, error)
}

func (m *mockWriter) WriteArticle(ctx context.Context, req core.GenerationRequest) (*llm.Draft, error) {
	return m.WriteFunc(ctx, req)
}

func (m *mockWriter) Model() string { return "mock-model" }

type mockIndex struct {
	records []core.ArticleRecord
	err     error
}

func (m *mockIndex) ExistsBySlug(context.Context, string) (bool, error) { return false, m.err }
func (m *mockIndex) Titles(context.Context) ([]string, error)           { return nil, m.err }
func (m *mockIndex) InsertFront(context.Context, core.ArticleRecord) error {
	return m.err
}
func (m *mockIndex) List(_ context.Context, limit int) ([]core.ArticleRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func newTestServer(deps Deps) *Server {
	deps.Auth = AdminAuth{InternalAPIKey: testInternalKey, JWTSecret: testJWTSecret}
	return New(config.Server{Host: "127.0.0.1", Port: 0, CORS: config.CORS{Enabled: true, AllowedOrigins: []string{"*"}}}, deps)
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func adminJWT(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": role, "exp": exp.Unix()})
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const imageBody = `{"mediaType":"image","modelIdentifier":"minimax-image-01","prompt":"robots","count":2}`

func TestGenerateMediaMisconfiguredBeforeAuthAndBody(t *testing.T) {
	s := newTestServer(Deps{})

	rec := do(t, s, http.MethodPost, GenerateMediaPath, "not json", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "Server misconfigured")
}

func TestGenerateMediaRequiresAdmin(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		t.Fatal("must not generate for non-admins")
		return nil, nil
	}}
	s := newTestServer(Deps{Media: media})

	tests := map[string]map[string]string{
		"no credentials": nil,
		"wrong key":      bearer("nope"),
		"editor role":    bearer(adminJWT(t, "editor", time.Now().Add(time.Hour))),
		"expired admin":  bearer(adminJWT(t, "admin", time.Now().Add(-time.Hour))),
	}
	for name, headers := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, GenerateMediaPath, imageBody, headers)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestGenerateMediaImageWithAdminSession(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(_ context.Context, req visual.Request) (*visual.Result, error) {
		return &visual.Result{
			MediaType: core.MediaImage,
			URL:       "https://blob.example/1.png",
			URLs:      []string{"https://blob.example/1.png", "https://blob.example/2.png"},
		}, nil
	}}
	s := newTestServer(Deps{Media: media})

	rec := do(t, s, http.MethodPost, GenerateMediaPath, imageBody, bearer(adminJWT(t, "admin", time.Now().Add(time.Hour))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[MediaResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "https://blob.example/1.png", resp.URL)
	assert.Equal(t, "https://blob.example/1.png", resp.ImageURL)
	assert.Len(t, resp.ImageURLs, 2)
	assert.Equal(t, 2, resp.Count)

	require.Len(t, media.calls, 1)
	assert.Equal(t, 2, media.calls[0].Count)
	assert.Equal(t, "minimax-image-01", media.calls[0].ModelIdentifier)
}

func TestGenerateMediaSessionCookie(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return &visual.Result{MediaType: core.MediaImage, URL: "u", URLs: []string{"u"}}, nil
	}}
	s := newTestServer(Deps{Media: media})

	req := httptest.NewRequest(http.MethodPost, GenerateMediaPath, strings.NewReader(imageBody))
	req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: adminJWT(t, "admin", time.Now().Add(time.Hour))})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateMediaVideoWithInternalKey(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return &visual.Result{MediaType: core.MediaVideo, VideoURL: "https://replicate.delivery/v.mp4"}, nil
	}}
	s := newTestServer(Deps{Media: media})

	rec := do(t, s, http.MethodPost, GenerateMediaPath,
		`{"mediaType":"video","modelIdentifier":"kling-v1.6","prompt":"city"}`, bearer(testInternalKey))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://replicate.delivery/v.mp4", body["videoUrl"])
	assert.NotContains(t, body, "imageUrls")
}

func TestGenerateMediaErrorStatusPassthrough(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return nil, &visual.Error{
			Status:  http.StatusBadRequest,
			Message: `Unknown modelIdentifier "dall-e"`,
			Detail:  map[string]any{"allowedModels": []string{"flux-schnell", "imagen-4"}},
		}
	}}
	s := newTestServer(Deps{Media: media})

	rec := do(t, s, http.MethodPost, GenerateMediaPath,
		`{"mediaType":"image","modelIdentifier":"dall-e","prompt":"x"}`, bearer(testInternalKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error   string `json:"error"`
		Details struct {
			AllowedModels []string `json:"allowedModels"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, `Unknown modelIdentifier "dall-e"`, body.Error)
	assert.Equal(t, []string{"flux-schnell", "imagen-4"}, body.Details.AllowedModels)
}

func TestGenerateMediaTimeoutAndUnknownErrors(t *testing.T) {
	var next error
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return nil, next
	}}
	s := newTestServer(Deps{Media: media})

	next = &visual.Error{Status: http.StatusGatewayTimeout, Message: "Prediction timed out after 60 attempts"}
	rec := do(t, s, http.MethodPost, GenerateMediaPath, imageBody, bearer(testInternalKey))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	next = errors.New("boom")
	rec = do(t, s, http.MethodPost, GenerateMediaPath, imageBody, bearer(testInternalKey))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenerateMediaInvalidJSON(t *testing.T) {
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		t.Fatal("unexpected call")
		return nil, nil
	}}
	s := newTestServer(Deps{Media: media})

	rec := do(t, s, http.MethodPost, GenerateMediaPath, "{", bearer(testInternalKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaAuxiliaryMethods(t *testing.T) {
	s := newTestServer(Deps{})

	rec := do(t, s, http.MethodOptions, GenerateMediaPath, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "POST, HEAD, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = do(t, s, http.MethodHead, GenerateMediaPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, s, http.MethodGet, GenerateMediaPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decode[MediaDescription](t, rec)
	assert.Equal(t, GenerateMediaPath, desc.Endpoint)
	assert.Equal(t, visual.DefaultRegistry().Identifiers(), desc.Models)
}

func TestGenerateArticle(t *testing.T) {
	writer := &mockWriter{WriteFunc: func(_ context.Context, req core.GenerationRequest) (*llm.Draft, error) {
		assert.Equal(t, "Smart contracts for insurers", req.Topic)
		return &llm.Draft{Title: "Smart Contracts: Insurance's Next Step", Content: "Claims processing..."}, nil
	}}
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return &visual.Result{MediaType: core.MediaImage, URL: "https://blob.example/cover.webp"}, nil
	}}
	s := newTestServer(Deps{Writer: writer, Media: media})

	rec := do(t, s, http.MethodPost, GenerateArticlePath,
		`{"topic":"Smart contracts for insurers","keywords":["insurance"],"includeImage":true,"id":"abcd1234"}`,
		bearer(testInternalKey))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[core.GenerationResult](t, rec)
	assert.Equal(t, "Smart Contracts: Insurance's Next Step", result.Title)
	assert.Equal(t, store.Slugify(result.Title), result.Slug)
	assert.Equal(t, "https://blob.example/cover.webp", result.ImageURL)
	assert.Equal(t, []string{"insurance"}, result.Keywords)

	require.Len(t, media.calls, 1)
	assert.Equal(t, CoverModel, media.calls[0].ModelIdentifier)
	assert.Equal(t, CoverAspectRatio, media.calls[0].AspectRatio)
	assert.Contains(t, media.calls[0].Prompt, "Smart Contracts: Insurance's Next Step")
}

func TestGenerateArticleCoverFailureIsSoft(t *testing.T) {
	writer := &mockWriter{WriteFunc: func(context.Context, core.GenerationRequest) (*llm.Draft, error) {
		return &llm.Draft{Title: "T", Content: "C", Keywords: []string{"from-model"}}, nil
	}}
	media := &mockMedia{GenerateFunc: func(context.Context, visual.Request) (*visual.Result, error) {
		return nil, errors.New("provider down")
	}}
	s := newTestServer(Deps{Writer: writer, Media: media})

	rec := do(t, s, http.MethodPost, GenerateArticlePath, `{"topic":"t","includeImage":true}`, bearer(testInternalKey))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[core.GenerationResult](t, rec)
	assert.Empty(t, result.ImageURL)
	assert.Equal(t, []string{"from-model"}, result.Keywords)
}

func TestGenerateArticleErrors(t *testing.T) {
	failing := &mockWriter{WriteFunc: func(context.Context, core.GenerationRequest) (*llm.Draft, error) {
		return nil, errors.New("rate limited")
	}}

	rec := do(t, newTestServer(Deps{Writer: failing}), http.MethodPost, GenerateArticlePath, `{"topic":"x"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, newTestServer(Deps{Writer: failing}), http.MethodPost, GenerateArticlePath, `{"topic":"  "}`, bearer(testInternalKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newTestServer(Deps{Writer: failing}), http.MethodPost, GenerateArticlePath, `{"topic":"x"}`, bearer(testInternalKey))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, newTestServer(Deps{}), http.MethodPost, GenerateArticlePath, `{"topic":"x"}`, bearer(testInternalKey))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBlogRoutes(t *testing.T) {
	dir := t.TempDir()
	body := "Intro paragraph with a [link](https://example.com).\n\n<script>alert(1)</script>\n\n## Section\n"
	_, err := store.WriteMarkdown(dir, "ai-agents", store.Frontmatter{Title: "AI Agents", Category: "ai"}, body)
	require.NoError(t, err)

	index := &mockIndex{records: []core.ArticleRecord{
		{Slug: "ai-agents", Title: "AI Agents"},
		{Slug: "older", Title: "Older"},
	}}
	s := newTestServer(Deps{Index: index, ContentDir: dir})

	rec := do(t, s, http.MethodGet, "/api/blog?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[PostListResponse](t, rec)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "ai-agents", list.Posts[0].Slug)

	rec = do(t, s, http.MethodGet, "/api/blog?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/blog/ai-agents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode[PostResponse](t, rec)
	assert.Equal(t, "AI Agents", post.Title)
	assert.Contains(t, post.HTML, `<h2 id="section">Section</h2>`)
	assert.Contains(t, post.HTML, `href="https://example.com"`)
	assert.NotContains(t, post.HTML, "<script>")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, s, http.MethodGet, "/api/blog/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/blog/..%2Fsecrets", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(Deps{Index: &mockIndex{}}), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "disabled", health.Checks["media"])

	rec = do(t, newTestServer(Deps{Index: &mockIndex{err: errors.New("locked")}}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminAuthRejectsOtherSigningMethods(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "admin"})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	assert.False(t, AdminAuth{JWTSecret: testJWTSecret}.Authorize(req))
	assert.False(t, AdminAuth{}.Authorize(req))
}

func TestMarkdownWrittenByPublisherRenders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.md"), []byte("no frontmatter\n"), 0o644))

	s := newTestServer(Deps{ContentDir: dir})
	rec := do(t, s, http.MethodGet, "/api/blog/plain", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[PostResponse](t, rec).HTML, "<p>no frontmatter</p>")
}
