package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/faisworld/fais-web-sub000/internal/visual"
)

// Cover image settings for generated articles.
const (
	CoverModel       = "flux-schnell"
	CoverAspectRatio = "16:9"
	CoverFolder      = "blog-covers"
)

// CoverPrompt is the image prompt for an article's cover.
func CoverPrompt(title string) string {
	return fmt.Sprintf("Professional blog cover image for an article titled %q. Modern, clean technology aesthetic, abstract shapes, no text.", title)
}

// handleGenerateArticle handles POST /api/admin/ai-tools/generate-article.
// It writes the article and, when asked, a cover image. It does not save
// anything; the caller decides whether the result is published.
func (s *Server) handleGenerateArticle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Writer == nil {
		s.respondError(w, http.StatusInternalServerError, "Server misconfigured: OPENAI_API_KEY or GEMINI_API_KEY is required", nil)
		return
	}

	var req core.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		s.respondError(w, http.StatusBadRequest, "Missing required fields: topic", nil)
		return
	}

	log := s.log.With().Str("topic", req.Topic).Str("article_id", req.ID).Logger()
	log.Info().Str("model", s.deps.Writer.Model()).Msg("Writing article")

	draft, err := s.deps.Writer.WriteArticle(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Article generation failed")
		s.respondError(w, http.StatusBadGateway, "Article generation failed", err.Error())
		return
	}

	keywords := draft.Keywords
	if len(keywords) == 0 {
		keywords = req.Keywords
	}
	result := core.GenerationResult{
		Title:    draft.Title,
		Content:  draft.Content,
		Slug:     store.Slugify(draft.Title),
		Keywords: keywords,
	}

	if req.IncludeImage {
		result.ImageURL = s.generateCover(r, draft.Title)
	}

	log.Info().Str("slug", result.Slug).Bool("has_image", result.ImageURL != "").Msg("Article written")
	s.respondJSON(w, http.StatusOK, result)
}

// generateCover returns a cover URL, or "" when no image could be made.
func (s *Server) generateCover(r *http.Request, title string) string {
	if s.deps.Media == nil {
		s.log.Warn().Msg("Cover image requested but media generation is not configured")
		return ""
	}
	res, err := s.deps.Media.Generate(r.Context(), visual.Request{
		MediaType:       core.MediaImage,
		ModelIdentifier: CoverModel,
		Prompt:          CoverPrompt(title),
		AspectRatio:     CoverAspectRatio,
		Folder:          CoverFolder,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("title", title).Msg("Cover image generation failed, using placeholder")
		return ""
	}
	return res.URL
}
