package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/store"
)

// HealthResponse is the /health payload
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// PostListResponse is the /api/blog payload
type PostListResponse struct {
	Posts []core.ArticleRecord `json:"posts"`
	Count int                  `json:"count"`
}

// PostResponse is the /api/blog/{slug} payload
type PostResponse struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Date     string   `json:"date"`
	Category string   `json:"category"`
	Author   string   `json:"author"`
	Image    string   `json:"image"`
	Keywords []string `json:"keywords,omitempty"`
	HTML     string   `json:"html"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	healthy := true

	if s.deps.Index != nil {
		if _, err := s.deps.Index.List(r.Context(), 1); err != nil {
			checks["index"] = "error"
			healthy = false
		} else {
			checks["index"] = "ok"
		}
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	checks["media"] = enabled(s.deps.Media != nil)
	checks["writer"] = enabled(s.deps.Writer != nil)

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	s.respondJSON(w, code, HealthResponse{
		Status: status,
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
		Checks: checks,
	})
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// handleListPosts handles GET /api/blog
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Index == nil {
		s.respondError(w, http.StatusInternalServerError, "Blog index not configured", nil)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	posts, err := s.deps.Index.List(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list blog posts")
		s.respondError(w, http.StatusInternalServerError, "Failed to list blog posts", nil)
		return
	}
	if posts == nil {
		posts = []core.ArticleRecord{}
	}
	s.respondJSON(w, http.StatusOK, PostListResponse{Posts: posts, Count: len(posts)})
}

// handleGetPost handles GET /api/blog/{slug}
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !store.ValidSlug(slug) {
		s.respondError(w, http.StatusNotFound, "Post not found", nil)
		return
	}

	fm, body, err := store.ReadMarkdown(s.deps.ContentDir, slug)
	if errors.Is(err, fs.ErrNotExist) {
		s.respondError(w, http.StatusNotFound, "Post not found", nil)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to read post")
		s.respondError(w, http.StatusInternalServerError, "Failed to read post", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, PostResponse{
		Slug:     slug,
		Title:    fm.Title,
		Excerpt:  fm.Excerpt,
		Date:     fm.Date,
		Category: fm.Category,
		Author:   fm.Author,
		Image:    fm.Image,
		Keywords: fm.Keywords,
		HTML:     renderMarkdown(body),
	})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes an ErrorResponse
func (s *Server) respondError(w http.ResponseWriter, status int, message string, details any) {
	s.respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}
