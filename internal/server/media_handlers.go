package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/visual"
)

const maxRequestBody = 1 << 20

// MediaResponse is the success body of the media endpoint.
type MediaResponse struct {
	Success   bool     `json:"success"`
	URL       string   `json:"url,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	Count     int      `json:"count,omitempty"`
	VideoURL  string   `json:"videoUrl,omitempty"`
}

// handleGenerateMedia handles POST /api/admin/ai-tools/generate-media.
// Missing credentials are reported before the caller is authenticated or the
// body is read.
func (s *Server) handleGenerateMedia(w http.ResponseWriter, r *http.Request) {
	if s.deps.Media == nil {
		s.log.Error().Msg("Media generation requested but REPLICATE_API_TOKEN or BLOB_READ_WRITE_TOKEN is missing")
		s.respondError(w, http.StatusInternalServerError, "Server misconfigured: media generation credentials are missing", nil)
		return
	}
	if !s.deps.Auth.Authorize(r) {
		s.respondError(w, http.StatusForbidden, "Forbidden: admin access required", nil)
		return
	}

	var req visual.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	result, err := s.deps.Media.Generate(r.Context(), req)
	if err != nil {
		var ve *visual.Error
		if errors.As(err, &ve) {
			s.respondError(w, ve.Status, ve.Message, ve.Detail)
			return
		}
		s.log.Error().Err(err).Str("model", req.ModelIdentifier).Msg("Media generation failed")
		s.respondError(w, http.StatusInternalServerError, "Media generation failed", err.Error())
		return
	}

	if result.MediaType == core.MediaVideo {
		s.respondJSON(w, http.StatusOK, MediaResponse{Success: true, VideoURL: result.VideoURL})
		return
	}
	s.respondJSON(w, http.StatusOK, MediaResponse{
		Success:   true,
		URL:       result.URL,
		ImageURL:  result.URL,
		ImageURLs: result.URLs,
		Count:     len(result.URLs),
	})
}

// handleMediaHead answers availability probes.
func (s *Server) handleMediaHead(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, HEAD, OPTIONS, GET")
	w.WriteHeader(http.StatusOK)
}

// handleMediaOptions answers CORS preflight requests.
func (s *Server) handleMediaOptions(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", "POST, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusNoContent)
}

// MediaDescription documents the media endpoint for GET callers.
type MediaDescription struct {
	Endpoint    string            `json:"endpoint"`
	Methods     []string          `json:"methods"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
	Models      []string          `json:"models"`
}

// handleMediaDescribe serves a static description of the media endpoint.
func (s *Server) handleMediaDescribe(w http.ResponseWriter, r *http.Request) {
	registry := visual.DefaultRegistry()
	if o, ok := s.deps.Media.(*visual.Orchestrator); ok {
		registry = o.Registry()
	}
	s.respondJSON(w, http.StatusOK, MediaDescription{
		Endpoint:    GenerateMediaPath,
		Methods:     []string{"POST", "HEAD", "OPTIONS", "GET"},
		Description: "Generates images or videos with an allowlisted model. Images are re-hosted in blob storage and added to the gallery.",
		Parameters: map[string]string{
			"mediaType":       "image or video (required)",
			"modelIdentifier": "one of models (required)",
			"prompt":          "text prompt (required)",
			"aspectRatio":     "e.g. 1:1, 16:9, 9:16",
			"count":           "number of images, 1-9, for multi-image models",
			"negativePrompt":  "things to avoid",
			"seed":            "integer seed",
			"duration":        "video length in seconds",
			"cameraMovement":  "video camera movement",
			"referenceImage":  "reference image URL",
		},
		Models: registry.Identifiers(),
	})
}
