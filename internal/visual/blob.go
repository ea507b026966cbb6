package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
)

// DefaultBlobBaseURL is the blob storage API root.
const DefaultBlobBaseURL = "https://blob.vercel-storage.com"

// DefaultFolder is the gallery folder for generated images.
const DefaultFolder = "ai-generated"

// maxImageBytes caps downloaded provider images.
const maxImageBytes = 50 << 20

// BlobObject is the blob storage response for an upload.
type BlobObject struct {
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// BlobClient uploads files to blob storage.
type BlobClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewBlobClient creates a blob storage client.
func NewBlobClient(token, baseURL string) *BlobClient {
	if baseURL == "" {
		baseURL = DefaultBlobBaseURL
	}
	return &BlobClient{
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Put stores data at pathname with public access.
func (c *BlobClient) Put(ctx context.Context, pathname, contentType string, data []byte) (*BlobObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+strings.TrimLeft(pathname, "/"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-api-version", "7")
	req.Header.Set("x-content-type", contentType)
	req.Header.Set("x-access", "public")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("blob API error (status %d): %s", resp.StatusCode, string(body))
	}

	var obj BlobObject
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	return &obj, nil
}

// GalleryRecorder stores gallery rows for uploaded images.
type GalleryRecorder interface {
	InsertImage(ctx context.Context, img core.GalleryImage) error
}

// BlobStore is the subset of BlobClient the uploader needs.
type BlobStore interface {
	Put(ctx context.Context, pathname, contentType string, data []byte) (*BlobObject, error)
}

// UploadMeta describes an image being re-hosted.
type UploadMeta struct {
	Prompt string
	Model  string
	Folder string
	Index  int
}

// Uploader downloads provider images, re-hosts them in blob storage and
// records them in the gallery.
type Uploader struct {
	blobs      BlobStore
	gallery    GalleryRecorder
	httpClient *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

// NewUploader creates an uploader. gallery may be nil.
func NewUploader(blobs BlobStore, gallery GalleryRecorder) *Uploader {
	return &Uploader{
		blobs:      blobs,
		gallery:    gallery,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
		log:        logger.Component("uploader"),
	}
}

// Upload re-hosts the image at sourceURL and returns its blob URL.
func (u *Uploader) Upload(ctx context.Context, sourceURL string, meta UploadMeta) (string, error) {
	data, contentType, err := u.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	ext := ExtensionFor(contentType, sourceURL)
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = mime.TypeByExtension("." + ext)
	}
	folder := meta.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	id := uuid.NewString()
	pathname := path.Join("images", folder, id+"."+ext)

	obj, err := u.blobs.Put(ctx, pathname, contentType, data)
	if err != nil {
		return "", err
	}

	if u.gallery != nil {
		width, height := ImageDimensions(data)
		img := core.GalleryImage{
			ID:          id,
			URL:         obj.URL,
			Title:       truncateRunes(meta.Prompt, 50),
			AltTag:      AltText(meta.Prompt, meta.Model),
			Folder:      folder,
			Description: fmt.Sprintf("Generated with %s. Prompt: %s", meta.Model, meta.Prompt),
			Width:       width,
			Height:      height,
			Size:        int64(len(data)),
			Format:      ext,
			UploadedAt:  u.now().UTC(),
		}
		if err := u.gallery.InsertImage(ctx, img); err != nil {
			u.log.Warn().Err(err).Str("url", obj.URL).Msg("Failed to record gallery image")
		}
	}

	return obj.URL, nil
}

func (u *Uploader) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// ExtensionFor picks a file extension from the content type, then from the
// source URL path, defaulting to png.
func ExtensionFor(contentType, sourceURL string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}

	if u, err := url.Parse(sourceURL); err == nil {
		switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); ext {
		case "png", "webp", "gif":
			return ext
		case "jpg", "jpeg":
			return "jpg"
		}
	}
	return "png"
}

// ImageDimensions decodes just the image header; unknown formats yield 0x0.
func ImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// AltText describes a generated image for accessibility.
func AltText(prompt, model string) string {
	return fmt.Sprintf("AI generated image: %s (model: %s)", truncateRunes(prompt, 100), model)
}

func truncateRunes(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}
