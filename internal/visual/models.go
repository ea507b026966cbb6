package visual

import (
	"sort"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// Params are the caller-supplied generation options a model profile turns
// into a provider input document.
type Params struct {
	Prompt            string
	AspectRatio       string
	NegativePrompt    string
	Count             int
	Seed              *int
	Duration          int
	CameraMovement    string
	ReferenceImage    string
	SubjectReference  string
	FirstFrameImage   string
	PromptOptimizer   *bool
	SafetyFilterLevel string
	Style             string
	OutputFormat      string
}

// ModelProfile maps a public model identifier to its provider version and
// the shape of its input document. A nil Build falls back to width/height
// derived from the aspect ratio.
type ModelProfile struct {
	Version   string
	MediaType core.MediaType
	Build     func(p Params) map[string]any
}

// Registry is the allowlist of model identifiers.
type Registry map[string]ModelProfile

// Identifiers returns the allowed model identifiers, sorted.
func (r Registry) Identifiers() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the profile for id.
func (r Registry) Lookup(id string) (ModelProfile, bool) {
	p, ok := r[id]
	return p, ok
}

// Input builds the provider input for p using the profile's builder or the
// aspect-ratio fallback.
func (m ModelProfile) Input(p Params) map[string]any {
	if m.Build != nil {
		return m.Build(p)
	}
	w, h := DimensionsForAspectRatio(p.AspectRatio)
	input := map[string]any{
		"prompt": p.Prompt,
		"width":  w,
		"height": h,
	}
	if p.NegativePrompt != "" {
		input["negative_prompt"] = p.NegativePrompt
	}
	if p.Seed != nil {
		input["seed"] = *p.Seed
	}
	return input
}

// DefaultAspectRatio is used when the caller does not pick one.
const DefaultAspectRatio = "1:1"

// standardResolutions maps aspect ratios to the resolution used by models
// that take explicit width and height.
var standardResolutions = map[string][2]int{
	"1:1":  {1024, 1024},
	"16:9": {1344, 768},
	"9:16": {768, 1344},
	"4:3":  {1152, 896},
	"3:4":  {896, 1152},
	"3:2":  {1216, 832},
	"2:3":  {832, 1216},
	"21:9": {1536, 640},
	"9:21": {640, 1536},
}

// DimensionsForAspectRatio returns width and height for ratio, defaulting to
// square for unknown ratios.
func DimensionsForAspectRatio(ratio string) (int, int) {
	if wh, ok := standardResolutions[ratio]; ok {
		return wh[0], wh[1]
	}
	wh := standardResolutions[DefaultAspectRatio]
	return wh[0], wh[1]
}

func aspectRatio(p Params, fallback string) string {
	if p.AspectRatio != "" {
		return p.AspectRatio
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// DefaultRegistry returns the built-in model profiles.
func DefaultRegistry() Registry {
	return Registry{
		"flux-schnell": {
			Version:   "black-forest-labs/flux-schnell",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				return map[string]any{
					"prompt":         p.Prompt,
					"aspect_ratio":   aspectRatio(p, DefaultAspectRatio),
					"num_outputs":    1,
					"output_format":  stringOr(p.OutputFormat, "webp"),
					"output_quality": 90,
					"go_fast":        true,
				}
			},
		},
		"flux-1.1-pro": {
			Version:   "black-forest-labs/flux-1.1-pro",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				return map[string]any{
					"prompt":            p.Prompt,
					"aspect_ratio":      aspectRatio(p, DefaultAspectRatio),
					"output_format":     stringOr(p.OutputFormat, "webp"),
					"output_quality":    90,
					"safety_tolerance":  2,
					"prompt_upsampling": boolOr(p.PromptOptimizer, false),
				}
			},
		},
		"flux-1.1-pro-ultra": {
			Version:   "black-forest-labs/flux-1.1-pro-ultra",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":           p.Prompt,
					"aspect_ratio":     aspectRatio(p, "16:9"),
					"output_format":    stringOr(p.OutputFormat, "jpg"),
					"safety_tolerance": 2,
					"raw":              false,
				}
				if p.ReferenceImage != "" {
					input["image_prompt"] = p.ReferenceImage
				}
				if p.Seed != nil {
					input["seed"] = *p.Seed
				}
				return input
			},
		},
		"imagen-4": {
			Version:   "google/imagen-4",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				return map[string]any{
					"prompt":              p.Prompt,
					"aspect_ratio":        aspectRatio(p, DefaultAspectRatio),
					"safety_filter_level": stringOr(p.SafetyFilterLevel, "block_only_high"),
					"output_format":       stringOr(p.OutputFormat, "jpg"),
				}
			},
		},
		"ideogram-v3-turbo": {
			Version:   "ideogram-ai/ideogram-v3-turbo",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":              p.Prompt,
					"aspect_ratio":        aspectRatio(p, DefaultAspectRatio),
					"magic_prompt_option": "Auto",
				}
				if p.Style != "" {
					input["style_type"] = p.Style
				}
				if p.Seed != nil {
					input["seed"] = *p.Seed
				}
				return input
			},
		},
		"recraft-v3": {
			Version:   "recraft-ai/recraft-v3",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				return map[string]any{
					"prompt":       p.Prompt,
					"aspect_ratio": aspectRatio(p, DefaultAspectRatio),
					"style":        stringOr(p.Style, "any"),
				}
			},
		},
		"stable-diffusion-3.5": {
			Version:   "stability-ai/stable-diffusion-3.5-large",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":        p.Prompt,
					"aspect_ratio":  aspectRatio(p, DefaultAspectRatio),
					"cfg":           4.5,
					"steps":         40,
					"output_format": stringOr(p.OutputFormat, "webp"),
				}
				if p.NegativePrompt != "" {
					input["negative_prompt"] = p.NegativePrompt
				}
				if p.Seed != nil {
					input["seed"] = *p.Seed
				}
				return input
			},
		},
		"minimax-image-01": {
			Version:   "minimax/image-01",
			MediaType: core.MediaImage,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":           p.Prompt,
					"aspect_ratio":     aspectRatio(p, DefaultAspectRatio),
					"number_of_images": intOr(p.Count, 1),
					"prompt_optimizer": boolOr(p.PromptOptimizer, true),
				}
				if p.SubjectReference != "" {
					input["subject_reference"] = p.SubjectReference
				}
				return input
			},
		},
		"minimax-video-01": {
			Version:   "minimax/video-01",
			MediaType: core.MediaVideo,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":           p.Prompt,
					"prompt_optimizer": boolOr(p.PromptOptimizer, true),
				}
				if p.FirstFrameImage != "" {
					input["first_frame_image"] = p.FirstFrameImage
				}
				return input
			},
		},
		"kling-v1.6": {
			Version:   "kwaivgi/kling-v1.6-standard",
			MediaType: core.MediaVideo,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":       p.Prompt,
					"duration":     intOr(p.Duration, 5),
					"aspect_ratio": aspectRatio(p, "16:9"),
					"cfg_scale":    0.5,
				}
				if p.NegativePrompt != "" {
					input["negative_prompt"] = p.NegativePrompt
				}
				if p.CameraMovement != "" {
					input["camera_movement"] = p.CameraMovement
				}
				if p.ReferenceImage != "" {
					input["start_image"] = p.ReferenceImage
				}
				return input
			},
		},
		"google-veo-3": {
			Version:   "google/veo-3",
			MediaType: core.MediaVideo,
			Build: func(p Params) map[string]any {
				input := map[string]any{
					"prompt":       p.Prompt,
					"duration":     intOr(p.Duration, 8),
					"aspect_ratio": aspectRatio(p, "16:9"),
				}
				if p.Seed != nil {
					input["seed"] = *p.Seed
				}
				if p.NegativePrompt != "" {
					input["negative_prompt"] = p.NegativePrompt
				}
				return input
			},
		},
	}
}
