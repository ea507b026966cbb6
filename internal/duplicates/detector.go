// Package duplicates decides whether a proposed article is too close to
// something already published.
package duplicates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faisworld/fais-web-sub000/internal/contenthash"
	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/similarity"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/rs/zerolog"
)

// Reasons reported on a duplicate result.
const (
	ReasonContentHash     = "exact content hash match"
	ReasonTitleSimilarity = "title similarity"
	ReasonContentSimilar  = "content similarity"
	ReasonPhraseOverlap   = "key phrase overlap"
)

// maxCommonPhrases is how many matched phrases are reported as evidence.
const maxCommonPhrases = 5

// Options holds the detection thresholds.
type Options struct {
	SimilarityThreshold    float64 // Title/content Jaccard must exceed this
	PhraseOverlapThreshold float64 // Matched/new phrase ratio must exceed this
	MinCommonPhrases       int     // And at least this many phrases must match
	PhraseMatchThreshold   float64 // Phrase-to-phrase similarity counted as a match
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold:    0.7,
		PhraseOverlapThreshold: 0.5,
		MinCommonPhrases:       4,
		PhraseMatchThreshold:   0.8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = d.SimilarityThreshold
	}
	if o.PhraseOverlapThreshold <= 0 {
		o.PhraseOverlapThreshold = d.PhraseOverlapThreshold
	}
	if o.MinCommonPhrases <= 0 {
		o.MinCommonPhrases = d.MinCommonPhrases
	}
	if o.PhraseMatchThreshold <= 0 {
		o.PhraseMatchThreshold = d.PhraseMatchThreshold
	}
	return o
}

// TitleSource lists the titles already in the blog index. store.Index
// satisfies it.
type TitleSource interface {
	Titles(ctx context.Context) ([]string, error)
}

// Detector checks new articles against the index titles, the Markdown corpus
// and the content hash store.
type Detector struct {
	titles     TitleSource
	contentDir string
	hashes     *contenthash.Store
	opts       Options
	log        zerolog.Logger
}

// NewDetector creates a detector. hashes may be nil.
func NewDetector(titles TitleSource, contentDir string, hashes *contenthash.Store, opts Options) *Detector {
	return &Detector{
		titles:     titles,
		contentDir: contentDir,
		hashes:     hashes,
		opts:       opts.withDefaults(),
		log:        logger.Component("duplicates"),
	}
}

// Options returns the thresholds in use.
func (d *Detector) Options() Options { return d.opts }

// Check reports whether title/content duplicates existing content. It fails
// open: when the index or corpus cannot be read, the error is logged and the
// article is treated as unique.
func (d *Detector) Check(ctx context.Context, title, content string) core.DuplicateCheckResult {
	result, err := d.check(ctx, title, content)
	if err != nil {
		d.log.Error().Err(err).Str("title", title).Msg("Duplicate check failed, treating article as unique")
		return core.DuplicateCheckResult{IsDuplicate: false}
	}
	if result.IsDuplicate {
		d.log.Info().
			Str("title", title).
			Str("reason", result.Reason).
			Float64("similarity", result.Similarity).
			Msg("Duplicate content detected")
	}
	return result
}

func (d *Detector) check(ctx context.Context, title, content string) (core.DuplicateCheckResult, error) {
	if d.hashes != nil {
		entry, found, err := d.hashes.Check(title, content)
		if err != nil {
			return core.DuplicateCheckResult{}, fmt.Errorf("content hash lookup: %w", err)
		}
		if found {
			return core.DuplicateCheckResult{
				IsDuplicate:  true,
				Reason:       ReasonContentHash,
				SimilarTitle: entry.Title,
				Similarity:   1,
			}, nil
		}
	}

	titles, err := d.titles.Titles(ctx)
	if err != nil {
		return core.DuplicateCheckResult{}, fmt.Errorf("load index titles: %w", err)
	}
	for _, existing := range titles {
		sim := similarity.CalculateSimilarity(title, existing)
		if sim > d.opts.SimilarityThreshold {
			return core.DuplicateCheckResult{
				IsDuplicate:  true,
				Reason:       fmt.Sprintf("%s %.2f with %q", ReasonTitleSimilarity, sim, existing),
				SimilarTitle: existing,
				Similarity:   sim,
			}, nil
		}
	}

	if d.contentDir == "" {
		return core.DuplicateCheckResult{IsDuplicate: false}, nil
	}
	files, err := store.ListMarkdownFiles(d.contentDir)
	if err != nil {
		return core.DuplicateCheckResult{}, err
	}

	bodies := make([]string, len(files))
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return core.DuplicateCheckResult{}, err
		}

		data, err := os.ReadFile(filepath.Join(d.contentDir, name))
		if err != nil {
			return core.DuplicateCheckResult{}, fmt.Errorf("read %s: %w", name, err)
		}
		bodies[i] = store.StripFrontmatter(string(data))

		sim := similarity.CalculateSimilarity(content, bodies[i])
		if sim > d.opts.SimilarityThreshold {
			return core.DuplicateCheckResult{
				IsDuplicate: true,
				Reason:      fmt.Sprintf("%s %.2f with %s", ReasonContentSimilar, sim, name),
				SimilarFile: name,
				Similarity:  sim,
			}, nil
		}
	}

	newPhrases := similarity.ExtractKeyPhrases(content)
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return core.DuplicateCheckResult{}, err
		}
		if r, ok := d.phraseOverlap(newPhrases, bodies[i], name); ok {
			return r, nil
		}
	}

	return core.DuplicateCheckResult{IsDuplicate: false}, nil
}

// phraseOverlap counts the new phrases with a near match among the existing
// document's phrases.
func (d *Detector) phraseOverlap(newPhrases []string, existing, name string) (core.DuplicateCheckResult, bool) {
	if len(newPhrases) == 0 {
		return core.DuplicateCheckResult{}, false
	}

	existingPhrases := similarity.ExtractKeyPhrases(existing)
	exact := make(map[string]struct{}, len(existingPhrases))
	existingWords := make([][]string, len(existingPhrases))
	for i, p := range existingPhrases {
		exact[p] = struct{}{}
		existingWords[i] = strings.Fields(p)
	}

	var matched []string
	for _, p := range newPhrases {
		if _, ok := exact[p]; ok {
			matched = append(matched, p)
			continue
		}
		words := strings.Fields(p)
		for _, ew := range existingWords {
			if similarity.WordSetSimilarity(words, ew) > d.opts.PhraseMatchThreshold {
				matched = append(matched, p)
				break
			}
		}
	}

	ratio := float64(len(matched)) / float64(len(newPhrases))
	if ratio <= d.opts.PhraseOverlapThreshold || len(matched) < d.opts.MinCommonPhrases {
		return core.DuplicateCheckResult{}, false
	}

	common := matched
	if len(common) > maxCommonPhrases {
		common = common[:maxCommonPhrases]
	}
	return core.DuplicateCheckResult{
		IsDuplicate:   true,
		Reason:        fmt.Sprintf("%s %.2f with %s", ReasonPhraseOverlap, ratio, name),
		SimilarFile:   name,
		PhraseOverlap: ratio,
		CommonPhrases: common,
	}, true
}
