package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/faisworld/fais-web-sub000/internal/contenthash"
	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/rs/zerolog"
)

// FeaturedProbability is the chance a new post is marked featured.
const FeaturedProbability = 0.15

// Publisher writes generated articles into the index and the Markdown corpus.
// Unlike the duplicate check, every failure here is returned to the caller.
type Publisher struct {
	index       Index
	contentDir  string
	hashes      *contenthash.Store
	author      string
	authorImage string
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	log zerolog.Logger
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	ContentDir  string
	Hashes      *contenthash.Store // optional
	Author      string
	AuthorImage string
	Rand        *rand.Rand       // optional, seeded from the clock when nil
	Now         func() time.Time // optional
}

// NewPublisher creates a publisher writing to index and opts.ContentDir.
func NewPublisher(index Index, opts PublisherOptions) *Publisher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	author := opts.Author
	if author == "" {
		author = "Fantastic AI Studio"
	}

	return &Publisher{
		index:       index,
		contentDir:  opts.ContentDir,
		hashes:      opts.Hashes,
		author:      author,
		authorImage: opts.AuthorImage,
		now:         now,
		rng:         rng,
		log:         logger.Component("publisher"),
	}
}

// Index returns the index the publisher writes to.
func (p *Publisher) Index() Index { return p.index }

// ContentDir returns the Markdown corpus directory.
func (p *Publisher) ContentDir() string { return p.contentDir }

// SaveArticle persists a generated article. It returns false without touching
// anything when the slug is taken or the title closely matches an existing one.
func (p *Publisher) SaveArticle(ctx context.Context, result core.GenerationResult, id string) (bool, error) {
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return false, errors.New("generated article has no title")
	}
	slug := strings.TrimSpace(result.Slug)
	if slug != "" && !ValidSlug(slug) {
		p.log.Warn().Str("slug", slug).Msg("Generated slug is not URL-safe, deriving one from the title")
		slug = ""
	}
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return false, fmt.Errorf("could not derive a slug from title %q", title)
	}

	exists, err := p.index.ExistsBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	if exists {
		p.log.Warn().Str("slug", slug).Msg("Article with this slug already exists, skipping")
		return false, nil
	}

	titles, err := p.index.Titles(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range titles {
		if TitleOverlap(title, existing) {
			p.log.Warn().
				Str("title", title).
				Str("existing_title", existing).
				Msg("Article title overlaps an existing post, skipping")
			return false, nil
		}
	}

	record := p.buildRecord(result, id, slug, title)

	if err := p.index.InsertFront(ctx, record); err != nil {
		return false, err
	}

	path, err := WriteMarkdown(p.contentDir, slug, Frontmatter{
		Title:    record.Title,
		Excerpt:  record.Excerpt,
		Date:     record.Date,
		Category: string(record.Category),
		Author:   record.Author,
		Image:    record.CoverImage,
		Keywords: result.Keywords,
	}, result.Content)
	if err != nil {
		return false, err
	}

	if p.hashes != nil {
		if err := p.hashes.Put(title, result.Content); err != nil {
			p.log.Warn().Err(err).Str("slug", slug).Msg("Failed to store content hash")
		}
	}

	p.log.Info().
		Str("slug", slug).
		Str("category", string(record.Category)).
		Str("markdown", path).
		Msg("Article saved to blog index")
	return true, nil
}

func (p *Publisher) buildRecord(result core.GenerationResult, id, slug, title string) core.ArticleRecord {
	now := p.now().UTC()
	category := Classify(title, result.Content)

	cover := strings.TrimSpace(result.ImageURL)
	if cover == "" {
		cover = PlaceholderImage(category)
	}

	p.mu.Lock()
	featured := p.rng.Float64() < FeaturedProbability
	p.mu.Unlock()

	if id == "" {
		id = slug
	}

	return core.ArticleRecord{
		ID:          id,
		Slug:        slug,
		Title:       title,
		Excerpt:     Excerpt(result.Content),
		Date:        DisplayDate(now),
		PublishedAt: now,
		ReadTime:    ReadTime(WordCount(result.Content)),
		Category:    category,
		CoverImage:  cover,
		Featured:    featured,
		Author:      p.author,
		AuthorImage: p.authorImage,
	}
}
