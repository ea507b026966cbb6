// Package autorun drives one unattended content run: pick a couple of topics,
// generate an article for each, then refresh the site's knowledge base.
package autorun

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/fetch"
	"github.com/faisworld/fais-web-sub000/internal/generator"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/observability"
)

// DefaultDelay separates consecutive generation calls.
const DefaultDelay = 10 * time.Second

// MaxTopicsPerRun bounds how many topics a single run picks.
const MaxTopicsPerRun = 2

// ArticleGenerator produces one article for a request.
type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, req core.GenerationRequest) (*core.GenerationResult, error)
}

// NewsSource supplies recent news for news-driven runs.
type NewsSource interface {
	CrawlLatestNews(ctx context.Context) ([]core.NewsArticle, error)
}

// KnowledgeBase re-indexes published articles. A nil or empty slugs list
// means a full refresh.
type KnowledgeBase interface {
	Refresh(ctx context.Context, slugs []string) error
}

// Options configures a Driver. Zero values get defaults.
type Options struct {
	Topics        []Topic
	Delay         time.Duration
	UseNews       bool
	News          NewsSource
	KnowledgeBase KnowledgeBase
	Rand          *rand.Rand
	Sleep         func(ctx context.Context, d time.Duration) error
	Tracker       observability.Tracker
	Now           func() time.Time
}

// TopicFailure records a topic whose generation failed.
type TopicFailure struct {
	Topic string
	Err   error
}

// Report summarizes a run.
type Report struct {
	Topics   []Topic
	Slugs    []string
	Failures []TopicFailure
	Duration time.Duration
}

// Driver runs automated generation.
type Driver struct {
	gen  ArticleGenerator
	opts Options
	log  zerolog.Logger
}

// NewDriver creates a driver around gen.
func NewDriver(gen ArticleGenerator, opts Options) *Driver {
	if len(opts.Topics) == 0 {
		opts.Topics = DefaultTopics
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Tracker == nil {
		opts.Tracker = observability.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{gen: gen, opts: opts, log: logger.Component("autorun")}
}

// Run performs one automated run. Per-topic failures are recorded in the
// report and never abort the run; only context cancellation does.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	start := d.opts.Now()
	report := Report{}

	table := d.topicTable(ctx)
	report.Topics = d.pick(table)
	d.log.Info().Int("topics", len(report.Topics)).Int("table_size", len(table)).Msg("Starting automated run")

	for i, topic := range report.Topics {
		if i > 0 {
			if err := d.opts.Sleep(ctx, d.opts.Delay); err != nil {
				report.Duration = d.opts.Now().Sub(start)
				return report, err
			}
		}

		result, err := d.gen.GenerateArticle(ctx, generator.NewRequest(topic.Topic, topic.Keywords))
		if err != nil {
			d.log.Error().Err(err).Str("topic", topic.Topic).Msg("Article generation failed")
			report.Failures = append(report.Failures, TopicFailure{Topic: topic.Topic, Err: err})
			if ctx.Err() != nil {
				report.Duration = d.opts.Now().Sub(start)
				return report, ctx.Err()
			}
			continue
		}
		if result.Slug != "" {
			report.Slugs = append(report.Slugs, result.Slug)
		}
		d.log.Info().Str("topic", topic.Topic).Str("slug", result.Slug).Msg("Article generated")
	}

	d.refresh(ctx, report.Slugs)

	report.Duration = d.opts.Now().Sub(start)
	observability.TrackAutorunCompleted(ctx, d.opts.Tracker, len(report.Topics), len(report.Slugs), len(report.Failures), report.Duration.Milliseconds())
	d.log.Info().
		Int("generated", len(report.Slugs)).
		Int("failed", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("Automated run finished")
	return report, nil
}

// topicTable returns the news-derived topics when enabled and available,
// the static table otherwise.
func (d *Driver) topicTable(ctx context.Context) []Topic {
	if !d.opts.UseNews || d.opts.News == nil {
		return d.opts.Topics
	}

	articles, err := d.opts.News.CrawlLatestNews(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("News crawl failed, using static topics")
		return d.opts.Topics
	}
	proposals := fetch.GenerateArticleTopicsFromNews(articles)
	if len(proposals) == 0 {
		d.log.Warn().Int("articles", len(articles)).Msg("No topics proposed from news, using static topics")
		return d.opts.Topics
	}

	topics := make([]Topic, 0, len(proposals))
	for _, p := range proposals {
		topics = append(topics, Topic{Topic: p.Topic, Keywords: p.Keywords})
	}
	return topics
}

// pick selects 1 or 2 distinct topics.
func (d *Driver) pick(table []Topic) []Topic {
	count := 1 + d.opts.Rand.IntN(MaxTopicsPerRun)
	count = min(count, len(table))

	perm := d.opts.Rand.Perm(len(table))
	picked := make([]Topic, 0, count)
	for _, idx := range perm[:count] {
		picked = append(picked, table[idx])
	}
	return picked
}

// refresh runs the scoped refresh when there are new slugs, then the full
// refresh unconditionally. Errors are logged only.
func (d *Driver) refresh(ctx context.Context, slugs []string) {
	kb := d.opts.KnowledgeBase
	if kb == nil {
		d.log.Debug().Msg("No knowledge base configured, skipping refresh")
		return
	}

	if len(slugs) > 0 {
		if err := kb.Refresh(ctx, slugs); err != nil {
			d.log.Warn().Err(err).Strs("slugs", slugs).Msg("Scoped knowledge base refresh failed")
		}
	}
	if err := kb.Refresh(ctx, nil); err != nil {
		d.log.Warn().Err(err).Msg("Knowledge base refresh failed")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
