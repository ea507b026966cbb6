package core

import "time"

// Category is the closed set of blog categories.
type Category string

const (
	CategoryAI         Category = "ai"
	CategoryBlockchain Category = "blockchain"
	CategoryTechnology Category = "technology"
	CategoryBusiness   Category = "business"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAI, CategoryBlockchain, CategoryTechnology, CategoryBusiness:
		return true
	}
	return false
}

// ArticleRecord is one entry of the blog index, newest first.
type ArticleRecord struct {
	ID          string    `json:"id"`          // Short hash of topic + timestamp
	Slug        string    `json:"slug"`        // URL-safe unique key
	Title       string    `json:"title"`       // Display title
	Excerpt     string    `json:"excerpt"`     // First substantial paragraph, <=150 chars
	Date        string    `json:"date"`        // Display date, e.g. "October 15, 2026"
	PublishedAt time.Time `json:"publishedAt"` // Sortable timestamp, same instant as Date
	ReadTime    string    `json:"readTime"`    // "<n> min read"
	Category    Category  `json:"category"`    // ai, blockchain, technology, business
	CoverImage  string    `json:"coverImage"`  // Generated image URL or category placeholder
	Featured    bool      `json:"featured"`    // Randomly featured on the blog landing page
	Author      string    `json:"author"`      // Author display name
	AuthorImage string    `json:"authorImage"` // Author avatar URL
}

// GenerationRequest is the payload sent to the article generation endpoint.
type GenerationRequest struct {
	Topic        string   `json:"topic"`
	Keywords     []string `json:"keywords"`
	Tone         string   `json:"tone"`
	WordCount    int      `json:"wordCount"`
	IncludeImage bool     `json:"includeImage"`
	ID           string   `json:"id,omitempty"`
}

// GenerationResult is what the article generation endpoint returns.
type GenerationResult struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Slug     string   `json:"slug"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// DuplicateCheckResult is always a value: the duplicate check fails open and
// never reports an error to its caller.
type DuplicateCheckResult struct {
	IsDuplicate   bool     `json:"isDuplicate"`
	Reason        string   `json:"reason,omitempty"`
	SimilarTitle  string   `json:"similarTitle,omitempty"`
	SimilarFile   string   `json:"similarFile,omitempty"`
	Similarity    float64  `json:"similarity,omitempty"`
	PhraseOverlap float64  `json:"phraseOverlap,omitempty"`
	CommonPhrases []string `json:"commonPhrases,omitempty"`
}

// NewsArticle is a crawled news item used as inspiration for new posts.
type NewsArticle struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TopicKind classifies a topic proposal derived from the news.
type TopicKind string

const (
	TopicAI          TopicKind = "ai"
	TopicBlockchain  TopicKind = "blockchain"
	TopicConvergence TopicKind = "convergence"
)

// TopicProposal is a candidate article topic.
type TopicProposal struct {
	Topic         string       `json:"topic"`
	Keywords      []string     `json:"keywords"`
	Kind          TopicKind    `json:"kind"`
	SourceArticle *NewsArticle `json:"sourceArticle,omitempty"`
}

// MediaType is the kind of media a generation model produces.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// GalleryImage is a row of the images table owned by the admin gallery.
type GalleryImage struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	AltTag      string    `json:"alt_tag"`
	Folder      string    `json:"folder"`
	Description string    `json:"description"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int64     `json:"size"`
	Format      string    `json:"format"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
