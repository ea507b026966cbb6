package store

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

const (
	// WordsPerMinute is the reading speed used for read-time estimates.
	WordsPerMinute = 200
	// ExcerptMaxLength bounds the excerpt including the trailing ellipsis.
	ExcerptMaxLength = 150
	// MinParagraphLength is the length a paragraph must exceed to be used as excerpt.
	MinParagraphLength = 50
	// DisplayDateLayout is the human-readable date stored on each record.
	DisplayDateLayout = "January 2, 2006"
)

var (
	aiKeywords = []string{
		"artificial intelligence", "machine learning", "deep learning", "neural network",
		"ai", "llm", "gpt", "generative", "automation", "chatbot", "computer vision",
	}
	blockchainKeywords = []string{
		"blockchain", "crypto", "cryptocurrency", "bitcoin", "ethereum", "defi",
		"nft", "smart contract", "web3", "token", "decentralized", "dao",
	}

	aiPatterns         = compileKeywords(aiKeywords)
	blockchainPatterns = compileKeywords(blockchainKeywords)

	imageRegex      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRegex       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headerRegex     = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	listMarkerRegex = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	emphasisRegex   = regexp.MustCompile(`(\*{1,3}|_{2,3})([^*_\n]+?)(\*{1,3}|_{2,3})`)
	quoteRegex      = regexp.MustCompile(`(?m)^\s*>\s?`)
	codeRegex       = regexp.MustCompile("`+")
	paragraphSplit  = regexp.MustCompile(`\n\s*\n`)
	slugInvalid     = regexp.MustCompile(`[^a-z0-9]+`)
	slugValid       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	categoryPlaceholders = map[core.Category]string{
		core.CategoryAI:         "/images/placeholders/ai-article.jpg",
		core.CategoryBlockchain: "/images/placeholders/blockchain-article.jpg",
		core.CategoryTechnology: "/images/placeholders/technology-article.jpg",
		core.CategoryBusiness:   "/images/placeholders/business-article.jpg",
	}
)

func compileKeywords(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`s?\b`))
	}
	return patterns
}

// WordCount counts whitespace-separated words.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// ReadTime formats the estimated reading time, rounding up to whole minutes.
func ReadTime(words int) string {
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// KeywordHits counts AI-family and blockchain-family keyword occurrences.
func KeywordHits(title, content string) (ai, blockchain int) {
	text := strings.ToLower(title + " " + content)
	for _, p := range aiPatterns {
		ai += len(p.FindAllStringIndex(text, -1))
	}
	for _, p := range blockchainPatterns {
		blockchain += len(p.FindAllStringIndex(text, -1))
	}
	return ai, blockchain
}

// Classify picks the category with strictly more keyword hits. No hits at all
// means technology; a nonzero tie goes to ai.
func Classify(title, content string) core.Category {
	ai, blockchain := KeywordHits(title, content)
	switch {
	case ai == 0 && blockchain == 0:
		return core.CategoryTechnology
	case blockchain > ai:
		return core.CategoryBlockchain
	default:
		return core.CategoryAI
	}
}

// StripMarkdown removes emphasis, headers, links, images, quotes and list
// markers while keeping paragraph breaks.
func StripMarkdown(content string) string {
	text := strings.ReplaceAll(content, "\r\n", "\n")
	text = imageRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = headerRegex.ReplaceAllString(text, "")
	text = listMarkerRegex.ReplaceAllString(text, "")
	text = quoteRegex.ReplaceAllString(text, "")
	text = emphasisRegex.ReplaceAllString(text, "$2")
	text = codeRegex.ReplaceAllString(text, "")
	return text
}

// Excerpt returns the first paragraph longer than MinParagraphLength followed
// by "...". Long paragraphs are cut at a word boundary so that the result fits
// ExcerptMaxLength. Empty content yields an empty excerpt.
func Excerpt(content string) string {
	stripped := StripMarkdown(content)

	var paragraph string
	for _, p := range paragraphSplit.Split(stripped, -1) {
		p = strings.Join(strings.Fields(p), " ")
		if len([]rune(p)) > MinParagraphLength {
			paragraph = p
			break
		}
	}
	if paragraph == "" {
		paragraph = strings.Join(strings.Fields(stripped), " ")
	}

	if paragraph == "" {
		return ""
	}

	runes := []rune(paragraph)
	if len(runes)+len("...") <= ExcerptMaxLength {
		return paragraph + "..."
	}

	limit := ExcerptMaxLength - len("...")
	cut := limit
	if !unicode.IsSpace(runes[limit]) {
		cut = -1
		for i := limit - 1; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut < 0 {
			cut = limit
		}
	}

	trimmed := strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
	})
	return trimmed + "..."
}

// ValidSlug reports whether slug is lowercase alphanumeric words joined by
// single hyphens.
func ValidSlug(slug string) bool {
	return slugValid.MatchString(slug)
}

// Slugify turns a title into a URL-safe slug.
func Slugify(title string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return slug
}

// DisplayDate formats t the way the blog shows dates.
func DisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// PlaceholderImage returns the stock cover image for a category.
func PlaceholderImage(c core.Category) string {
	if img, ok := categoryPlaceholders[c]; ok {
		return img
	}
	return categoryPlaceholders[core.CategoryTechnology]
}

// significantWords returns the distinct lowercased words longer than three
// characters, used by the cheap title guard.
func significantWords(title string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len([]rune(w)) > 3 {
			words[w] = struct{}{}
		}
	}
	return words
}

// TitleOverlap reports whether existing shares more than half of the
// significant words of title and more than two words overall.
func TitleOverlap(title, existing string) bool {
	newWords := significantWords(title)
	if len(newWords) == 0 {
		return false
	}
	common := 0
	for w := range significantWords(existing) {
		if _, ok := newWords[w]; ok {
			common++
		}
	}
	return float64(common) > 0.5*float64(len(newWords)) && common > 2
}
