package store

import (
	"strings"
	"testing"
	"time"

	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestReadTime(t *testing.T) {
	tests := []struct {
		words int
		want  string
	}{
		{0, "1 min read"},
		{199, "1 min read"},
		{200, "1 min read"},
		{201, "2 min read"},
		{400, "2 min read"},
		{1201, "7 min read"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ReadTime(tt.words), "words=%d", tt.words)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    core.Category
	}{
		{
			name:    "ai keywords win",
			title:   "How AI Changes Work",
			content: "Machine learning and LLM tools, generative models and automation everywhere.",
			want:    core.CategoryAI,
		},
		{
			name:    "no keywords",
			title:   "Quarterly Garden Report",
			content: "Tomatoes grew well this season.",
			want:    core.CategoryTechnology,
		},
		{
			name:    "blockchain majority",
			title:   "Bitcoin and Ethereum",
			content: "Smart contracts on the blockchain power DeFi.",
			want:    core.CategoryBlockchain,
		},
		{
			name:    "tie goes to ai",
			title:   "AI meets blockchain",
			content: "",
			want:    core.CategoryAI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title, tt.content))
		})
	}
}

func TestKeywordHitsWholeWords(t *testing.T) {
	ai, blockchain := KeywordHits("Said the chain", "Maintain tokens")
	assert.Equal(t, 0, ai, "\"ai\" inside other words must not count")
	assert.Equal(t, 1, blockchain, "plural token counts once")
}

func TestExcerptShortParagraphGetsEllipsis(t *testing.T) {
	content := "# Heading\n\nThis paragraph is long enough to be picked as the excerpt for the post."
	assert.Equal(t, "This paragraph is long enough to be picked as the excerpt for the post....", Excerpt(content))
}

func TestExcerptNearLimitStillFits(t *testing.T) {
	paragraph := strings.Repeat("word ", 29) + "last"
	assert.Len(t, paragraph, 149)

	got := Excerpt(paragraph)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), ExcerptMaxLength)
	assert.Equal(t, strings.Repeat("word ", 28)+"word...", got)
}

func TestExcerptEmptyContent(t *testing.T) {
	assert.Empty(t, Excerpt(""))
}

func TestExcerptCutsAtWordBoundary(t *testing.T) {
	head := strings.Repeat("abcd ", 27) + "abcde"
	paragraph := head + " abcdefghij"
	assert.Len(t, paragraph, 151)

	got := Excerpt(paragraph)
	assert.Equal(t, head+"...", got)
	assert.LessOrEqual(t, len(got), ExcerptMaxLength)
}

func TestExcerptSkipsShortParagraphs(t *testing.T) {
	content := "Short intro.\n\n**Bold** start of a paragraph that is clearly longer than fifty characters."
	assert.Equal(t, "Bold start of a paragraph that is clearly longer than fifty characters....", Excerpt(content))
}

func TestStripMarkdown(t *testing.T) {
	in := "## Title\n\n- item with [link](https://x.io) and ![img](a.png)\n> quoted *text*"
	out := StripMarkdown(in)
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "](")
	assert.NotContains(t, out, "*")
	assert.Contains(t, out, "item with link and")
	assert.Contains(t, out, "quoted text")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "the-state-of-llms-in-2025", Slugify("The State of LLMs in 2025!"))
	assert.Equal(t, "ai-web3", Slugify("  --AI & Web3--  "))
	assert.LessOrEqual(t, len(Slugify(strings.Repeat("word ", 40))), 80)
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("ai-in-2025"))
	assert.True(t, ValidSlug("web3"))
	for _, bad := range []string{"", "../../escaped", "Upper-Case", "double--hyphen", "-leading", "trailing-", "a/b", "a.md"} {
		assert.False(t, ValidSlug(bad), bad)
	}
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "March 5, 2025", DisplayDate(time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)))
}

func TestPlaceholderImage(t *testing.T) {
	assert.Equal(t, "/images/placeholders/blockchain-article.jpg", PlaceholderImage(core.CategoryBlockchain))
	assert.Equal(t, "/images/placeholders/technology-article.jpg", PlaceholderImage(core.Category("other")))
}

func TestTitleOverlap(t *testing.T) {
	assert.True(t, TitleOverlap(
		"Future of Decentralized Finance Protocols",
		"The Future of Decentralized Finance Explained",
	))
	assert.False(t, TitleOverlap(
		"Future of Decentralized Finance Protocols",
		"Future of Robotics",
	))
	assert.False(t, TitleOverlap("AI in 2025", "AI in 2025"), "too few significant words")
}
