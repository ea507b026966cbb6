package duplicates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faisworld/fais-web-sub000/internal/contenthash"
	"github.com/faisworld/fais-web-sub000/internal/core"
	"github.com/faisworld/fais-web-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTitles struct {
	titles []string
	err    error
}

func (f fakeTitles) Titles(context.Context) ([]string, error) {
	return f.titles, f.err
}

func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

func writeMarkdown(t *testing.T, dir, name, title, body string) {
	t.Helper()
	_, err := store.WriteMarkdown(dir, strings.TrimSuffix(name, ".md"), store.Frontmatter{
		Title:    title,
		Category: "ai",
	}, body)
	require.NoError(t, err)
}

func TestCheckTitleThresholdIsExclusive(t *testing.T) {
	tests := []struct {
		name      string
		shared    int
		uniqueNew int
		uniqueOld int
		want      bool
	}{
		{"0.69", 69, 15, 16, false},
		{"0.70", 70, 15, 15, false},
		{"0.71", 71, 14, 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := words("s", tt.shared)
			newTitle := strings.Join(append(append([]string{}, shared...), words("a", tt.uniqueNew)...), " ")
			oldTitle := strings.Join(append(append([]string{}, shared...), words("b", tt.uniqueOld)...), " ")

			d := NewDetector(fakeTitles{titles: []string{oldTitle}}, t.TempDir(), nil, DefaultOptions())
			got := d.Check(context.Background(), newTitle, "unrelated body text")
			assert.Equal(t, tt.want, got.IsDuplicate)
		})
	}
}

func TestCheckEndToEndDuplicateTitle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "blog-data.ts")
	contentDir := filepath.Join(dir, "content")
	require.NoError(t, os.WriteFile(indexPath, []byte("export const blogPosts: BlogPost[] = [];\n"), 0644))

	body := "Large language models now power search, coding assistants and customer support. " +
		"This year the state of the art moved toward smaller, cheaper models with longer context."

	pub := store.NewPublisher(store.NewFlatFileIndex(indexPath), store.PublisherOptions{ContentDir: contentDir})
	saved, err := pub.SaveArticle(ctx, core.GenerationResult{
		Title:   "The State of Large Language Models in 2025",
		Content: body,
		Slug:    "large-language-models-2025",
	}, "")
	require.NoError(t, err)
	require.True(t, saved)

	d := NewDetector(store.NewFlatFileIndex(indexPath), contentDir, nil, DefaultOptions())
	got := d.Check(ctx, "Large Language Models: State in 2025", body+" A short new closing line.")

	assert.True(t, got.IsDuplicate)
	assert.Contains(t, got.Reason, "title similarity")
	assert.Equal(t, "The State of Large Language Models in 2025", got.SimilarTitle)
	assert.InDelta(t, 5.0/6.0, got.Similarity, 1e-9)
}

func TestCheckContentSimilarity(t *testing.T) {
	dir := t.TempDir()
	body := "Zero knowledge proofs let rollups settle thousands of transactions with a single succinct proof."
	writeMarkdown(t, dir, "zk-rollups.md", "Zero Knowledge Rollups", body)

	d := NewDetector(fakeTitles{}, dir, nil, DefaultOptions())
	got := d.Check(context.Background(), "Something Else Entirely", body)

	assert.True(t, got.IsDuplicate)
	assert.Equal(t, "zk-rollups.md", got.SimilarFile)
	assert.Contains(t, got.Reason, "content similarity")
	assert.Equal(t, 1.0, got.Similarity)
}

func TestCheckPhraseOverlap(t *testing.T) {
	dir := t.TempDir()
	sentence := "Quantum ledger protocols enable verifiable supply chains."
	writeMarkdown(t, dir, "ledger.md", "Ledgers", sentence+" "+strings.Join(words("filler", 20), " "))

	d := NewDetector(fakeTitles{}, dir, nil, DefaultOptions())
	got := d.Check(context.Background(), "A Fresh Title", sentence)

	require.True(t, got.IsDuplicate)
	assert.Equal(t, "ledger.md", got.SimilarFile)
	assert.Equal(t, 1.0, got.PhraseOverlap)
	assert.Equal(t, []string{
		"quantum ledger",
		"quantum ledger protocols",
		"ledger protocols",
		"ledger protocols enable",
		"protocols enable",
	}, got.CommonPhrases)
}

func TestCheckPhraseOverlapNeedsMinimumMatches(t *testing.T) {
	dir := t.TempDir()
	writeMarkdown(t, dir, "greek.md", "Greek", "alpha beta gamma "+strings.Join(words("filler", 10), " "))

	d := NewDetector(fakeTitles{}, dir, nil, DefaultOptions())
	got := d.Check(context.Background(), "A Fresh Title", "alpha beta gamma")
	assert.False(t, got.IsDuplicate, "three matching phrases are below the minimum")
}

func TestCheckContentHashShortCircuit(t *testing.T) {
	hashes := contenthash.NewStore(filepath.Join(t.TempDir(), "hashes.json")).
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) })
	require.NoError(t, hashes.Put("Agents in Production", "Body of the agents article."))

	d := NewDetector(fakeTitles{}, t.TempDir(), hashes, DefaultOptions())
	got := d.Check(context.Background(), "  agents in   PRODUCTION", "body of the agents article.  ")

	assert.True(t, got.IsDuplicate)
	assert.Equal(t, ReasonContentHash, got.Reason)
	assert.Equal(t, "Agents in Production", got.SimilarTitle)
}

func TestCheckFailsOpen(t *testing.T) {
	t.Run("index unreadable", func(t *testing.T) {
		d := NewDetector(fakeTitles{err: errors.New("disk on fire")}, t.TempDir(), nil, DefaultOptions())
		got := d.Check(context.Background(), "Title", "Content")
		assert.Equal(t, core.DuplicateCheckResult{IsDuplicate: false}, got)
	})

	t.Run("content dir missing", func(t *testing.T) {
		d := NewDetector(fakeTitles{}, filepath.Join(t.TempDir(), "missing"), nil, DefaultOptions())
		got := d.Check(context.Background(), "Title", "Content")
		assert.False(t, got.IsDuplicate)
	})

	t.Run("corrupt hash file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hashes.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		d := NewDetector(fakeTitles{}, t.TempDir(), contenthash.NewStore(path), DefaultOptions())
		got := d.Check(context.Background(), "Title", "Content")
		assert.False(t, got.IsDuplicate)
	})
}

func TestCheckUniqueArticle(t *testing.T) {
	dir := t.TempDir()
	writeMarkdown(t, dir, "defi.md", "DeFi Lending", "Decentralized lending pools match borrowers and lenders on chain.")

	d := NewDetector(fakeTitles{titles: []string{"DeFi Lending"}}, dir, nil, DefaultOptions())
	got := d.Check(context.Background(), "Computer Vision on the Factory Floor", "Cameras and models inspect parts for defects in real time.")
	assert.False(t, got.IsDuplicate)
}

func TestCheckCustomThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.SimilarityThreshold = 0.9

	d := NewDetector(fakeTitles{titles: []string{"The State of Large Language Models in 2025"}}, t.TempDir(), nil, opts)
	got := d.Check(context.Background(), "Large Language Models: State in 2025", "body")
	assert.False(t, got.IsDuplicate)
	assert.Equal(t, 0.9, d.Options().SimilarityThreshold)
}
