package handlers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisworld/fais-web-sub000/internal/autorun"
	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/generator"
	"github.com/faisworld/fais-web-sub000/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.App{Env: "development"},
		Content: config.Content{
			IndexBackend: "sqlite",
			SQLitePath:   filepath.Join(dir, "blog.db"),
			IndexPath:    filepath.Join(dir, "blog-data.ts"),
			Dir:          filepath.Join(dir, "content"),
			HashFile:     filepath.Join(dir, "hashes.json"),
		},
		Autorun: config.Autorun{Delay: 10 * time.Second, RefreshKnowledgeBase: true},
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "generate", "crawl", "check-duplicate", "run", "schedule", "migrate", "diagnose"} {
		assert.Contains(t, names, want)
	}
}

func TestAppIndexBackends(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(cfg)
	defer a.close()

	idx, err := a.Index()
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteIndex{}, idx)

	again, err := a.Index()
	require.NoError(t, err)
	assert.Same(t, idx, again)

	cfg2 := testConfig(t)
	cfg2.Content.IndexBackend = "flatfile"
	b := newApp(cfg2)
	defer b.close()
	idx, err = b.Index()
	require.NoError(t, err)
	assert.IsType(t, &store.FlatFileIndex{}, idx)
}

func TestAppOptionalServicesWithoutCredentials(t *testing.T) {
	a := newApp(testConfig(t))
	defer a.close()
	ctx := context.Background()

	media, err := a.Media(ctx)
	require.NoError(t, err)
	assert.Nil(t, media)

	writer, err := a.Writer(ctx)
	require.NoError(t, err)
	assert.Nil(t, writer)

	db, err := a.Database(ctx)
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestAppMediaWithTokens(t *testing.T) {
	cfg := testConfig(t)
	cfg.Replicate.APIToken = "r8_test"
	cfg.Blob.Token = "blob_test"
	a := newApp(cfg)
	defer a.close()

	media, err := a.Media(context.Background())
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.NotEmpty(t, media.Registry().Identifiers())
}

func TestAppWriterSelectsProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.OpenAI.APIKey = "sk-test"
	a := newApp(cfg)
	defer a.close()

	writer, err := a.Writer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, writer)
	assert.NotEmpty(t, writer.Model())
}

func TestServerDepsLeavesMissingServicesNil(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.InternalAPIKey = "internal"
	a := newApp(cfg)
	defer a.close()

	deps, err := serverDeps(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, deps.Media)
	assert.Nil(t, deps.Writer)
	assert.Nil(t, deps.DB)
	assert.NotNil(t, deps.Index)
	assert.Equal(t, "internal", deps.Auth.InternalAPIKey)
	assert.Equal(t, cfg.Content.Dir, deps.ContentDir)
}

func TestAppGeneratorResolvesEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.BaseURL = "https://example.test/"
	a := newApp(cfg)
	defer a.close()

	gen, err := a.Generator()
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", gen.BaseURL())

	driver, err := a.Driver()
	require.NoError(t, err)
	assert.NotNil(t, driver)
}

func TestAppGeneratorUsesProductionForAnyAlias(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.BaseURL = ""
	cfg.App.Env = "preview"
	cfg.App.EnvAliases = []string{"preview", "production"}
	a := newApp(cfg)
	defer a.close()

	gen, err := a.Generator()
	require.NoError(t, err)
	assert.Equal(t, generator.ProductionBaseURL, gen.BaseURL())
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, autorun.Report{
		Topics:   []autorun.Topic{{Topic: "First"}, {Topic: "Second"}},
		Slugs:    []string{"first"},
		Failures: []autorun.TopicFailure{{Topic: "Second", Err: errors.New("endpoint returned 500")}},
		Duration: 12 * time.Second,
	})

	out := buf.String()
	assert.Contains(t, out, "Automated run")
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "endpoint returned 500")
	assert.Contains(t, out, "12s")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
	assert.Equal(t, 800, firstPositive(0, 800))
	assert.Equal(t, 0, firstPositive(-1, 0))

	ai := config.AI{Provider: "gemini", Model: "gemini-2.5-pro"}
	assert.Equal(t, "gemini-2.5-pro", modelFor("gemini", ai))
	assert.Equal(t, "", modelFor("openai", ai))
}
