package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every alias so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "VERCEL_ENV", "NODE_ENV", "PORT", "ADMIN_JWT_SECRET", "JWT_SECRET",
		"INTERNAL_API_BASE_URL", "INTERNAL_API_KEY", "REPLICATE_API_TOKEN", "REPLICATE_API_KEY",
		"BLOB_READ_WRITE_TOKEN", "DATABASE_URL", "POSTGRES_URL", "OPENAI_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY",
		"POSTHOG_API_KEY", "NEXT_PUBLIC_POSTHOG_KEY", "LOG_LEVEL", "DEBUG", "FAIS_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func loadFresh(t *testing.T, file string) (*Config, error) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)
	return Load(file)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := loadFresh(t, "")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "sqlite", cfg.Content.IndexBackend)
	assert.Equal(t, 800, cfg.Generation.WordCount)
	assert.Equal(t, 5*time.Second, cfg.Replicate.PollInterval)
	assert.Equal(t, 60, cfg.Replicate.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Crawler.Timeout)
	assert.Equal(t, 4, cfg.Crawler.TargetArticles)
	assert.Equal(t, 0.7, cfg.Duplicates.SimilarityThreshold)
	assert.Equal(t, 4, cfg.Duplicates.MinCommonPhrases)
	assert.Equal(t, 10*time.Second, cfg.Autorun.Delay)
	assert.False(t, cfg.PostHog.Enabled)
	assert.False(t, cfg.HasMediaTokens())
}

func TestLoadEnvironmentAliases(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("VERCEL_ENV", "Production")
	t.Setenv("INTERNAL_API_KEY", "internal-secret")
	t.Setenv("INTERNAL_API_BASE_URL", "https://preview.fais.world")
	t.Setenv("REPLICATE_API_KEY", "r8_abc")
	t.Setenv("BLOB_READ_WRITE_TOKEN", "vercel_blob_rw_x")
	t.Setenv("GOOGLE_AI_API_KEY", "gem")
	t.Setenv("POSTHOG_API_KEY", "phc_123")
	t.Setenv("PORT", "9000")

	cfg, err := loadFresh(t, "")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "internal-secret", cfg.Generation.InternalAPIKey)
	assert.Equal(t, "https://preview.fais.world", cfg.Generation.BaseURL)
	assert.Equal(t, "r8_abc", cfg.Replicate.APIToken)
	assert.Equal(t, "gem", cfg.AI.Gemini.APIKey)
	assert.True(t, cfg.HasMediaTokens())
	assert.True(t, cfg.PostHog.Enabled)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadKeepsEveryEnvAlias(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("VERCEL_ENV", "preview")
	t.Setenv("NODE_ENV", "production")

	cfg, err := loadFresh(t, "")
	require.NoError(t, err)

	assert.Equal(t, "preview", cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, []string{"preview", "production"}, cfg.App.EnvAliases)
	assert.Equal(t, []string{"preview", "preview", "production"}, cfg.App.DeploymentEnvs())
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "fais.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
content:
  index_backend: FlatFile
  index_path: site/blog-data.ts
crawler:
  target_articles: 2
  sources:
    - name: AI
      urls: ["https://example.com/ai"]
duplicates:
  similarity_threshold: 0.9
autorun:
  delay: 250ms
`), 0o644))

	cfg, err := loadFresh(t, file)
	require.NoError(t, err)

	assert.Equal(t, "flatfile", cfg.Content.IndexBackend)
	assert.Equal(t, "site/blog-data.ts", cfg.Content.IndexPath)
	assert.Equal(t, 2, cfg.Crawler.TargetArticles)
	require.Len(t, cfg.Crawler.Sources, 1)
	assert.Equal(t, []string{"https://example.com/ai"}, cfg.Crawler.Sources[0].URLs)
	assert.Equal(t, 0.9, cfg.Duplicates.SimilarityThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Autorun.Delay)
}

func TestLoadValidationErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
content:
  index_backend: mongodb
duplicates:
  similarity_threshold: 1.5
`), 0o644))

	_, err := loadFresh(t, file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown index backend: mongodb")
	assert.Contains(t, err.Error(), "duplicates.similarity_threshold must be in (0, 1]")
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FAIS_ROOT", "/srv/fais")
	assert.Equal(t, "/srv/fais/content", expandPath("$FAIS_ROOT/content"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "blog"), expandPath("~/blog"))
}
