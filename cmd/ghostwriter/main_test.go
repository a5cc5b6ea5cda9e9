package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ghostwriter/internal/models"
)

// execute runs the root command with args and fresh flag values, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, debugFlag, outputFormat = defaultConfigPath, false, "text"
	searchServerURL, searchType, searchProjects, searchTopK, searchMode = "http://localhost:8080", "", nil, 0, "hybrid"
	ingestType, ingestProject, ingestUser, ingestName = string(models.DocumentTypeContent), "", "", ""
	chunkType, chunkSize, chunkOverlap = string(models.DocumentTypeContent), 0, -1

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  driver: sqlite
  database_path: "./ghostwriter.db"
embedding:
  provider: mock
  dimensions: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"gato"}, "gato"},
		{"multiple words", []string{"home", "office"}, "home office"},
		{"single quoted phrase", []string{"home office"}, "home office"},
		{"surrounding space", []string{"  gato  "}, "gato"},
		{"empty", []string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildSearchQuery(tt.args))
		})
	}
}

func TestSearchPath(t *testing.T) {
	p, err := searchPath("hybrid")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search", p)
	p, err = searchPath("vector")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search/vector", p)
	_, err = searchPath("fuzzy")
	assert.Error(t, err)
}

func TestLoadConfig_PrefersCwdConfigWhenDefaultMissing(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("debug: true\nstorage:\n  database_path: \"test.db\"\n"), 0600))
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	assert.Equal(t, configPathCanon, resolvedCanon)
	assert.True(t, cfg.Debug)
}

func TestLoadConfig_DefaultsWithoutAnyFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	t.Chdir(t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_UsesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  host: \"127.0.0.1\"\n  port: 9000\n"), 0600))

	cfg, resolved, err := loadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, resolved)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ghostwriter version dev")
}

func TestKeywordsCommand(t *testing.T) {
	out, err := execute(t, "", "keywords", "vendas", "vendas", "metas")
	require.NoError(t, err)
	assert.Equal(t, "vendas, metas\n", out)
}

func TestChunkCommand(t *testing.T) {
	out, err := execute(t, strings.Repeat("a", 2300), "chunk", "-", "--output", "json")
	require.NoError(t, err)
	var got struct {
		Chunks []string `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Chunks, 3)

	_, err = execute(t, "text", "chunk", "-", "--type", "poem")
	assert.Error(t, err)
}

func TestIngestThenSearchDirect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	doc := filepath.Join(dir, "diario.txt")
	require.NoError(t, os.WriteFile(doc, []byte(
		"O gato dorme no sofá enquanto trabalho em home office. "+
			"À tarde ele pede comida e derruba canetas da mesa."), 0600))

	out, err := execute(t, "", "ingest", doc, "--config", cfgPath, "--project", "p1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Document stored:")
	assert.Contains(t, out, "(1 chunks)")

	out, err = execute(t, "", "search", "gato", "home", "office", "--config", cfgPath, "--server", "", "--type", "content")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Found 1 results")
	assert.Contains(t, out, "home office")

	out, err = execute(t, "", "backfill", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Embedded 0 chunk(s), 0 error(s)")
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "", "init-config", path)
	require.NoError(t, err, out)

	cfg, resolved, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, 1000, cfg.Chunking.Content.Size)
	assert.Equal(t, "none", cfg.Embedding.Provider)

	_, err = execute(t, "", "init-config", path)
	assert.Error(t, err)
}
