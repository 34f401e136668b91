package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp dir and returns the medtriage config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "medtriage")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	return configDir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: 8088
corpus:
  path: /data/convdata.csv
  max_rows: 50
risk:
  strategy: sentiment
sentiment:
  base_url: http://localhost:5005/predict
scheduling:
  retry_delay: 500ms
vocabulary:
  genders:
    - term: female
      gender: Female
    - term: male
      gender: Male
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.Corpus.MaxRows != 50 {
		t.Errorf("Corpus.MaxRows = %d, want 50", cfg.Corpus.MaxRows)
	}
	if cfg.Corpus.TextColumn != "conversation" {
		t.Errorf("Corpus.TextColumn = %q, want default %q", cfg.Corpus.TextColumn, "conversation")
	}
	if cfg.Risk.Strategy != StrategySentiment {
		t.Errorf("Risk.Strategy = %q, want %q", cfg.Risk.Strategy, StrategySentiment)
	}
	if cfg.Scheduling.RetryDelay != 500*time.Millisecond {
		t.Errorf("Scheduling.RetryDelay = %v, want 500ms", cfg.Scheduling.RetryDelay)
	}
	if len(cfg.Vocabulary.Genders) != 2 || cfg.Vocabulary.Genders[0].Term != "female" {
		t.Errorf("Vocabulary.Genders = %+v, want female first", cfg.Vocabulary.Genders)
	}
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: 9090
pipeline:
  workers: 2
`, 0600)

	t.Setenv("SERVER_HTTP_PORT", "7777")
	t.Setenv("PIPELINE_SENTIMENT_CONCURRENCY", "9")
	t.Setenv("SCHEDULING_CALL_TIMEOUT", "5s")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("Pipeline.Workers = %d, want 2 (from yaml)", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.SentimentConcurrency != 9 {
		t.Errorf("Pipeline.SentimentConcurrency = %d, want 9", cfg.Pipeline.SentimentConcurrency)
	}
	if cfg.Scheduling.CallTimeout != 5*time.Second {
		t.Errorf("Scheduling.CallTimeout = %v, want 5s", cfg.Scheduling.CallTimeout)
	}
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFile() should not error on missing file, got: %v", err)
	}
	if cfg.Corpus.MaxRows != 3000 {
		t.Errorf("Corpus.MaxRows = %d, want 3000", cfg.Corpus.MaxRows)
	}
	if cfg.Risk.Strategy != StrategyLexical {
		t.Errorf("Risk.Strategy = %q, want lexical", cfg.Risk.Strategy)
	}
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: not-a-number
  invalid syntax here
`, 0600)

	if _, err := LoadWithFile(path); err == nil {
		t.Error("LoadWithFile() should error on invalid YAML, got nil")
	}
}

func TestLoadWithFile_Validation(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `risk:
  strategy: sentiment
`, 0600)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("LoadWithFile() should error when sentiment strategy has no base_url")
	}
	if !strings.Contains(err.Error(), "sentiment.base_url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWithFile_PathTraversal(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile("../../../../etc/passwd")
	if err == nil {
		t.Fatal("Expected error for path traversal, got nil")
	}
	if !strings.Contains(err.Error(), "must be in ~/.config/medtriage/ or /etc/medtriage/") {
		t.Errorf("Expected path validation error, got: %v", err)
	}
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 9090\n", 0644)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("Expected error for insecure permissions, got nil")
	}
	if !strings.Contains(err.Error(), "insecure") {
		t.Errorf("Expected 'insecure permissions' error, got: %v", err)
	}
}

func TestLoadWithFile_FileTooLarge(t *testing.T) {
	dir := setupTestHome(t)

	largeContent := bytes.Repeat([]byte("# comment line\n"), 150000)
	path := writeConfig(t, dir, string(largeContent), 0600)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("Expected error for large file, got nil")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected 'too large' error, got: %v", err)
	}
}

func TestValidateConfigPath(t *testing.T) {
	dir := setupTestHome(t)

	valid := []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "nested", "config.yaml"),
		"/etc/medtriage/config.yaml",
	}
	for _, p := range valid {
		if err := validateConfigPath(p); err != nil {
			t.Errorf("validateConfigPath(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"/etc/passwd",
		"/tmp/config.yaml",
		"/etc/medtriage-evil/config.yaml",
		filepath.Join(dir, "..", "..", "config.yaml"),
	}
	for _, p := range invalid {
		if err := validateConfigPath(p); err == nil {
			t.Errorf("validateConfigPath(%q) = nil, want error", p)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SERVER_HTTP_PORT":               "server.http_port",
		"PIPELINE_SENTIMENT_CONCURRENCY": "pipeline.sentiment_concurrency",
		"RISK_STRATEGY":                  "risk.strategy",
		"HOME":                           "home",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
