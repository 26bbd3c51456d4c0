package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

var configEnvVars = []string{
	"OPENAI_API_KEY",
	"ORGANIZATION_ID",
	"ASSISTANT_ID",
	"PROJECT_ID",
	"OPENAI_BASE_URL",
}

// clearConfigEnv unsets every configuration variable for the duration of the
// test. Values loaded from env files during the test are removed afterwards.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
	})
}

// TestLoadConfig tests the loadConfig function to ensure it correctly loads
// configuration from an env file and populates the Config struct fields.
func TestLoadConfig(t *testing.T) {
	clearConfigEnv(t)

	config, err := loadConfig("tests/config.env")
	if err != nil {
		t.Fatal(err)
	}

	if config.ApiKey != "TestToken" {
		t.Fatalf("expected api key %s, got %s", "TestToken", config.ApiKey)
	}

	if config.OrganizationId != "org_test-id" {
		t.Fatalf("expected organization id %s, got %s", "org_test-id", config.OrganizationId)
	}

	if config.AssistantId != "asst_test-id" {
		t.Fatalf("expected assistant id %s, got %s", "asst_test-id", config.AssistantId)
	}

	if config.ProjectId != "proj_test-id" {
		t.Fatalf("expected project id %s, got %s", "proj_test-id", config.ProjectId)
	}

	if config.BaseUrl != "" {
		t.Fatalf("expected empty base url, got %s", config.BaseUrl)
	}
}

// TestLoadConfigEnvironmentWins tests that variables already present in the
// environment are not overridden by the env file.
func TestLoadConfigEnvironmentWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ASSISTANT_ID", "asst_from-env")

	config, err := loadConfig("tests/config.env")
	if err != nil {
		t.Fatal(err)
	}

	if config.AssistantId != "asst_from-env" {
		t.Fatalf("expected assistant id %s, got %s", "asst_from-env", config.AssistantId)
	}
}

// TestLoadConfigPartial tests the loadConfig function with a partial env file.
// It expects an InvalidConfigError naming the missing variables.
func TestLoadConfigPartial(t *testing.T) {
	clearConfigEnv(t)

	_, err := loadConfig("tests/partial_config.env")
	if err == nil {
		t.Fatal("expected error while loading partial config")
	}

	var invalidConfigErr InvalidConfigError
	if !errors.As(err, &invalidConfigErr) {
		t.Fatalf("expected InvalidConfigError, got %+v", err)
	}

	for _, name := range []string{"ORGANIZATION_ID", "PROJECT_ID"} {
		if !slices.Contains(invalidConfigErr.Missing, name) {
			t.Errorf("expected %s in missing values, got %v", name, invalidConfigErr.Missing)
		}
	}
	if slices.Contains(invalidConfigErr.Missing, "OPENAI_API_KEY") {
		t.Errorf("did not expect OPENAI_API_KEY in missing values, got %v", invalidConfigErr.Missing)
	}
}

// TestLoadConfigInvalidBaseUrl tests that a malformed base url is rejected.
func TestLoadConfigInvalidBaseUrl(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_BASE_URL", "not a url")

	_, err := loadConfig("tests/config.env")

	var invalidConfigErr InvalidConfigError
	if !errors.As(err, &invalidConfigErr) {
		t.Fatalf("expected InvalidConfigError, got %+v", err)
	}
	if !slices.Equal(invalidConfigErr.Missing, []string{"OPENAI_BASE_URL"}) {
		t.Fatalf("expected only OPENAI_BASE_URL to be invalid, got %v", invalidConfigErr.Missing)
	}
}

// TestLoadConfigNotFound tests the loadConfig function to ensure it returns an error
// when an explicitly provided env file does not exist.
func TestLoadConfigNotFound(t *testing.T) {
	clearConfigEnv(t)

	_, err := loadConfig("tests/not_found_config.env")
	if err == nil {
		t.Fatal("expected error while loading not found config")
	}

	var envFileNotFound EnvFileNotFoundError
	if !errors.As(err, &envFileNotFound) {
		t.Fatalf("expected EnvFileNotFoundError, got %+v", err)
	}
}

// TestLoadConfigEnvironmentOnly tests that configuration is read from the
// environment when no env file is given and none exists in the working directory.
func TestLoadConfigEnvironmentOnly(t *testing.T) {
	clearConfigEnv(t)
	chdir(t, t.TempDir())

	t.Setenv("OPENAI_API_KEY", "EnvToken")
	t.Setenv("ORGANIZATION_ID", "org_env")
	t.Setenv("ASSISTANT_ID", "asst_env")
	t.Setenv("PROJECT_ID", "proj_env")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1")

	config, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}

	if config.ApiKey != "EnvToken" || config.BaseUrl != "http://localhost:9999/v1" {
		t.Fatalf("unexpected configuration %+v", config)
	}
}

// TestWriteConfig tests writing a configuration to an env file and loading it
// back, ensuring values survive the round trip.
func TestWriteConfig(t *testing.T) {
	clearConfigEnv(t)

	config, err := loadConfig("tests/config.env")
	if err != nil {
		t.Fatalf("error loading config: %+v", err)
	}

	config.ApiKey = "test-token-updated"
	path := filepath.Join(t.TempDir(), "nested", "config_updated.env")

	if err := writeConfig(config, path); err != nil {
		t.Fatalf("error writing updated config: %+v", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("error reading updated config file: %+v", err)
	}
	if stat.Mode().Perm() != 0600 {
		t.Fatalf("expected env file mode 0600, got %o", stat.Mode().Perm())
	}

	clearConfigEnv(t)
	updated, err := loadConfig(path)
	if err != nil {
		t.Fatalf("error loading updated config: %+v", err)
	}

	if updated.ApiKey != "test-token-updated" {
		t.Fatalf("expected token %s in updated config, got %s", "test-token-updated", updated.ApiKey)
	}
	if updated.ProjectId != config.ProjectId {
		t.Fatalf("expected project id %s in updated config, got %s", config.ProjectId, updated.ProjectId)
	}
}

// TestWriteConfigExistingFile tests that rewriting an env file created with
// broader permissions restricts it to the owner.
func TestWriteConfigExistingFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.env")
	if err := os.WriteFile(path, []byte("OPENAI_API_KEY=old-token\nSTALE=1\n"), 0644); err != nil {
		t.Fatalf("error writing existing env file: %+v", err)
	}

	config := Config{
		ApiKey:         "new-token",
		OrganizationId: "org-test",
		AssistantId:    "asst-test",
		ProjectId:      "proj-test",
	}
	if err := writeConfig(config, path); err != nil {
		t.Fatalf("error writing config: %+v", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("error reading config file: %+v", err)
	}
	if stat.Mode().Perm() != 0600 {
		t.Fatalf("expected env file mode 0600, got %o", stat.Mode().Perm())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("error reading config file: %+v", err)
	}
	if strings.Contains(string(content), "old-token") || strings.Contains(string(content), "STALE") {
		t.Fatalf("expected previous contents to be replaced, got %s", content)
	}

	loaded, err := loadConfig(path)
	if err != nil {
		t.Fatalf("error loading written config: %+v", err)
	}
	if loaded != config {
		t.Fatalf("expected config %+v, got %+v", config, loaded)
	}
}
