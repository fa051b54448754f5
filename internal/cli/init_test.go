package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"billing/internal/config"
	applog "billing/internal/log"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&config.Config{LogLevel: "warn"}, applog.ComponentWorker, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=worker") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLoadConfig_ExtraChecks(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if _, err := LoadConfig((*config.Config).ValidateWorker); err == nil {
		t.Fatal("worker checks should reject the memory backend")
	}
}
