package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckCommandPrintsReport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "store:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "c.db") + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("DATABASE_DSN", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"check", "--config", cfgPath, "--title", "Agent Cup", "--threshold", "0.7"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Agent Cup") || !strings.Contains(out.String(), "ADD") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckCommandRejectsBadThreshold(t *testing.T) {
	rootCmd.SetArgs([]string{"check", "--title", "Agent Cup", "--threshold", "1.5"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); checkFlags.threshold = 0 })

	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected an error for threshold 1.5")
	}
}
