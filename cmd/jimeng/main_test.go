package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
)

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	dataDir := filepath.Join(base, "data")
	outputDir := filepath.Join(base, "output")
	content := fmt.Sprintf(
		"[storage]\ndata_dir = %q\noutput_dir = %q\n\n[quota]\ndaily_allowance = 5\n",
		dataDir, outputDir,
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output missing target path: %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[params]") {
		t.Fatalf("sample config missing params section:\n%s", data)
	}

	_, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestStatsShowsQuotaAndStore(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	out, _, err := runCLI(t, configPath, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Daily allowance") || !strings.Contains(out, "5") {
		t.Fatalf("stats output missing allowance: %q", out)
	}
	if !strings.Contains(out, "Remaining today") {
		t.Fatalf("stats output missing balance: %q", out)
	}
}

func TestDownloadCopiesArtifacts(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	store, err := artifacts.Open(filepath.Join(base, "data", "artifacts"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.Put(context.Background(), "s1", artifacts.KindImage, 0, "jpg", []byte("img")); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, configPath, "download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(out, "Wrote 1 artifacts") {
		t.Fatalf("unexpected download output: %q", out)
	}
	exported := filepath.Join(base, "output", "s1_image_0.jpg")
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatalf("read exported artifact: %v", err)
	}
	if string(data) != "img" {
		t.Fatalf("exported payload = %q", data)
	}
}

func TestBatchRejectsUnknownModelOverride(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base)

	storyboardPath := filepath.Join(base, "board.json")
	board := `[{"id":"s1","prompt":"a cat","narration":""}]`
	if err := os.WriteFile(storyboardPath, []byte(board), 0o644); err != nil {
		t.Fatalf("write storyboard: %v", err)
	}

	_, _, err := runCLI(t, configPath, "batch", "--no-narration", "--model", "bogus", storyboardPath)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	out := renderTable(
		[]string{"Artifacts", "Count"},
		[][]string{{"images", "5"}, {"subtitles", "10"}},
		2,
	)
	if !strings.Contains(out, "Artifacts") || !strings.Contains(out, "Count") {
		t.Fatalf("missing headers:\n%s", out)
	}
	// Right alignment pads the shorter value to the column width.
	if !strings.Contains(out, "  5 ") || !strings.Contains(out, " 10 ") {
		t.Fatalf("count column not right-aligned:\n%s", out)
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"opening_scene-01": "Opening Scene 01",
		"s1":               "S1",
		"":                 "",
	}
	for in, want := range cases {
		if got := displayTitle(in); got != want {
			t.Fatalf("displayTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
