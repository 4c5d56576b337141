package storyboard_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lbbniu/jimeng-tts/internal/storyboard"
)

func TestLoadPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	payload := `[
		{"id": "s1", "prompt": "a cat", "narration": "Hello world"},
		{"id": "s2", "prompt": "a dog", "narration": ""},
		{"id": "s3", "prompt": "a bird", "narration": "The end", "model": "2.1", "ratio": "1:1"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write storyboard: %v", err)
	}

	entries, err := storyboard.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if entries[i].ID != want {
			t.Fatalf("entry %d id = %q, want %q", i, entries[i].ID, want)
		}
	}
	if entries[2].Model != "2.1" || entries[2].Ratio != "1:1" {
		t.Fatalf("expected per-entry overrides, got %+v", entries[2])
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	payload := `[{"id": "s1", "prompt": "a"}, {"id": "s1", "prompt": "b"}]`
	_, err := storyboard.Parse([]byte(payload))
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
	if !strings.Contains(err.Error(), "duplicate id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRejectsBlankID(t *testing.T) {
	payload := `[{"id": "  ", "prompt": "a"}]`
	if _, err := storyboard.Parse([]byte(payload)); err == nil {
		t.Fatal("expected error for blank id")
	}
}

func TestParseRejectsEmptyBoard(t *testing.T) {
	if _, err := storyboard.Parse([]byte(`[]`)); err == nil {
		t.Fatal("expected error for empty storyboard")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := storyboard.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
