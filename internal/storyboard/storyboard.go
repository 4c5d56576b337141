// Package storyboard loads the batch input: an ordered list of scenes,
// each carrying an image prompt and a narration script.
package storyboard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one storyboard scene. ID keys artifacts and report rows; Prompt
// feeds image generation; Narration feeds speech synthesis. Entries with an
// empty Narration render images only.
type Entry struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Narration string `json:"narration"`
	Model     string `json:"model,omitempty"`
	Ratio     string `json:"ratio,omitempty"`
}

// Load reads a storyboard file: a JSON array of entries. Order is
// preserved. Duplicate or blank ids are rejected because ids key artifacts
// and report rows.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storyboard: %w", err)
	}
	return Parse(data)
}

// Parse decodes storyboard JSON from memory.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse storyboard: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("parse storyboard: no entries")
	}

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		entries[i].ID = strings.TrimSpace(entries[i].ID)
		id := entries[i].ID
		if id == "" {
			return nil, fmt.Errorf("parse storyboard: entry %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("parse storyboard: duplicate id %q", id)
		}
		seen[id] = struct{}{}
		entries[i].Prompt = strings.TrimSpace(entries[i].Prompt)
		entries[i].Narration = strings.TrimSpace(entries[i].Narration)
	}
	return entries, nil
}
