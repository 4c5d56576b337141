package artifacts_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
)

func openStore(t *testing.T, now *time.Time) *artifacts.Store {
	t.Helper()
	store, err := artifacts.Open(t.TempDir(), artifacts.WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	payload := []byte("image-bytes")
	rec, err := store.Put(ctx, "s1", artifacts.KindImage, 0, "jpg", payload)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if rec.Filename != "s1_image_0.jpg" {
		t.Fatalf("unexpected filename: %q", rec.Filename)
	}
	if rec.Size != int64(len(payload)) {
		t.Fatalf("unexpected size: %d", rec.Size)
	}

	got, data, err := store.Get(ctx, "s1", artifacts.KindImage, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: %q", data)
	}
	if got.EntryID != "s1" || got.Kind != artifacts.KindImage || got.Seq != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPutOverwriteReplacesPayload(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	if _, err := store.Put(ctx, "s1", artifacts.KindAudio, 0, "mp3", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "s1", artifacts.KindAudio, 0, "mp3", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	_, data, err := store.Get(ctx, "s1", artifacts.KindAudio, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwritten payload, got %q", data)
	}

	records, err := store.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected single index row after overwrite, got %d", len(records))
	}
}

func TestOverwriteWithNewExtensionRemovesOrphan(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	first, err := store.Put(ctx, "s1", artifacts.KindImage, 0, "webp", []byte("a"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, "s1", artifacts.KindImage, 0, "jpg", []byte("b"))
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if first.Filename == second.Filename {
		t.Fatal("expected distinct filenames for distinct extensions")
	}
	if _, err := os.Stat(store.Path(first)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected orphan payload removed, stat err = %v", err)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)

	_, _, err := store.Get(context.Background(), "absent", artifacts.KindImage, 0)
	if !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersByKindAndSequence(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	for _, p := range []struct {
		kind artifacts.Kind
		seq  int
	}{
		{artifacts.KindSubtitle, 0},
		{artifacts.KindImage, 1},
		{artifacts.KindImage, 0},
		{artifacts.KindAudio, 0},
	} {
		if _, err := store.Put(ctx, "s1", p.kind, p.seq, "bin", []byte("x")); err != nil {
			t.Fatalf("put %s/%d: %v", p.kind, p.seq, err)
		}
	}

	records, err := store.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []struct {
		kind artifacts.Kind
		seq  int
	}{
		{artifacts.KindAudio, 0},
		{artifacts.KindImage, 0},
		{artifacts.KindImage, 1},
		{artifacts.KindSubtitle, 0},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, w := range want {
		if records[i].Kind != w.kind || records[i].Seq != w.seq {
			t.Fatalf("record %d = %s/%d, want %s/%d", i, records[i].Kind, records[i].Seq, w.kind, w.seq)
		}
	}
}

func TestSweepExpiredRemovesOldPayloads(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	old, err := store.Put(ctx, "old", artifacts.KindImage, 0, "jpg", []byte("old"))
	if err != nil {
		t.Fatalf("put old: %v", err)
	}

	now = now.AddDate(0, 0, 10)
	fresh, err := store.Put(ctx, "fresh", artifacts.KindImage, 0, "jpg", []byte("fresh"))
	if err != nil {
		t.Fatalf("put fresh: %v", err)
	}

	removed, err := store.SweepExpired(ctx, 7)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(store.Path(old)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected old payload removed, stat err = %v", err)
	}
	if _, err := os.Stat(store.Path(fresh)); err != nil {
		t.Fatalf("fresh payload should survive: %v", err)
	}
	if _, _, err := store.Get(ctx, "old", artifacts.KindImage, 0); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("expected index row removed, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := openStore(t, &now)
	ctx := context.Background()

	if _, err := store.Put(ctx, "s1", artifacts.KindImage, 0, "jpg", []byte("abcd")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "s1", artifacts.KindAudio, 0, "mp3", []byte("ab")); err != nil {
		t.Fatalf("put: %v", err)
	}

	stats, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if stats.Count != 2 {
		t.Fatalf("count = %d, want 2", stats.Count)
	}
	if stats.TotalBytes != 6 {
		t.Fatalf("total bytes = %d, want 6", stats.TotalBytes)
	}
	if stats.ByKind[artifacts.KindImage] != 1 || stats.ByKind[artifacts.KindAudio] != 1 {
		t.Fatalf("unexpected kind counts: %+v", stats.ByKind)
	}
}
