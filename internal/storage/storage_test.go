/*
Package storage provides tests for the storage layer.
*/
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	storage := NewStorage(dbPath)
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	if !storage.IsAvailable() {
		t.Error("expected storage to be available after Init")
	}

	// Second Init is a no-op
	if err := storage.Init(); err != nil {
		t.Errorf("second Init failed: %v", err)
	}
}

// TestDisabledStorage verifies graceful degradation.
func TestDisabledStorage(t *testing.T) {
	storage := Disabled()
	ctx := context.Background()

	if storage.IsAvailable() {
		t.Error("disabled storage should not be available")
	}

	if err := storage.Init(); err != nil {
		t.Errorf("Init on disabled storage should be a no-op, got %v", err)
	}

	if _, err := storage.GetEntry(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	if err := storage.IncrementUsage(ctx, "2026-01-01", "m", 10, 0.1); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	if err := storage.Close(); err != nil {
		t.Errorf("Close on disabled storage failed: %v", err)
	}
}

// TestCacheEntries verifies put, overwrite, get and delete.
func TestCacheEntries(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	got, err := storage.GetEntry(ctx, "bio:abc")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing key")
	}

	expires := time.Now().Add(time.Hour)
	if err := storage.PutEntry(ctx, CacheEntry{Key: "bio:abc", Payload: []byte("v1"), TokensUsed: 12, ExpiresAt: &expires}); err != nil {
		t.Fatalf("PutEntry failed: %v", err)
	}

	// Overwrite with an indefinite entry
	if err := storage.PutEntry(ctx, CacheEntry{Key: "bio:abc", Payload: []byte("v2")}); err != nil {
		t.Fatalf("PutEntry overwrite failed: %v", err)
	}

	got, err = storage.GetEntry(ctx, "bio:abc")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry")
	}
	if string(got.Payload) != "v2" {
		t.Errorf("expected payload v2, got %q", got.Payload)
	}
	if got.ExpiresAt != nil {
		t.Error("overwrite should clear previous expiry")
	}

	if err := storage.DeleteEntry(ctx, "bio:abc"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	got, _ = storage.GetEntry(ctx, "bio:abc")
	if got != nil {
		t.Error("expected entry to be deleted")
	}
}

// TestPurgeExpired verifies only expired entries are removed.
func TestPurgeExpired(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	entries := []CacheEntry{
		{Key: "old", Payload: []byte("x"), ExpiresAt: &past},
		{Key: "fresh", Payload: []byte("y"), ExpiresAt: &future},
		{Key: "forever", Payload: []byte("z")},
	}
	for _, e := range entries {
		if err := storage.PutEntry(ctx, e); err != nil {
			t.Fatalf("PutEntry failed: %v", err)
		}
	}

	n, err := storage.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged entry, got %d", n)
	}

	for _, key := range []string{"fresh", "forever"} {
		if got, _ := storage.GetEntry(ctx, key); got == nil {
			t.Errorf("expected %s to survive purge", key)
		}
	}
}

// TestEnrichedContent verifies save, get and fingerprint lookup.
func TestEnrichedContent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	records := []EnrichedRecord{
		{ItemID: "a", Fingerprint: "fp1", Tier: 0, Payload: []byte(`{"tier":"heuristic"}`)},
		{ItemID: "b", Fingerprint: "fp1", Tier: 2, Payload: []byte(`{"tier":"full"}`), TokensUsed: 150},
		{ItemID: "c", Fingerprint: "fp2", Tier: 1, Payload: []byte(`{"tier":"basic"}`)},
	}
	for _, r := range records {
		if err := storage.SaveEnriched(ctx, r); err != nil {
			t.Fatalf("SaveEnriched failed: %v", err)
		}
	}

	got, err := storage.GetEnriched(ctx, "b")
	if err != nil {
		t.Fatalf("GetEnriched failed: %v", err)
	}
	if got == nil || got.Tier != 2 || got.TokensUsed != 150 {
		t.Errorf("unexpected record: %+v", got)
	}

	match, err := storage.FindByFingerprint(ctx, "fp1", 1, "a")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if match == nil || match.ItemID != "b" {
		t.Errorf("expected match b, got %+v", match)
	}

	// Excluding the only qualifying item yields nothing
	match, err = storage.FindByFingerprint(ctx, "fp1", 1, "b")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

// TestEmbeddings verifies vector round-trip through JSON storage.
func TestEmbeddings(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	emb := Embedding{
		ItemID:      "a",
		Vector:      []float32{0.1, 0.2, 0.3},
		Fingerprint: "fp1",
		SourceTag:   "text-embedding-3-small",
	}
	if err := storage.SaveEmbedding(ctx, emb); err != nil {
		t.Fatalf("SaveEmbedding failed: %v", err)
	}

	got, err := storage.GetEmbedding(ctx, "a")
	if err != nil {
		t.Fatalf("GetEmbedding failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected embedding")
	}
	if len(got.Vector) != 3 || got.Vector[2] != 0.3 {
		t.Errorf("unexpected vector: %v", got.Vector)
	}
	if got.Fingerprint != "fp1" {
		t.Errorf("expected fingerprint fp1, got %s", got.Fingerprint)
	}
}

// TestUsageRecords verifies atomic increments and daily spend.
func TestUsageRecords(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	today := time.Now().Format(DateLayout)

	for i := 0; i < 3; i++ {
		if err := storage.IncrementUsage(ctx, today, "gpt-4o-mini", 100, 0.25); err != nil {
			t.Fatalf("IncrementUsage failed: %v", err)
		}
	}
	if err := storage.IncrementUsage(ctx, today, "text-embedding-3-small", 10, 0.5); err != nil {
		t.Fatalf("IncrementUsage failed: %v", err)
	}

	spend, err := storage.DailySpend(ctx, today)
	if err != nil {
		t.Fatalf("DailySpend failed: %v", err)
	}
	if spend != 1.25 {
		t.Errorf("expected spend 1.25, got %f", spend)
	}

	records, err := storage.UsageForDate(ctx, today)
	if err != nil {
		t.Fatalf("UsageForDate failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Model != "gpt-4o-mini" || records[0].RequestCount != 3 || records[0].TokensUsed != 300 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

// TestCleanup verifies old usage records are removed.
func TestCleanup(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -100).Format(DateLayout)
	today := time.Now().Format(DateLayout)

	storage.IncrementUsage(ctx, old, "m", 1, 0.1)
	storage.IncrementUsage(ctx, today, "m", 1, 0.1)

	usageRows, _, err := storage.Cleanup(ctx, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if usageRows != 1 {
		t.Errorf("expected 1 usage row removed, got %d", usageRows)
	}

	records, _ := storage.UsageForDate(ctx, today)
	if len(records) != 1 {
		t.Errorf("today's usage should survive cleanup, got %d records", len(records))
	}
}

// TestWriter verifies queued writes run and Stop drains the queue.
func TestWriter(t *testing.T) {
	w := NewWriter(time.Second)

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		w.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	w.Submit("fail", func(ctx context.Context) error {
		return errors.New("boom")
	})

	w.Stop()

	if got := ran.Load(); got != 20 {
		t.Errorf("expected 20 writes, got %d", got)
	}

	_, failed := w.Stats()
	if failed != 1 {
		t.Errorf("expected 1 failed write, got %d", failed)
	}

	// Submissions after Stop are dropped, not panics
	w.Submit("late", func(ctx context.Context) error { return nil })
	dropped, _ := w.Stats()
	if dropped != 1 {
		t.Errorf("expected 1 dropped write, got %d", dropped)
	}
}
