package idempotency

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(db)
}

func TestStorePutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	body := []byte(`{"message":"stock updated","reduced_quantity":3}`)

	if err := store.Put("42", "key-1", 200, body, DefaultTTL); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	cached, found, err := store.Get("42", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected cached response")
	}
	if cached.Status != 200 {
		t.Errorf("expected status 200, got %d", cached.Status)
	}
	if !bytes.Equal(cached.Body, body) {
		t.Errorf("body not replayed verbatim: %s", cached.Body)
	}
}

func TestStoreMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get("42", "nope")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected no cached response")
	}
}

func TestStoreScopesByResource(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("42", "key-1", 200, []byte("a"), DefaultTTL); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	_, found, err := store.Get("43", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("same key under a different resource must not match")
	}
}

func TestStoreExpiredTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("42", "key-1", 422, []byte("rejected"), -time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	_, found, err := store.Get("42", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expired record must be treated as absent")
	}
}

func TestStorePurgeExpired(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("42", "old", 200, []byte("a"), -time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Put("42", "fresh", 200, []byte("b"), DefaultTTL); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	purged, err := store.PurgeExpired()
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged record, got %d", purged)
	}

	_, found, err := store.Get("42", "fresh")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Error("fresh record must survive the purge")
	}
}
