package cart

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type memorySessionStore struct {
	data map[string]string
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{data: map[string]string{}}
}

func (m *memorySessionStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memorySessionStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memorySessionStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memorySessionStore) CartKey(sessionID string) string {
	return "test:cart:" + sessionID
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemorySessionStore(), 0)

	doc := &Document{Items: []RawLine{{ProductID: "a", Qty: 2}}}
	if err := store.Save(ctx, "sess-1", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].ProductID != "a" || int(loaded.Items[0].Qty) != 2 {
		t.Fatalf("unexpected document %+v", loaded)
	}
}

func TestStoreMissingSessionYieldsEmptyCart(t *testing.T) {
	store := NewStore(newMemorySessionStore(), 0)

	doc, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc == nil || len(doc.Items) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestStoreCorruptDocumentResetsSession(t *testing.T) {
	mem := newMemorySessionStore()
	mem.data["test:cart:sess-1"] = "{not json"
	store := NewStore(mem, 0)

	doc, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(doc.Items) != 0 {
		t.Fatalf("corrupt document should reset to empty, got %+v", doc)
	}
}

func TestStoreSetUserAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemorySessionStore(), 0)

	if err := store.Save(ctx, "sess-1", &Document{Items: []RawLine{{ProductID: "a", Qty: 1}}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SetUser(ctx, "sess-1", "user-1"); err != nil {
		t.Fatalf("set user: %v", err)
	}

	doc, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.UserID == nil || *doc.UserID != "user-1" {
		t.Fatalf("user not attached: %+v", doc)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("items should survive user attachment")
	}

	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	doc, err = store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(doc.Items) != 0 || doc.UserID != nil {
		t.Fatalf("cleared session should be empty, got %+v", doc)
	}
}
