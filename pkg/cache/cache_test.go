package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cinedeck/tmdb-client/pkg/store"
)

type testPayload struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// newTestCache returns a cache over an in-memory store with a
// controllable clock.
func newTestCache(t *testing.T) (*Cache, *store.MemoryStore, *time.Time) {
	t.Helper()

	kv := store.NewMemoryStore()
	c := New(kv)

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	return c, kv, &now
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)

	in := testPayload{Title: "Arrival", Year: 2016}
	c.Set(ctx, "details:329865", in, 60*time.Minute)

	var out testPayload
	if !c.Get(ctx, "details:329865", &out) {
		t.Fatal("Get after Set returned miss")
	}
	if out != in {
		t.Errorf("Get = %+v, want %+v", out, in)
	}
}

func TestCache_GetMissing(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)

	var out testPayload
	if c.Get(ctx, "details:999", &out) {
		t.Error("Get of absent key returned hit")
	}
}

func TestCache_ExpiryIsPermanent(t *testing.T) {
	ctx := context.Background()
	c, kv, now := newTestCache(t)

	c.Set(ctx, "popular:p1", testPayload{Title: "Dune"}, 30*time.Minute)

	// Still fresh just before the boundary
	*now = now.Add(30*time.Minute - time.Millisecond)
	var out testPayload
	if !c.Get(ctx, "popular:p1", &out) {
		t.Fatal("entry expired before its TTL")
	}

	// Expired exactly at the boundary (valid iff now < expiresAt)
	*now = now.Add(time.Millisecond)
	if c.Get(ctx, "popular:p1", &out) {
		t.Fatal("expired entry returned to caller")
	}

	// The discovering read removed both sub-keys
	if kv.Len() != 0 {
		t.Errorf("store holds %d keys after lazy eviction, want 0", kv.Len())
	}

	// A later read does not resurrect the value
	if c.Get(ctx, "popular:p1", &out) {
		t.Error("expired entry resurrected by subsequent read")
	}
}

func TestCache_OverwriteRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	c, _, now := newTestCache(t)

	c.Set(ctx, "k", testPayload{Year: 1}, 10*time.Minute)
	*now = now.Add(8 * time.Minute)
	c.Set(ctx, "k", testPayload{Year: 2}, 10*time.Minute)

	// 12 minutes after the first write, 4 after the second
	*now = now.Add(4 * time.Minute)

	var out testPayload
	if !c.Get(ctx, "k", &out) {
		t.Fatal("overwritten entry expired on original schedule")
	}
	if out.Year != 2 {
		t.Errorf("Year = %d, want 2", out.Year)
	}
}

func TestCache_PartialEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)

	// Simulate a crash between the two Set writes: payload without
	// expiry record, then the reverse.
	if err := kv.Set(ctx, DataPrefix+"orphan", `{"title":"x"}`); err != nil {
		t.Fatal(err)
	}
	var out testPayload
	if c.Get(ctx, "orphan", &out) {
		t.Error("payload without expiry record returned as hit")
	}

	if c.IsValid(ctx, "orphan") {
		t.Error("payload without expiry record reported valid")
	}

	if err := kv.Set(ctx, ExpiryPrefix+"orphan2", `{"stored_at":1,"expires_at":99999999999999}`); err != nil {
		t.Fatal(err)
	}
	if c.Get(ctx, "orphan2", &out) {
		t.Error("expiry record without payload returned as hit")
	}
	// IsValid must agree with Get: an unexpired expiry record whose
	// payload is gone is not a valid entry.
	if c.IsValid(ctx, "orphan2") {
		t.Error("expiry record without payload reported valid")
	}
}

func TestCache_MalformedPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)

	c.Set(ctx, "k", testPayload{Title: "ok"}, time.Hour)
	if err := kv.Set(ctx, DataPrefix+"k", `{not json`); err != nil {
		t.Fatal(err)
	}

	var out testPayload
	if c.Get(ctx, "k", &out) {
		t.Error("malformed payload returned as hit")
	}
}

func TestCache_FailOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	c := New(kv)
	kv.FailAll = true

	// None of these may panic or surface an error
	c.Set(ctx, "k", testPayload{}, time.Hour)
	var out testPayload
	if c.Get(ctx, "k", &out) {
		t.Error("Get returned hit from a failing store")
	}
	if c.IsValid(ctx, "k") {
		t.Error("IsValid returned true from a failing store")
	}
	c.Remove(ctx, "k")
	c.ClearAll(ctx)
}

func TestCache_Remove(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)

	c.Set(ctx, "k", testPayload{Title: "x"}, time.Hour)
	c.Remove(ctx, "k")

	var out testPayload
	if c.Get(ctx, "k", &out) {
		t.Error("removed entry returned as hit")
	}
	if kv.Len() != 0 {
		t.Errorf("store holds %d keys after Remove, want 0", kv.Len())
	}
}

func TestCache_ClearAllLeavesUnrelatedKeys(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)

	c.Set(ctx, "a", testPayload{}, time.Hour)
	c.Set(ctx, "b", testPayload{}, time.Hour)

	// A key owned by another subsystem sharing the store
	if err := kv.Set(ctx, "history:searches", `[]`); err != nil {
		t.Fatal(err)
	}

	c.ClearAll(ctx)

	var out testPayload
	if c.Get(ctx, "a", &out) || c.Get(ctx, "b", &out) {
		t.Error("cache entry survived ClearAll")
	}

	if _, err := kv.Get(ctx, "history:searches"); err != nil {
		t.Errorf("unrelated key removed by ClearAll: %v", err)
	}
}

func TestCache_IsValid(t *testing.T) {
	ctx := context.Background()
	c, _, now := newTestCache(t)

	if c.IsValid(ctx, "k") {
		t.Error("IsValid true for absent key")
	}

	c.Set(ctx, "k", testPayload{}, 15*time.Minute)
	if !c.IsValid(ctx, "k") {
		t.Error("IsValid false for fresh entry")
	}

	*now = now.Add(15 * time.Minute)
	if c.IsValid(ctx, "k") {
		t.Error("IsValid true for expired entry")
	}
}

func TestCache_RawMessagePayload(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)

	in := json.RawMessage(`{"results":[{"id":603}],"total_pages":3}`)
	c.Set(ctx, "search:matrix:p1", in, 15*time.Minute)

	var out json.RawMessage
	if !c.Get(ctx, "search:matrix:p1", &out) {
		t.Fatal("raw payload miss")
	}
	if string(out) != string(in) {
		t.Errorf("payload = %s, want %s", out, in)
	}
}
