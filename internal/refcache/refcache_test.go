package refcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"leadops_backend/platform/apperr"
	"leadops_backend/platform/logger"
)

// countingReader records how often each loader runs so tests can tell a
// cache hit from a read-through.
type countingReader struct {
	entries map[uuid.UUID]Entry
	loads   int
}

func (r *countingReader) get(id uuid.UUID) (Entry, error) {
	r.loads++
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, apperr.NotFound("entry not found")
	}
	return entry, nil
}

func (r *countingReader) GetNetwork(_ context.Context, id uuid.UUID) (Entry, error) { return r.get(id) }
func (r *countingReader) GetBroker(_ context.Context, id uuid.UUID) (Entry, error) { return r.get(id) }
func (r *countingReader) GetCampaign(_ context.Context, id uuid.UUID) (Entry, error) { return r.get(id) }

func (r *countingReader) list() ([]Entry, error) {
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	return out, nil
}

func (r *countingReader) ListNetworks(context.Context) ([]Entry, error)  { return r.list() }
func (r *countingReader) ListBrokers(context.Context) ([]Entry, error)   { return r.list() }
func (r *countingReader) ListCampaigns(context.Context) ([]Entry, error) { return r.list() }

func newTestCache(t *testing.T, reader Reader) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, reader, time.Minute, logger.New("test")), mr
}

func TestNetworkReadsThroughOnce(t *testing.T) {
	id := uuid.New()
	reader := &countingReader{entries: map[uuid.UUID]Entry{
		id: {ID: id, Name: "Acme Network", Active: true},
	}}
	cache, _ := newTestCache(t, reader)

	for i := 0; i < 3; i++ {
		entry, err := cache.Network(context.Background(), id)
		if err != nil {
			t.Fatalf("network lookup %d: %v", i, err)
		}
		if entry.Name != "Acme Network" || !entry.Active {
			t.Fatalf("unexpected entry: %+v", entry)
		}
	}
	if reader.loads != 1 {
		t.Fatalf("expected a single database load, got %d", reader.loads)
	}
}

func TestCorruptPayloadFallsBackToReader(t *testing.T) {
	id := uuid.New()
	reader := &countingReader{entries: map[uuid.UUID]Entry{
		id: {ID: id, Name: "Broker One", Active: true},
	}}
	cache, mr := newTestCache(t, reader)

	if err := mr.Set("refcache:broker:"+id.String(), "{not json"); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}
	entry, err := cache.Broker(context.Background(), id)
	if err != nil {
		t.Fatalf("broker lookup: %v", err)
	}
	if entry.Name != "Broker One" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if reader.loads != 1 {
		t.Fatalf("expected the corrupt payload to force one load, got %d", reader.loads)
	}
	// The rewrite must repair the key for the next read.
	reader.loads = 0
	if _, err := cache.Broker(context.Background(), id); err != nil {
		t.Fatalf("broker lookup after repair: %v", err)
	}
	if reader.loads != 0 {
		t.Fatal("expected the repaired key to serve the second read")
	}
}

func TestWarmPreloadsEveryKind(t *testing.T) {
	id := uuid.New()
	reader := &countingReader{entries: map[uuid.UUID]Entry{
		id: {ID: id, Name: "Spring Campaign", Active: true},
	}}
	cache, mr := newTestCache(t, reader)

	if err := cache.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	for _, kind := range []string{"network", "broker", "campaign"} {
		if !mr.Exists("refcache:" + kind + ":" + id.String()) {
			t.Fatalf("expected %s entry to be warmed", kind)
		}
	}
}

func TestInvalidateDropsKey(t *testing.T) {
	id := uuid.New()
	reader := &countingReader{entries: map[uuid.UUID]Entry{
		id: {ID: id, Name: "Acme Network", Active: true},
	}}
	cache, mr := newTestCache(t, reader)

	if _, err := cache.Network(context.Background(), id); err != nil {
		t.Fatalf("network lookup: %v", err)
	}
	if err := cache.Invalidate(context.Background(), "network", id); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("refcache:network:" + id.String()) {
		t.Fatal("expected the key to be gone after invalidation")
	}
}

func TestNilRedisClientDegradesToDirectReads(t *testing.T) {
	id := uuid.New()
	reader := &countingReader{entries: map[uuid.UUID]Entry{
		id: {ID: id, Name: "Acme Network", Active: true},
	}}
	cache := New(nil, reader, time.Minute, logger.New("test"))

	for i := 0; i < 2; i++ {
		if _, err := cache.Network(context.Background(), id); err != nil {
			t.Fatalf("network lookup %d: %v", i, err)
		}
	}
	if reader.loads != 2 {
		t.Fatalf("expected every read to hit the reader, got %d loads", reader.loads)
	}
}
