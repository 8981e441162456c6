package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/pkg/log"
)

// Cache key layout. The sorted index lives under a single fixed key;
// detail entries are per room; aggregate pages encode the full query
// signature.
const (
	IndexKey        = "rooms:index"
	detailKeyPrefix = "room-detail:"
	pageKeyPrefix   = "rooms:list:"
	pagePattern     = pageKeyPrefix + "*"
)

// DetailKey returns the detail-cache key for a room.
func DetailKey(roomID string) string {
	return detailKeyPrefix + roomID
}

// PageKey returns the aggregate-cache key for a normalized query. It is
// a pure function of the signature fields, so identical queries share
// an entry.
func PageKey(q *domain.ListRoomsQuery) string {
	return fmt.Sprintf("%spage=%d:size=%d:sort=%s:%s:search=%s",
		pageKeyPrefix, q.Page, q.PageSize, q.SortField, q.SortOrder, q.Search)
}

// The tiers below fail softly: any backend error is logged and
// swallowed, reads degrade to misses and writes to no-ops. The cache is
// a performance layer; callers never branch on its availability.

func warnCacheErr(ctx context.Context, tier, key string, err error) {
	l := log.Ctx(ctx)
	l.Warn().Err(err).
		Str(log.FieldCacheTier, tier).
		Str(log.FieldCacheKey, key).
		Msg("cache operation failed")
}

// RoomIndex is the sorted index of room identifiers scored by creation
// time in milliseconds.
type RoomIndex struct {
	client Client
}

// NewRoomIndex creates the sorted-index tier.
func NewRoomIndex(client Client) *RoomIndex {
	return &RoomIndex{client: client}
}

// Add inserts or rescores a room identifier.
func (i *RoomIndex) Add(ctx context.Context, roomID string, creationTimeMs int64) {
	if err := i.client.ZAdd(ctx, IndexKey, roomID, float64(creationTimeMs)); err != nil {
		warnCacheErr(ctx, "index", IndexKey, err)
	}
}

// Remove drops a room identifier, used when the index is found to lag
// the store.
func (i *RoomIndex) Remove(ctx context.Context, roomID string) {
	if err := i.client.ZRem(ctx, IndexKey, roomID); err != nil {
		warnCacheErr(ctx, "index", IndexKey, err)
	}
}

// Window returns identifiers ordered by descending creation time for
// the closed rank interval [start, stop]. ok is false when the backend
// is unavailable.
func (i *RoomIndex) Window(ctx context.Context, start, stop int64) ([]string, bool) {
	ids, err := i.client.ZRangeDesc(ctx, IndexKey, start, stop)
	if err != nil {
		warnCacheErr(ctx, "index", IndexKey, err)
		return nil, false
	}
	return ids, true
}

// Count returns the index cardinality. ok is false when the backend is
// unavailable.
func (i *RoomIndex) Count(ctx context.Context) (int64, bool) {
	n, err := i.client.ZCard(ctx, IndexKey)
	if err != nil {
		warnCacheErr(ctx, "index", IndexKey, err)
		return 0, false
	}
	return n, true
}

// DetailCache holds per-room snapshots with a fixed TTL.
type DetailCache struct {
	client Client
	ttl    time.Duration
}

// NewDetailCache creates the detail tier.
func NewDetailCache(client Client, ttl time.Duration) *DetailCache {
	return &DetailCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot for a room, or ok=false on miss,
// backend failure, or schema mismatch.
func (d *DetailCache) Get(ctx context.Context, roomID string) (*domain.RoomSnapshot, bool) {
	key := DetailKey(roomID)
	data, err := d.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			warnCacheErr(ctx, "detail", key, err)
		}
		return nil, false
	}

	var snap domain.RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.SchemaVersion != domain.SnapshotSchemaVersion {
		// Unreadable or stale-schema entries are treated as misses and
		// repaired from the store.
		return nil, false
	}
	return &snap, true
}

// Set stores a snapshot, overwriting any existing entry.
func (d *DetailCache) Set(ctx context.Context, snap *domain.RoomSnapshot) {
	key := DetailKey(snap.ID)
	data, err := json.Marshal(snap)
	if err != nil {
		warnCacheErr(ctx, "detail", key, err)
		return
	}
	if err := d.client.Set(ctx, key, data, d.ttl); err != nil {
		warnCacheErr(ctx, "detail", key, err)
	}
}

// PageCache holds full result pages for non-default query signatures.
type PageCache struct {
	client Client
	ttl    time.Duration
}

// NewPageCache creates the aggregate tier.
func NewPageCache(client Client, ttl time.Duration) *PageCache {
	return &PageCache{client: client, ttl: ttl}
}

// Get returns the cached page for a signature key, or ok=false.
func (p *PageCache) Get(ctx context.Context, key string) (*domain.ListPage, bool) {
	data, err := p.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			warnCacheErr(ctx, "page", key, err)
		}
		return nil, false
	}

	var page domain.ListPage
	if err := json.Unmarshal(data, &page); err != nil || page.SchemaVersion != domain.SnapshotSchemaVersion {
		return nil, false
	}
	return &page, true
}

// Set stores a result page under its signature key.
func (p *PageCache) Set(ctx context.Context, key string, page *domain.ListPage) {
	data, err := json.Marshal(page)
	if err != nil {
		warnCacheErr(ctx, "page", key, err)
		return
	}
	if err := p.client.Set(ctx, key, data, p.ttl); err != nil {
		warnCacheErr(ctx, "page", key, err)
	}
}

// InvalidateAll drops every cached page. Creation can shift pagination
// boundaries and totals for every signature, so invalidation is
// deliberately coarse.
func (p *PageCache) InvalidateAll(ctx context.Context) {
	if err := p.client.InvalidatePattern(ctx, pagePattern); err != nil {
		warnCacheErr(ctx, "page", pagePattern, err)
	}
}
