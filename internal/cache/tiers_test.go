package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/room-directory/internal/domain"
)

func TestPageKeyEncodesFullSignature(t *testing.T) {
	q := &domain.ListRoomsQuery{
		Page: 2, PageSize: 10,
		SortField: domain.SortByName, SortOrder: domain.SortAsc,
		Search: "poker",
	}
	assert.Equal(t, "rooms:list:page=2:size=10:sort=name:asc:search=poker", PageKey(q))

	// Identical signatures share a key; any differing field splits them.
	same := *q
	assert.Equal(t, PageKey(q), PageKey(&same))

	other := *q
	other.Page = 3
	assert.NotEqual(t, PageKey(q), PageKey(&other))

	other = *q
	other.Search = ""
	assert.NotEqual(t, PageKey(q), PageKey(&other))
}

func TestDetailKey(t *testing.T) {
	assert.Equal(t, "room-detail:abc-123", DetailKey("abc-123"))
}

func testSnapshot(id string) *domain.RoomSnapshot {
	return &domain.RoomSnapshot{
		SchemaVersion:     domain.SnapshotSchemaVersion,
		ID:                id,
		Name:              "snapshot " + id,
		Creator:           domain.UserSummary{ID: "alice", Name: "Alice"},
		ParticipantsCount: 1,
		CreatedAt:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDetailCacheRoundTrip(t *testing.T) {
	client := NewMemoryClient()
	details := NewDetailCache(client, time.Hour)
	ctx := context.Background()

	_, ok := details.Get(ctx, "r1")
	require.False(t, ok)

	details.Set(ctx, testSnapshot("r1"))
	got, ok := details.Get(ctx, "r1")
	require.True(t, ok)
	assert.Equal(t, "snapshot r1", got.Name)
	assert.Equal(t, "alice", got.Creator.ID)
}

func TestDetailCacheSchemaMismatchIsMiss(t *testing.T) {
	client := NewMemoryClient()
	details := NewDetailCache(client, time.Hour)
	ctx := context.Background()

	stale := testSnapshot("r1")
	stale.SchemaVersion = domain.SnapshotSchemaVersion + 1
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, DetailKey("r1"), data, time.Hour))

	_, ok := details.Get(ctx, "r1")
	assert.False(t, ok)
}

func TestDetailCacheCorruptEntryIsMiss(t *testing.T) {
	client := NewMemoryClient()
	details := NewDetailCache(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, DetailKey("r1"), []byte("{not json"), time.Hour))
	_, ok := details.Get(ctx, "r1")
	assert.False(t, ok)
}

func TestPageCacheRoundTripAndInvalidate(t *testing.T) {
	client := NewMemoryClient()
	pages := NewPageCache(client, time.Minute)
	ctx := context.Background()

	q := &domain.ListRoomsQuery{Page: 0, PageSize: 10, SortField: domain.SortByName, SortOrder: domain.SortAsc}
	key := PageKey(q)

	_, ok := pages.Get(ctx, key)
	require.False(t, ok)

	page := &domain.ListPage{
		SchemaVersion: domain.SnapshotSchemaVersion,
		Rooms:         []domain.RoomSummary{testSnapshot("r1").Summary()},
		Total:         1,
	}
	pages.Set(ctx, key, page)

	got, ok := pages.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Rooms, 1)
	assert.Equal(t, "r1", got.Rooms[0].ID)

	pages.InvalidateAll(ctx)
	_, ok = pages.Get(ctx, key)
	assert.False(t, ok)
}

// brokenClient fails every operation, for exercising soft-fail paths.
type brokenClient struct{}

var errBroken = errors.New("backend down")

func (brokenClient) Get(context.Context, string) ([]byte, error)              { return nil, errBroken }
func (brokenClient) Set(context.Context, string, []byte, time.Duration) error { return errBroken }
func (brokenClient) Del(context.Context, ...string) error                     { return errBroken }
func (brokenClient) ZAdd(context.Context, string, string, float64) error      { return errBroken }
func (brokenClient) ZRem(context.Context, string, string) error               { return errBroken }
func (brokenClient) ZRangeDesc(context.Context, string, int64, int64) ([]string, error) {
	return nil, errBroken
}
func (brokenClient) ZCard(context.Context, string) (int64, error)    { return 0, errBroken }
func (brokenClient) InvalidatePattern(context.Context, string) error { return errBroken }
func (brokenClient) Ping(context.Context) error                      { return errBroken }
func (brokenClient) Close() error                                    { return nil }

func TestTiersSoftFailOnBrokenBackend(t *testing.T) {
	ctx := context.Background()
	client := brokenClient{}

	index := NewRoomIndex(client)
	index.Add(ctx, "r1", 1000)
	index.Remove(ctx, "r1")
	_, ok := index.Window(ctx, 0, 9)
	assert.False(t, ok)
	_, ok = index.Count(ctx)
	assert.False(t, ok)

	details := NewDetailCache(client, time.Hour)
	details.Set(ctx, testSnapshot("r1"))
	_, ok = details.Get(ctx, "r1")
	assert.False(t, ok)

	pages := NewPageCache(client, time.Minute)
	pages.Set(ctx, "rooms:list:page=0:size=10:sort=name:asc:search=", &domain.ListPage{SchemaVersion: domain.SnapshotSchemaVersion})
	_, ok = pages.Get(ctx, "rooms:list:page=0:size=10:sort=name:asc:search=")
	assert.False(t, ok)
	pages.InvalidateAll(ctx)
}
