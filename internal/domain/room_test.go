package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListRoomsQuery
		want ListRoomsQuery
	}{
		{
			name: "oversized page size clamps to max",
			in:   ListRoomsQuery{PageSize: 1000},
			want: ListRoomsQuery{Page: 0, PageSize: MaxPageSize, SortField: SortByCreatedAt, SortOrder: SortDesc},
		},
		{
			name: "zero page size clamps to min",
			in:   ListRoomsQuery{PageSize: 0},
			want: ListRoomsQuery{Page: 0, PageSize: MinPageSize, SortField: SortByCreatedAt, SortOrder: SortDesc},
		},
		{
			name: "negative page floors to zero",
			in:   ListRoomsQuery{Page: -5, PageSize: 10},
			want: ListRoomsQuery{Page: 0, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc},
		},
		{
			name: "unrecognized sort falls back",
			in:   ListRoomsQuery{PageSize: 10, SortField: "popularity", SortOrder: "sideways"},
			want: ListRoomsQuery{Page: 0, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc},
		},
		{
			name: "valid sort preserved",
			in:   ListRoomsQuery{Page: 2, PageSize: 25, SortField: SortByName, SortOrder: SortAsc},
			want: ListRoomsQuery{Page: 2, PageSize: 25, SortField: SortByName, SortOrder: SortAsc},
		},
		{
			name: "search lowercased and trimmed",
			in:   ListRoomsQuery{PageSize: 10, Search: "  Poker Night "},
			want: ListRoomsQuery{Page: 0, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc, Search: "poker night"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestDefaultOrder(t *testing.T) {
	q := ListRoomsQuery{PageSize: 10}
	q.Normalize()
	assert.True(t, q.DefaultOrder())

	withSearch := ListRoomsQuery{PageSize: 10, Search: "x"}
	withSearch.Normalize()
	assert.False(t, withSearch.DefaultOrder())

	ascending := ListRoomsQuery{PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortAsc}
	ascending.Normalize()
	assert.False(t, ascending.DefaultOrder())

	byName := ListRoomsQuery{PageSize: 10, SortField: SortByName, SortOrder: SortDesc}
	byName.Normalize()
	assert.False(t, byName.DefaultOrder())
}

func TestNewListMetadata(t *testing.T) {
	q := &ListRoomsQuery{Page: 1, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc}

	meta := NewListMetadata(q, 23, 10)
	assert.Equal(t, 23, meta.Total)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasMore)
	assert.Equal(t, 10, meta.CurrentCount)
	assert.Equal(t, SortByCreatedAt, meta.Sort.Field)

	last := &ListRoomsQuery{Page: 2, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc}
	meta = NewListMetadata(last, 23, 3)
	assert.False(t, meta.HasMore)
	assert.Equal(t, 3, meta.CurrentCount)

	empty := &ListRoomsQuery{Page: 0, PageSize: 10, SortField: SortByCreatedAt, SortOrder: SortDesc}
	meta = NewListMetadata(empty, 0, 0)
	assert.Zero(t, meta.TotalPages)
	assert.False(t, meta.HasMore)
}

func TestSummarySubstitutesPlaceholders(t *testing.T) {
	snap := &RoomSnapshot{SchemaVersion: SnapshotSchemaVersion, ID: "r1"}
	got := snap.Summary()
	assert.Equal(t, PlaceholderRoomName, got.Name)
	assert.Equal(t, PlaceholderCreatorID, got.Creator.ID)
	assert.Equal(t, PlaceholderCreatorName, got.Creator.Name)

	full := &RoomSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		ID:            "r2",
		Name:          "Poker Night",
		Creator:       UserSummary{ID: "alice", Name: "Alice"},
	}
	got = full.Summary()
	assert.Equal(t, "Poker Night", got.Name)
	assert.Equal(t, "Alice", got.Creator.Name)
}

func TestSnapshotCarriesSchemaVersion(t *testing.T) {
	room := Room{ID: "r1", Name: "x"}
	snap := room.Snapshot()
	assert.Equal(t, SnapshotSchemaVersion, snap.SchemaVersion)
}
