package domain

import (
	"strings"
	"time"
)

// Sort fields accepted by the listing endpoint.
const (
	SortByCreatedAt         = "createdAt"
	SortByName              = "name"
	SortByParticipantsCount = "participantsCount"
)

// Sort orders accepted by the listing endpoint.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Page bounds for the listing endpoint.
const (
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 50
)

// Placeholders substituted for fields missing from fetched or cached
// records, so a response never carries partially-null summaries.
const (
	PlaceholderRoomName    = "Untitled Room"
	PlaceholderCreatorID   = "unknown"
	PlaceholderCreatorName = "Unknown User"
)

// UserSummary is the denormalized creator identity attached to a room.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Room is the authoritative room record owned by the primary store.
// Cache tiers only ever hold copies of it.
type Room struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	CreatorID         string      `json:"creator_id"`
	Creator           UserSummary `json:"creator"`
	ParticipantIDs    []string    `json:"participant_ids"`
	ParticipantsCount int         `json:"participants_count"`
	HasPassword       bool        `json:"has_password"`
	CreatedAt         time.Time   `json:"created_at"`
}

// SnapshotSchemaVersion identifies the encoding of cached room
// snapshots. Entries carrying a different version are treated as
// misses and repaired from the primary store.
const SnapshotSchemaVersion = 1

// RoomSnapshot is the fixed schema for detail-cache entries.
type RoomSnapshot struct {
	SchemaVersion     int         `json:"schema_version"`
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	HasPassword       bool        `json:"has_password"`
	Creator           UserSummary `json:"creator"`
	ParticipantsCount int         `json:"participants_count"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Snapshot converts a room into its cacheable snapshot form.
func (r *Room) Snapshot() *RoomSnapshot {
	return &RoomSnapshot{
		SchemaVersion:     SnapshotSchemaVersion,
		ID:                r.ID,
		Name:              r.Name,
		HasPassword:       r.HasPassword,
		Creator:           r.Creator,
		ParticipantsCount: r.ParticipantsCount,
		CreatedAt:         r.CreatedAt,
	}
}

// RoomSummary is a room row in API responses. IsCreator is
// principal-dependent and stamped at serve time, never cached.
type RoomSummary struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	HasPassword       bool        `json:"hasPassword"`
	Creator           UserSummary `json:"creator"`
	ParticipantsCount int         `json:"participantsCount"`
	CreatedAt         time.Time   `json:"createdAt"`
	IsCreator         bool        `json:"isCreator"`
}

// Summary converts a snapshot into a response row, substituting
// placeholders for any missing fields.
func (s *RoomSnapshot) Summary() RoomSummary {
	out := RoomSummary{
		ID:                s.ID,
		Name:              s.Name,
		HasPassword:       s.HasPassword,
		Creator:           s.Creator,
		ParticipantsCount: s.ParticipantsCount,
		CreatedAt:         s.CreatedAt,
	}
	if out.Name == "" {
		out.Name = PlaceholderRoomName
	}
	if out.Creator.ID == "" {
		out.Creator.ID = PlaceholderCreatorID
	}
	if out.Creator.Name == "" {
		out.Creator.Name = PlaceholderCreatorName
	}
	return out
}

// SortDescriptor echoes the effective sort back to the caller.
type SortDescriptor struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// ListRoomsQuery represents a list rooms request. An absent pageSize
// defaults to 10 at binding time; an explicit out-of-range value is
// clamped, not defaulted.
type ListRoomsQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize,default=10"`
	SortField string `form:"sortField"`
	SortOrder string `form:"sortOrder"`
	Search    string `form:"search"`
}

// Normalize applies defaults and clamps the query in place. Unrecognized
// sort fields and orders fall back to the defaults.
func (q *ListRoomsQuery) Normalize() {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize < MinPageSize {
		q.PageSize = MinPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	switch q.SortField {
	case SortByCreatedAt, SortByName, SortByParticipantsCount:
	default:
		q.SortField = SortByCreatedAt
	}

	switch q.SortOrder {
	case SortAsc, SortDesc:
	default:
		q.SortOrder = SortDesc
	}

	// Lowercased up front: the match is case-insensitive and identical
	// signatures must share an aggregate cache entry.
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
}

// DefaultOrder reports whether the query can be served from the sorted
// index: creation-time descending with no search term. The index carries
// no name or participant information, so everything else goes through
// the aggregate page cache.
func (q *ListRoomsQuery) DefaultOrder() bool {
	return q.SortField == SortByCreatedAt && q.SortOrder == SortDesc && q.Search == ""
}

// ListPage is a full result page as stored in the aggregate query
// cache: rows plus the total count the page was computed against.
type ListPage struct {
	SchemaVersion int           `json:"schema_version"`
	Rooms         []RoomSummary `json:"rooms"`
	Total         int           `json:"total"`
}

// ListMetadata is the pagination metadata block of a listing response.
type ListMetadata struct {
	Total        int            `json:"total"`
	Page         int            `json:"page"`
	PageSize     int            `json:"pageSize"`
	TotalPages   int            `json:"totalPages"`
	HasMore      bool           `json:"hasMore"`
	CurrentCount int            `json:"currentCount"`
	Sort         SortDescriptor `json:"sort"`
}

// ListResult is the assembled listing response.
type ListResult struct {
	Rooms    []RoomSummary
	Metadata ListMetadata
}

// NewListMetadata derives the metadata block from a page of results.
func NewListMetadata(q *ListRoomsQuery, total, currentCount int) ListMetadata {
	totalPages := (total + q.PageSize - 1) / q.PageSize
	return ListMetadata{
		Total:        total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages,
		HasMore:      (q.Page+1)*q.PageSize < total,
		CurrentCount: currentCount,
		Sort:         SortDescriptor{Field: q.SortField, Order: q.SortOrder},
	}
}

// CreateRoomRequest represents a create room request.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Principal is the authenticated requester.
type Principal struct {
	ID    string
	Name  string
	Email string
}
