package repository

import (
	"context"
	"errors"
	"time"

	"github.com/openlobby/room-directory/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// IndexEntry is the (identifier, creation time) pair mirrored into the
// sorted index.
type IndexEntry struct {
	ID        string
	CreatedAt time.Time
}

// NewRoom carries the fields persisted on room creation. The password
// hash never appears on the domain Room; it stays behind this boundary.
type NewRoom struct {
	Name         string
	CreatorID    string
	PasswordHash string
}

// RoomRepository is the primary store adapter. It is the single source
// of truth; every cache tier is repaired from it.
type RoomRepository interface {
	// Create persists a new room with the creator as sole initial
	// participant and returns its store-assigned identifier.
	Create(ctx context.Context, n *NewRoom) (string, error)

	// GetByID returns the room with creator identity denormalized from
	// the users collaborator.
	GetByID(ctx context.Context, id string) (*domain.Room, error)

	// List returns a page of rooms for the given normalized query
	// (filter, sort, skip, limit) plus the total matching count.
	List(ctx context.Context, q *domain.ListRoomsQuery) ([]domain.Room, int, error)

	// IndexEntries returns the full (id, created_at) set, used to
	// rebuild the sorted index from scratch.
	IndexEntries(ctx context.Context) ([]IndexEntry, error)
}
