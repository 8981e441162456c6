package service

import (
	"context"
	"errors"

	"github.com/openlobby/room-directory/internal/domain"
)

var (
	ErrNameRequired = errors.New("room name is required")
	ErrRoomNotFound = errors.New("room not found")
)

// DirectoryService orchestrates the room directory: paginated listing
// over the cache tiers with lazy repair from the primary store, and
// room creation with cache maintenance and lobby broadcast.
type DirectoryService interface {
	ListRooms(ctx context.Context, principalID string, q *domain.ListRoomsQuery) (*domain.ListResult, error)
	GetRoom(ctx context.Context, principalID, roomID string) (*domain.RoomSummary, error)
	CreateRoom(ctx context.Context, principal *domain.Principal, req *domain.CreateRoomRequest) (*domain.RoomSummary, error)
}
