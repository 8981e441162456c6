package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/pkg/database"
	"github.com/openlobby/room-directory/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// roomRow is the scan target for room queries joined against users.
type roomRow struct {
	ID                string
	Name              string
	CreatorID         string
	PasswordHash      string
	ParticipantIDs    database.StringArray
	ParticipantsCount int
	CreatedAt         time.Time
	CreatorUsername   string
	CreatorEmail      string
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID:        r.ID,
		Name:      r.Name,
		CreatorID: r.CreatorID,
		Creator: domain.UserSummary{
			ID:    r.CreatorID,
			Name:  r.CreatorUsername,
			Email: r.CreatorEmail,
		},
		ParticipantIDs:    []string(r.ParticipantIDs),
		ParticipantsCount: r.ParticipantsCount,
		HasPassword:       r.PasswordHash != "",
		CreatedAt:         r.CreatedAt,
	}
}

const roomSelect = "rooms.id, rooms.name, rooms.creator_id, rooms.password_hash, " +
	"rooms.participant_ids, rooms.participants_count, rooms.created_at, " +
	"users.username AS creator_username, users.email AS creator_email"

func (r *GormRoomRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.RoomModel{}).
		Select(roomSelect).
		Joins("LEFT JOIN users ON users.id = rooms.creator_id")
}

// Create persists a new room with the creator as its only participant.
func (r *GormRoomRepository) Create(ctx context.Context, n *NewRoom) (string, error) {
	l := log.Ctx(ctx)

	model := &domain.RoomModel{
		ID:                uuid.New().String(),
		Name:              n.Name,
		CreatorID:         n.CreatorID,
		PasswordHash:      n.PasswordHash,
		ParticipantIDs:    database.StringArray{n.CreatorID},
		ParticipantsCount: 1,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create room in db")
		return "", err
	}

	l.Debug().Str(log.FieldRoomID, model.ID).Msg("room created in db")
	return model.ID, nil
}

// GetByID retrieves a room by ID with creator identity denormalized.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var row roomRow
	result := r.joined(ctx).Where("rooms.id = ?", id).Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}

	room := row.toDomain()
	return &room, nil
}

// List retrieves a page of rooms for the normalized query plus the
// total matching count.
func (r *GormRoomRepository) List(ctx context.Context, q *domain.ListRoomsQuery) ([]domain.Room, int, error) {
	l := log.Ctx(ctx)

	filtered := r.db.WithContext(ctx).Model(&domain.RoomModel{})
	if q.Search != "" {
		filtered = filtered.Where("LOWER(rooms.name) LIKE ?", "%"+q.Search+"%")
	}

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count rooms")
		return nil, 0, err
	}

	query := r.joined(ctx)
	if q.Search != "" {
		query = query.Where("LOWER(rooms.name) LIKE ?", "%"+q.Search+"%")
	}

	var rows []roomRow
	err := query.
		Order(orderClause(q)).
		Offset(q.Page * q.PageSize).
		Limit(q.PageSize).
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to list rooms from db")
		return nil, 0, err
	}

	rooms := make([]domain.Room, len(rows))
	for i, row := range rows {
		rooms[i] = row.toDomain()
	}

	return rooms, int(total), nil
}

// IndexEntries returns every (id, created_at) pair in the store.
func (r *GormRoomRepository) IndexEntries(ctx context.Context) ([]IndexEntry, error) {
	l := log.Ctx(ctx)

	var entries []IndexEntry
	err := r.db.WithContext(ctx).
		Model(&domain.RoomModel{}).
		Select("rooms.id, rooms.created_at").
		Scan(&entries).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to load index entries from db")
		return nil, err
	}
	return entries, nil
}

// orderClause maps the normalized sort descriptor onto columns. Values
// outside the enum never reach here; Normalize falls them back first.
func orderClause(q *domain.ListRoomsQuery) string {
	col := "rooms.created_at"
	switch q.SortField {
	case domain.SortByName:
		col = "rooms.name"
	case domain.SortByParticipantsCount:
		col = "rooms.participants_count"
	}

	dir := "DESC"
	if q.SortOrder == domain.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s", col, dir)
}
