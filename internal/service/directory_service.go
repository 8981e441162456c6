package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/openlobby/room-directory/internal/audit"
	"github.com/openlobby/room-directory/internal/cache"
	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/internal/repository"
	"github.com/openlobby/room-directory/pkg/log"
	"github.com/openlobby/room-directory/pkg/pubsub"
)

// repairConcurrency bounds concurrent detail repairs within one page.
const repairConcurrency = 4

// directoryServiceImpl implements DirectoryService.
type directoryServiceImpl struct {
	repo      repository.RoomRepository
	index     *cache.RoomIndex
	details   *cache.DetailCache
	pages     *cache.PageCache
	publisher pubsub.Publisher
	sf        singleflight.Group
}

// NewDirectoryService creates a new directory service on top of the
// primary store, the injected cache client, and an optional event
// publisher for the lobby channel.
func NewDirectoryService(
	repo repository.RoomRepository,
	client cache.Client,
	detailTTL, pageTTL time.Duration,
	publisher pubsub.Publisher,
) DirectoryService {
	return &directoryServiceImpl{
		repo:      repo,
		index:     cache.NewRoomIndex(client),
		details:   cache.NewDetailCache(client, detailTTL),
		pages:     cache.NewPageCache(client, pageTTL),
		publisher: publisher,
	}
}

// ListRooms serves a listing request. The default ordering (creation
// time descending, no search) goes through the sorted index and detail
// cache; every other signature goes through the aggregate page cache.
func (s *directoryServiceImpl) ListRooms(ctx context.Context, principalID string, q *domain.ListRoomsQuery) (*domain.ListResult, error) {
	q.Normalize()

	var (
		result *domain.ListResult
		err    error
	)
	if q.DefaultOrder() {
		result, err = s.listFromIndex(ctx, q)
	} else {
		result, err = s.listFromPages(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	stampIsCreator(result.Rooms, principalID)
	return result, nil
}

// listFromIndex serves the default ordering from the sorted index plus
// per-room detail entries. An unreachable index falls through to the
// primary store; an empty one is rebuilt from the store first, since a
// partially populated index would misreport totals and page membership.
func (s *directoryServiceImpl) listFromIndex(ctx context.Context, q *domain.ListRoomsQuery) (*domain.ListResult, error) {
	total, ok := s.index.Count(ctx)
	if !ok {
		return s.listFromStore(ctx, q, true)
	}
	if total == 0 {
		if err := s.rebuildIndex(ctx); err != nil {
			return nil, err
		}
		if total, ok = s.index.Count(ctx); !ok || total == 0 {
			return s.listFromStore(ctx, q, true)
		}
	}

	start := int64(q.Page) * int64(q.PageSize)
	stop := start + int64(q.PageSize) - 1
	ids, ok := s.index.Window(ctx, start, stop)
	if !ok {
		return s.listFromStore(ctx, q, true)
	}

	rooms, dropped, err := s.collectDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	meta := domain.NewListMetadata(q, int(total)-dropped, len(rooms))
	return &domain.ListResult{Rooms: rooms, Metadata: meta}, nil
}

// collectDetails resolves a window of identifiers against the detail
// cache, repairing misses from the primary store. Repairs run
// independently per identifier; a page may mix cache hits and fresh
// fetches. Identifiers the store no longer knows are dropped and
// removed from the index.
func (s *directoryServiceImpl) collectDetails(ctx context.Context, ids []string) ([]domain.RoomSummary, int, error) {
	found := make(map[string]*domain.RoomSnapshot, len(ids))
	var missing []string
	for _, id := range ids {
		if snap, ok := s.details.Get(ctx, id); ok {
			found[id] = snap
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(repairConcurrency)

		for _, id := range missing {
			id := id
			g.Go(func() error {
				room, err := s.repo.GetByID(gctx, id)
				if err != nil {
					if errors.Is(err, repository.ErrRoomNotFound) {
						// Index lags the store; drop the member.
						s.index.Remove(gctx, id)
						return nil
					}
					return err
				}

				snap := room.Snapshot()
				s.details.Set(gctx, snap)

				mu.Lock()
				found[id] = snap
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	}

	rooms := make([]domain.RoomSummary, 0, len(ids))
	for _, id := range ids {
		if snap, ok := found[id]; ok {
			rooms = append(rooms, snap.Summary())
		}
	}
	return rooms, len(ids) - len(rooms), nil
}

// rebuildIndex reloads the full identifier set from the primary store
// into the sorted index. Concurrent cold reads collapse onto a single
// rebuild; ZAdd is idempotent so overlapping rebuilds stay safe.
func (s *directoryServiceImpl) rebuildIndex(ctx context.Context) error {
	_, err, _ := s.sf.Do("index:rebuild", func() (interface{}, error) {
		entries, err := s.repo.IndexEntries(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			s.index.Add(ctx, e.ID, e.CreatedAt.UnixMilli())
		}
		return nil, nil
	})
	return err
}

// listFromStore serves a page straight from the primary store, the
// fallback when the index backend is unreachable. With warmDetails set
// it re-populates detail entries for the fetched rooms.
func (s *directoryServiceImpl) listFromStore(ctx context.Context, q *domain.ListRoomsQuery, warmDetails bool) (*domain.ListResult, error) {
	records, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.RoomSummary, len(records))
	for i := range records {
		snap := records[i].Snapshot()
		if warmDetails {
			s.details.Set(ctx, snap)
		}
		rooms[i] = snap.Summary()
	}

	meta := domain.NewListMetadata(q, total, len(rooms))
	return &domain.ListResult{Rooms: rooms, Metadata: meta}, nil
}

// listFromPages serves non-default signatures through the aggregate
// page cache, collapsing concurrent identical queries.
func (s *directoryServiceImpl) listFromPages(ctx context.Context, q *domain.ListRoomsQuery) (*domain.ListResult, error) {
	key := cache.PageKey(q)

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if page, ok := s.pages.Get(ctx, key); ok {
			return page, nil
		}

		records, total, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}

		page := &domain.ListPage{
			SchemaVersion: domain.SnapshotSchemaVersion,
			Rooms:         make([]domain.RoomSummary, len(records)),
			Total:         total,
		}
		for i := range records {
			page.Rooms[i] = records[i].Snapshot().Summary()
		}

		s.pages.Set(ctx, key, page)
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	page := v.(*domain.ListPage)

	// Cached pages are shared across principals; copy before the
	// caller stamps principal-dependent fields.
	rooms := make([]domain.RoomSummary, len(page.Rooms))
	copy(rooms, page.Rooms)

	meta := domain.NewListMetadata(q, page.Total, len(rooms))
	return &domain.ListResult{Rooms: rooms, Metadata: meta}, nil
}

// GetRoom retrieves a single room through the detail cache, repairing a
// miss from the primary store.
func (s *directoryServiceImpl) GetRoom(ctx context.Context, principalID, roomID string) (*domain.RoomSummary, error) {
	if snap, ok := s.details.Get(ctx, roomID); ok {
		summary := snap.Summary()
		summary.IsCreator = principalID != "" && summary.Creator.ID == principalID
		return &summary, nil
	}

	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	snap := room.Snapshot()
	s.details.Set(ctx, snap)

	summary := snap.Summary()
	summary.IsCreator = principalID != "" && summary.Creator.ID == principalID
	return &summary, nil
}

// CreateRoom persists a new room and mirrors it into the cache tiers.
// Only the primary store write (and the read-back of the populated
// record) can fail the request; cache maintenance and the lobby
// broadcast are best-effort.
func (s *directoryServiceImpl) CreateRoom(ctx context.Context, principal *domain.Principal, req *domain.CreateRoomRequest) (*domain.RoomSummary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passwordHash = string(hash)
	}

	id, err := s.repo.Create(ctx, &repository.NewRoom{
		Name:         name,
		CreatorID:    principal.ID,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, err
	}

	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := room.Snapshot()
	// Only a warm index takes incremental inserts; seeding a cold one
	// with a single member would misreport totals until a rebuild.
	if n, ok := s.index.Count(ctx); ok && n > 0 {
		s.index.Add(ctx, room.ID, room.CreatedAt.UnixMilli())
	}
	s.details.Set(ctx, snap)
	s.pages.InvalidateAll(ctx)
	s.publishCreated(ctx, snap)

	audit.Log(ctx, audit.ActionCreateRoom, principal.ID, "room created")

	summary := snap.Summary()
	summary.IsCreator = true
	return &summary, nil
}

// publishCreated emits the room_created event to the lobby channel.
// Snapshots carry no password material, so the payload is stripped by
// construction.
func (s *directoryServiceImpl) publishCreated(ctx context.Context, snap *domain.RoomSnapshot) {
	if s.publisher == nil {
		return
	}

	event, err := pubsub.NewEvent(pubsub.EventRoomCreated, snap.ID, snap.Summary())
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.ChannelRoomLobby, event)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, snap.ID).Msg("failed to publish room_created event")
	}
}

func stampIsCreator(rooms []domain.RoomSummary, principalID string) {
	for i := range rooms {
		rooms[i].IsCreator = principalID != "" && rooms[i].Creator.ID == principalID
	}
}
