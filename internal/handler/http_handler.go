package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/internal/service"
	"github.com/openlobby/room-directory/pkg/log"
	"github.com/openlobby/room-directory/pkg/middleware"
	"github.com/openlobby/room-directory/pkg/response"
)

// Handler handles HTTP requests for the room directory.
type Handler struct {
	directory      service.DirectoryService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(directory service.DirectoryService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		directory:      directory,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		rooms := api.Group("/rooms")
		{
			// Public routes; the principal is picked up when present
			// so isCreator can be stamped.
			rooms.GET("", h.authMiddleware.OptionalAuth(), h.ListRooms)
			rooms.GET("/:id", h.authMiddleware.OptionalAuth(), h.GetRoom)

			// Protected routes
			rooms.POST("", h.authMiddleware.RequireAuth(), h.CreateRoom)
		}
	}
}

// ListRooms lists rooms with pagination, sorting, and search.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var q domain.ListRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.directory.ListRooms(ctx, middleware.GetUserID(c), &q)
	if err != nil {
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms", err)
		return
	}

	response.Page(c, result.Rooms, result.Metadata)
}

// GetRoom retrieves a room by ID.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")

	room, err := h.directory.GetRoom(ctx, middleware.GetUserID(c), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		response.InternalError(c, "failed to get room", err)
		return
	}

	response.Success(c, room)
}

// CreateRoom creates a new room.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	principal := &domain.Principal{
		ID:    middleware.GetUserID(c),
		Name:  middleware.GetUsername(c),
		Email: middleware.GetEmail(c),
	}
	if principal.ID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.directory.CreateRoom(ctx, principal, &req)
	if err != nil {
		if errors.Is(err, service.ErrNameRequired) {
			response.BadRequest(c, "room name is required")
			return
		}
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room", err)
		return
	}

	response.Created(c, room)
}
