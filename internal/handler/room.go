package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

// RoomHandler serves the room endpoints.  Writes are limited to
// administrators by the router; ownership is checked by the service.
type RoomHandler struct {
	Log   *slog.Logger
	Rooms *service.Rooms
}

func NewRoomHandler(log *slog.Logger, rooms *service.Rooms) *RoomHandler {
	return &RoomHandler{Log: log, Rooms: rooms}
}

type createRoomReq struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Location    string  `json:"location" validate:"required,max=255"`
	Capacity    *uint32 `json:"capacity" validate:"omitempty,gte=1"`
	Description *string `json:"description"`
}

type updateRoomReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=255"`
	Capacity    *uint32 `json:"capacity" validate:"omitempty,gte=1"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type roomResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Capacity    *uint32   `json:"capacity,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatorID   uint64    `json:"creator_id"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Capacity:    r.Capacity,
		Description: r.Description,
		CreatorID:   r.CreatorID,
		Active:      r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toRoomList(rs []model.Room) []roomResp {
	out := make([]roomResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRoomResp(r))
	}
	return out
}

// CreateRoom handles POST /v1/rooms.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createRoomReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	room, err := h.Rooms.Create(c.Request().Context(), act, service.RoomInput{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// ListRooms handles GET /v1/rooms[?active=true&skip=&limit=].
func (h *RoomHandler) ListRooms(c echo.Context) error {
	skip, limit := paging(c)
	rooms, err := h.Rooms.List(c.Request().Context(), skip, limit, queryBool(c, "active"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoomList(rooms))
}

// ListMyRooms handles GET /v1/rooms/mine.
func (h *RoomHandler) ListMyRooms(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	skip, limit := paging(c)
	rooms, err := h.Rooms.ListByCreator(c.Request().Context(), uid, skip, limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoomList(rooms))
}

// GetRoom handles GET /v1/rooms/:id.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	room, err := h.Rooms.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// UpdateRoom handles PATCH /v1/rooms/:id.
func (h *RoomHandler) UpdateRoom(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req updateRoomReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	room, err := h.Rooms.Update(c.Request().Context(), act, id, service.RoomChanges{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// DeleteRoom handles DELETE /v1/rooms/:id.
func (h *RoomHandler) DeleteRoom(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	if err := h.Rooms.Delete(c.Request().Context(), act, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
