package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

// ReservationHandler serves the reservation lifecycle endpoints.
type ReservationHandler struct {
	Log          *slog.Logger
	Reservations *service.Reservations
}

func NewReservationHandler(log *slog.Logger, r *service.Reservations) *ReservationHandler {
	return &ReservationHandler{Log: log, Reservations: r}
}

// createReservationReq names the room by id or, for legacy rooms, by name.
// Exactly one of the two must be set.
type createReservationReq struct {
	RoomID            *uint64   `json:"room_id" validate:"omitempty,gt=0"`
	RoomName          *string   `json:"room_name" validate:"omitempty,max=255"`
	Location          *string   `json:"location" validate:"omitempty,max=255"`
	StartsAt          time.Time `json:"starts_at" validate:"required"`
	EndsAt            time.Time `json:"ends_at" validate:"required"`
	CoffeeQuantity    *int      `json:"coffee_quantity" validate:"omitempty,gte=0"`
	CoffeeDescription *string   `json:"coffee_description" validate:"omitempty,max=255"`
	MeetingLink       *string   `json:"meeting_link" validate:"omitempty,url,max=255"`
}

type updateReservationReq struct {
	RoomID            *uint64    `json:"room_id" validate:"omitempty,gt=0"`
	RoomName          *string    `json:"room_name" validate:"omitempty,max=255"`
	Location          *string    `json:"location" validate:"omitempty,max=255"`
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
	CoffeeQuantity    *int       `json:"coffee_quantity" validate:"omitempty,gte=0"`
	CoffeeDescription *string    `json:"coffee_description" validate:"omitempty,max=255"`
	MeetingLink       *string    `json:"meeting_link" validate:"omitempty,url,max=255"`
}

type reservationResp struct {
	ID                uint64    `json:"id"`
	RoomID            *uint64   `json:"room_id,omitempty"`
	RoomName          *string   `json:"room_name,omitempty"`
	Location          *string   `json:"location,omitempty"`
	StartsAt          time.Time `json:"starts_at"`
	EndsAt            time.Time `json:"ends_at"`
	OwnerID           uint64    `json:"owner_id"`
	CoffeeQuantity    *int      `json:"coffee_quantity,omitempty"`
	CoffeeDescription *string   `json:"coffee_description,omitempty"`
	MeetingLink       *string   `json:"meeting_link,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toReservationResp(r model.Reservation) reservationResp {
	out := reservationResp{
		ID:                r.ID,
		Location:          r.Location,
		StartsAt:          r.StartsAt,
		EndsAt:            r.EndsAt,
		OwnerID:           r.OwnerID,
		CoffeeQuantity:    r.CoffeeQuantity,
		CoffeeDescription: r.CoffeeDescription,
		MeetingLink:       r.MeetingLink,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if id, ok := r.Room.ID(); ok {
		out.RoomID = &id
	} else if name, ok := r.Room.Name(); ok {
		out.RoomName = &name
	}
	return out
}

// CreateReservation handles POST /v1/reservations.  The caller becomes the
// responsible user.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createReservationReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	room, err := booking.ParseRoomRef(req.RoomID, req.RoomName)
	if err != nil {
		return fail(c, h.Log, err)
	}
	res, err := h.Reservations.Create(c.Request().Context(), uid, service.NewReservation{
		Room:              room,
		Interval:          booking.Interval{Start: req.StartsAt, End: req.EndsAt},
		Location:          req.Location,
		CoffeeQuantity:    req.CoffeeQuantity,
		CoffeeDescription: req.CoffeeDescription,
		MeetingLink:       req.MeetingLink,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// ListReservations handles GET /v1/reservations[?skip=&limit=].
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	skip, limit := paging(c)
	rs, err := h.Reservations.List(c.Request().Context(), skip, limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]reservationResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

// GetReservation handles GET /v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// UpdateReservation handles PATCH /v1/reservations/:id.  Absent fields are
// left untouched.
func (h *ReservationHandler) UpdateReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req updateReservationReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	res, err := h.Reservations.Update(c.Request().Context(), uid, id, service.ReservationChanges{
		RoomID:            req.RoomID,
		RoomName:          req.RoomName,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		Location:          req.Location,
		CoffeeQuantity:    req.CoffeeQuantity,
		CoffeeDescription: req.CoffeeDescription,
		MeetingLink:       req.MeetingLink,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// DeleteReservation handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) DeleteReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.Reservations.Delete(c.Request().Context(), uid, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
