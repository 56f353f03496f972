package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

const dateLayout = "2006-01-02"

// AvailabilityHandler serves free intervals and free hourly slots.  Dates
// and HH:MM bounds are read in the service's configured zone.
type AvailabilityHandler struct {
	Log          *slog.Logger
	Availability *service.Availability
}

func NewAvailabilityHandler(log *slog.Logger, a *service.Availability) *AvailabilityHandler {
	return &AvailabilityHandler{Log: log, Availability: a}
}

type intervalResp struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type freeIntervalsResp struct {
	Room      string         `json:"room"`
	Date      string         `json:"date"`
	Window    intervalResp   `json:"window"`
	Intervals []intervalResp `json:"intervals"`
}

type freeSlotsResp struct {
	Room  string   `json:"room"`
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// dayQuery builds the query from ?date=YYYY-MM-DD[&start=HH:MM&end=HH:MM].
func (h *AvailabilityHandler) dayQuery(c echo.Context, room booking.RoomRef) (service.DayQuery, string, bool) {
	raw := strings.TrimSpace(c.QueryParam("date"))
	day, err := time.ParseInLocation(dateLayout, raw, h.Availability.Location())
	if err != nil {
		return service.DayQuery{}, "date must be YYYY-MM-DD", false
	}
	q := service.DayQuery{Room: room, Day: day}
	if s := c.QueryParam("start"); s != "" {
		d, err := booking.ParseClock(s)
		if err != nil {
			return service.DayQuery{}, "start must be HH:MM", false
		}
		q.From = &d
	}
	if s := c.QueryParam("end"); s != "" {
		d, err := booking.ParseClock(s)
		if err != nil {
			return service.DayQuery{}, "end must be HH:MM", false
		}
		q.To = &d
	}
	return q, "", true
}

// roomFrom reads /rooms/:id; the legacy routes name the room with
// ?room_name=.
func roomFrom(c echo.Context) (booking.RoomRef, bool) {
	if c.Param("id") != "" {
		id, ok := parseID(c, "id")
		return booking.RoomByID(id), ok
	}
	name := c.QueryParam("room_name")
	ref, err := booking.ParseRoomRef(nil, &name)
	return ref, err == nil
}

// FreeIntervals handles GET /v1/rooms/:id/free-intervals and
// GET /v1/availability/free-intervals.
func (h *AvailabilityHandler) FreeIntervals(c echo.Context) error {
	room, ok := roomFrom(c)
	if !ok {
		return badRequest(c, "room id or room_name required")
	}
	q, msg, ok := h.dayQuery(c, room)
	if !ok {
		return badRequest(c, msg)
	}
	window, err := h.Availability.Window(q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	free, err := h.Availability.FreeIntervals(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := freeIntervalsResp{
		Room:      room.String(),
		Date:      q.Day.Format(dateLayout),
		Window:    intervalResp{Start: window.Start, End: window.End},
		Intervals: make([]intervalResp, 0, len(free)),
	}
	for _, iv := range free {
		out.Intervals = append(out.Intervals, intervalResp{Start: iv.Start, End: iv.End})
	}
	return c.JSON(http.StatusOK, out)
}

// FreeSlots handles GET /v1/rooms/:id/free-slots and
// GET /v1/availability/free-slots.
func (h *AvailabilityHandler) FreeSlots(c echo.Context) error {
	room, ok := roomFrom(c)
	if !ok {
		return badRequest(c, "room id or room_name required")
	}
	q, msg, ok := h.dayQuery(c, room)
	if !ok {
		return badRequest(c, msg)
	}
	slots, err := h.Availability.FreeSlots(c.Request().Context(), q)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if slots == nil {
		slots = []string{}
	}
	return c.JSON(http.StatusOK, freeSlotsResp{Room: room.String(), Date: q.Day.Format(dateLayout), Slots: slots})
}
