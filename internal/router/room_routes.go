package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/handler"
	"github.com/iliyamo/meeting-room-booking/internal/middleware"
)

// Cache tags.  A write route drops every cached read filed under its tag.
const (
	roomsTag = "rooms"
	usersTag = "users"
)

// RegisterRooms registers room management and availability.  Reads are
// open to every authenticated user; writes need the ADMIN role, and the
// service additionally checks that the admin created the room.  cache wraps
// the room reads only and is emptied by every successful room write;
// availability is always computed live.
func RegisterRooms(g *echo.Group, h *handler.RoomHandler, a *handler.AvailabilityHandler, cache *middleware.ResponseCache) {
	admin := middleware.RequireAdmin()
	read, write := cache.Cached(roomsTag), cache.Invalidates(roomsTag)

	g.GET("/rooms", h.ListRooms, read)
	g.GET("/rooms/mine", h.ListMyRooms, admin)
	g.GET("/rooms/:id", h.GetRoom, read)
	g.POST("/rooms", h.CreateRoom, admin, write)
	g.PATCH("/rooms/:id", h.UpdateRoom, admin, write)
	g.DELETE("/rooms/:id", h.DeleteRoom, admin, write)

	g.GET("/rooms/:id/free-intervals", a.FreeIntervals)
	g.GET("/rooms/:id/free-slots", a.FreeSlots)
	// legacy rooms known only by name
	g.GET("/availability/free-intervals", a.FreeIntervals)
	g.GET("/availability/free-slots", a.FreeSlots)
}
