package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/handler"
	"github.com/iliyamo/meeting-room-booking/internal/middleware"
)

// RegisterReservations registers the reservation lifecycle and the
// participant endpoints.  Ownership is enforced by the services, which
// report a foreign reservation exactly like a missing one.
func RegisterReservations(g *echo.Group, h *handler.ReservationHandler, p *handler.ParticipantHandler, cache *middleware.ResponseCache) {
	g.POST("/reservations", h.CreateReservation)
	g.GET("/reservations", h.ListReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.PATCH("/reservations/:id", h.UpdateReservation)
	g.DELETE("/reservations/:id", h.DeleteReservation)

	g.GET("/reservations/:id/participants", p.ListParticipants)
	g.POST("/reservations/:id/participants", p.AddParticipant)
	g.DELETE("/reservations/:id/participants/:user_id", p.RemoveParticipant)
	g.POST("/reservations/:id/notified", p.MarkNotified)
	g.POST("/reservations/:id/seen", p.MarkSeen)

	g.GET("/me/invitations", p.ListMyInvitations)
	g.GET("/me/invitations/unseen-count", p.CountUnseen)

	g.GET("/users/invitable", p.ListInvitableUsers, cache.Cached(usersTag))
}
