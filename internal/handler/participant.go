package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

// ParticipantHandler serves invitations.  The reservation owner adds and
// removes participants; invited users flag their invitations as notified
// or seen.  Every refusal is reported as 404.
type ParticipantHandler struct {
	Log          *slog.Logger
	Participants *service.Participants
}

func NewParticipantHandler(log *slog.Logger, p *service.Participants) *ParticipantHandler {
	return &ParticipantHandler{Log: log, Participants: p}
}

type addParticipantReq struct {
	UserID uint64 `json:"user_id" validate:"required,gt=0"`
}

type participantResp struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Notified      bool      `json:"notified"`
	Seen          bool      `json:"seen"`
	CreatedAt     time.Time `json:"created_at"`
}

type invitationResp struct {
	participantResp
	Reservation reservationResp `json:"reservation"`
}

type invitableUserResp struct {
	ID       uint64  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name,omitempty"`
	Email    string  `json:"email"`
}

func toParticipantResp(p model.Participant) participantResp {
	return participantResp{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		UserID:        p.UserID,
		Notified:      p.Notified,
		Seen:          p.Seen,
		CreatedAt:     p.CreatedAt,
	}
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
}

// AddParticipant handles POST /v1/reservations/:id/participants.  Adding
// an existing participant returns the existing row.
func (h *ParticipantHandler) AddParticipant(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	resID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req addParticipantReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	p, err := h.Participants.Add(c.Request().Context(), uid, resID, req.UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toParticipantResp(p))
}

// ListParticipants handles GET /v1/reservations/:id/participants.
func (h *ParticipantHandler) ListParticipants(c echo.Context) error {
	resID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ps, err := h.Participants.ListByReservation(c.Request().Context(), resID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]participantResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipantResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveParticipant handles DELETE /v1/reservations/:id/participants/:user_id.
func (h *ParticipantHandler) RemoveParticipant(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	resID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	target, ok := parseID(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	removed, err := h.Participants.Remove(c.Request().Context(), uid, resID, target)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !removed {
		return notFound(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkNotified handles POST /v1/reservations/:id/notified.
func (h *ParticipantHandler) MarkNotified(c echo.Context) error {
	return h.mark(c, h.Participants.MarkNotified)
}

// MarkSeen handles POST /v1/reservations/:id/seen.
func (h *ParticipantHandler) MarkSeen(c echo.Context) error {
	return h.mark(c, h.Participants.MarkSeen)
}

type markFunc func(ctx context.Context, user, reservationID uint64) (bool, error)

func (h *ParticipantHandler) mark(c echo.Context, fn markFunc) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	resID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	done, err := fn(c.Request().Context(), uid, resID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !done {
		return notFound(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMyInvitations handles GET /v1/me/invitations[?unseen=true&unnotified=true].
func (h *ParticipantHandler) ListMyInvitations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	invs, err := h.Participants.ListForUser(c.Request().Context(), uid, repository.InvitationFilter{
		OnlyUnnotified: queryBool(c, "unnotified"),
		OnlyUnseen:     queryBool(c, "unseen"),
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]invitationResp, 0, len(invs))
	for _, inv := range invs {
		out = append(out, invitationResp{
			participantResp: toParticipantResp(inv.Participant),
			Reservation:     toReservationResp(inv.Reservation),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CountUnseen handles GET /v1/me/invitations/unseen-count.
func (h *ParticipantHandler) CountUnseen(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	n, err := h.Participants.CountUnseen(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// ListInvitableUsers handles GET /v1/users/invitable.
func (h *ParticipantHandler) ListInvitableUsers(c echo.Context) error {
	users, err := h.Participants.ListInvitableUsers(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]invitableUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, invitableUserResp{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email})
	}
	return c.JSON(http.StatusOK, out)
}
