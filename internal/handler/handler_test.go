package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-booking/internal/config"
	"github.com/iliyamo/meeting-room-booking/internal/handler"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/router"
	"github.com/iliyamo/meeting-room-booking/internal/service"
	"github.com/iliyamo/meeting-room-booking/internal/testfixtures"
	"github.com/iliyamo/meeting-room-booking/internal/utils"
)

const secret = "handler-test-secret"

type api struct {
	e      *echo.Echo
	store  *testfixtures.Store
	events *testfixtures.Events
	admin  model.User
	owner  model.User
	guest  model.User
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st := testfixtures.New()
	ev := &testfixtures.Events{}
	log := logger.Discard()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4}

	users := service.NewUsers(log, st, cfg.BcryptCost)
	rooms := service.NewRooms(log, st)
	reservations := service.NewReservations(log, st, st, ev, nil)
	availability := service.NewAvailability(log, st, st, time.UTC, 8*time.Hour, 18*time.Hour)
	participants := service.NewParticipants(log, st, st, st, ev, nil)

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	router.RegisterRoutes(e, nil, nil)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, log, users, st), secret, nil)
	g := router.Protected(e, secret, nil)
	router.RegisterRooms(g, handler.NewRoomHandler(log, rooms), handler.NewAvailabilityHandler(log, availability), nil)
	router.RegisterReservations(g, handler.NewReservationHandler(log, reservations), handler.NewParticipantHandler(log, participants), nil)

	return &api{
		e:      e,
		store:  st,
		events: ev,
		admin:  st.SeedUser(t, true),
		owner:  st.SeedUser(t, false),
		guest:  st.SeedUser(t, false),
	}
}

func (a *api) token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, u.ID, u.Username, u.Role(), 15)
	require.NoError(t, err)
	return tok.Token
}

func (a *api) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type tokens struct {
	User struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
	Access  struct{ Token string } `json:"access"`
	Refresh struct{ Token string } `json:"refresh"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	body := `{"username":"ana","email":"Ana@Example.com","password":"s3cret-pass"}`

	rec := a.do(http.MethodPost, "/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[tokens](t, rec)
	assert.Equal(t, "ana", reg.User.Username)
	assert.Equal(t, model.RoleUser, reg.User.Role)
	assert.NotEmpty(t, reg.Access.Token)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v1/auth/register", "", body).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/auth/register", "", `{"username":"bo","email":"nope","password":"x"}`).Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", `{"username":"ana","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", `{"username":"ana","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[tokens](t, rec)

	rec = a.do(http.MethodGet, "/v1/me", login.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "ana", me["username"])
	assert.Equal(t, "ana@example.com", me["email"])

	refreshBody := `{"refresh_token":"` + login.Refresh.Token + `"}`
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", refreshBody)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[tokens](t, rec)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)
	// the old refresh token was revoked by the rotation
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/v1/auth/refresh", "", refreshBody).Code)

	assert.Equal(t, http.StatusNoContent,
		a.do(http.MethodPost, "/v1/auth/logout", "", `{"refresh_token":"`+rotated.Refresh.Token+`"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/auth/logout", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/me", "", "").Code)
}

func TestRoomEndpoints(t *testing.T) {
	a := newAPI(t)
	adminTok := a.token(t, a.admin)
	userTok := a.token(t, a.owner)

	room := `{"name":"Sala Azul","location":"Predio B","capacity":8}`
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/rooms", userTok, room).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/rooms", adminTok, `{"name":"x","location":"y","capacity":0}`).Code)

	rec := a.do(http.MethodPost, "/v1/rooms", adminTok, room)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "Sala Azul", created["name"])
	assert.Equal(t, true, created["active"])
	id := uint64(created["id"].(float64))
	path := "/v1/rooms/" + itoa(id)

	rec = a.do(http.MethodGet, path, userTok, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPatch, path, adminTok, `{"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["active"])

	rec = a.do(http.MethodGet, "/v1/rooms?active=true", userTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))

	rec = a.do(http.MethodGet, "/v1/rooms/mine", adminTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	// another admin cannot touch the room
	otherAdmin := a.store.SeedUser(t, true)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, path, a.token(t, otherAdmin), "").Code)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, adminTok, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, userTok, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/rooms/abc", userTok, "").Code)
}

func TestReservationEndpoints(t *testing.T) {
	a := newAPI(t)
	room := a.store.SeedRoom(t, a.admin.ID)
	ownerTok := a.token(t, a.owner)
	guestTok := a.token(t, a.guest)
	rid := itoa(room.ID)

	book := func(tok, start, end string) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, "/v1/reservations", tok,
			`{"room_id":`+rid+`,"starts_at":"2025-03-10T`+start+`:00Z","ends_at":"2025-03-10T`+end+`:00Z","coffee_quantity":2}`)
	}

	rec := book(ownerTok, "09:00", "10:00")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, float64(room.ID), res["room_id"])
	assert.Equal(t, float64(a.owner.ID), res["owner_id"])
	resPath := "/v1/reservations/" + itoa(uint64(res["id"].(float64)))

	assert.Equal(t, http.StatusConflict, book(guestTok, "09:30", "10:30").Code)
	assert.Equal(t, http.StatusCreated, book(guestTok, "10:00", "11:00").Code)
	assert.Equal(t, http.StatusBadRequest, book(guestTok, "12:00", "12:00").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", ownerTok,
		`{"room_id":`+rid+`,"room_name":"Sala","starts_at":"2025-03-10T13:00:00Z","ends_at":"2025-03-10T14:00:00Z"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", ownerTok,
		`{"room_id":`+rid+`,"starts_at":"2025-03-10T13:00:00Z","ends_at":"2025-03-10T14:00:00Z","coffee_quantity":-1}`).Code)

	// legacy room by name
	rec = a.do(http.MethodPost, "/v1/reservations", ownerTok,
		`{"room_name":"Auditorio","starts_at":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Auditorio", decode[map[string]any](t, rec)["room_name"])

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, resPath, guestTok, `{"meeting_link":"https://meet.example/x"}`).Code)

	rec = a.do(http.MethodPatch, resPath, ownerTok, `{"starts_at":"2025-03-10T08:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "2025-03-10T08:00:00Z", updated["starts_at"])
	assert.Equal(t, float64(2), updated["coffee_quantity"])

	rec = a.do(http.MethodPatch, resPath, ownerTok, `{"ends_at":"2025-03-10T10:30:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/v1/reservations?limit=1", guestTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, resPath, guestTok, "").Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, resPath, ownerTok, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, resPath, ownerTok, "").Code)
	assert.Equal(t, []string{"reservation.created", "reservation.created", "reservation.created", "reservation.updated", "reservation.deleted"}, a.events.Types())
}

func TestInactiveRoomIsUnprocessable(t *testing.T) {
	a := newAPI(t)
	room := a.store.SeedRoom(t, a.admin.ID)
	room.IsActive = false
	require.NoError(t, a.store.UpdateRoom(t.Context(), &room))

	rec := a.do(http.MethodPost, "/v1/reservations", a.token(t, a.owner),
		`{"room_id":`+itoa(room.ID)+`,"starts_at":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T10:00:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAvailabilityEndpoints(t *testing.T) {
	a := newAPI(t)
	room := a.store.SeedRoom(t, a.admin.ID)
	tok := a.token(t, a.owner)
	rid := itoa(room.ID)

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/reservations", tok,
		`{"room_id":`+rid+`,"starts_at":"2025-03-10T09:30:00Z","ends_at":"2025-03-10T10:15:00Z"}`).Code)

	rec := a.do(http.MethodGet, "/v1/rooms/"+rid+"/free-intervals?date=2025-03-10&start=08:00&end=12:00", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[struct {
		Intervals []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"intervals"`
	}](t, rec)
	require.Len(t, got.Intervals, 2)
	assert.Equal(t, 8, got.Intervals[0].Start.Hour())
	assert.Equal(t, 30, got.Intervals[0].End.Minute())
	assert.Equal(t, 10, got.Intervals[1].Start.Hour())
	assert.Equal(t, 15, got.Intervals[1].Start.Minute())

	rec = a.do(http.MethodGet, "/v1/rooms/"+rid+"/free-slots?date=2025-03-10&start=08:00&end=12:00", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[struct {
		Slots []string `json:"slots"`
	}](t, rec)
	assert.Equal(t, []string{"08:00", "11:00"}, slots.Slots)

	rec = a.do(http.MethodGet, "/v1/availability/free-slots?room_name=Auditorio&date=2025-03-10", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Slots []string `json:"slots"`
	}](t, rec).Slots, 10)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/rooms/"+rid+"/free-slots?date=10/03/2025", tok, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/rooms/"+rid+"/free-slots?date=2025-03-10&start=12:00&end=08:00", tok, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/availability/free-slots?date=2025-03-10", tok, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/rooms/9999/free-slots?date=2025-03-10", tok, "").Code)
}

func TestParticipantEndpoints(t *testing.T) {
	a := newAPI(t)
	room := a.store.SeedRoom(t, a.admin.ID)
	ownerTok := a.token(t, a.owner)
	guestTok := a.token(t, a.guest)

	rec := a.do(http.MethodPost, "/v1/reservations", ownerTok,
		`{"room_id":`+itoa(room.ID)+`,"starts_at":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/v1/reservations/" + itoa(uint64(decode[map[string]any](t, rec)["id"].(float64)))
	invite := `{"user_id":` + itoa(a.guest.ID) + `}`

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, base+"/participants", guestTok, invite).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, base+"/participants", ownerTok, `{"user_id":`+itoa(a.admin.ID)+`}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, base+"/participants", ownerTok, `{}`).Code)

	rec = a.do(http.MethodPost, base+"/participants", ownerTok, invite)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, rec)["seen"])

	rec = a.do(http.MethodGet, base+"/participants", guestTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = a.do(http.MethodGet, "/v1/me/invitations/unseen-count", guestTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, base+"/seen", guestTok, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, base+"/notified", ownerTok, "").Code)

	rec = a.do(http.MethodGet, "/v1/me/invitations?unseen=true", guestTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))

	rec = a.do(http.MethodGet, "/v1/me/invitations", guestTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	invs := decode[[]map[string]any](t, rec)
	require.Len(t, invs, 1)
	assert.Equal(t, true, invs[0]["seen"])
	assert.NotNil(t, invs[0]["reservation"])

	rec = a.do(http.MethodGet, "/v1/users/invitable", ownerTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, base+"/participants/"+itoa(a.guest.ID), guestTok, "").Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base+"/participants/"+itoa(a.guest.ID), ownerTok, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, base+"/participants/"+itoa(a.guest.ID), ownerTok, "").Code)
}

func itoa(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
