package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-booking/internal/logger"
)

func sampleEvent() Event {
	return Event{
		Type:          ReservationCreated,
		ReservationID: 42,
		RoomID:        3,
		OwnerID:       7,
		StartsAt:      time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		EndsAt:        time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		ActorID:       7,
		OccurredAt:    time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatLine(t *testing.T) {
	got := FormatLine(sampleEvent())
	assert.Equal(t,
		"[2025-03-09T12:00:00Z] reservation.created | reservation_id=42 | room_id=3 | owner_id=7 | 2025-03-10T14:00:00Z -> 2025-03-10T15:00:00Z | actor_id=7\n",
		got)

	ev := sampleEvent()
	ev.Type = ParticipantAdded
	ev.RoomID = 0
	ev.RoomName = "Sala Azul"
	ev.ParticipantID = 9
	got = FormatLine(ev)
	assert.Contains(t, got, `room="Sala Azul"`)
	assert.Contains(t, got, "participant_user_id=9")
}

func TestHandleAppendsLines(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{Dir: dir, Log: logger.Discard()}

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	raw, err := os.ReadFile(filepath.Join(dir, "reservations.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "reservation.created"))
}

func TestHandleRejectsGarbage(t *testing.T) {
	c := &Consumer{Dir: t.TempDir(), Log: logger.Discard()}
	assert.Error(t, c.Handle([]byte("{")))
	assert.Error(t, c.Handle([]byte(`{"reservation_id":1}`)))
}
