// Package queue carries booking domain events over RabbitMQ: a publisher
// used by the services and a consumer that appends them to an event log.
package queue

import "time"

// Event types, also used as AMQP message types.
const (
	ReservationCreated = "reservation.created"
	ReservationUpdated = "reservation.updated"
	ReservationDeleted = "reservation.deleted"
	ParticipantAdded   = "participant.added"
	ParticipantRemoved = "participant.removed"
)

// Event is published after a booking change has been committed.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.  Exactly one of RoomID and RoomName is
// set.
type Event struct {
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	RoomID        uint64    `json:"room_id,omitempty"`
	RoomName      string    `json:"room_name,omitempty"`
	OwnerID       uint64    `json:"owner_id"`
	ParticipantID uint64    `json:"participant_user_id,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	ActorID       uint64    `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}
