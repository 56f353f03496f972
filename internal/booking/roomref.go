package booking

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier is returned when a room is identified by neither or
// by both of its id and its legacy name.
var ErrInvalidIdentifier = errors.New("exactly one of room id or room name is required")

// RoomRef identifies the room a reservation belongs to.  Rooms are
// referenced by id; rows created before rooms existed carry a free-text
// name instead.  A RoomRef is always exactly one of the two, and a by-id
// reference never matches a by-name reservation or the other way round.
type RoomRef struct {
	id   uint64
	name string
}

// RoomByID references a room by its primary key.
func RoomByID(id uint64) RoomRef { return RoomRef{id: id} }

// RoomByName references a legacy room by its free-text name.
func RoomByName(name string) RoomRef { return RoomRef{name: strings.TrimSpace(name)} }

// ParseRoomRef builds a RoomRef from the two optional identifiers a client
// may send.  Exactly one must be present and non-empty.
func ParseRoomRef(id *uint64, name *string) (RoomRef, error) {
	hasID := id != nil && *id != 0
	hasName := name != nil && strings.TrimSpace(*name) != ""
	switch {
	case hasID && !hasName:
		return RoomByID(*id), nil
	case hasName && !hasID:
		return RoomByName(*name), nil
	default:
		return RoomRef{}, ErrInvalidIdentifier
	}
}

// ID returns the room id and whether the reference is by id.
func (r RoomRef) ID() (uint64, bool) { return r.id, r.id != 0 }

// Name returns the legacy name and whether the reference is by name.
func (r RoomRef) Name() (string, bool) { return r.name, r.id == 0 && r.name != "" }

// IsZero reports whether the reference identifies nothing.
func (r RoomRef) IsZero() bool { return r.id == 0 && r.name == "" }

// Equal reports whether both references point at the same room in the
// same identification scheme.
func (r RoomRef) Equal(o RoomRef) bool { return r.id == o.id && r.name == o.name }

// LockKey is the name used to serialize bookings on this room.
func (r RoomRef) LockKey() string {
	if r.id != 0 {
		return "room:id:" + strconv.FormatUint(r.id, 10)
	}
	return "room:name:" + r.name
}

func (r RoomRef) String() string {
	if r.id != 0 {
		return "room#" + strconv.FormatUint(r.id, 10)
	}
	if r.name == "" {
		return "room(none)"
	}
	return "room(" + strconv.Quote(r.name) + ")"
}
