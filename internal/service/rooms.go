package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
)

// RoomInput is the input of Rooms.Create.
type RoomInput struct {
	Name        string
	Location    string
	Capacity    *uint32
	Description *string
}

// RoomChanges is a partial room update.
type RoomChanges struct {
	Name        *string
	Location    *string
	Capacity    *uint32
	Description *string
	Active      *bool
}

// Rooms manages meeting rooms.  Only administrators create rooms, and only
// the creating administrator may change or delete one.
type Rooms struct {
	log   *slog.Logger
	rooms repository.RoomStore
}

func NewRooms(log *slog.Logger, rooms repository.RoomStore) *Rooms {
	return &Rooms{log: log, rooms: rooms}
}

func (s *Rooms) Create(ctx context.Context, actor Actor, in RoomInput) (model.Room, error) {
	const op = "service.Rooms.Create"
	if !actor.IsAdmin {
		return model.Room{}, fmt.Errorf("%s: %w", op, ErrNotAuthorized)
	}
	room := model.Room{
		Name:        strings.TrimSpace(in.Name),
		Location:    strings.TrimSpace(in.Location),
		Capacity:    in.Capacity,
		Description: in.Description,
		CreatorID:   actor.ID,
		IsActive:    true,
	}
	if err := validateRoom(room); err != nil {
		return model.Room{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.rooms.CreateRoom(ctx, &room); err != nil {
		s.log.Error("create room failed", slog.String("op", op), logger.Err(err))
		return model.Room{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("room created", slog.String("op", op), slog.Uint64("room_id", room.ID), slog.Uint64("creator_id", actor.ID))
	return room, nil
}

func (s *Rooms) Get(ctx context.Context, id uint64) (model.Room, error) {
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return model.Room{}, fmt.Errorf("service.Rooms.Get: %w", storageErr(err))
	}
	return room, nil
}

// List pages through rooms ordered by name.
func (s *Rooms) List(ctx context.Context, offset, limit int, onlyActive bool) ([]model.Room, error) {
	offset, limit = clampPage(offset, limit)
	return s.list(ctx, repository.RoomFilter{OnlyActive: onlyActive, Offset: offset, Limit: limit})
}

// ListByCreator pages through the rooms created by creator.
func (s *Rooms) ListByCreator(ctx context.Context, creator uint64, offset, limit int) ([]model.Room, error) {
	offset, limit = clampPage(offset, limit)
	return s.list(ctx, repository.RoomFilter{CreatorID: creator, Offset: offset, Limit: limit})
}

func (s *Rooms) list(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	out, err := s.rooms.ListRooms(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service.Rooms.List: %w", err)
	}
	if out == nil {
		out = []model.Room{}
	}
	return out, nil
}

func (s *Rooms) Update(ctx context.Context, actor Actor, id uint64, changes RoomChanges) (model.Room, error) {
	const op = "service.Rooms.Update"
	room, err := s.owned(ctx, actor, id)
	if err != nil {
		return model.Room{}, fmt.Errorf("%s: %w", op, err)
	}
	if changes.Name != nil {
		room.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.Location != nil {
		room.Location = strings.TrimSpace(*changes.Location)
	}
	if changes.Capacity != nil {
		room.Capacity = changes.Capacity
	}
	if changes.Description != nil {
		room.Description = changes.Description
	}
	if changes.Active != nil {
		room.IsActive = *changes.Active
	}
	if err := validateRoom(room); err != nil {
		return model.Room{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.rooms.UpdateRoom(ctx, &room); err != nil {
		return model.Room{}, fmt.Errorf("%s: %w", op, storageErr(err))
	}
	s.log.Info("room updated", slog.String("op", op), slog.Uint64("room_id", id))
	return room, nil
}

// Delete removes a room without reservations.
func (s *Rooms) Delete(ctx context.Context, actor Actor, id uint64) error {
	const op = "service.Rooms.Delete"
	if _, err := s.owned(ctx, actor, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := s.rooms.DeleteRoom(ctx, id)
	if errors.Is(err, repository.ErrInUse) {
		return fmt.Errorf("%s: %w", op, ErrRoomInUse)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, storageErr(err))
	}
	s.log.Info("room deleted", slog.String("op", op), slog.Uint64("room_id", id))
	return nil
}

func (s *Rooms) owned(ctx context.Context, actor Actor, id uint64) (model.Room, error) {
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Room{}, err
	}
	access := booking.CheckOwner(actor.ID, room.CreatorID, err == nil)
	if access == booking.Authorized && !actor.IsAdmin {
		access = booking.Forbidden
	}
	if access.Collapse() != booking.Authorized {
		return model.Room{}, ErrNotFound
	}
	return room, nil
}

func validateRoom(r model.Room) error {
	switch {
	case r.Name == "":
		return invalid("name", "required")
	case r.Location == "":
		return invalid("location", "required")
	case r.Capacity != nil && *r.Capacity < 1:
		return invalid("capacity", "must be >= 1")
	}
	return nil
}
