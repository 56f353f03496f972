package model

import "time"

// Room is a bookable meeting room.  Rooms are created and managed by
// administrators; only the creator may change or delete one.
type Room struct {
	ID          uint64    // salas.id
	Name        string    // salas.nome
	Location    string    // salas.local
	Capacity    *uint32   // salas.capacidade (nullable, >= 1)
	Description *string   // salas.descricao (nullable)
	CreatorID   uint64    // salas.criador_id
	IsActive    bool      // salas.ativa
	CreatedAt   time.Time // salas.created_at
	UpdatedAt   time.Time // salas.updated_at
}
