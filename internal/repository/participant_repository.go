package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/meeting-room-booking/internal/model"
)

// ParticipantRepo persists rows of the 'reserva_participantes' table.  The
// (reserva_id, usuario_id) pair carries a unique key.
type ParticipantRepo struct{ DB *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{DB: db} }

const participantColumns = "p.id, p.reserva_id, p.usuario_id, p.notificado, p.visto, p.created_at"

func scanParticipant(s rowScanner) (model.Participant, error) {
	var p model.Participant
	err := s.Scan(&p.ID, &p.ReservationID, &p.UserID, &p.Notified, &p.Seen, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, ErrNotFound
	}
	return p, err
}

// GetParticipant returns the participant row for the pair or ErrNotFound.
func (r *ParticipantRepo) GetParticipant(ctx context.Context, reservationID, userID uint64) (model.Participant, error) {
	return scanParticipant(r.DB.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM reserva_participantes p WHERE p.reserva_id=? AND p.usuario_id=?",
		reservationID, userID))
}

// CreateParticipant inserts p with both flags false.  A second insert for
// the same pair fails with ErrDuplicate.
func (r *ParticipantRepo) CreateParticipant(ctx context.Context, p *model.Participant) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO reserva_participantes (reserva_id, usuario_id, notificado, visto) VALUES (?,?,FALSE,FALSE)",
		p.ReservationID, p.UserID)
	if err != nil {
		return mapWriteErr(err)
	}
	created, err := r.GetParticipant(ctx, p.ReservationID, p.UserID)
	if err != nil {
		return err
	}
	*p = created
	return nil
}

// DeleteParticipant reports whether a row was removed.
func (r *ParticipantRepo) DeleteParticipant(ctx context.Context, reservationID, userID uint64) (bool, error) {
	return r.execAffected(ctx,
		"DELETE FROM reserva_participantes WHERE reserva_id=? AND usuario_id=?", reservationID, userID)
}

// MarkNotified sets notificado for the pair.  It reports false when no such
// pair exists; the DSN sets clientFoundRows so an already set flag still
// counts as found.
func (r *ParticipantRepo) MarkNotified(ctx context.Context, reservationID, userID uint64) (bool, error) {
	return r.execAffected(ctx,
		"UPDATE reserva_participantes SET notificado=TRUE WHERE reserva_id=? AND usuario_id=?", reservationID, userID)
}

// MarkSeen sets visto for the pair.
func (r *ParticipantRepo) MarkSeen(ctx context.Context, reservationID, userID uint64) (bool, error) {
	return r.execAffected(ctx,
		"UPDATE reserva_participantes SET visto=TRUE WHERE reserva_id=? AND usuario_id=?", reservationID, userID)
}

func (r *ParticipantRepo) execAffected(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountUnseen counts the invitations the user has not acknowledged.
func (r *ParticipantRepo) CountUnseen(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reserva_participantes WHERE usuario_id=? AND visto=FALSE", userID).Scan(&n)
	return n, err
}

// ListByReservation returns the participants of a reservation, latest
// invitation first.
func (r *ParticipantRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Participant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM reserva_participantes p WHERE p.reserva_id=? ORDER BY p.created_at DESC, p.id DESC",
		reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListInvitations returns the user's participant rows joined with their
// reservations, newest invitation first.
func (r *ParticipantRepo) ListInvitations(ctx context.Context, userID uint64, f InvitationFilter) ([]model.Invitation, error) {
	q := `SELECT ` + participantColumns + `,
                 r.id, r.sala_id, r.sala, r.local, r.data_hora_inicio, r.data_hora_fim, r.responsavel_id,
                 r.cafe_quantidade, r.cafe_descricao, r.link_meet, r.created_at, r.updated_at
          FROM reserva_participantes p
          JOIN reservas r ON r.id = p.reserva_id
          WHERE p.usuario_id = ?`
	if f.OnlyUnnotified {
		q += " AND p.notificado = FALSE"
	}
	if f.OnlyUnseen {
		q += " AND p.visto = FALSE"
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// scanInvitation reads the participant columns followed by the reservation
// columns of one joined row.
func scanInvitation(rows *sql.Rows) (model.Invitation, error) {
	var inv model.Invitation
	p := &inv.Participant
	res, err := scanReservationAfter(rows, &p.ID, &p.ReservationID, &p.UserID, &p.Notified, &p.Seen, &p.CreatedAt)
	if err != nil {
		return model.Invitation{}, err
	}
	inv.Reservation = res
	return inv, nil
}
