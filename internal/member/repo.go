package member

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"meettrack/internal/apperr"
	"meettrack/internal/model"
)

// Repository persists users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const userColumns = `id, name, email, password_hash, role, position, division, generation,
	avatar_url, date_of_birth, total_meetings_attended, total_late_meetings_attended, created_at`

// CreateUser inserts a new user. A duplicate email surfaces as a conflict.
func (r *Repository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, position, division, generation, avatar_url, date_of_birth)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Position, u.Division, u.Generation, u.AvatarURL, u.DateOfBirth)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, apperr.Conflict("Email already exists")
		}
		return model.User{}, apperr.Internal(err)
	}
	return u, nil
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// ListUsers returns all users ordered by generation then name.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY generation, name`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// UpdateUser saves profile fields. Counters and password are not touched here.
func (r *Repository) UpdateUser(ctx context.Context, u model.User) (model.User, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, position = $4, division = $5, generation = $6, avatar_url = $7, date_of_birth = $8
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.Position, u.Division, u.Generation, u.AvatarURL, u.DateOfBirth)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, apperr.Conflict("Email already exists")
		}
		return model.User{}, apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.User{}, apperr.NotFound("User not found")
	}
	return r.GetUser(ctx, u.ID)
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// DeleteUser removes the user; attendance rows cascade via the foreign key.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// ListAttendanceByUser returns attendance records with their meetings joined.
func (r *Repository) ListAttendanceByUser(ctx context.Context, userID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT um.id, um.user_id, um.meeting_id, um.late_time_ns, um.attended_at,
		       m.id, m.title, m.division, m.date, m.created_at
		FROM user_meetings um
		JOIN meetings m ON m.id = um.meeting_id
		WHERE um.user_id = $1
		ORDER BY m.date DESC
	`, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var recs []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		var m model.Meeting
		var lateNS int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.MeetingID, &lateNS, &rec.AttendedAt,
			&m.ID, &m.Title, &m.Division, &m.Date, &m.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		rec.LateTime = time.Duration(lateNS)
		rec.Meeting = &m
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanUser(row *sql.Row) (model.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apperr.NotFound("User not found")
		}
		return model.User{}, apperr.Internal(err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Position, &u.Division,
		&u.Generation, &u.AvatarURL, &u.DateOfBirth, &u.TotalMeetingsAttended,
		&u.TotalLateMeetingsAttended, &u.CreatedAt)
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
