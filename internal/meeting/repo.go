package meeting

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

// Repository persists meetings and attendance in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// CreateMeeting inserts a new meeting. Dates are unique across meetings.
func (r *Repository) CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meetings (id, title, division, date)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, m.ID, m.Title, m.Division, m.Date)
	if err := row.Scan(&m.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.Meeting{}, apperr.Conflict("A meeting already exists at that date")
		}
		return model.Meeting{}, apperr.Internal(err)
	}
	return m, nil
}

// GetMeeting returns a meeting by id.
func (r *Repository) GetMeeting(ctx context.Context, id string) (model.Meeting, error) {
	return r.scanMeeting(r.db.QueryRowContext(ctx, `
		SELECT id, title, division, date, created_at FROM meetings WHERE id = $1
	`, id))
}

// LatestMeeting returns the meeting with the maximum date value.
func (r *Repository) LatestMeeting(ctx context.Context) (model.Meeting, error) {
	return r.scanMeeting(r.db.QueryRowContext(ctx, `
		SELECT id, title, division, date, created_at FROM meetings ORDER BY date DESC LIMIT 1
	`))
}

// ListMeetings returns all meetings, newest first.
func (r *Repository) ListMeetings(ctx context.Context) ([]model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, division, date, created_at FROM meetings ORDER BY date DESC
	`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		var m model.Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.Division, &m.Date, &m.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return meetings, nil
}

// UpdateMeeting saves title and date.
func (r *Repository) UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE meetings SET title = $2, date = $3 WHERE id = $1
	`, m.ID, m.Title, m.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Meeting{}, apperr.Conflict("A meeting already exists at that date")
		}
		return model.Meeting{}, apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Meeting{}, apperr.NotFound("Meeting not found")
	}
	return r.GetMeeting(ctx, m.ID)
}

// DeleteMeeting removes the meeting; attendance rows cascade.
func (r *Repository) DeleteMeeting(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Meeting not found")
	}
	return nil
}

// GetAttendance returns the record for one (user, meeting) pair.
func (r *Repository) GetAttendance(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	var lateNS int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, meeting_id, late_time_ns, attended_at
		FROM user_meetings WHERE user_id = $1 AND meeting_id = $2
	`, userID, meetingID).Scan(&rec.ID, &rec.UserID, &rec.MeetingID, &lateNS, &rec.AttendedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AttendanceRecord{}, apperr.NotFound("Attendance record not found")
		}
		return model.AttendanceRecord{}, apperr.Internal(err)
	}
	rec.LateTime = time.Duration(lateNS)
	return rec, nil
}

// RecordAttendance inserts the record and bumps the user's counters in one
// transaction. The unique index on (user_id, meeting_id) makes the insert the
// arbiter when two calls race: the loser sees a conflict, never a double
// count.
func (r *Repository) RecordAttendance(ctx context.Context, rec model.AttendanceRecord, late bool) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_meetings (id, user_id, meeting_id, late_time_ns, attended_at)
		VALUES ($1,$2,$3,$4,$5)
	`, rec.ID, rec.UserID, rec.MeetingID, int64(rec.LateTime), rec.AttendedAt); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("You have already attended this meeting")
		}
		return apperr.Internal(err)
	}

	lateBump := 0
	if late {
		lateBump = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET total_meetings_attended = total_meetings_attended + 1,
		    total_late_meetings_attended = total_late_meetings_attended + $2
		WHERE id = $1
	`, rec.UserID, lateBump); err != nil {
		return apperr.Internal(err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (r *Repository) scanMeeting(row *sql.Row) (model.Meeting, error) {
	var m model.Meeting
	if err := row.Scan(&m.ID, &m.Title, &m.Division, &m.Date, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Meeting{}, apperr.NotFound("Meeting not found")
		}
		return model.Meeting{}, apperr.Internal(err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
