package schedule

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"meettrack/internal/apperr"
	"meettrack/internal/model"
)

// Repository persists schedule definitions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// CreateSchedule inserts a new definition, generating its identifier.
func (r *Repository) CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meeting_schedules (id, division, day, hour, minute, is_just_once, date_end, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, s.Division, s.Day, s.Hour, s.Minute, s.IsJustOnce, s.DateEnd, s.Active)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return model.Schedule{}, apperr.Internal(err)
	}
	return s, nil
}

// GetSchedule returns a definition by id.
func (r *Repository) GetSchedule(ctx context.Context, id string) (model.Schedule, error) {
	var s model.Schedule
	err := r.db.QueryRowContext(ctx, `
		SELECT id, division, day, hour, minute, is_just_once, date_end, active, created_at
		FROM meeting_schedules WHERE id = $1
	`, id).Scan(&s.ID, &s.Division, &s.Day, &s.Hour, &s.Minute, &s.IsJustOnce, &s.DateEnd, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Schedule{}, apperr.NotFound("Schedule not found")
		}
		return model.Schedule{}, apperr.Internal(err)
	}
	return s, nil
}

// ListSchedules returns all persisted definitions.
func (r *Repository) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return r.list(ctx, `
		SELECT id, division, day, hour, minute, is_just_once, date_end, active, created_at
		FROM meeting_schedules ORDER BY created_at
	`)
}

// ListActiveSchedules returns definitions whose tasks should be running.
func (r *Repository) ListActiveSchedules(ctx context.Context) ([]model.Schedule, error) {
	return r.list(ctx, `
		SELECT id, division, day, hour, minute, is_just_once, date_end, active, created_at
		FROM meeting_schedules WHERE active ORDER BY created_at
	`)
}

// SetScheduleActive flips the active flag.
func (r *Repository) SetScheduleActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE meeting_schedules SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Schedule not found")
	}
	return nil
}

// DeleteSchedule removes the definition.
func (r *Repository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meeting_schedules WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Schedule not found")
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string) ([]model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var defs []model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ID, &s.Division, &s.Day, &s.Hour, &s.Minute, &s.IsJustOnce,
			&s.DateEnd, &s.Active, &s.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		defs = append(defs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return defs, nil
}
