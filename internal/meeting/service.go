package meeting

import (
	"context"
	"time"

	"meettrack/internal/apperr"
	"meettrack/internal/metrics"
	"meettrack/internal/model"
)

// Store is the persistence boundary for meetings and attendance.
type Store interface {
	CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	GetMeeting(ctx context.Context, id string) (model.Meeting, error)
	// LatestMeeting returns the meeting with the maximum date value, or a
	// not-found error when no meeting exists.
	LatestMeeting(ctx context.Context) (model.Meeting, error)
	ListMeetings(ctx context.Context) ([]model.Meeting, error)
	UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	GetAttendance(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error)
	// RecordAttendance atomically inserts the record and bumps the user's
	// counters (the late counter only when late is true). The caller never
	// observes a partial write; a duplicate (user, meeting) pair is a
	// conflict even under concurrent calls.
	RecordAttendance(ctx context.Context, rec model.AttendanceRecord, late bool) error
}

// UserGetter resolves user ids; satisfied by the member store.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

// Service implements meeting CRUD and the attendance engine.
type Service struct {
	store Store
	users UserGetter
	cache *LatestCache
}

// NewService creates a meeting service. cache may be nil.
func NewService(store Store, users UserGetter, cache *LatestCache) *Service {
	return &Service{store: store, users: users, cache: cache}
}

// RecordAttendance records the user's attendance against the most recently
// scheduled meeting, computing the signed lateness offset.
func (s *Service) RecordAttendance(ctx context.Context, userID string, arrivalTime time.Time) (model.AttendanceRecord, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return model.AttendanceRecord{}, err
	}

	target, err := s.latest(ctx)
	if err != nil {
		return model.AttendanceRecord{}, err
	}

	if _, err := s.store.GetAttendance(ctx, userID, target.ID); err == nil {
		return model.AttendanceRecord{}, apperr.Conflict("You have already attended this meeting")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return model.AttendanceRecord{}, err
	}

	lateTime := arrivalTime.Sub(target.Date)
	rec := model.AttendanceRecord{
		UserID:     userID,
		MeetingID:  target.ID,
		LateTime:   lateTime,
		AttendedAt: arrivalTime,
	}
	if err := s.store.RecordAttendance(ctx, rec, lateTime > 0); err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.AttendanceRecorded.Inc()
	rec.Meeting = &target
	return rec, nil
}

// Create stores a new meeting. The materializer and admin handlers both go
// through here so title validation and date uniqueness hold everywhere.
func (s *Service) Create(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	if m.Title == "" {
		m.Title = model.DefaultMeetingTitle
	}
	if !model.ValidTitle(m.Title) {
		return model.Meeting{}, apperr.Invalid("Unknown meeting title")
	}
	if m.Date.IsZero() {
		return model.Meeting{}, apperr.Invalid("Meeting date is required")
	}
	created, err := s.store.CreateMeeting(ctx, m)
	if err != nil {
		return model.Meeting{}, err
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

// Get returns a single meeting.
func (s *Service) Get(ctx context.Context, id string) (model.Meeting, error) {
	return s.store.GetMeeting(ctx, id)
}

// List returns all meetings.
func (s *Service) List(ctx context.Context) ([]model.Meeting, error) {
	return s.store.ListMeetings(ctx)
}

// UpdateInput carries the patchable meeting fields.
type UpdateInput struct {
	Title string
	Date  *time.Time
}

// Update patches a meeting's title and/or date.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (model.Meeting, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return model.Meeting{}, err
	}
	if in.Title != "" {
		if !model.ValidTitle(in.Title) {
			return model.Meeting{}, apperr.Invalid("Unknown meeting title")
		}
		m.Title = in.Title
	}
	if in.Date != nil {
		m.Date = *in.Date
	}
	updated, err := s.store.UpdateMeeting(ctx, m)
	if err != nil {
		return model.Meeting{}, err
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

// Delete removes a meeting and, through the store, its attendance records.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) latest(ctx context.Context) (model.Meeting, error) {
	if m, ok := s.cache.Get(ctx); ok {
		return m, nil
	}
	m, err := s.store.LatestMeeting(ctx)
	if err != nil {
		return model.Meeting{}, err
	}
	s.cache.Set(ctx, m)
	return m, nil
}
