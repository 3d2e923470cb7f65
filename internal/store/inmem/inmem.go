// Package inmem is a map-backed implementation of the domain stores. It backs
// tests and the STORE_BACKEND=memory dev mode; Postgres is the production
// backend.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meettrack/internal/apperr"
	"meettrack/internal/member"
	"meettrack/internal/meeting"
	"meettrack/internal/model"
	"meettrack/internal/schedule"
)

// DB holds every table behind one lock. Compound operations hold the lock for
// their whole span, which gives the same all-or-nothing behavior the Postgres
// repos get from transactions.
type DB struct {
	mu         sync.RWMutex
	users      map[string]*model.User
	meetings   map[string]*model.Meeting
	attendance map[string]*model.AttendanceRecord
	schedules  map[string]*model.Schedule
	now        func() time.Time
}

var (
	_ member.Store   = (*DB)(nil)
	_ meeting.Store  = (*DB)(nil)
	_ schedule.Store = (*DB)(nil)
)

// New creates an empty in-memory store.
func New() *DB {
	return &DB{
		users:      make(map[string]*model.User),
		meetings:   make(map[string]*model.Meeting),
		attendance: make(map[string]*model.AttendanceRecord),
		schedules:  make(map[string]*model.Schedule),
		now:        time.Now,
	}
}

// ---------- users ----------

func (d *DB) CreateUser(_ context.Context, u model.User) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, other := range d.users {
		if other.Email == u.Email {
			return model.User{}, apperr.Conflict("Email already exists")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = d.now()
	d.users[u.ID] = &u
	return u, nil
}

func (d *DB) GetUser(_ context.Context, id string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[id]; ok {
		return *u, nil
	}
	return model.User{}, apperr.NotFound("User not found")
}

func (d *DB) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, apperr.NotFound("User not found")
}

func (d *DB) ListUsers(_ context.Context) ([]model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	users := make([]model.User, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Generation != users[j].Generation {
			return users[i].Generation < users[j].Generation
		}
		return users[i].Name < users[j].Name
	})
	return users, nil
}

func (d *DB) UpdateUser(_ context.Context, u model.User) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	orig, ok := d.users[u.ID]
	if !ok {
		return model.User{}, apperr.NotFound("User not found")
	}
	for _, other := range d.users {
		if other.ID != u.ID && other.Email == u.Email {
			return model.User{}, apperr.Conflict("Email already exists")
		}
	}
	orig.Name = u.Name
	orig.Email = u.Email
	orig.Position = u.Position
	orig.Division = u.Division
	orig.Generation = u.Generation
	orig.AvatarURL = u.AvatarURL
	orig.DateOfBirth = u.DateOfBirth
	return *orig, nil
}

func (d *DB) UpdatePassword(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return apperr.NotFound("User not found")
	}
	u.PasswordHash = hash
	return nil
}

func (d *DB) DeleteUser(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return apperr.NotFound("User not found")
	}
	delete(d.users, id)
	for recID, rec := range d.attendance {
		if rec.UserID == id {
			delete(d.attendance, recID)
		}
	}
	return nil
}

func (d *DB) ListAttendanceByUser(_ context.Context, userID string) ([]model.AttendanceRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var recs []model.AttendanceRecord
	for _, rec := range d.attendance {
		if rec.UserID != userID {
			continue
		}
		out := *rec
		if m, ok := d.meetings[rec.MeetingID]; ok {
			cp := *m
			out.Meeting = &cp
		}
		recs = append(recs, out)
	}
	sort.Slice(recs, func(i, j int) bool {
		var di, dj time.Time
		if recs[i].Meeting != nil {
			di = recs[i].Meeting.Date
		}
		if recs[j].Meeting != nil {
			dj = recs[j].Meeting.Date
		}
		return di.After(dj)
	})
	return recs, nil
}

// ---------- meetings ----------

func (d *DB) CreateMeeting(_ context.Context, m model.Meeting) (model.Meeting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, other := range d.meetings {
		if other.Date.Equal(m.Date) {
			return model.Meeting{}, apperr.Conflict("A meeting already exists at that date")
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = d.now()
	d.meetings[m.ID] = &m
	return m, nil
}

func (d *DB) GetMeeting(_ context.Context, id string) (model.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.meetings[id]; ok {
		return *m, nil
	}
	return model.Meeting{}, apperr.NotFound("Meeting not found")
}

func (d *DB) LatestMeeting(_ context.Context) (model.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var latest *model.Meeting
	for _, m := range d.meetings {
		if latest == nil || m.Date.After(latest.Date) {
			latest = m
		}
	}
	if latest == nil {
		return model.Meeting{}, apperr.NotFound("Meeting not found")
	}
	return *latest, nil
}

func (d *DB) ListMeetings(_ context.Context) ([]model.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	meetings := make([]model.Meeting, 0, len(d.meetings))
	for _, m := range d.meetings {
		meetings = append(meetings, *m)
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].Date.After(meetings[j].Date) })
	return meetings, nil
}

func (d *DB) UpdateMeeting(_ context.Context, m model.Meeting) (model.Meeting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	orig, ok := d.meetings[m.ID]
	if !ok {
		return model.Meeting{}, apperr.NotFound("Meeting not found")
	}
	for _, other := range d.meetings {
		if other.ID != m.ID && other.Date.Equal(m.Date) {
			return model.Meeting{}, apperr.Conflict("A meeting already exists at that date")
		}
	}
	orig.Title = m.Title
	orig.Date = m.Date
	return *orig, nil
}

func (d *DB) DeleteMeeting(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.meetings[id]; !ok {
		return apperr.NotFound("Meeting not found")
	}
	delete(d.meetings, id)
	for recID, rec := range d.attendance {
		if rec.MeetingID == id {
			delete(d.attendance, recID)
		}
	}
	return nil
}

func (d *DB) GetAttendance(_ context.Context, userID, meetingID string) (model.AttendanceRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rec := range d.attendance {
		if rec.UserID == userID && rec.MeetingID == meetingID {
			return *rec, nil
		}
	}
	return model.AttendanceRecord{}, apperr.NotFound("Attendance record not found")
}

func (d *DB) RecordAttendance(_ context.Context, rec model.AttendanceRecord, late bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, other := range d.attendance {
		if other.UserID == rec.UserID && other.MeetingID == rec.MeetingID {
			return apperr.Conflict("You have already attended this meeting")
		}
	}
	u, ok := d.users[rec.UserID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Meeting = nil
	d.attendance[rec.ID] = &rec
	u.TotalMeetingsAttended++
	if late {
		u.TotalLateMeetingsAttended++
	}
	return nil
}

// ---------- schedules ----------

func (d *DB) CreateSchedule(_ context.Context, s model.Schedule) (model.Schedule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = d.now()
	d.schedules[s.ID] = &s
	return s, nil
}

func (d *DB) GetSchedule(_ context.Context, id string) (model.Schedule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.schedules[id]; ok {
		return *s, nil
	}
	return model.Schedule{}, apperr.NotFound("Schedule not found")
}

func (d *DB) ListSchedules(_ context.Context) ([]model.Schedule, error) {
	return d.listSchedules(func(*model.Schedule) bool { return true })
}

func (d *DB) ListActiveSchedules(_ context.Context) ([]model.Schedule, error) {
	return d.listSchedules(func(s *model.Schedule) bool { return s.Active })
}

func (d *DB) SetScheduleActive(_ context.Context, id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.schedules[id]
	if !ok {
		return apperr.NotFound("Schedule not found")
	}
	s.Active = active
	return nil
}

func (d *DB) DeleteSchedule(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.schedules[id]; !ok {
		return apperr.NotFound("Schedule not found")
	}
	delete(d.schedules, id)
	return nil
}

func (d *DB) listSchedules(keep func(*model.Schedule) bool) ([]model.Schedule, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var defs []model.Schedule
	for _, s := range d.schedules {
		if keep(s) {
			defs = append(defs, *s)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })
	return defs, nil
}
