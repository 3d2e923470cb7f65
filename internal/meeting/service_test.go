package meeting_test

import (
	"context"
	"testing"
	"time"

	"meettrack/internal/apperr"
	"meettrack/internal/meeting"
	"meettrack/internal/model"
	"meettrack/internal/store/inmem"
)

func newService(t *testing.T) (*meeting.Service, *inmem.DB) {
	t.Helper()
	db := inmem.New()
	return meeting.NewService(db, db, nil), db
}

func seedUser(t *testing.T, db *inmem.DB) model.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), model.User{
		Name:       "Budi",
		Email:      "budi@example.com",
		Role:       model.RoleUser,
		Position:   "Kru Kontrol",
		Division:   "Kontrol",
		Generation: 12,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedMeeting(t *testing.T, db *inmem.DB, date time.Time) model.Meeting {
	t.Helper()
	m, err := db.CreateMeeting(context.Background(), model.Meeting{
		Title:    "Ngoprek",
		Division: "Kontrol",
		Date:     date,
	})
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	return m
}

func TestRecordAttendanceLate(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	m := seedMeeting(t, db, start)

	rec, err := svc.RecordAttendance(ctx, user.ID, start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	if rec.LateTime != 5*time.Minute {
		t.Fatalf("late time = %v, want 5m", rec.LateTime)
	}
	if rec.MeetingID != m.ID {
		t.Fatalf("meeting id = %s, want %s", rec.MeetingID, m.ID)
	}
	if rec.Meeting == nil || rec.Meeting.ID != m.ID {
		t.Fatalf("expected the target meeting joined on the record")
	}

	got, err := db.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.TotalMeetingsAttended != 1 || got.TotalLateMeetingsAttended != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", got.TotalMeetingsAttended, got.TotalLateMeetingsAttended)
	}
}

func TestRecordAttendanceOnTime(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	seedMeeting(t, db, start)

	rec, err := svc.RecordAttendance(ctx, user.ID, start)
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	if rec.LateTime != 0 {
		t.Fatalf("late time = %v, want 0", rec.LateTime)
	}

	got, _ := db.GetUser(ctx, user.ID)
	if got.TotalMeetingsAttended != 1 || got.TotalLateMeetingsAttended != 0 {
		t.Fatalf("counters = %d/%d, want 1/0", got.TotalMeetingsAttended, got.TotalLateMeetingsAttended)
	}
}

func TestRecordAttendanceEarlyIsNegative(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	seedMeeting(t, db, start)

	rec, err := svc.RecordAttendance(ctx, user.ID, start.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	if rec.LateTime != -10*time.Minute {
		t.Fatalf("late time = %v, want -10m", rec.LateTime)
	}

	got, _ := db.GetUser(ctx, user.ID)
	if got.TotalLateMeetingsAttended != 0 {
		t.Fatalf("early arrival must not bump the late counter")
	}
}

func TestRecordAttendanceTwiceConflicts(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	seedMeeting(t, db, start)

	if _, err := svc.RecordAttendance(ctx, user.ID, start.Add(5*time.Minute)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := svc.RecordAttendance(ctx, user.ID, start.Add(20*time.Minute))
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second record err = %v, want conflict", err)
	}

	got, _ := db.GetUser(ctx, user.ID)
	if got.TotalMeetingsAttended != 1 || got.TotalLateMeetingsAttended != 1 {
		t.Fatalf("counters changed on rejected duplicate: %d/%d", got.TotalMeetingsAttended, got.TotalLateMeetingsAttended)
	}
}

func TestRecordAttendanceTargetsLatestMeeting(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	seedMeeting(t, db, time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC))
	latest := seedMeeting(t, db, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))

	rec, err := svc.RecordAttendance(ctx, user.ID, time.Date(2024, time.January, 10, 9, 1, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	if rec.MeetingID != latest.ID {
		t.Fatalf("recorded against %s, want latest meeting %s", rec.MeetingID, latest.ID)
	}
}

func TestRecordAttendanceUnknownUser(t *testing.T) {
	svc, db := newService(t)
	seedMeeting(t, db, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))

	_, err := svc.RecordAttendance(context.Background(), "nope", time.Now())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRecordAttendanceNoMeetings(t *testing.T) {
	svc, db := newService(t)
	user := seedUser(t, db)

	_, err := svc.RecordAttendance(context.Background(), user.ID, time.Now())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateDefaultsTitle(t *testing.T) {
	svc, _ := newService(t)
	m, err := svc.Create(context.Background(), model.Meeting{
		Division: "Mekanik",
		Date:     time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Title != model.DefaultMeetingTitle {
		t.Fatalf("title = %q, want %q", m.Title, model.DefaultMeetingTitle)
	}
}

func TestCreateRejectsUnknownTitle(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), model.Meeting{
		Title:    "Standup",
		Division: "Kontrol",
		Date:     time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC),
	})
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestCreateRequiresDate(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), model.Meeting{Division: "Kontrol"})
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestCreateRejectsDuplicateDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	date := time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.Create(ctx, model.Meeting{Division: "Kontrol", Date: date}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, model.Meeting{Division: "Mekanik", Date: date})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestUpdateMeeting(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	m := seedMeeting(t, db, time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC))

	newDate := time.Date(2024, time.February, 2, 10, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, m.ID, meeting.UpdateInput{Title: "Ideation", Date: &newDate})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Ideation" || !updated.Date.Equal(newDate) {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := svc.Update(ctx, m.ID, meeting.UpdateInput{Title: "Standup"}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("unknown title err = %v, want invalid", err)
	}
	if _, err := svc.Update(ctx, "nope", meeting.UpdateInput{Title: "Ideation"}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown id err = %v, want not found", err)
	}
}

func TestDeleteMeetingCascadesAttendance(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := seedUser(t, db)
	start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	m := seedMeeting(t, db, start)

	if _, err := svc.RecordAttendance(ctx, user.ID, start); err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, err := db.ListAttendanceByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list attendance: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("attendance survived meeting delete: %d records", len(recs))
	}
}
