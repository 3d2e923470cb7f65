package schedule_test

import (
	"context"
	"testing"
	"time"

	"meettrack/internal/apperr"
	"meettrack/internal/clock"
	"meettrack/internal/meeting"
	"meettrack/internal/model"
	"meettrack/internal/schedule"
	"meettrack/internal/store/inmem"
)

// monday is a Monday midnight, the epoch for these tests.
var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

func newRegistry(t *testing.T) (*schedule.Registry, *clock.Fake, *inmem.DB) {
	t.Helper()
	db := inmem.New()
	fk := clock.NewFake(monday)
	meetings := meeting.NewService(db, db, nil)
	reg := schedule.NewRegistry(db, meetings, fk, time.UTC)
	t.Cleanup(reg.Close)
	return reg, fk, db
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within 2s")
}

func mustMeetings(t *testing.T, db *inmem.DB) []model.Meeting {
	t.Helper()
	meetings, err := db.ListMeetings(context.Background())
	if err != nil {
		t.Fatalf("list meetings: %v", err)
	}
	return meetings
}

func TestRecurringScheduleMaterializesEveryWeek(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	def, err := reg.Create(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if !def.Active {
		t.Fatalf("created schedule should be active")
	}

	fk.BlockUntil(1)
	fk.Advance(9 * time.Hour) // first Monday 09:00
	fk.BlockUntil(1)          // task re-armed, so the fire completed

	meetings := mustMeetings(t, db)
	if len(meetings) != 1 {
		t.Fatalf("meetings = %d, want 1", len(meetings))
	}
	want := monday.Add(9 * time.Hour)
	if !meetings[0].Date.Equal(want) {
		t.Fatalf("meeting date = %v, want %v", meetings[0].Date, want)
	}
	if meetings[0].Title != model.DefaultMeetingTitle || meetings[0].Division != "Kontrol" {
		t.Fatalf("materialized meeting = %+v", meetings[0])
	}

	fk.Advance(week)
	fk.BlockUntil(1)
	fk.Advance(week)
	fk.BlockUntil(1)

	if got := len(mustMeetings(t, db)); got != 3 {
		t.Fatalf("meetings after three ticks = %d, want 3", got)
	}
}

func TestOneShotScheduleFiresOnce(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	def, err := reg.Create(ctx, model.Schedule{Division: "Mekanik", Day: "Monday", Hour: 9, Minute: 30, IsJustOnce: true})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	fk.BlockUntil(1)
	fk.Advance(9*time.Hour + 30*time.Minute)

	waitFor(t, func() bool {
		got, err := db.GetSchedule(ctx, def.ID)
		return err == nil && !got.Active
	})
	if got := len(mustMeetings(t, db)); got != 1 {
		t.Fatalf("meetings = %d, want 1", got)
	}
	if fk.PendingTimers() != 0 {
		t.Fatalf("one-shot task left a timer armed")
	}

	// Nothing left to fire even a month later.
	fk.Advance(4 * week)
	if got := len(mustMeetings(t, db)); got != 1 {
		t.Fatalf("one-shot fired again: %d meetings", got)
	}

	// The row survives self-deactivation and can still be deleted.
	if err := reg.Delete(ctx, def.ID); err != nil {
		t.Fatalf("delete after self-deactivation: %v", err)
	}
}

func TestDateEndStopsSchedule(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	end := monday.Add(week) // next Monday midnight
	def, err := reg.Create(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0, DateEnd: &end})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	fk.BlockUntil(1)
	fk.Advance(9 * time.Hour)

	// The tick after the fire falls past dateEnd, so the task deactivates
	// itself instead of re-arming.
	waitFor(t, func() bool {
		got, err := db.GetSchedule(ctx, def.ID)
		return err == nil && !got.Active
	})
	if got := len(mustMeetings(t, db)); got != 1 {
		t.Fatalf("meetings = %d, want 1", got)
	}
}

func TestDateEndBeforeFirstFire(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	end := monday.Add(6 * time.Hour) // before the 09:00 slot
	def, err := reg.Create(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0, DateEnd: &end})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	waitFor(t, func() bool {
		got, err := db.GetSchedule(ctx, def.ID)
		return err == nil && !got.Active
	})
	if got := len(mustMeetings(t, db)); got != 0 {
		t.Fatalf("schedule fired past its dateEnd: %d meetings", got)
	}
	if fk.PendingTimers() != 0 {
		t.Fatalf("expired schedule left a timer armed")
	}
}

func TestDeleteStopsFiring(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	def, err := reg.Create(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	fk.BlockUntil(1)

	if err := reg.Delete(ctx, def.ID); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}
	if _, err := db.GetSchedule(ctx, def.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("schedule row survived delete: %v", err)
	}
	if fk.PendingTimers() != 0 {
		t.Fatalf("deleted schedule left a timer armed")
	}

	fk.Advance(4 * week)
	if got := len(mustMeetings(t, db)); got != 0 {
		t.Fatalf("deleted schedule fired: %d meetings", got)
	}

	if err := reg.Delete(ctx, def.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}

func TestCreateValidation(t *testing.T) {
	reg, _, db := newRegistry(t)
	ctx := context.Background()

	cases := []model.Schedule{
		{Division: "Kontrol", Day: "Funday", Hour: 9, Minute: 0},
		{Division: "Kontrol", Day: "Monday", Hour: 24, Minute: 0},
		{Division: "Kontrol", Day: "Monday", Hour: -1, Minute: 0},
		{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 60},
		{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: -1},
	}
	for _, def := range cases {
		if _, err := reg.Create(ctx, def); apperr.KindOf(err) != apperr.KindInvalid {
			t.Fatalf("create %+v err = %v, want invalid", def, err)
		}
	}

	defs, err := db.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("list schedules: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("invalid schedules were persisted: %d", len(defs))
	}
}

func TestRestoreStartsOnlyActiveSchedules(t *testing.T) {
	db := inmem.New()
	fk := clock.NewFake(monday)
	meetings := meeting.NewService(db, db, nil)
	ctx := context.Background()

	if _, err := db.CreateSchedule(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0, Active: true}); err != nil {
		t.Fatalf("seed active schedule: %v", err)
	}
	if _, err := db.CreateSchedule(ctx, model.Schedule{Division: "Mekanik", Day: "Tuesday", Hour: 9, Minute: 0, Active: false}); err != nil {
		t.Fatalf("seed inactive schedule: %v", err)
	}

	reg := schedule.NewRegistry(db, meetings, fk, time.UTC)
	t.Cleanup(reg.Close)
	if err := reg.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	fk.BlockUntil(1)
	if got := fk.PendingTimers(); got != 1 {
		t.Fatalf("pending timers after restore = %d, want 1", got)
	}

	fk.Advance(9 * time.Hour)
	fk.BlockUntil(1)

	got, err := db.ListMeetings(ctx)
	if err != nil {
		t.Fatalf("list meetings: %v", err)
	}
	if len(got) != 1 || got[0].Division != "Kontrol" {
		t.Fatalf("restored firing = %+v, want one Kontrol meeting", got)
	}
}

func TestCloseStopsAllTasks(t *testing.T) {
	reg, fk, db := newRegistry(t)
	ctx := context.Background()

	if _, err := reg.Create(ctx, model.Schedule{Division: "Kontrol", Day: "Monday", Hour: 9, Minute: 0}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if _, err := reg.Create(ctx, model.Schedule{Division: "Mekanik", Day: "Wednesday", Hour: 19, Minute: 0}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	fk.BlockUntil(2)

	reg.Close()
	if got := fk.PendingTimers(); got != 0 {
		t.Fatalf("pending timers after close = %d, want 0", got)
	}

	fk.Advance(4 * week)
	if got := len(mustMeetings(t, db)); got != 0 {
		t.Fatalf("closed registry fired: %d meetings", got)
	}
}
