package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meettrack/internal/clock"
	"meettrack/internal/metrics"
	"meettrack/internal/model"
)

// Store is the persistence boundary for schedule definitions.
type Store interface {
	CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)
	GetSchedule(ctx context.Context, id string) (model.Schedule, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]model.Schedule, error)
	SetScheduleActive(ctx context.Context, id string, active bool) error
	DeleteSchedule(ctx context.Context, id string) error
}

// MeetingCreator materializes a meeting for a fired tick; satisfied by the
// meeting service.
type MeetingCreator interface {
	Create(ctx context.Context, m model.Meeting) (model.Meeting, error)
}

// Registry owns the live background tasks, one per active schedule. It is
// constructed at startup, passed by handle to whoever needs it, and closed at
// shutdown. Nothing else touches the task map.
type Registry struct {
	store    Store
	meetings MeetingCreator
	clk      clock.Clock
	loc      *time.Location

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

type task struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry with no running tasks.
func NewRegistry(store Store, meetings MeetingCreator, clk clock.Clock, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.Local
	}
	return &Registry{
		store:    store,
		meetings: meetings,
		clk:      clk,
		loc:      loc,
		tasks:    make(map[string]*task),
	}
}

// Create validates and persists the definition, then starts its background
// task. The persisted id is the stable handle for stop/delete.
func (r *Registry) Create(ctx context.Context, def model.Schedule) (model.Schedule, error) {
	rule, err := recurrenceRule(def.Day, def.Hour, def.Minute)
	if err != nil {
		return model.Schedule{}, err
	}
	def.Active = true
	created, err := r.store.CreateSchedule(ctx, def)
	if err != nil {
		return model.Schedule{}, err
	}
	r.start(created, rule)
	return created, nil
}

// Delete stops the schedule's task if it is still running, then removes the
// persisted definition. Stopping is synchronous: once Delete returns, the
// schedule can never fire again. A task that already self-deactivated is
// fine; only the row has to exist.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.store.GetSchedule(ctx, id); err != nil {
		return err
	}
	r.stopTask(id)
	return r.store.DeleteSchedule(ctx, id)
}

// List returns all persisted definitions, running or not.
func (r *Registry) List(ctx context.Context) ([]model.Schedule, error) {
	return r.store.ListSchedules(ctx)
}

// Restore re-registers background tasks for every active persisted definition.
// Called once at process start; without it a restart would silently drop all
// recurring meetings.
func (r *Registry) Restore(ctx context.Context) error {
	defs, err := r.store.ListActiveSchedules(ctx)
	if err != nil {
		return err
	}
	for _, def := range defs {
		rule, err := recurrenceRule(def.Day, def.Hour, def.Minute)
		if err != nil {
			log.Printf("schedule %s: skipping restore: %v", def.ID, err)
			continue
		}
		r.start(def, rule)
	}
	return nil
}

// Close stops every running task and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	tasks := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.tasks = make(map[string]*task)
	r.mu.Unlock()

	for _, t := range tasks {
		t.stopOnce.Do(func() { close(t.stop) })
		<-t.done
	}
}

func (r *Registry) start(def model.Schedule, rule cron.Schedule) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, exists := r.tasks[def.ID]; exists {
		r.mu.Unlock()
		return
	}
	t := &task{stop: make(chan struct{}), done: make(chan struct{})}
	r.tasks[def.ID] = t
	r.mu.Unlock()

	go r.run(def, rule, t)
}

// run is the per-schedule task loop. Each iteration arms a timer for the next
// occurrence; a fired tick materializes one meeting. Materialization failures
// are logged and the loop continues to the next tick.
func (r *Registry) run(def model.Schedule, rule cron.Schedule, t *task) {
	defer close(t.done)
	for {
		now := r.clk.Now().In(r.loc)
		next := rule.Next(now)
		if def.DateEnd != nil && !next.Before(*def.DateEnd) {
			r.deactivate(def.ID)
			return
		}

		timer := r.clk.NewTimer(next.Sub(now))
		select {
		case fireTime := <-timer.C():
			r.fire(def, fireTime)
			if def.IsJustOnce {
				r.deactivate(def.ID)
				return
			}
		case <-t.stop:
			timer.Stop()
			return
		}
	}
}

func (r *Registry) fire(def model.Schedule, fireTime time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.meetings.Create(ctx, model.Meeting{
		Division: def.Division,
		Date:     fireTime.In(r.loc),
	})
	if err != nil {
		metrics.MaterializeFailures.Inc()
		log.Printf("schedule %s: creating meeting failed: %v", def.ID, err)
		return
	}
	metrics.MeetingsMaterialized.Inc()
}

// deactivate marks the definition inactive and forgets the task handle. The
// task goroutine calls it on its own exit paths, so the map entry may already
// be gone when an explicit stop raced it.
func (r *Registry) deactivate(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SetScheduleActive(ctx, id, false); err != nil {
		log.Printf("schedule %s: deactivate failed: %v", id, err)
	}

	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

func (r *Registry) stopTask(id string) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done

	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}
