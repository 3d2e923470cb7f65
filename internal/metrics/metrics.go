package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceRecorded counts successful attendance recordings.
	AttendanceRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meettrack_attendance_recorded_total",
		Help: "Number of attendance records created.",
	})

	// MeetingsMaterialized counts meetings created by schedule ticks.
	MeetingsMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meettrack_meetings_materialized_total",
		Help: "Number of meetings created by the schedule materializer.",
	})

	// MaterializeFailures counts schedule ticks whose meeting creation failed.
	MaterializeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meettrack_materialize_failures_total",
		Help: "Number of schedule ticks that failed to create a meeting.",
	})
)
