// Package metrics provides Prometheus metrics for traction: counters and
// gauges for transitions, ordering, timers and the scheduler loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated counts created tasks.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "tasks_created_total",
	Help:      "Total tasks created.",
})

// StatusTransitions counts accepted status transitions by target status.
// No-op transitions are not counted.
var StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "status_transitions_total",
	Help:      "Total accepted status transitions.",
}, []string{"to_status"})

// ColumnReorders counts explicit reorder and move operations.
var ColumnReorders = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "column_reorders_total",
	Help:      "Total explicit column reorder operations.",
})

// ─── Timers ─────────────────────────────────────────────────────────────────

// TimerStarts counts opened timer sessions.
var TimerStarts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "timer_starts_total",
	Help:      "Total timer sessions started.",
})

// TimerSessionsClosed counts closed timer sessions (pause, stop, steal,
// implicit close on completion).
var TimerSessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "timer_sessions_closed_total",
	Help:      "Total timer sessions closed.",
})

// TimerSecondsTotal accumulates credited session seconds.
var TimerSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "timer_seconds_total",
	Help:      "Total seconds credited from closed timer sessions.",
})

// ActiveTimers tracks currently running timers across all owners.
var ActiveTimers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "traction",
	Name:      "timers_active",
	Help:      "Number of currently running timers.",
})

// ─── Scheduler ──────────────────────────────────────────────────────────────

// SchedulerJobRuns counts scheduled job executions by job id and result.
var SchedulerJobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "scheduler_job_runs_total",
	Help:      "Total scheduled job executions.",
}, []string{"job", "result"})

// JournalUsersProcessed counts per-user journal generation outcomes.
var JournalUsersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "journal_users_processed_total",
	Help:      "Per-user journal generation outcomes.",
}, []string{"result"})

// JournalTasksAppended counts task lines appended to journals.
var JournalTasksAppended = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "traction",
	Name:      "journal_tasks_appended_total",
	Help:      "Total completed-task lines appended to journals.",
})
