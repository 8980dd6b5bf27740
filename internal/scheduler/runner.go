// Package scheduler runs the recurring due-check pass over the
// schedule store: once per tick it fires entries whose occurrence
// falls inside the look-ahead window, advances repeating ones, and
// persists when anything moved.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"memo-bell/internal/model"
	"memo-bell/internal/store"
)

// Metrics
var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "memobell_scheduler_ticks_total", Help: "Due-check passes"},
	)
	remindersFired = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "memobell_reminders_fired_total", Help: "Reminders fired"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(ticksTotal, remindersFired)
}

// Runner is the owned, cancellable background reminder task. Its only
// shared dependency is the store handle.
type Runner struct {
	store    *store.Store
	clock    Clock
	interval time.Duration

	// OnEntryDue fires once per due occurrence; the tray/audio shell
	// hangs off this. OnStateChanged fires after any persisted change.
	OnEntryDue     func(model.ScheduleEntry)
	OnStateChanged func()
}

func NewRunner(st *store.Store, clock Clock, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{store: st, clock: clock, interval: interval}
}

// Run ticks immediately, then once per interval until ctx is
// cancelled. It blocks; callers start it on its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("⏰ Reminder loop started (tick %s)", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.safeTick()
	for {
		select {
		case <-ctx.Done():
			log.Println("⏰ Reminder loop stopped")
			return
		case <-ticker.C:
			r.safeTick()
		}
	}
}

// safeTick keeps one bad pass from killing the loop.
func (r *Runner) safeTick() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Tick panic recovered: %v", rec)
		}
	}()
	r.tick(r.clock.Now())
}

// tick is one due-check pass at the given instant. The whole scan runs
// inside a single store lock hold: fast-forward stale repeating
// entries, then fire anything inside [now, now+interval] and advance
// repeating entries in the same step. Saving and callbacks happen
// after the lock is released.
func (r *Runner) tick(now time.Time) {
	ticksTotal.Inc()
	threshold := now.Add(r.interval)

	var due []model.ScheduleEntry
	changed := false

	r.store.Each(func(e *model.ScheduleEntry) {
		// Guard against occurrences missed while the process was
		// suspended: realign before the due check.
		if e.Repeat != model.RepeatNone {
			before := e.Occurrence()
			e.AlignToFuture(now)
			if !e.Occurrence().Equal(before) {
				changed = true
			}
		}

		occ := e.Occurrence()
		if occ.IsZero() || e.Notified {
			return
		}
		if occ.Before(now) || occ.After(threshold) {
			return
		}

		e.Notified = true
		due = append(due, *e)
		if e.Repeat != model.RepeatNone {
			e.Advance()
			changed = true
		}
	})

	if changed {
		if err := r.store.Save(); err != nil {
			log.Printf("⚠️ Save after tick failed: %v", err)
		}
		if r.OnStateChanged != nil {
			r.OnStateChanged()
		}
	}

	for _, entry := range due {
		remindersFired.Inc()
		log.Printf("🔔 Due: %s (%s %s)", entry.Title, entry.Date, entry.Time)
		if r.OnEntryDue != nil {
			r.OnEntryDue(entry)
		}
	}
}
