// Package scheduler decides, once per tick, which background units are due
// and launches them without blocking the tick loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
)

type Unit string

const (
	UnitAutomation  Unit = "automation"
	UnitDailyAlert  Unit = "daily_alert"
	UnitWatchPoll   Unit = "watch_poll"
	UnitReminders   Unit = "reminders"
	UnitMaintenance Unit = "maintenance"
)

type Config struct {
	RunTimes        []string
	IntervalEnabled bool
	Interval        time.Duration
	// AlertAt is the daily alert time as HHMM; empty disables the alert.
	AlertAt string

	TickInterval        time.Duration
	Tolerance           time.Duration
	ErrorBackoff        time.Duration
	WatchPollInterval   time.Duration
	ReminderInterval    time.Duration
	MaintenanceInterval time.Duration
	MaxConcurrentUnits  int
	// IntervalYieldsToExplicit skips the interval trigger on ticks where an
	// explicit run time fired.
	IntervalYieldsToExplicit bool
}

// ConfigFromFile maps the automation file onto scheduler settings.
func ConfigFromFile(fc config.FileConfig) Config {
	return Config{
		RunTimes:                 fc.RunTimes,
		IntervalEnabled:          fc.RunOnInterval,
		Interval:                 fc.Interval(),
		AlertAt:                  fc.AlertUsersAt,
		TickInterval:             fc.Scheduler.TickInterval,
		Tolerance:                fc.Scheduler.Tolerance,
		ErrorBackoff:             fc.Scheduler.ErrorBackoff,
		WatchPollInterval:        fc.Watch.PollInterval,
		ReminderInterval:         fc.Scheduler.ReminderInterval,
		MaintenanceInterval:      fc.Scheduler.MaintenanceInterval,
		MaxConcurrentUnits:       fc.Scheduler.MaxConcurrentUnits,
		IntervalYieldsToExplicit: fc.Scheduler.IntervalYieldsToExplicit,
	}
}

// Jobs are the units the coordinator can launch. A nil job is never fired.
type Jobs struct {
	Automation  func(ctx context.Context) error
	DailyAlert  func(ctx context.Context) error
	WatchPoll   func(ctx context.Context) error
	Reminders   func(ctx context.Context) error
	Maintenance func(ctx context.Context) error
}

func (j Jobs) get(u Unit) func(ctx context.Context) error {
	switch u {
	case UnitAutomation:
		return j.Automation
	case UnitDailyAlert:
		return j.DailyAlert
	case UnitWatchPoll:
		return j.WatchPoll
	case UnitReminders:
		return j.Reminders
	case UnitMaintenance:
		return j.Maintenance
	}
	return nil
}

// Trigger records one firing. Launched is false when the unit was still
// running from an earlier firing and was skipped.
type Trigger struct {
	Unit     Unit
	Reason   string
	Launched bool
}

// RunState is what the coordinator remembers between ticks. Explicit slots
// and the alert remember the occurrence they last fired for.
type RunState struct {
	ExplicitFired    map[string]time.Time
	LastInterval     time.Time
	LastAlert        time.Time
	LastWatchPoll    time.Time
	LastReminders    time.Time
	LastMaintenance  time.Time
	StartupCompleted bool
}

type Coordinator struct {
	cfg   Config
	clock Clock
	jobs  Jobs
	slots []TimeOfDay
	alert *TimeOfDay
	state RunState
	tasks *TaskSet

	unitCtx     context.Context
	cancelUnits context.CancelFunc
}

// NewCoordinator validates cfg and builds a coordinator. Malformed run
// times are skipped with a warning; a malformed alert time is an error.
func NewCoordinator(cfg Config, jobs Jobs, clock Clock) (*Coordinator, error) {
	if clock == nil {
		clock = RealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative")
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Minute
	}
	if cfg.IntervalEnabled && cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive when enabled, got %s", cfg.Interval)
	}

	c := &Coordinator{
		cfg:   cfg,
		clock: clock,
		jobs:  jobs,
		slots: parseClocks(cfg.RunTimes),
		state: RunState{ExplicitFired: map[string]time.Time{}},
		tasks: NewTaskSet(cfg.MaxConcurrentUnits),
	}
	if cfg.AlertAt != "" {
		at, err := ParseClock(cfg.AlertAt)
		if err != nil {
			return nil, fmt.Errorf("alert time: %w", err)
		}
		c.alert = &at
	}
	c.unitCtx, c.cancelUnits = context.WithCancel(context.Background())
	return c, nil
}

// State returns a copy of the run state.
func (c *Coordinator) State() RunState {
	s := c.state
	s.ExplicitFired = maps.Clone(c.state.ExplicitFired)
	return s
}

// Tasks exposes the set units run on, so callers can wait for them.
func (c *Coordinator) Tasks() *TaskSet {
	return c.tasks
}

// Run ticks until ctx is cancelled. A failed tick is followed by the error
// backoff instead of the tick interval.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.scheduler"})
	slog.InfoContext(ctx, "scheduler started",
		"run_times", c.slotNames(),
		"interval_enabled", c.cfg.IntervalEnabled,
		"interval", c.cfg.Interval,
		"alert_at", c.cfg.AlertAt,
		"tick", c.cfg.TickInterval)

	for {
		wait := c.cfg.TickInterval
		if err := c.safeTick(ctx); err != nil {
			slog.ErrorContext(ctx, "tick failed, backing off", "error", err, "backoff", c.cfg.ErrorBackoff)
			wait = c.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-c.clock.After(wait):
		}
	}
}

func (c *Coordinator) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "tick panicked", "stack", string(debug.Stack()))
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	c.Tick(ctx)
	return nil
}

// Tick evaluates every trigger once against the clock and launches what is
// due. It never waits for the launched units.
func (c *Coordinator) Tick(ctx context.Context) []Trigger {
	now := c.clock.Now()
	var fired []Trigger

	if !c.state.StartupCompleted {
		fired = c.fire(ctx, fired, UnitAutomation, "startup")
		fired = c.fire(ctx, fired, UnitDailyAlert, "startup_alert")
		// Starting inside the alert window counts as that day's alert.
		if c.alert != nil {
			if occ, dist := c.alert.nearest(now); dist <= c.cfg.Tolerance {
				c.state.LastAlert = occ
			}
		}
		c.state.StartupCompleted = true
		return fired
	}

	explicit := false
	for _, slot := range c.slots {
		name := slot.String()
		occ, dist := slot.nearest(now)
		if dist > c.cfg.Tolerance || c.state.ExplicitFired[name].Equal(occ) {
			continue
		}
		// Recorded even when the unit is still running: a skipped slot is not retried.
		c.state.ExplicitFired[name] = occ
		fired = c.fire(ctx, fired, UnitAutomation, "explicit:"+name)
		explicit = true
	}

	if c.intervalDue(now, explicit) {
		// Same as explicit slots: a skipped interval waits for the next one.
		c.state.LastInterval = now
		fired = c.fire(ctx, fired, UnitAutomation, "interval")
	}

	if c.alert != nil {
		occ, dist := c.alert.nearest(now)
		if dist <= c.cfg.Tolerance && !c.state.LastAlert.Equal(occ) {
			c.state.LastAlert = occ
			fired = c.fire(ctx, fired, UnitDailyAlert, "alert:"+c.alert.String())
		}
	}

	if every(now, &c.state.LastWatchPoll, c.cfg.WatchPollInterval) {
		fired = c.fire(ctx, fired, UnitWatchPoll, "poll")
	}
	if every(now, &c.state.LastReminders, c.cfg.ReminderInterval) {
		fired = c.fire(ctx, fired, UnitReminders, "reminders")
	}
	if every(now, &c.state.LastMaintenance, c.cfg.MaintenanceInterval) {
		fired = c.fire(ctx, fired, UnitMaintenance, "maintenance")
	}

	return fired
}

func (c *Coordinator) intervalDue(now time.Time, explicitFired bool) bool {
	if !c.cfg.IntervalEnabled || !c.state.StartupCompleted {
		return false
	}
	if explicitFired && c.cfg.IntervalYieldsToExplicit {
		return false
	}
	return c.state.LastInterval.IsZero() || now.Sub(c.state.LastInterval) >= c.cfg.Interval
}

// every reports whether a periodic trigger is due and records the firing.
// A zero period disables the trigger.
func every(now time.Time, last *time.Time, period time.Duration) bool {
	if period <= 0 {
		return false
	}
	if !last.IsZero() && now.Sub(*last) < period {
		return false
	}
	*last = now
	return true
}

func (c *Coordinator) fire(ctx context.Context, fired []Trigger, unit Unit, reason string) []Trigger {
	job := c.jobs.get(unit)
	if job == nil {
		return fired
	}

	unitCtx := logger.WithLogFields(c.unitCtx, logger.LogFields{
		Trigger:   &reason,
		Component: "updater.scheduler." + string(unit),
	})
	launched := c.tasks.Launch(unitCtx, string(unit), job)
	if launched {
		slog.InfoContext(ctx, "unit launched", "unit", unit, "trigger", reason)
	} else {
		slog.WarnContext(ctx, "unit still running, skipping", "unit", unit, "trigger", reason)
	}
	return append(fired, Trigger{Unit: unit, Reason: reason, Launched: launched})
}

// Shutdown waits for running units. When ctx ends first the units are
// cancelled and ctx's error is returned.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	err := c.tasks.Wait(ctx)
	if err != nil {
		slog.WarnContext(ctx, "units did not finish in time, cancelling")
	}
	c.cancelUnits()
	return err
}

func (c *Coordinator) slotNames() []string {
	names := make([]string, len(c.slots))
	for i, s := range c.slots {
		names[i] = s.String()
	}
	return names
}
