// Package tracking combines the per-day log store with a session's running
// timers to apply tracking actions and render the activity list.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

// LogService is the slice of domain.Service the engine needs.
type LogService interface {
	GetActivity(ctx context.Context, ownerID, activityID int64) (*domain.Activity, error)
	ListActivities(ctx context.Context, ownerID int64) ([]domain.Activity, error)
	GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (domain.ActivityLog, error)
	UpdateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate domain.LogMutation) (domain.Activity, domain.ActivityLog, error)
	LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]domain.ActivityLog, error)
}

// ErrNoRegistry is returned when Track is called without a session timer registry.
var ErrNoRegistry = errors.New("tracking: nil timer registry")

// Action names what a Track call did.
type Action string

const (
	ActionToggled      Action = "toggled"
	ActionTimerStarted Action = "timer_started"
	ActionTimerStopped Action = "timer_stopped"
	ActionMinutesAdded Action = "minutes_added"
)

// Result describes the effect of one tracking event.
type Result struct {
	Action   Action
	Activity domain.Activity
	Log      domain.ActivityLog
	Minutes  int
}

// Engine applies tracking events. It is safe for concurrent use as long as
// each TimerRegistry is only touched by one caller at a time.
type Engine struct {
	logs     LogService
	now      func() time.Time
	location *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone whose calendar day counts as "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine constructs an Engine.
func NewEngine(logs LogService, opts ...Option) *Engine {
	e := &Engine{
		logs:     logs,
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current instant.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Today returns the current calendar day in the engine's location.
func (e *Engine) Today() time.Time {
	return domain.Day(e.now().In(e.location))
}

// Track handles a press on an activity. Checkbox activities toggle. Time
// activities start a timer, or stop the running one and fold the elapsed
// minutes into today's log. The timer entry is only removed once the
// minutes are committed; a press without a running timer always starts one.
func (e *Engine) Track(ctx context.Context, ownerID, activityID int64, timers TimerRegistry) (Result, error) {
	if timers == nil {
		return Result{}, ErrNoRegistry
	}
	activity, err := e.logs.GetActivity(ctx, ownerID, activityID)
	if err != nil {
		return Result{}, err
	}

	return domain.MatchType(activity.Type,
		func() trackOutcome { return wrap(e.toggle(ctx, ownerID, activityID)) },
		func() trackOutcome {
			if _, running := timers.StartedAt(activityID); running {
				return wrap(e.stop(ctx, ownerID, activityID, timers))
			}
			return wrap(e.start(ctx, *activity, timers))
		},
	).unwrap()
}

type trackOutcome struct {
	result Result
	err    error
}

func wrap(result Result, err error) trackOutcome {
	return trackOutcome{result: result, err: err}
}

func (o trackOutcome) unwrap() (Result, error) {
	return o.result, o.err
}

func (e *Engine) toggle(ctx context.Context, ownerID, activityID int64) (Result, error) {
	activity, log, err := e.logs.UpdateLog(ctx, ownerID, activityID, e.Today(), func(activity domain.Activity, log *domain.ActivityLog) error {
		if activity.Type != domain.ActivityTypeCheckbox {
			return fmt.Errorf("%w: %q is not a checkbox activity", domain.ErrInvalidInput, activity.Name)
		}
		log.Toggle()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	observability.RecordTracking(string(ActionToggled), string(activity.Type))
	return Result{Action: ActionToggled, Activity: activity, Log: log}, nil
}

func (e *Engine) start(ctx context.Context, activity domain.Activity, timers TimerRegistry) (Result, error) {
	log, err := e.logs.GetOrCreateLog(ctx, activity.OwnerID, activity.ID, e.Today())
	if err != nil {
		return Result{}, err
	}
	timers[activity.ID] = e.now()
	observability.RecordTracking(string(ActionTimerStarted), string(activity.Type))
	return Result{Action: ActionTimerStarted, Activity: activity, Log: log}, nil
}

func (e *Engine) stop(ctx context.Context, ownerID, activityID int64, timers TimerRegistry) (Result, error) {
	startedAt, _ := timers.StartedAt(activityID)
	minutes := ElapsedMinutes(startedAt, e.now())

	activity, log, err := e.addMinutes(ctx, ownerID, activityID, minutes)
	if err != nil {
		return Result{}, err
	}
	delete(timers, activityID)
	observability.RecordTracking(string(ActionTimerStopped), string(activity.Type))
	observability.RecordTimerStopped(minutes)
	return Result{Action: ActionTimerStopped, Activity: activity, Log: log, Minutes: minutes}, nil
}

// AddMinutes folds a manually entered, non-negative minute count into today's log.
func (e *Engine) AddMinutes(ctx context.Context, ownerID, activityID int64, minutes int) (Result, error) {
	activity, log, err := e.addMinutes(ctx, ownerID, activityID, minutes)
	if err != nil {
		return Result{}, err
	}
	observability.RecordTracking(string(ActionMinutesAdded), string(activity.Type))
	return Result{Action: ActionMinutesAdded, Activity: activity, Log: log, Minutes: minutes}, nil
}

func (e *Engine) addMinutes(ctx context.Context, ownerID, activityID int64, minutes int) (domain.Activity, domain.ActivityLog, error) {
	return e.logs.UpdateLog(ctx, ownerID, activityID, e.Today(), func(activity domain.Activity, log *domain.ActivityLog) error {
		if activity.Type != domain.ActivityTypeTime {
			return fmt.Errorf("%w: %q is not a time activity", domain.ErrTypeMismatch, activity.Name)
		}
		return log.AddMinutes(minutes)
	})
}

// LoadView reads the owner's activities and today's logs and renders them
// against the session's timers.
func (e *Engine) LoadView(ctx context.Context, ownerID int64, timers TimerRegistry) (ViewModel, error) {
	activities, err := e.logs.ListActivities(ctx, ownerID)
	if err != nil {
		return ViewModel{}, err
	}
	logs, err := e.logs.LogsForDay(ctx, ownerID, e.Today())
	if err != nil {
		return ViewModel{}, err
	}
	return RenderView(activities, logs, timers), nil
}
