// Package memory provides an in-process store for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

type logKey struct {
	activityID int64
	date       time.Time
}

// Repository keeps activities and logs in maps guarded by a single lock.
type Repository struct {
	mu         sync.RWMutex
	nextID     int64
	nextLogID  int64
	activities map[int64]domain.Activity
	logs       map[logKey]domain.ActivityLog
	now        func() time.Time
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		activities: make(map[int64]domain.Activity),
		logs:       make(map[logKey]domain.ActivityLog),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateActivity implements domain.ActivityRepository.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.activities {
		if existing.OwnerID == activity.OwnerID && existing.Name == activity.Name {
			return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrDuplicateName, activity.Name)
		}
	}

	r.nextID++
	activity.ID = r.nextID
	activity.CreatedAt = r.now()
	r.activities[activity.ID] = activity
	return activity, nil
}

// GetActivity implements domain.ActivityRepository.
func (r *Repository) GetActivity(ctx context.Context, ownerID, activityID int64) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[activityID]
	if !ok || activity.OwnerID != ownerID {
		return nil, nil
	}
	return &activity, nil
}

// FindActivityByName implements domain.ActivityRepository.
func (r *Repository) FindActivityByName(ctx context.Context, ownerID int64, name string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, activity := range r.activities {
		if activity.OwnerID == ownerID && activity.Name == name {
			found := activity
			return &found, nil
		}
	}
	return nil, nil
}

// ListActivities implements domain.ActivityRepository.
func (r *Repository) ListActivities(ctx context.Context, ownerID int64) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownedLocked(ownerID), nil
}

// DeleteActivity removes the activity and every log that references it.
func (r *Repository) DeleteActivity(ctx context.Context, ownerID, activityID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[activityID]
	if !ok || activity.OwnerID != ownerID {
		return domain.ErrActivityNotFound
	}
	delete(r.activities, activityID)
	for key := range r.logs {
		if key.activityID == activityID {
			delete(r.logs, key)
		}
	}
	return nil
}

// GetOrCreateLog implements domain.LogRepository.
func (r *Repository) GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (domain.Activity, domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, err := r.activityLocked(ownerID, activityID)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	return activity, r.materializeLocked(activity, date), nil
}

// MutateLog applies mutate to a copy of the log and stores it only on success.
func (r *Repository) MutateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate domain.LogMutation) (domain.Activity, domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, err := r.activityLocked(ownerID, activityID)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	key := logKey{activityID: activity.ID, date: domain.Day(date)}
	existing, existed := r.logs[key]
	log := existing
	if !existed {
		log = domain.NewLog(activity, date)
	}
	log = cloneLog(log)

	if err := mutate(activity, &log); err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	if !existed {
		r.nextLogID++
		log.ID = r.nextLogID
	}
	log.UpdatedAt = r.now()
	r.logs[key] = log
	return activity, cloneLog(log), nil
}

// LogsForDay implements domain.LogRepository.
func (r *Repository) LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]domain.ActivityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := domain.Day(date)
	results := make(map[int64]domain.ActivityLog)
	for key, log := range r.logs {
		if !key.date.Equal(day) {
			continue
		}
		if activity, ok := r.activities[key.activityID]; ok && activity.OwnerID == ownerID {
			results[key.activityID] = cloneLog(log)
		}
	}
	return results, nil
}

// LogsForPeriod implements domain.LogRepository.
func (r *Repository) LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.ActivityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.periodLocked(ownerID, start, end), nil
}

// AggregateForPeriod implements domain.LogRepository.
func (r *Repository) AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.PeriodTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[int64]*domain.PeriodTotal)
	for _, log := range r.periodLocked(ownerID, start, end) {
		total, ok := totals[log.ActivityID]
		if !ok {
			activity := r.activities[log.ActivityID]
			total = &domain.PeriodTotal{
				ActivityID:   activity.ID,
				ActivityName: activity.Name,
				ActivityType: activity.Type,
			}
			totals[log.ActivityID] = total
		}
		total.TotalMinutes += log.Minutes()
		if log.Checked() {
			total.TotalTrueDays++
		}
	}

	results := make([]domain.PeriodTotal, 0, len(totals))
	for _, total := range totals {
		results = append(results, *total)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ActivityID < results[j].ActivityID })
	return results, nil
}

func (r *Repository) activityLocked(ownerID, activityID int64) (domain.Activity, error) {
	activity, ok := r.activities[activityID]
	if !ok || activity.OwnerID != ownerID {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity, nil
}

func (r *Repository) materializeLocked(activity domain.Activity, date time.Time) domain.ActivityLog {
	key := logKey{activityID: activity.ID, date: domain.Day(date)}
	if log, ok := r.logs[key]; ok {
		return cloneLog(log)
	}
	log := domain.NewLog(activity, date)
	r.nextLogID++
	log.ID = r.nextLogID
	log.UpdatedAt = r.now()
	r.logs[key] = log
	return cloneLog(log)
}

func (r *Repository) ownedLocked(ownerID int64) []domain.Activity {
	results := make([]domain.Activity, 0)
	for _, activity := range r.activities {
		if activity.OwnerID == ownerID {
			results = append(results, activity)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

func (r *Repository) periodLocked(ownerID int64, start, end time.Time) []domain.ActivityLog {
	from, to := domain.Day(start), domain.Day(end)
	results := make([]domain.ActivityLog, 0)
	for key, log := range r.logs {
		if key.date.Before(from) || key.date.After(to) {
			continue
		}
		if activity, ok := r.activities[key.activityID]; ok && activity.OwnerID == ownerID {
			results = append(results, cloneLog(log))
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.Before(results[j].Date)
		}
		return results[i].ActivityID < results[j].ActivityID
	})
	return results
}

// cloneLog detaches the value pointers so callers cannot mutate stored rows.
func cloneLog(log domain.ActivityLog) domain.ActivityLog {
	if log.ValueBool != nil {
		v := *log.ValueBool
		log.ValueBool = &v
	}
	if log.ValueMinutes != nil {
		v := *log.ValueMinutes
		log.ValueMinutes = &v
	}
	return log
}
