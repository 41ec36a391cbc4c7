package tracking

import (
	"math"
	"time"
)

// TimerRegistry maps an activity id to the instant its timer was started.
// It belongs to one session and is never shared between sessions.
type TimerRegistry map[int64]time.Time

// Running reports whether a timer is active for the activity.
func (r TimerRegistry) Running(activityID int64) bool {
	_, ok := r[activityID]
	return ok
}

// StartedAt returns the start instant if a timer is active.
func (r TimerRegistry) StartedAt(activityID int64) (time.Time, bool) {
	at, ok := r[activityID]
	return at, ok
}

// ElapsedMinutes converts the time between start and now into whole minutes,
// rounding half to even. Negative spans count as zero.
func ElapsedMinutes(start, now time.Time) int {
	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	return int(math.RoundToEven(elapsed.Seconds() / 60))
}
