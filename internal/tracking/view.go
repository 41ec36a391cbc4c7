package tracking

import (
	"fmt"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// ItemState is the display state of one activity row.
type ItemState string

const (
	StateUnchecked ItemState = "unchecked"
	StateChecked   ItemState = "checked"
	StateStopped   ItemState = "stopped"
	StateRunning   ItemState = "running"
)

// ViewItem is one rendered activity.
type ViewItem struct {
	ActivityID int64
	Name       string
	Type       domain.ActivityType
	State      ItemState
	Minutes    int
}

// Label is the button text for the item.
func (i ViewItem) Label() string {
	switch i.State {
	case StateChecked:
		return "✅ " + i.Name
	case StateUnchecked:
		return "☑️ " + i.Name
	case StateRunning:
		return fmt.Sprintf("⏹️ %s (%d min.)", i.Name, i.Minutes)
	default:
		return fmt.Sprintf("▶️ %s (%d min.)", i.Name, i.Minutes)
	}
}

// ViewModel is the rendered activity list.
type ViewModel struct {
	Items []ViewItem
}

// Empty reports whether the owner has no activities.
func (v ViewModel) Empty() bool {
	return len(v.Items) == 0
}

// RenderView derives every row from today's persisted log and timer
// membership alone. A running timer's elapsed time is not shown until stop.
func RenderView(activities []domain.Activity, todayLogs map[int64]domain.ActivityLog, timers TimerRegistry) ViewModel {
	items := make([]ViewItem, 0, len(activities))
	for _, activity := range activities {
		log := todayLogs[activity.ID]
		item := ViewItem{ActivityID: activity.ID, Name: activity.Name, Type: activity.Type}
		item.State = domain.MatchType(activity.Type,
			func() ItemState {
				if log.Checked() {
					return StateChecked
				}
				return StateUnchecked
			},
			func() ItemState {
				item.Minutes = log.Minutes()
				if timers.Running(activity.ID) {
					return StateRunning
				}
				return StateStopped
			},
		)
		items = append(items, item)
	}
	return ViewModel{Items: items}
}
