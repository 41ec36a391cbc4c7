package bot

import (
	"fmt"
	"strconv"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/stats"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

// Main menu labels double as top-level triggers.
const (
	MenuAddActivity = "Add activity"
	MenuActivities  = "Activities"
	MenuDownload    = "Download logs"
	MenuStatistics  = "Statistics"
)

var (
	monthNames = [...]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	weekdayNames = [...]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
)

// MainMenu is the persistent reply keyboard.
func MainMenu() *MenuKeyboard {
	return &MenuKeyboard{Rows: [][]string{
		{MenuAddActivity, MenuActivities},
		{MenuDownload, MenuStatistics},
	}}
}

// TypeKeyboard offers the activity types.
func TypeKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{{
		{Text: "☑️ Checkbox", Data: Callback{Kind: CallbackAddType, ActivityType: string(domain.ActivityTypeCheckbox)}.Encode()},
		{Text: "⏱️ Time", Data: Callback{Kind: CallbackAddType, ActivityType: string(domain.ActivityTypeTime)}.Encode()},
	}}}
}

// ActivitiesKeyboard renders one row per activity. Time activities get a
// second button for manual entry.
func ActivitiesKeyboard(view tracking.ViewModel) *Keyboard {
	rows := make([][]Button, 0, len(view.Items))
	for _, item := range view.Items {
		track := Button{Text: item.Label(), Data: Callback{Kind: CallbackTrack, ActivityID: item.ActivityID}.Encode()}
		row := domain.MatchType(item.Type,
			func() []Button { return []Button{track} },
			func() []Button {
				return []Button{track, {Text: "✏️", Data: Callback{Kind: CallbackManualTime, ActivityID: item.ActivityID}.Encode()}}
			},
		)
		rows = append(rows, row)
	}
	return &Keyboard{Rows: rows}
}

// StatsKeyboard offers the stats periods plus a custom range.
func StatsKeyboard() *Keyboard {
	button := func(text, period string) Button {
		return Button{Text: text, Data: Callback{Kind: CallbackStats, Period: period}.Encode()}
	}
	return &Keyboard{Rows: [][]Button{
		{
			button("Today", string(stats.PeriodDay)),
			button("This week", string(stats.PeriodWeek)),
			button("This month", string(stats.PeriodMonth)),
		},
		{button("Pick dates", StatsRange)},
	}}
}

// CalendarKeyboard renders a Monday-first month grid with navigation.
func CalendarKeyboard(month wizard.Month) *Keyboard {
	ignore := Callback{Kind: CallbackIgnore}.Encode()
	rows := [][]Button{{{Text: fmt.Sprintf("%s %d", monthNames[month.Month-1], month.Year), Data: ignore}}}

	header := make([]Button, 0, len(weekdayNames))
	for _, name := range weekdayNames {
		header = append(header, Button{Text: name, Data: ignore})
	}
	rows = append(rows, header)

	for _, week := range month.Grid() {
		row := make([]Button, 0, len(week))
		for _, day := range week {
			if day == 0 {
				row = append(row, Button{Text: " ", Data: ignore})
				continue
			}
			row = append(row, Button{
				Text: strconv.Itoa(day),
				Data: Callback{Kind: CallbackCalendarDay, Month: month, Day: day}.Encode(),
			})
		}
		rows = append(rows, row)
	}

	rows = append(rows, []Button{
		{Text: "<", Data: Callback{Kind: CallbackCalendarNav, Month: month.Prev()}.Encode()},
		{Text: " ", Data: ignore},
		{Text: ">", Data: Callback{Kind: CallbackCalendarNav, Month: month.Next()}.Encode()},
	})
	return &Keyboard{Rows: rows}
}
