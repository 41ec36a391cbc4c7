package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

// CallbackKind names a structured button payload.
type CallbackKind string

const (
	CallbackAddType     CallbackKind = "add_activity"
	CallbackTrack       CallbackKind = "track"
	CallbackManualTime  CallbackKind = "manual_time"
	CallbackCalendarNav CallbackKind = "calendar_nav"
	CallbackCalendarDay CallbackKind = "calendar_day"
	CallbackIgnore      CallbackKind = "calendar_ignore"
	CallbackStats       CallbackKind = "stats"
)

// StatsRange is the stats callback value that opens the date-range picker.
const StatsRange = "range"

// Callback is a decoded button payload.
type Callback struct {
	Kind         CallbackKind
	ActivityType string
	ActivityID   int64
	Month        wizard.Month
	Day          int
	Period       string
}

// Encode renders the payload in its wire form.
func (c Callback) Encode() string {
	switch c.Kind {
	case CallbackAddType:
		return "add_activity:" + c.ActivityType
	case CallbackTrack:
		return fmt.Sprintf("activity:track:%d", c.ActivityID)
	case CallbackManualTime:
		return fmt.Sprintf("activity:manual_time:%d", c.ActivityID)
	case CallbackCalendarNav:
		return fmt.Sprintf("calendar:NAV:%d:%d", c.Month.Year, int(c.Month.Month))
	case CallbackCalendarDay:
		return fmt.Sprintf("calendar:DAY:%d:%d:%d", c.Month.Year, int(c.Month.Month), c.Day)
	case CallbackStats:
		return "stats:" + c.Period
	}
	return string(CallbackIgnore)
}

// ParseCallback decodes a button payload.
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, ":")
	invalid := fmt.Errorf("%w: unknown callback %q", domain.ErrInvalidInput, data)

	switch parts[0] {
	case string(CallbackIgnore):
		return Callback{Kind: CallbackIgnore}, nil
	case "add_activity":
		if len(parts) != 2 {
			return Callback{}, invalid
		}
		return Callback{Kind: CallbackAddType, ActivityType: parts[1]}, nil
	case "activity":
		if len(parts) != 3 {
			return Callback{}, invalid
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Callback{}, invalid
		}
		switch parts[1] {
		case "track":
			return Callback{Kind: CallbackTrack, ActivityID: id}, nil
		case "manual_time":
			return Callback{Kind: CallbackManualTime, ActivityID: id}, nil
		}
	case "calendar":
		return parseCalendar(parts, invalid)
	case "stats":
		if len(parts) != 2 || parts[1] == "" {
			return Callback{}, invalid
		}
		return Callback{Kind: CallbackStats, Period: parts[1]}, nil
	}
	return Callback{}, invalid
}

// parseCalendar accepts calendar:NAV:y:m and calendar:DAY:y:m:d. A trailing
// empty day field on NAV is tolerated.
func parseCalendar(parts []string, invalid error) (Callback, error) {
	if len(parts) < 4 {
		return Callback{}, invalid
	}
	year, yerr := strconv.Atoi(parts[2])
	month, merr := strconv.Atoi(parts[3])
	if yerr != nil || merr != nil {
		return Callback{}, invalid
	}
	m := wizard.Month{Year: year, Month: time.Month(month)}
	if !m.Valid() {
		return Callback{}, invalid
	}

	switch parts[1] {
	case "NAV":
		if len(parts) > 5 || (len(parts) == 5 && parts[4] != "") {
			return Callback{}, invalid
		}
		return Callback{Kind: CallbackCalendarNav, Month: m}, nil
	case "DAY":
		if len(parts) != 5 {
			return Callback{}, invalid
		}
		day, err := strconv.Atoi(parts[4])
		if err != nil || day < 1 || day > m.DaysIn() {
			return Callback{}, invalid
		}
		return Callback{Kind: CallbackCalendarDay, Month: m, Day: day}, nil
	}
	return Callback{}, invalid
}
