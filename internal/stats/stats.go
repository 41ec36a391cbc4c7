// Package stats computes per-activity totals over a day, week, month or
// arbitrary range and renders them as a chat message.
package stats

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// Period is a named range relative to today.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period label.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", domain.ErrInvalidInput, raw)
}

// Bounds returns the inclusive first and last day of the period containing
// today. Weeks start on Monday.
func (p Period) Bounds(today time.Time) (time.Time, time.Time) {
	today = domain.Day(today)
	switch p {
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6)
	case PeriodMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	default:
		return today, today
	}
}

// Label is the human phrase for the period.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "this week"
	case PeriodMonth:
		return "this month"
	default:
		return "today"
	}
}

// Aggregator is the read side the reports are built from.
type Aggregator interface {
	AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.PeriodTotal, error)
}

// Report is the aggregated result for one owner and range.
type Report struct {
	Label  string
	Start  time.Time
	End    time.Time
	Totals []domain.PeriodTotal
}

// ForPeriod aggregates the named period around today.
func ForPeriod(ctx context.Context, agg Aggregator, ownerID int64, period Period, today time.Time) (Report, error) {
	start, end := period.Bounds(today)
	return ForRange(ctx, agg, ownerID, start, end, period.Label())
}

// ForRange aggregates an explicit inclusive range. A blank label is derived
// from the dates.
func ForRange(ctx context.Context, agg Aggregator, ownerID int64, start, end time.Time, label string) (Report, error) {
	start, end = domain.Day(start), domain.Day(end)
	if err := domain.ValidateRange(start, end); err != nil {
		return Report{}, err
	}
	if label == "" {
		label = fmt.Sprintf("%s – %s", start.Format(domain.DayLayout), end.Format(domain.DayLayout))
	}
	totals, err := agg.AggregateForPeriod(ctx, ownerID, start, end)
	if err != nil {
		return Report{}, err
	}
	return Report{Label: label, Start: start, End: end, Totals: totals}, nil
}

// Render formats the report as HTML chat text. Activities without logs in
// range are already absent from Totals and are not listed.
func (r Report) Render() string {
	if len(r.Totals) == 0 {
		return fmt.Sprintf("No statistics for %s.", html.EscapeString(r.Label))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Statistics for %s:</b>\n\n", html.EscapeString(r.Label))
	for _, total := range r.Totals {
		name := html.EscapeString(total.ActivityName)
		line := domain.MatchType(total.ActivityType,
			func() string { return fmt.Sprintf("☑️ %s: done %d times\n", name, total.TotalTrueDays) },
			func() string { return fmt.Sprintf("⏱️ %s: %d min.\n", name, total.TotalMinutes) },
		)
		b.WriteString(line)
	}
	return b.String()
}
