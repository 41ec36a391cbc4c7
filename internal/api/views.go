package api

import (
	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/stats"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
)

// ActivityView is one activity with today's value.
type ActivityView struct {
	ActivityID   int64  `json:"activity_id"`
	Name         string `json:"name"`
	ActivityType string `json:"activity_type"`
	State        string `json:"state"`
	Checked      *bool  `json:"checked,omitempty"`
	Minutes      *int   `json:"minutes,omitempty"`
}

// ListActivitiesResponse packages the day view.
type ListActivitiesResponse struct {
	Date  string         `json:"date"`
	Items []ActivityView `json:"items"`
}

// StatsTotal is one aggregated activity row.
type StatsTotal struct {
	ActivityID    int64  `json:"activity_id"`
	Name          string `json:"name"`
	ActivityType  string `json:"activity_type"`
	TotalMinutes  *int   `json:"total_minutes,omitempty"`
	TotalTrueDays *int   `json:"total_true_days,omitempty"`
}

// StatsResponse is the aggregated report for a range.
type StatsResponse struct {
	Label  string       `json:"label"`
	Start  string       `json:"start"`
	End    string       `json:"end"`
	Totals []StatsTotal `json:"totals"`
}

// ExportItem is one exported day document.
type ExportItem struct {
	Date     string `json:"date"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ExportResponse is one page of exported days.
type ExportResponse struct {
	Items      []ExportItem `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toActivityView(item tracking.ViewItem) ActivityView {
	view := ActivityView{
		ActivityID:   item.ActivityID,
		Name:         item.Name,
		ActivityType: string(item.Type),
		State:        string(item.State),
	}
	domain.MatchType(item.Type,
		func() struct{} {
			checked := item.State == tracking.StateChecked
			view.Checked = &checked
			return struct{}{}
		},
		func() struct{} {
			minutes := item.Minutes
			view.Minutes = &minutes
			return struct{}{}
		},
	)
	return view
}

func toStatsResponse(report stats.Report) StatsResponse {
	resp := StatsResponse{
		Label:  report.Label,
		Start:  report.Start.Format(domain.DayLayout),
		End:    report.End.Format(domain.DayLayout),
		Totals: make([]StatsTotal, 0, len(report.Totals)),
	}
	for _, total := range report.Totals {
		row := StatsTotal{
			ActivityID:   total.ActivityID,
			Name:         total.ActivityName,
			ActivityType: string(total.ActivityType),
		}
		domain.MatchType(total.ActivityType,
			func() struct{} {
				days := total.TotalTrueDays
				row.TotalTrueDays = &days
				return struct{}{}
			},
			func() struct{} {
				minutes := total.TotalMinutes
				row.TotalMinutes = &minutes
				return struct{}{}
			},
		)
		resp.Totals = append(resp.Totals, row)
	}
	return resp
}
