// Package export renders per-day snapshots of every activity's value as
// small front-matter documents, one per calendar day.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

// Source is the read side the exporter needs.
type Source interface {
	ListActivities(ctx context.Context, ownerID int64) ([]domain.Activity, error)
	LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.ActivityLog, error)
}

// Artifact is one exported day.
type Artifact struct {
	Date     time.Time
	Filename string
	Content  []byte
}

// Exporter builds artifacts for a day range.
type Exporter struct {
	source Source
}

// New constructs an Exporter.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Export returns exactly one artifact per day in [start, end], ascending.
func (e *Exporter) Export(ctx context.Context, ownerID int64, start, end time.Time) ([]Artifact, error) {
	artifacts, _, err := e.Page(ctx, ownerID, start, end, 0)
	return artifacts, err
}

// Page exports at most limit days starting at start. It returns the first
// day not yet exported, or the zero time when the range is exhausted. A
// limit of zero or less exports the whole range.
func (e *Exporter) Page(ctx context.Context, ownerID int64, start, end time.Time, limit int) ([]Artifact, time.Time, error) {
	start, end = domain.Day(start), domain.Day(end)
	if err := domain.ValidateRange(start, end); err != nil {
		return nil, time.Time{}, err
	}

	last := end
	var next time.Time
	if limit > 0 {
		if candidate := start.AddDate(0, 0, limit-1); candidate.Before(end) {
			last = candidate
			next = candidate.AddDate(0, 0, 1)
		}
	}

	activities, err := e.source.ListActivities(ctx, ownerID)
	if err != nil {
		return nil, time.Time{}, err
	}
	logs, err := e.source.LogsForPeriod(ctx, ownerID, start, last)
	if err != nil {
		return nil, time.Time{}, err
	}

	byDay := make(map[time.Time]map[int64]domain.ActivityLog)
	for _, log := range logs {
		date := domain.Day(log.Date)
		if byDay[date] == nil {
			byDay[date] = make(map[int64]domain.ActivityLog)
		}
		byDay[date][log.ActivityID] = log
	}

	artifacts := make([]Artifact, 0, int(last.Sub(start).Hours()/24)+1)
	for current := start; !current.After(last); current = current.AddDate(0, 0, 1) {
		artifacts = append(artifacts, Artifact{
			Date:     current,
			Filename: Filename(current),
			Content:  []byte(Render(activities, byDay[current])),
		})
	}
	observability.RecordExportArtifacts(len(artifacts))
	return artifacts, next, nil
}

// Filename is the artifact name for a day.
func Filename(day time.Time) string {
	return day.Format(domain.DayLayout) + ".md"
}

// Render writes one day's document. Activities without a log that day get
// their type's default value.
func Render(activities []domain.Activity, dayLogs map[int64]domain.ActivityLog) string {
	var b strings.Builder
	b.WriteString("---\n")
	for _, activity := range activities {
		log := dayLogs[activity.ID]
		value := domain.MatchType(activity.Type,
			func() string { return strconv.FormatBool(log.Checked()) },
			func() string { return strconv.Itoa(log.Minutes()) },
		)
		fmt.Fprintf(&b, "%s: %s\n", activity.Name, value)
	}
	b.WriteString("---")
	return b.String()
}

// WriteDir writes artifacts into dir, creating it if needed.
func WriteDir(dir string, artifacts []Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, artifact := range artifacts {
		path := filepath.Join(dir, artifact.Filename)
		if err := os.WriteFile(path, artifact.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
