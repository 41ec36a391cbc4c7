// Package sqlite stores activities and logs in a single SQLite file for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

const driverName = "sqlite"

// Repository provides SQLite-backed persistence for activities and logs.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return open(ctx, "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory(ctx context.Context) (*Repository, error) {
	return open(ctx, "file::memory:?_pragma=foreign_keys(1)")
}

func open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS activities (
			activity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			activity_type TEXT NOT NULL CHECK (activity_type IN ('checkbox','time')),
			created_at TEXT NOT NULL,
			UNIQUE (owner_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_owner ON activities(owner_id);`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			log_id INTEGER PRIMARY KEY AUTOINCREMENT,
			activity_id INTEGER NOT NULL,
			log_date TEXT NOT NULL,
			value_bool INTEGER,
			value_minutes INTEGER CHECK (value_minutes IS NULL OR value_minutes >= 0),
			updated_at TEXT NOT NULL,
			UNIQUE (activity_id, log_date),
			FOREIGN KEY(activity_id) REFERENCES activities(activity_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_date ON activity_logs(log_date);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back unless fn and commit succeed.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// CreateActivity implements domain.ActivityRepository.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	activity.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (owner_id, name, activity_type, created_at) VALUES (?, ?, ?, ?)`,
		activity.OwnerID, activity.Name, string(activity.Type), formatTime(activity.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrDuplicateName, activity.Name)
		}
		return domain.Activity{}, fmt.Errorf("activity insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity id: %w", err)
	}
	activity.ID = id
	return activity, nil
}

// GetActivity implements domain.ActivityRepository.
func (r *Repository) GetActivity(ctx context.Context, ownerID, activityID int64) (*domain.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT activity_id, owner_id, name, activity_type, created_at FROM activities WHERE owner_id = ? AND activity_id = ?`,
		ownerID, activityID)
	return optionalActivity(row)
}

// FindActivityByName implements domain.ActivityRepository.
func (r *Repository) FindActivityByName(ctx context.Context, ownerID int64, name string) (*domain.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT activity_id, owner_id, name, activity_type, created_at FROM activities WHERE owner_id = ? AND name = ?`,
		ownerID, name)
	return optionalActivity(row)
}

// ListActivities implements domain.ActivityRepository.
func (r *Repository) ListActivities(ctx context.Context, ownerID int64) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id, owner_id, name, activity_type, created_at FROM activities WHERE owner_id = ? ORDER BY activity_id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("activity list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("activity scan: %w", err)
		}
		out = append(out, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity rows: %w", err)
	}
	return out, nil
}

// DeleteActivity removes the activity; its logs follow through ON DELETE CASCADE.
func (r *Repository) DeleteActivity(ctx context.Context, ownerID, activityID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE owner_id = ? AND activity_id = ?`, ownerID, activityID)
	if err != nil {
		return fmt.Errorf("activity delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activity delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// GetOrCreateLog implements domain.LogRepository.
func (r *Repository) GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (domain.Activity, domain.ActivityLog, error) {
	var (
		activity domain.Activity
		log      domain.ActivityLog
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if activity, err = activityInTx(ctx, tx, ownerID, activityID); err != nil {
			return err
		}
		log, err = r.materializeLog(ctx, tx, activity, date)
		return err
	})
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	return activity, log, nil
}

// MutateLog implements domain.LogRepository.
func (r *Repository) MutateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate domain.LogMutation) (domain.Activity, domain.ActivityLog, error) {
	var (
		activity domain.Activity
		log      domain.ActivityLog
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if activity, err = activityInTx(ctx, tx, ownerID, activityID); err != nil {
			return err
		}
		if log, err = r.materializeLog(ctx, tx, activity, date); err != nil {
			return err
		}
		if err := mutate(activity, &log); err != nil {
			return err
		}
		log.UpdatedAt = r.now()
		_, err = tx.ExecContext(ctx,
			`UPDATE activity_logs SET value_bool = ?, value_minutes = ?, updated_at = ? WHERE log_id = ?`,
			nullBool(log.ValueBool), nullInt(log.ValueMinutes), formatTime(log.UpdatedAt), log.ID)
		if err != nil {
			return fmt.Errorf("log update: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	observability.RecordLogPersisted(log.UpdatedAt)
	return activity, log, nil
}

func (r *Repository) materializeLog(ctx context.Context, tx *sql.Tx, activity domain.Activity, date time.Time) (domain.ActivityLog, error) {
	log := domain.NewLog(activity, date)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_logs (activity_id, log_date, value_bool, value_minutes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(activity_id, log_date) DO NOTHING`,
		log.ActivityID, log.Date.Format(domain.DayLayout), nullBool(log.ValueBool), nullInt(log.ValueMinutes), formatTime(r.now()))
	if err != nil {
		if isUniqueViolation(err) || isForeignKeyViolation(err) {
			return domain.ActivityLog{}, fmt.Errorf("%w: %v", domain.ErrStorageIntegrity, err)
		}
		return domain.ActivityLog{}, fmt.Errorf("log insert: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT log_id, activity_id, log_date, value_bool, value_minutes, updated_at
		FROM activity_logs WHERE activity_id = ? AND log_date = ?`,
		log.ActivityID, log.Date.Format(domain.DayLayout))
	return scanLog(row)
}

// LogsForDay implements domain.LogRepository.
func (r *Repository) LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]domain.ActivityLog, error) {
	day := domain.Day(date).Format(domain.DayLayout)
	logs, err := r.queryLogs(ctx,
		`SELECT l.log_id, l.activity_id, l.log_date, l.value_bool, l.value_minutes, l.updated_at
		FROM activity_logs l JOIN activities a ON a.activity_id = l.activity_id
		WHERE a.owner_id = ? AND l.log_date = ?`, ownerID, day)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]domain.ActivityLog, len(logs))
	for _, log := range logs {
		out[log.ActivityID] = log
	}
	return out, nil
}

// LogsForPeriod implements domain.LogRepository.
func (r *Repository) LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.ActivityLog, error) {
	return r.queryLogs(ctx,
		`SELECT l.log_id, l.activity_id, l.log_date, l.value_bool, l.value_minutes, l.updated_at
		FROM activity_logs l JOIN activities a ON a.activity_id = l.activity_id
		WHERE a.owner_id = ? AND l.log_date BETWEEN ? AND ?
		ORDER BY l.log_date, l.activity_id`,
		ownerID, domain.Day(start).Format(domain.DayLayout), domain.Day(end).Format(domain.DayLayout))
}

// AggregateForPeriod implements domain.LogRepository.
func (r *Repository) AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.PeriodTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.activity_id, a.name, a.activity_type,
			COALESCE(SUM(l.value_minutes), 0),
			COALESCE(SUM(CASE WHEN l.value_bool = 1 THEN 1 ELSE 0 END), 0)
		FROM activities a JOIN activity_logs l ON l.activity_id = a.activity_id
		WHERE a.owner_id = ? AND l.log_date BETWEEN ? AND ?
		GROUP BY a.activity_id, a.name, a.activity_type
		ORDER BY a.activity_id`,
		ownerID, domain.Day(start).Format(domain.DayLayout), domain.Day(end).Format(domain.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PeriodTotal, 0)
	for rows.Next() {
		var (
			total        domain.PeriodTotal
			activityType string
		)
		if err := rows.Scan(&total.ActivityID, &total.ActivityName, &activityType, &total.TotalMinutes, &total.TotalTrueDays); err != nil {
			return nil, fmt.Errorf("aggregate scan: %w", err)
		}
		total.ActivityType = domain.ActivityType(activityType)
		out = append(out, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate rows: %w", err)
	}
	return out, nil
}

func (r *Repository) queryLogs(ctx context.Context, query string, args ...any) ([]domain.ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("log query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ActivityLog, 0)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("log scan: %w", err)
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("log rows: %w", err)
	}
	return out, nil
}

func activityInTx(ctx context.Context, tx *sql.Tx, ownerID, activityID int64) (domain.Activity, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT activity_id, owner_id, name, activity_type, created_at FROM activities WHERE owner_id = ? AND activity_id = ?`,
		ownerID, activityID)
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity, err
}

type scanner interface {
	Scan(dest ...any) error
}

func optionalActivity(row scanner) (*domain.Activity, error) {
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activity get: %w", err)
	}
	return &activity, nil
}

func scanActivity(row scanner) (domain.Activity, error) {
	var (
		activity     domain.Activity
		activityType string
		createdAt    string
	)
	if err := row.Scan(&activity.ID, &activity.OwnerID, &activity.Name, &activityType, &createdAt); err != nil {
		return domain.Activity{}, err
	}
	activity.Type = domain.ActivityType(activityType)
	activity.CreatedAt = parseTime(createdAt)
	return activity, nil
}

func scanLog(row scanner) (domain.ActivityLog, error) {
	var (
		log       domain.ActivityLog
		date      string
		valueBool sql.NullBool
		minutes   sql.NullInt64
		updatedAt string
	)
	if err := row.Scan(&log.ID, &log.ActivityID, &date, &valueBool, &minutes, &updatedAt); err != nil {
		return domain.ActivityLog{}, err
	}
	day, err := domain.ParseDay(date)
	if err != nil {
		return domain.ActivityLog{}, err
	}
	log.Date = day
	if valueBool.Valid {
		v := valueBool.Bool
		log.ValueBool = &v
	}
	if minutes.Valid {
		v := int(minutes.Int64)
		log.ValueMinutes = &v
	}
	log.UpdatedAt = parseTime(updatedAt)
	return log, nil
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
