package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides Postgres-backed persistence for activities, logs and outbox events.
type Repository struct {
	pool   *pgxpool.Pool
	outbox bool
	now    func() time.Time
}

// Option configures optional Repository behaviour.
type Option func(*Repository)

// WithoutOutbox disables outbox rows for deployments that run no dispatcher.
func WithoutOutbox() Option {
	return func(r *Repository) {
		r.outbox = false
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{
		pool:   pool,
		outbox: true,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateActivity inserts the activity and its creation event in one transaction.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO activities (owner_id, name, activity_type, created_at)
        VALUES ($1,$2,$3,$4) RETURNING activity_id`

	activity.CreatedAt = r.now()
	if err := tx.QueryRow(ctx, stmt, activity.OwnerID, activity.Name, string(activity.Type), activity.CreatedAt).Scan(&activity.ID); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrDuplicateName, activity.Name)
		}
		return domain.Activity{}, err
	}

	if r.outbox {
		if err := insertOutbox(ctx, tx, activityCreatedRecord(activity)); err != nil {
			return domain.Activity{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// GetActivity retrieves an activity by ID within the owner scope.
func (r *Repository) GetActivity(ctx context.Context, ownerID, activityID int64) (*domain.Activity, error) {
	const query = `SELECT activity_id, owner_id, name, activity_type, created_at
        FROM activities WHERE owner_id=$1 AND activity_id=$2`

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, ownerID, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// FindActivityByName looks up an activity by its exact, case-sensitive name.
func (r *Repository) FindActivityByName(ctx context.Context, ownerID int64, name string) (*domain.Activity, error) {
	const query = `SELECT activity_id, owner_id, name, activity_type, created_at
        FROM activities WHERE owner_id=$1 AND name=$2`

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, ownerID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListActivities returns the owner's activities in creation order.
func (r *Repository) ListActivities(ctx context.Context, ownerID int64) ([]domain.Activity, error) {
	const query = `SELECT activity_id, owner_id, name, activity_type, created_at
        FROM activities WHERE owner_id=$1 ORDER BY activity_id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteActivity removes the activity; activity_logs rows go with it through ON DELETE CASCADE.
func (r *Repository) DeleteActivity(ctx context.Context, ownerID, activityID int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE owner_id=$1 AND activity_id=$2`, ownerID, activityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}

	if r.outbox {
		if err := insertOutbox(ctx, tx, activityDeletedRecord(ownerID, activityID, r.now())); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetOrCreateLog returns the (activity, day) log, inserting the type-correct default on first touch.
func (r *Repository) GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (domain.Activity, domain.ActivityLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	defer tx.Rollback(ctx)

	activity, err := activityInTx(ctx, tx, ownerID, activityID)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	log, err := r.materializeLog(ctx, tx, activity, date, false)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	return activity, log, nil
}

// MutateLog locks the (activity, day) log, applies mutate and commits the
// new value together with its outbox event.
func (r *Repository) MutateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate domain.LogMutation) (domain.Activity, domain.ActivityLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	defer tx.Rollback(ctx)

	activity, err := activityInTx(ctx, tx, ownerID, activityID)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	log, err := r.materializeLog(ctx, tx, activity, date, true)
	if err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	if err := mutate(activity, &log); err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	log.UpdatedAt = r.now()
	const update = `UPDATE activity_logs SET value_bool=$1, value_minutes=$2, updated_at=$3 WHERE log_id=$4`
	if _, err := tx.Exec(ctx, update, log.ValueBool, log.ValueMinutes, log.UpdatedAt, log.ID); err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}

	if r.outbox {
		if err := insertOutbox(ctx, tx, logUpdatedRecord(activity, log)); err != nil {
			return domain.Activity{}, domain.ActivityLog{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Activity{}, domain.ActivityLog{}, err
	}
	observability.RecordLogPersisted(log.UpdatedAt)
	return activity, log, nil
}

// materializeLog inserts the default row if absent and reads it back,
// optionally holding a row lock until the transaction ends.
func (r *Repository) materializeLog(ctx context.Context, tx pgx.Tx, activity domain.Activity, date time.Time, lock bool) (domain.ActivityLog, error) {
	log := domain.NewLog(activity, date)

	const insert = `INSERT INTO activity_logs (activity_id, log_date, value_bool, value_minutes, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (activity_id, log_date) DO NOTHING`
	if _, err := tx.Exec(ctx, insert, log.ActivityID, log.Date, log.ValueBool, log.ValueMinutes, r.now()); err != nil {
		if code := pgCode(err); code == pgUniqueViolation || code == pgForeignKeyViolation {
			return domain.ActivityLog{}, fmt.Errorf("%w: %v", domain.ErrStorageIntegrity, err)
		}
		return domain.ActivityLog{}, err
	}

	query := `SELECT log_id, activity_id, log_date, value_bool, value_minutes, updated_at
        FROM activity_logs WHERE activity_id=$1 AND log_date=$2`
	if lock {
		query += ` FOR UPDATE`
	}
	return scanLog(tx.QueryRow(ctx, query, log.ActivityID, log.Date))
}

// LogsForDay returns the owner's logs for one day keyed by activity id.
func (r *Repository) LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]domain.ActivityLog, error) {
	const query = `SELECT l.log_id, l.activity_id, l.log_date, l.value_bool, l.value_minutes, l.updated_at
        FROM activity_logs l JOIN activities a ON a.activity_id = l.activity_id
        WHERE a.owner_id=$1 AND l.log_date=$2`

	rows, err := r.pool.Query(ctx, query, ownerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[int64]domain.ActivityLog)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		results[log.ActivityID] = log
	}
	return results, rows.Err()
}

// LogsForPeriod returns the owner's logs within [start, end] ordered by day then activity.
func (r *Repository) LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.ActivityLog, error) {
	const query = `SELECT l.log_id, l.activity_id, l.log_date, l.value_bool, l.value_minutes, l.updated_at
        FROM activity_logs l JOIN activities a ON a.activity_id = l.activity_id
        WHERE a.owner_id=$1 AND l.log_date BETWEEN $2 AND $3
        ORDER BY l.log_date, l.activity_id`

	rows, err := r.pool.Query(ctx, query, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityLog, 0)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, log)
	}
	return results, rows.Err()
}

// AggregateForPeriod groups logs in [start, end] per activity.
func (r *Repository) AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.PeriodTotal, error) {
	const query = `SELECT a.activity_id, a.name, a.activity_type,
            COALESCE(SUM(l.value_minutes), 0),
            COALESCE(SUM(CASE WHEN l.value_bool THEN 1 ELSE 0 END), 0)
        FROM activities a JOIN activity_logs l ON l.activity_id = a.activity_id
        WHERE a.owner_id=$1 AND l.log_date BETWEEN $2 AND $3
        GROUP BY a.activity_id, a.name, a.activity_type
        ORDER BY a.activity_id`

	rows, err := r.pool.Query(ctx, query, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.PeriodTotal, 0)
	for rows.Next() {
		var (
			total        domain.PeriodTotal
			activityType string
			minutes      int64
			trueDays     int64
		)
		if err := rows.Scan(&total.ActivityID, &total.ActivityName, &activityType, &minutes, &trueDays); err != nil {
			return nil, err
		}
		total.ActivityType = domain.ActivityType(activityType)
		total.TotalMinutes = int(minutes)
		total.TotalTrueDays = int(trueDays)
		results = append(results, total)
	}
	return results, rows.Err()
}

func activityInTx(ctx context.Context, tx pgx.Tx, ownerID, activityID int64) (domain.Activity, error) {
	const query = `SELECT activity_id, owner_id, name, activity_type, created_at
        FROM activities WHERE owner_id=$1 AND activity_id=$2 FOR SHARE`

	activity, err := scanActivity(tx.QueryRow(ctx, query, ownerID, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity, err
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		activity     domain.Activity
		activityType string
	)
	if err := row.Scan(&activity.ID, &activity.OwnerID, &activity.Name, &activityType, &activity.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	activity.Type = domain.ActivityType(activityType)
	return activity, nil
}

func scanLog(row pgx.Row) (domain.ActivityLog, error) {
	var log domain.ActivityLog
	if err := row.Scan(&log.ID, &log.ActivityID, &log.Date, &log.ValueBool, &log.ValueMinutes, &log.UpdatedAt); err != nil {
		return domain.ActivityLog{}, err
	}
	log.Date = domain.Day(log.Date)
	return log, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
