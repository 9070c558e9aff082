package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository handles database operations for notifications and the domain
// records they reference.
//
// The pending-notification fetch takes no row locks; the deployment
// assumption is a single delivery worker process.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateNotification inserts a new notification into the database
func (r *Repository) CreateNotification(ctx context.Context, notif *Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, title, message, metadata, status, is_read
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		notif.ID,
		notif.UserID,
		notif.Type,
		notif.Title,
		notif.Message,
		notif.Metadata,
		notif.Status,
		notif.IsRead,
	).Scan(&notif.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	r.logger.Info("notification created",
		zap.String("notification_id", notif.ID.String()),
		zap.String("user_id", notif.UserID.String()),
		zap.String("type", notif.Type),
	)

	return nil
}

const notificationColumns = `
	id, user_id, type, title, message, metadata,
	status, sent_at, error, is_read, created_at
`

func scanNotification(row pgx.Row) (*Notification, error) {
	var notif Notification
	err := row.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&notif.Metadata,
		&notif.Status,
		&notif.SentAt,
		&notif.Error,
		&notif.IsRead,
		&notif.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

// GetNotification retrieves a notification by ID
func (r *Repository) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	notif, err := scanNotification(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get notification",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return nil, fmt.Errorf("query notification: %w", err)
	}

	return notif, nil
}

// GetPendingNotifications fetches up to limit pending notifications,
// oldest first. created_at is the queue ordering key.
func (r *Repository) GetPendingNotifications(ctx context.Context, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notif)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, nil
}

// UpdateNotificationStatus transitions a pending notification to sent or
// failed. The WHERE clause refuses to touch records already in a terminal
// state, so transitions stay one-shot.
func (r *Repository) UpdateNotificationStatus(
	ctx context.Context,
	id uuid.UUID,
	status string,
	sentAt *time.Time,
	errorMsg *string,
) error {
	query := `
		UPDATE notifications
		SET status = $1, sent_at = $2, error = $3
		WHERE id = $4 AND status = 'pending'
	`

	result, err := r.db.Pool().Exec(ctx, query, status, sentAt, errorMsg, id)
	if err != nil {
		r.logger.Error("failed to update notification status",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return fmt.Errorf("update notification status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s is not pending: %w", id, ErrNotFound)
	}

	return nil
}

// MarkNotificationRead sets the user-facing read receipt. Independent of
// delivery status; the worker never touches is_read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteNotification removes a record. Admin/test use only; the delivery
// pipeline never deletes.
func (r *Repository) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListNotificationsByUser retrieves a user's notifications with pagination,
// newest first.
func (r *Repository) ListNotificationsByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	offset int,
) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notif)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, nil
}

const userColumns = `
	id, name, email, email_notifications,
	daily_calorie_limit, monthly_calorie_limit, created_at
`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.EmailNotifications,
		&user.DailyCalorieLimit,
		&user.MonthlyCalorieLimit,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser resolves a user reference. Returns ErrNotFound if the user is gone.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// ListUsersWithEmailEnabled returns every user who has opted into email
// notifications. Used by the scheduled reminder jobs.
func (r *Repository) ListUsersWithEmailEnabled(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_notifications = TRUE`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return users, nil
}

// CreateDietLog inserts a meal entry
func (r *Repository) CreateDietLog(ctx context.Context, log *DietLog) error {
	query := `
		INSERT INTO diet_logs (
			id, user_id, meal_type, total_calories, logged_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		log.ID,
		log.UserID,
		log.MealType,
		log.TotalCalories,
		log.LoggedAt,
		log.Notes,
	).Scan(&log.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert diet log: %w", err)
	}

	return nil
}

// ListDietLogsBetween returns a user's diet logs whose logged_at falls in
// [from, to]. The threshold evaluator re-scans the full period on every
// write, so this is the hot query of the trigger path.
func (r *Repository) ListDietLogsBetween(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
) ([]*DietLog, error) {
	query := `
		SELECT id, user_id, meal_type, total_calories, logged_at, notes, created_at
		FROM diet_logs
		WHERE user_id = $1 AND logged_at BETWEEN $2 AND $3
		ORDER BY logged_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query diet logs: %w", err)
	}
	defer rows.Close()

	var logs []*DietLog
	for rows.Next() {
		var log DietLog
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.MealType,
			&log.TotalCalories,
			&log.LoggedAt,
			&log.Notes,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan diet log: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return logs, nil
}

// ListDietLogsByUser retrieves a user's diet logs with pagination, newest first.
func (r *Repository) ListDietLogsByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	offset int,
) ([]*DietLog, error) {
	query := `
		SELECT id, user_id, meal_type, total_calories, logged_at, notes, created_at
		FROM diet_logs
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query diet logs: %w", err)
	}
	defer rows.Close()

	var logs []*DietLog
	for rows.Next() {
		var log DietLog
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.MealType,
			&log.TotalCalories,
			&log.LoggedAt,
			&log.Notes,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan diet log: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return logs, nil
}

// ListMedicationsDueAt returns active medications scheduled for the given
// "HH:MM" wall-clock time whose date window covers now, joined with their
// owners so the reminder job can gate on the email preference.
func (r *Repository) ListMedicationsDueAt(ctx context.Context, hhmm string, now time.Time) ([]*DueMedication, error) {
	query := `
		SELECT
			m.id, m.user_id, m.name, m.dosage, m.times,
			m.is_active, m.start_date, m.end_date, m.created_at,
			u.id, u.name, u.email, u.email_notifications,
			u.daily_calorie_limit, u.monthly_calorie_limit, u.created_at
		FROM medications m
		JOIN users u ON u.id = m.user_id
		WHERE m.is_active = TRUE
		  AND $1 = ANY(m.times)
		  AND m.start_date <= $2
		  AND (m.end_date IS NULL OR m.end_date >= $2)
	`

	rows, err := r.db.Pool().Query(ctx, query, hhmm, now)
	if err != nil {
		return nil, fmt.Errorf("query due medications: %w", err)
	}
	defer rows.Close()

	var due []*DueMedication
	for rows.Next() {
		var d DueMedication
		err := rows.Scan(
			&d.Medication.ID,
			&d.Medication.UserID,
			&d.Medication.Name,
			&d.Medication.Dosage,
			&d.Medication.Times,
			&d.Medication.IsActive,
			&d.Medication.StartDate,
			&d.Medication.EndDate,
			&d.Medication.CreatedAt,
			&d.User.ID,
			&d.User.Name,
			&d.User.Email,
			&d.User.EmailNotifications,
			&d.User.DailyCalorieLimit,
			&d.User.MonthlyCalorieLimit,
			&d.User.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due medication: %w", err)
		}
		due = append(due, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return due, nil
}
