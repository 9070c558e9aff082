package threshold

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
	"github.com/Sri-Charith/Hevaul-AI/internal/metrics"
)

// Store is the slice of the repository the evaluator needs.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	ListDietLogsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*db.DietLog, error)
	CreateNotification(ctx context.Context, notif *db.Notification) error
}

// Evaluator runs synchronously inside the request that wrote a diet log and
// queues calorie-limit alerts as pending notification records.
type Evaluator struct {
	store  Store
	logger *zap.Logger
}

// NewEvaluator creates a threshold evaluator
func NewEvaluator(store Store, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		logger: logger,
	}
}

// OnDietLogWritten re-scans the calendar day and month containing the log's
// date and creates a pending notification for each breached limit.
//
// It never returns an error: recording the meal is the primary action, and
// a failure anywhere in the alerting path is logged and swallowed so the
// triggering write still succeeds.
func (e *Evaluator) OnDietLogWritten(ctx context.Context, log *db.DietLog) {
	user, err := e.store.GetUser(ctx, log.UserID)
	if err != nil {
		e.logger.Error("threshold evaluation skipped: user lookup failed",
			zap.Error(err),
			zap.String("user_id", log.UserID.String()),
		)
		return
	}

	dailyLimit := user.DailyCalorieLimit
	if dailyLimit <= 0 {
		dailyLimit = db.DefaultDailyCalorieLimit
	}
	monthlyLimit := user.MonthlyCalorieLimit
	if monthlyLimit <= 0 {
		monthlyLimit = db.DefaultMonthlyCalorieLimit
	}

	dayStart, dayEnd := DayRange(log.LoggedAt)
	dayLogs, err := e.store.ListDietLogsBetween(ctx, user.ID, dayStart, dayEnd)
	if err != nil {
		e.logger.Error("threshold evaluation skipped: day scan failed",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
		return
	}

	monthStart, monthEnd := MonthRange(log.LoggedAt)
	monthLogs, err := e.store.ListDietLogsBetween(ctx, user.ID, monthStart, monthEnd)
	if err != nil {
		e.logger.Error("threshold evaluation skipped: month scan failed",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
		return
	}

	intents := Evaluate(TotalCalories(dayLogs), dailyLimit, TotalCalories(monthLogs), monthlyLimit)

	for _, intent := range intents {
		notif := &db.Notification{
			ID:       uuid.New(),
			UserID:   user.ID,
			Type:     intent.Type,
			Title:    intent.Title,
			Message:  intent.Message,
			Metadata: intent.Metadata,
			Status:   db.StatusPending,
		}

		if err := e.store.CreateNotification(ctx, notif); err != nil {
			// Best effort: the alert is lost but the diet log write survives.
			e.logger.Error("failed to queue breach notification",
				zap.Error(err),
				zap.String("type", intent.Type),
				zap.String("user_id", user.ID.String()),
			)
			continue
		}

		metrics.RecordNotificationCreated(intent.Type)

		e.logger.Info("breach notification queued",
			zap.String("notification_id", notif.ID.String()),
			zap.String("type", intent.Type),
			zap.String("user_id", user.ID.String()),
		)
	}
}
