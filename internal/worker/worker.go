// Package worker drains the pending notification queue and delivers email.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
	"github.com/Sri-Charith/Hevaul-AI/internal/mailer"
	"github.com/Sri-Charith/Hevaul-AI/internal/metrics"
	"github.com/Sri-Charith/Hevaul-AI/internal/render"
)

// Repository is the slice of the store the worker needs.
type Repository interface {
	GetPendingNotifications(ctx context.Context, limit int) ([]*db.Notification, error)
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errorMsg *string) error
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
}

// optOutNote is stored in the error column when a record is marked sent
// because the user opted out. The record counts as handled even though no
// email went out; downstream consumers rely on status=sent meaning exactly
// that.
const optOutNote = "User disabled email notifications"

// Config tunes the polling loop.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// SendTimeout bounds each transport call so a hung relay cannot stall
	// the batch. A timeout counts as a transport failure.
	SendTimeout time.Duration
}

// Worker polls for pending notification records and delivers them one at a
// time, oldest first. Delivery is one-shot: a record leaves pending exactly
// once, to sent or failed, and is never picked up again.
//
// Run a single Worker per deployment. The pending fetch takes no locks, so
// concurrent workers could double-send.
type Worker struct {
	repo     Repository
	registry *render.Registry
	mailer   mailer.Mailer
	config   Config
	logger   *zap.Logger
}

// New creates a delivery worker
func New(repo Repository, registry *render.Registry, m mailer.Mailer, cfg Config, logger *zap.Logger) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	return &Worker{
		repo:     repo,
		registry: registry,
		mailer:   m,
		config:   cfg,
		logger:   logger,
	}
}

// Start runs one batch immediately, then one per poll interval until the
// context is cancelled. The cadence is fixed; a slow or erroring tick does
// not change it.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("delivery worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.processBatch(ctx)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch is one worker tick: fetch up to BatchSize pending records,
// oldest first, and process them strictly in sequence. Sequential sends
// bound the outbound burst rate and keep failure attribution simple.
func (w *Worker) processBatch(ctx context.Context) {
	notifications, err := w.repo.GetPendingNotifications(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to get pending notifications", zap.Error(err))
		return
	}
	if len(notifications) == 0 {
		return
	}

	w.logger.Info("processing pending notifications", zap.Int("count", len(notifications)))

	for _, notif := range notifications {
		w.processNotification(ctx, notif)
	}
}

// processNotification takes one record through the state machine. A failure
// here never aborts the rest of the batch.
func (w *Worker) processNotification(ctx context.Context, notif *db.Notification) {
	user, err := w.repo.GetUser(ctx, notif.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			w.logger.Error("user not found for notification",
				zap.String("notification_id", notif.ID.String()),
				zap.String("user_id", notif.UserID.String()),
			)
			w.markFailed(ctx, notif, "User not found")
			return
		}
		// Transient store error: leave the record pending for the next tick.
		w.logger.Error("failed to resolve user",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return
	}

	if !user.EmailNotifications {
		w.logger.Info("email disabled for user, marking handled",
			zap.String("notification_id", notif.ID.String()),
			zap.String("user_id", user.ID.String()),
		)
		note := optOutNote
		if err := w.repo.UpdateNotificationStatus(ctx, notif.ID, db.StatusSent, nil, &note); err != nil {
			w.logger.Error("failed to mark notification handled",
				zap.Error(err),
				zap.String("notification_id", notif.ID.String()),
			)
			return
		}
		metrics.RecordNotificationProcessed(db.StatusSent, notif.Type)
		return
	}

	content := w.registry.Render(notif, user)

	sendCtx, cancel := context.WithTimeout(ctx, w.config.SendTimeout)
	err = w.mailer.Send(sendCtx, user.Email, content.Subject, content.Text, content.HTML)
	cancel()

	if err != nil {
		w.logger.Error("failed to send notification email",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
			zap.String("to", user.Email),
		)
		w.markFailed(ctx, notif, err.Error())
		return
	}

	now := time.Now()
	if err := w.repo.UpdateNotificationStatus(ctx, notif.ID, db.StatusSent, &now, nil); err != nil {
		w.logger.Error("failed to mark notification sent",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return
	}

	metrics.RecordNotificationProcessed(db.StatusSent, notif.Type)
	metrics.RecordNotificationLatency(notif.Type, now.Sub(notif.CreatedAt))

	w.logger.Info("notification sent",
		zap.String("notification_id", notif.ID.String()),
		zap.String("type", notif.Type),
		zap.String("to", user.Email),
	)
}

// markFailed records a terminal failure. Failed records are never retried
// automatically; an operator has to reset them to pending by hand.
func (w *Worker) markFailed(ctx context.Context, notif *db.Notification, reason string) {
	if err := w.repo.UpdateNotificationStatus(ctx, notif.ID, db.StatusFailed, nil, &reason); err != nil {
		w.logger.Error("failed to mark notification failed",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return
	}
	metrics.RecordNotificationProcessed(db.StatusFailed, notif.Type)
}
