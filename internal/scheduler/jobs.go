package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/mailer"
	"github.com/Sri-Charith/Hevaul-AI/internal/metrics"
)

// Jobs holds the reminder job bodies, separated from the cron wiring so
// tests can run one job synchronously.
type Jobs struct {
	repo   Repository
	mailer mailer.Mailer
	logger *zap.Logger
}

func NewJobs(repo Repository, m mailer.Mailer, logger *zap.Logger) *Jobs {
	return &Jobs{
		repo:   repo,
		mailer: m,
		logger: logger,
	}
}

// SendMealReminders emails every opted-in user a prompt to log the given
// meal ("breakfast", "lunch" or "dinner").
func (j *Jobs) SendMealReminders(ctx context.Context, mealType string) {
	users, err := j.repo.ListUsersWithEmailEnabled(ctx)
	if err != nil {
		j.logger.Error("meal reminder job: failed to list users",
			zap.Error(err),
			zap.String("meal", mealType),
		)
		return
	}

	subject := fmt.Sprintf("%s Reminder", capitalize(mealType))
	text := fmt.Sprintf("Time for %s! Don't forget to log your meal.", mealType)
	html := fmt.Sprintf(
		"<h2>%s Reminder</h2><p>Time for %s! Don't forget to log your meal.</p>",
		capitalize(mealType), mealType,
	)

	sent := 0
	for _, user := range users {
		if err := j.mailer.Send(ctx, user.Email, subject, text, html); err != nil {
			metrics.RecordReminderFailure("meal")
			j.logger.Error("failed to send meal reminder",
				zap.Error(err),
				zap.String("meal", mealType),
				zap.String("to", user.Email),
			)
			continue
		}
		metrics.RecordReminderSent("meal")
		sent++
	}

	j.logger.Info("meal reminders sent",
		zap.String("meal", mealType),
		zap.Int("sent", sent),
		zap.Int("users", len(users)),
	)
}

// SendWaterReminders emails every opted-in user a hydration prompt.
func (j *Jobs) SendWaterReminders(ctx context.Context) {
	users, err := j.repo.ListUsersWithEmailEnabled(ctx)
	if err != nil {
		j.logger.Error("water reminder job: failed to list users", zap.Error(err))
		return
	}

	const (
		subject = "Water Intake Reminder"
		text    = "Don't forget to drink water! Stay hydrated."
		html    = "<h2>Water Intake Reminder</h2><p>Don't forget to drink water! Stay hydrated throughout the day.</p>"
	)

	sent := 0
	for _, user := range users {
		if err := j.mailer.Send(ctx, user.Email, subject, text, html); err != nil {
			metrics.RecordReminderFailure("water")
			j.logger.Error("failed to send water reminder",
				zap.Error(err),
				zap.String("to", user.Email),
			)
			continue
		}
		metrics.RecordReminderSent("water")
		sent++
	}

	j.logger.Info("water reminders sent", zap.Int("sent", sent), zap.Int("users", len(users)))
}

// SendBedtimeReminders emails every opted-in user a wind-down prompt.
func (j *Jobs) SendBedtimeReminders(ctx context.Context) {
	users, err := j.repo.ListUsersWithEmailEnabled(ctx)
	if err != nil {
		j.logger.Error("bedtime reminder job: failed to list users", zap.Error(err))
		return
	}

	const (
		subject = "Bedtime Reminder"
		text    = "It's time to wind down and prepare for sleep. Don't forget to log your sleep time!"
		html    = "<h2>Bedtime Reminder</h2><p>It's time to wind down and prepare for sleep.</p><p>Don't forget to log your sleep time when you wake up!</p>"
	)

	sent := 0
	for _, user := range users {
		if err := j.mailer.Send(ctx, user.Email, subject, text, html); err != nil {
			metrics.RecordReminderFailure("bedtime")
			j.logger.Error("failed to send bedtime reminder",
				zap.Error(err),
				zap.String("to", user.Email),
			)
			continue
		}
		metrics.RecordReminderSent("bedtime")
		sent++
	}

	j.logger.Info("bedtime reminders sent", zap.Int("sent", sent), zap.Int("users", len(users)))
}

// SendMedicationReminders scans for active medications scheduled at the
// current wall-clock minute and emails each owner who has email enabled.
func (j *Jobs) SendMedicationReminders(ctx context.Context, now time.Time) {
	hhmm := now.Format("15:04")

	due, err := j.repo.ListMedicationsDueAt(ctx, hhmm, now)
	if err != nil {
		j.logger.Error("medication reminder job: scan failed",
			zap.Error(err),
			zap.String("time", hhmm),
		)
		return
	}

	for _, d := range due {
		if !d.User.EmailNotifications {
			continue
		}

		med := d.Medication
		subject := fmt.Sprintf("Medication Reminder: %s", med.Name)
		text := fmt.Sprintf("It's time to take your medication: %s (%s)", med.Name, med.Dosage)
		html := fmt.Sprintf(
			"<h2>Medication Reminder</h2><p>It's time to take your medication:</p><ul><li><strong>Name:</strong> %s</li><li><strong>Dosage:</strong> %s</li></ul>",
			med.Name, med.Dosage,
		)

		if err := j.mailer.Send(ctx, d.User.Email, subject, text, html); err != nil {
			metrics.RecordReminderFailure("medication")
			j.logger.Error("failed to send medication reminder",
				zap.Error(err),
				zap.String("medication", med.Name),
				zap.String("to", d.User.Email),
			)
			continue
		}

		metrics.RecordReminderSent("medication")
		j.logger.Info("medication reminder sent",
			zap.String("medication", med.Name),
			zap.String("to", d.User.Email),
			zap.String("time", hhmm),
		)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
