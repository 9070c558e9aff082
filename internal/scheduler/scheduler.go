// Package scheduler runs the fixed wall-clock reminder jobs. These are the
// fire-and-forget tier of outbound email: no durable record, no retry, a
// per-user failure is logged and the loop moves on. User-facing alerts go
// through the durable queue in internal/worker instead; the two tiers are
// deliberately separate.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
	"github.com/Sri-Charith/Hevaul-AI/internal/mailer"
)

// Repository is the slice of the store the reminder jobs need.
type Repository interface {
	ListUsersWithEmailEnabled(ctx context.Context) ([]*db.User, error)
	ListMedicationsDueAt(ctx context.Context, hhmm string, now time.Time) ([]*db.DueMedication, error)
}

// Scheduler owns the cron registrations. Constructed once by the process
// entry point, with an explicit Start/Stop lifecycle; tests trigger the job
// bodies directly instead of waiting on the clock.
type Scheduler struct {
	cron   gocron.Scheduler
	jobs   *Jobs
	logger *zap.Logger
}

// New creates the scheduler and registers every reminder job:
// meals at 08:00, 12:00 and 19:00; water every two hours from 08:00 to
// 20:00; bedtime at 22:00; a medication scan every minute.
func New(repo Repository, m mailer.Mailer, logger *zap.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		cron:   cron,
		jobs:   NewJobs(repo, m, logger),
		logger: logger,
	}

	meals := map[string]string{
		"breakfast": "0 8 * * *",
		"lunch":     "0 12 * * *",
		"dinner":    "0 19 * * *",
	}
	for meal, expr := range meals {
		meal := meal
		_, err := cron.NewJob(
			gocron.CronJob(expr, false),
			gocron.NewTask(func() {
				s.jobs.SendMealReminders(context.Background(), meal)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("register %s reminder: %w", meal, err)
		}
	}

	for hour := 8; hour <= 20; hour += 2 {
		_, err := cron.NewJob(
			gocron.CronJob(fmt.Sprintf("0 %d * * *", hour), false),
			gocron.NewTask(func() {
				s.jobs.SendWaterReminders(context.Background())
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("register water reminder: %w", err)
		}
	}

	_, err = cron.NewJob(
		gocron.CronJob("0 22 * * *", false),
		gocron.NewTask(func() {
			s.jobs.SendBedtimeReminders(context.Background())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("register bedtime reminder: %w", err)
	}

	_, err = cron.NewJob(
		gocron.CronJob("* * * * *", false),
		gocron.NewTask(func() {
			s.jobs.SendMedicationReminders(context.Background(), time.Now())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("register medication reminder: %w", err)
	}

	return s, nil
}

// Start begins executing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started", zap.Int("jobs", len(s.cron.Jobs())))
}

// Stop shuts the scheduler down and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.logger.Info("reminder scheduler stopping")
	return s.cron.Shutdown()
}
