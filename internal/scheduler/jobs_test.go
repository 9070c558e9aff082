package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
)

type MockRepository struct {
	users    []*db.User
	usersErr error
	due      []*db.DueMedication
	dueErr   error
	lastHHMM string
}

func (m *MockRepository) ListUsersWithEmailEnabled(ctx context.Context) ([]*db.User, error) {
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	return m.users, nil
}

func (m *MockRepository) ListMedicationsDueAt(ctx context.Context, hhmm string, now time.Time) ([]*db.DueMedication, error) {
	m.lastHHMM = hhmm
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	return m.due, nil
}

type MockMailer struct {
	sends   []sentMail
	failFor string // recipient address that errors
}

type sentMail struct {
	to      string
	subject string
}

func (m *MockMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if to == m.failFor {
		return errors.New("send failed")
	}
	m.sends = append(m.sends, sentMail{to, subject})
	return nil
}

func reminderUser(email string) *db.User {
	return &db.User{
		ID:                 uuid.New(),
		Name:               "Priya",
		Email:              email,
		EmailNotifications: true,
	}
}

func TestSendMealReminders(t *testing.T) {
	repo := &MockRepository{
		users: []*db.User{reminderUser("a@example.com"), reminderUser("b@example.com")},
	}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMealReminders(context.Background(), "breakfast")

	if len(m.sends) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(m.sends))
	}
	if m.sends[0].subject != "Breakfast Reminder" {
		t.Errorf("unexpected subject '%s'", m.sends[0].subject)
	}
}

func TestSendMealReminders_FailureContinues(t *testing.T) {
	repo := &MockRepository{
		users: []*db.User{
			reminderUser("bad@example.com"),
			reminderUser("good@example.com"),
		},
	}
	m := &MockMailer{failFor: "bad@example.com"}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMealReminders(context.Background(), "lunch")

	// One recipient failing must not stop the rest of the loop.
	if len(m.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(m.sends))
	}
	if m.sends[0].to != "good@example.com" {
		t.Errorf("expected the remaining user to get the reminder, got '%s'", m.sends[0].to)
	}
}

func TestSendMealReminders_ListError(t *testing.T) {
	repo := &MockRepository{usersErr: errors.New("db down")}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMealReminders(context.Background(), "dinner")

	if len(m.sends) != 0 {
		t.Errorf("expected no sends when the user list fails, got %d", len(m.sends))
	}
}

func TestSendWaterReminders(t *testing.T) {
	repo := &MockRepository{users: []*db.User{reminderUser("a@example.com")}}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendWaterReminders(context.Background())

	if len(m.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(m.sends))
	}
	if m.sends[0].subject != "Water Intake Reminder" {
		t.Errorf("unexpected subject '%s'", m.sends[0].subject)
	}
}

func TestSendBedtimeReminders(t *testing.T) {
	repo := &MockRepository{users: []*db.User{reminderUser("a@example.com")}}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendBedtimeReminders(context.Background())

	if len(m.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(m.sends))
	}
	if m.sends[0].subject != "Bedtime Reminder" {
		t.Errorf("unexpected subject '%s'", m.sends[0].subject)
	}
}

func TestSendMedicationReminders(t *testing.T) {
	user := reminderUser("a@example.com")
	repo := &MockRepository{
		due: []*db.DueMedication{
			{
				Medication: db.Medication{Name: "Metformin", Dosage: "500mg"},
				User:       *user,
			},
		},
	}
	m := &MockMailer{}

	now := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC)

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMedicationReminders(context.Background(), now)

	if repo.lastHHMM != "08:00" {
		t.Errorf("expected scan at '08:00', got '%s'", repo.lastHHMM)
	}
	if len(m.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(m.sends))
	}
	if m.sends[0].subject != "Medication Reminder: Metformin" {
		t.Errorf("unexpected subject '%s'", m.sends[0].subject)
	}
}

func TestSendMedicationReminders_SkipsOptedOut(t *testing.T) {
	optedOut := reminderUser("quiet@example.com")
	optedOut.EmailNotifications = false

	repo := &MockRepository{
		due: []*db.DueMedication{
			{Medication: db.Medication{Name: "Aspirin", Dosage: "75mg"}, User: *optedOut},
		},
	}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMedicationReminders(context.Background(), time.Now())

	if len(m.sends) != 0 {
		t.Errorf("expected no sends for opted-out user, got %d", len(m.sends))
	}
}

func TestSendMedicationReminders_ScanError(t *testing.T) {
	repo := &MockRepository{dueErr: errors.New("query failed")}
	m := &MockMailer{}

	j := NewJobs(repo, m, zap.NewNop())
	j.SendMedicationReminders(context.Background(), time.Now())

	if len(m.sends) != 0 {
		t.Errorf("expected no sends on scan error, got %d", len(m.sends))
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	repo := &MockRepository{}
	m := &MockMailer{}

	s, err := New(repo, m, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 3 meals + 7 water slots + bedtime + medication scan.
	if got := len(s.cron.Jobs()); got != 12 {
		t.Errorf("expected 12 registered jobs, got %d", got)
	}

	s.Start()
	if err := s.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
