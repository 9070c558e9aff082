package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
	"github.com/Sri-Charith/Hevaul-AI/internal/render"
)

type MockRepository struct {
	notifications []*db.Notification
	users         map[uuid.UUID]*db.User
	updateCalls   []updateCall
	shouldFail    bool
	userErr       error
}

type updateCall struct {
	id       uuid.UUID
	status   string
	sentAt   *time.Time
	errorMsg *string
}

func (m *MockRepository) GetPendingNotifications(ctx context.Context, limit int) ([]*db.Notification, error) {
	if m.shouldFail {
		return nil, errors.New("database error")
	}
	if len(m.notifications) > limit {
		return m.notifications[:limit], nil
	}
	return m.notifications, nil
}

func (m *MockRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errorMsg *string) error {
	if m.shouldFail {
		return errors.New("database error")
	}
	m.updateCalls = append(m.updateCalls, updateCall{id, status, sentAt, errorMsg})
	return nil
}

func (m *MockRepository) GetUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return user, nil
}

type MockMailer struct {
	shouldFail bool
	failWith   string
	sendCalls  int
	lastTo     string
	lastSubj   string
}

func (m *MockMailer) Send(ctx context.Context, to, subject, text, html string) error {
	m.sendCalls++
	m.lastTo = to
	m.lastSubj = subject
	if m.shouldFail {
		if m.failWith != "" {
			return errors.New(m.failWith)
		}
		return errors.New("send failed")
	}
	return nil
}

func testUser(emailEnabled bool) *db.User {
	return &db.User{
		ID:                 uuid.New(),
		Name:               "Priya",
		Email:              "priya@example.com",
		EmailNotifications: emailEnabled,
	}
}

func newTestWorker(repo *MockRepository, m *MockMailer, cfg Config) *Worker {
	return New(repo, render.NewRegistry("http://localhost:5173"), m, cfg, zap.NewNop())
}

func TestWorker_ProcessNotification_Success(t *testing.T) {
	user := testUser(true)
	repo := &MockRepository{users: map[uuid.UUID]*db.User{user.ID: user}}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})

	notif := &db.Notification{
		ID:        uuid.New(),
		UserID:    user.ID,
		Type:      db.TypeGeneral,
		Title:     "Hello",
		Message:   "world",
		Status:    db.StatusPending,
		CreatedAt: time.Now().Add(-time.Minute),
	}

	w.processNotification(context.Background(), notif)

	if m.sendCalls != 1 {
		t.Errorf("expected 1 send call, got %d", m.sendCalls)
	}
	if m.lastTo != user.Email {
		t.Errorf("expected send to '%s', got '%s'", user.Email, m.lastTo)
	}

	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateCalls))
	}
	call := repo.updateCalls[0]
	if call.status != db.StatusSent {
		t.Errorf("expected status 'sent', got '%s'", call.status)
	}
	if call.sentAt == nil {
		t.Error("expected sent_at to be set")
	}
	if call.errorMsg != nil {
		t.Errorf("expected no error message, got '%s'", *call.errorMsg)
	}
}

func TestWorker_ProcessNotification_SendFailure(t *testing.T) {
	user := testUser(true)
	repo := &MockRepository{users: map[uuid.UUID]*db.User{user.ID: user}}
	m := &MockMailer{shouldFail: true, failWith: "smtp: connection refused"}

	w := newTestWorker(repo, m, Config{})

	notif := &db.Notification{
		ID:     uuid.New(),
		UserID: user.ID,
		Type:   db.TypeCalorieLimitDaily,
		Status: db.StatusPending,
	}

	w.processNotification(context.Background(), notif)

	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateCalls))
	}
	call := repo.updateCalls[0]
	if call.status != db.StatusFailed {
		t.Errorf("expected status 'failed', got '%s'", call.status)
	}
	if call.sentAt != nil {
		t.Error("expected no sent_at on failure")
	}
	if call.errorMsg == nil || *call.errorMsg != "smtp: connection refused" {
		t.Errorf("expected transport error to be recorded, got %v", call.errorMsg)
	}
}

func TestWorker_ProcessNotification_UserNotFound(t *testing.T) {
	repo := &MockRepository{users: map[uuid.UUID]*db.User{}}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})

	notif := &db.Notification{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Type:   db.TypeGeneral,
		Status: db.StatusPending,
	}

	w.processNotification(context.Background(), notif)

	if m.sendCalls != 0 {
		t.Errorf("expected 0 send calls, got %d", m.sendCalls)
	}
	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateCalls))
	}
	call := repo.updateCalls[0]
	if call.status != db.StatusFailed {
		t.Errorf("expected status 'failed', got '%s'", call.status)
	}
	if call.errorMsg == nil || *call.errorMsg != "User not found" {
		t.Errorf("expected error 'User not found', got %v", call.errorMsg)
	}
}

func TestWorker_ProcessNotification_EmailDisabled(t *testing.T) {
	user := testUser(false)
	repo := &MockRepository{users: map[uuid.UUID]*db.User{user.ID: user}}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})

	notif := &db.Notification{
		ID:     uuid.New(),
		UserID: user.ID,
		Type:   db.TypeCalorieLimitDaily,
		Status: db.StatusPending,
	}

	w.processNotification(context.Background(), notif)

	// Opted-out users count as handled without any email going out.
	if m.sendCalls != 0 {
		t.Errorf("expected 0 send calls for opted-out user, got %d", m.sendCalls)
	}
	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(repo.updateCalls))
	}
	call := repo.updateCalls[0]
	if call.status != db.StatusSent {
		t.Errorf("expected status 'sent', got '%s'", call.status)
	}
	if call.sentAt != nil {
		t.Error("expected no sent_at for opted-out user")
	}
	if call.errorMsg == nil || *call.errorMsg != "User disabled email notifications" {
		t.Errorf("expected opt-out note, got %v", call.errorMsg)
	}
}

func TestWorker_ProcessNotification_TransientUserLookupError(t *testing.T) {
	repo := &MockRepository{userErr: errors.New("connection reset")}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})

	notif := &db.Notification{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: db.StatusPending,
	}

	w.processNotification(context.Background(), notif)

	// A transient lookup error leaves the record pending for the next tick.
	if len(repo.updateCalls) != 0 {
		t.Errorf("expected 0 update calls, got %d", len(repo.updateCalls))
	}
	if m.sendCalls != 0 {
		t.Errorf("expected 0 send calls, got %d", m.sendCalls)
	}
}

func TestWorker_ProcessBatch_FailureIsolation(t *testing.T) {
	goodUser := testUser(true)
	repo := &MockRepository{
		users: map[uuid.UUID]*db.User{goodUser.ID: goodUser},
		notifications: []*db.Notification{
			{ID: uuid.New(), UserID: uuid.New(), Type: db.TypeGeneral, Status: db.StatusPending}, // orphan
			{ID: uuid.New(), UserID: goodUser.ID, Type: db.TypeGeneral, Status: db.StatusPending},
		},
	}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})
	w.processBatch(context.Background())

	// The orphaned record fails but the next one still sends.
	if m.sendCalls != 1 {
		t.Errorf("expected 1 send call, got %d", m.sendCalls)
	}
	if len(repo.updateCalls) != 2 {
		t.Fatalf("expected 2 update calls, got %d", len(repo.updateCalls))
	}
	if repo.updateCalls[0].status != db.StatusFailed {
		t.Errorf("expected first record 'failed', got '%s'", repo.updateCalls[0].status)
	}
	if repo.updateCalls[1].status != db.StatusSent {
		t.Errorf("expected second record 'sent', got '%s'", repo.updateCalls[1].status)
	}
}

func TestWorker_ProcessBatch_RespectsBatchSize(t *testing.T) {
	user := testUser(true)
	repo := &MockRepository{users: map[uuid.UUID]*db.User{user.ID: user}}
	for i := 0; i < 11; i++ {
		repo.notifications = append(repo.notifications, &db.Notification{
			ID:     uuid.New(),
			UserID: user.ID,
			Type:   db.TypeGeneral,
			Status: db.StatusPending,
		})
	}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{BatchSize: 10})
	w.processBatch(context.Background())

	if m.sendCalls != 10 {
		t.Errorf("expected 10 send calls, got %d", m.sendCalls)
	}
}

func TestWorker_ProcessBatch_EmptyQueue(t *testing.T) {
	repo := &MockRepository{notifications: []*db.Notification{}}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})
	w.processBatch(context.Background())

	if m.sendCalls != 0 {
		t.Errorf("expected 0 send calls for empty queue, got %d", m.sendCalls)
	}
}

func TestWorker_ProcessBatch_DatabaseError(t *testing.T) {
	repo := &MockRepository{shouldFail: true}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{})
	w.processBatch(context.Background())

	if m.sendCalls != 0 {
		t.Errorf("expected 0 send calls on db error, got %d", m.sendCalls)
	}
}

func TestWorker_Start_RunsImmediately(t *testing.T) {
	user := testUser(true)
	repo := &MockRepository{
		users: map[uuid.UUID]*db.User{user.ID: user},
		notifications: []*db.Notification{
			{ID: uuid.New(), UserID: user.ID, Type: db.TypeGeneral, Status: db.StatusPending},
		},
	}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		w.Start(ctx)
		done <- true
	}()

	// The first batch runs at start, not after the first interval.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if m.sendCalls != 1 {
		t.Errorf("expected 1 send call from the startup batch, got %d", m.sendCalls)
	}
}

func TestWorker_Start_GracefulShutdown(t *testing.T) {
	repo := &MockRepository{}
	m := &MockMailer{}

	w := newTestWorker(repo, m, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool)
	go func() {
		w.Start(ctx)
		done <- true
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// worker stopped
	case <-time.After(1 * time.Second):
		t.Error("worker did not stop within timeout")
	}
}

func TestNew_Defaults(t *testing.T) {
	w := newTestWorker(&MockRepository{}, &MockMailer{}, Config{})

	if w.config.PollInterval != 60*time.Second {
		t.Errorf("expected default PollInterval 60s, got %v", w.config.PollInterval)
	}
	if w.config.BatchSize != 10 {
		t.Errorf("expected default BatchSize 10, got %d", w.config.BatchSize)
	}
	if w.config.SendTimeout != 30*time.Second {
		t.Errorf("expected default SendTimeout 30s, got %v", w.config.SendTimeout)
	}
}
