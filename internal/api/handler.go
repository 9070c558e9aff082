package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
	"github.com/Sri-Charith/Hevaul-AI/internal/metrics"
	"github.com/Sri-Charith/Hevaul-AI/internal/redis"
)

// Repository defines the database operations the handlers need.
type Repository interface {
	CreateDietLog(ctx context.Context, log *db.DietLog) error
	ListDietLogsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*db.DietLog, error)
	CreateNotification(ctx context.Context, notif *db.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*db.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*db.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

// Alerter runs threshold evaluation after a diet-log write. It must not
// fail: alerting errors stay inside the evaluator.
type Alerter interface {
	OnDietLogWritten(ctx context.Context, log *db.DietLog)
}

// DietLogRequest represents the incoming diet-log body
type DietLogRequest struct {
	UserID        string  `json:"user_id"`
	MealType      string  `json:"meal_type"`
	TotalCalories float64 `json:"total_calories"`
	LoggedAt      string  `json:"logged_at,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// NotificationRequest is the debug trigger body: it creates a raw pending
// record for manual verification of the delivery pipeline.
type NotificationRequest struct {
	UserID   string          `json:"user_id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// CreatedResponse is returned after creating a resource
type CreatedResponse struct {
	ID string `json:"id"`
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger      *zap.Logger
	repo        Repository
	alerter     Alerter
	idempotency *redis.IdempotencyService // nil if Redis not configured
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, repo Repository, alerter Alerter) *Handler {
	return &Handler{
		logger:  logger,
		repo:    repo,
		alerter: alerter,
	}
}

// NewHandlerWithIdempotency creates a handler with idempotency support on
// the diet-log write path.
func NewHandlerWithIdempotency(logger *zap.Logger, repo Repository, alerter Alerter, idempotency *redis.IdempotencyService) *Handler {
	return &Handler{
		logger:      logger,
		repo:        repo,
		alerter:     alerter,
		idempotency: idempotency,
	}
}

// CreateDietLog handles POST /v1/diet-logs. This is the trigger path: after
// the log is persisted, the threshold evaluator runs synchronously and may
// queue calorie-limit notifications. Supports the Idempotency-Key header.
func (h *Handler) CreateDietLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idempotencyKey := r.Header.Get("Idempotency-Key")

	var req DietLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.MealType == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "user_id and meal_type are required")
		return
	}

	if req.TotalCalories < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid total_calories", "total_calories must be >= 0")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid user_id", "user_id must be a valid UUID")
		return
	}

	loggedAt := time.Now()
	if req.LoggedAt != "" {
		loggedAt, err = time.Parse(time.RFC3339, req.LoggedAt)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid logged_at", "logged_at must be RFC 3339")
			return
		}
	}

	if idempotencyKey != "" && h.idempotency != nil {
		cachedResult, err := h.idempotency.CheckOrReserve(ctx, req.UserID, idempotencyKey)

		if err != nil {
			if errors.Is(err, redis.ErrDuplicateRequest) {
				h.writeError(w, http.StatusConflict, "duplicate_request",
					"Request is already being processed",
					"Another request with this idempotency key is in progress")
				return
			}
			h.logger.Warn("idempotency check failed, proceeding",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		} else if cachedResult != nil {
			metrics.RecordIdempotencyHit()
			resp := CreatedResponse{ID: cachedResult.DietLogID}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replayed", "true")
			w.WriteHeader(cachedResult.StatusCode)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
	}

	log := &db.DietLog{
		ID:            uuid.New(),
		UserID:        userID,
		MealType:      req.MealType,
		TotalCalories: req.TotalCalories,
		LoggedAt:      loggedAt,
		Notes:         req.Notes,
	}

	if err := h.repo.CreateDietLog(ctx, log); err != nil {
		h.logger.Error("failed to create diet log",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to create diet log", "")
		return
	}

	// Secondary action: threshold evaluation never fails the write.
	h.alerter.OnDietLogWritten(ctx, log)

	if idempotencyKey != "" && h.idempotency != nil {
		result := &redis.IdempotencyResult{
			DietLogID:  log.ID.String(),
			StatusCode: http.StatusCreated,
		}
		if err := h.idempotency.Store(ctx, req.UserID, idempotencyKey, result); err != nil {
			h.logger.Warn("failed to store idempotency result",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(CreatedResponse{ID: log.ID.String()})
}

// ListDietLogs handles GET /v1/diet-logs?user_id=xxx&limit=20&offset=0
func (h *Handler) ListDietLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	logs, err := h.repo.ListDietLogsByUser(ctx, userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list diet logs", zap.Error(err), zap.String("user_id", userID.String()))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list diet logs", "")
		return
	}

	h.writeList(w, logs, len(logs), limit, offset)
}

// CreateNotification handles POST /v1/notifications. Debug/test trigger:
// creates a pending record directly so the worker can be verified end to
// end without logging a meal.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.UserID == "" || req.Type == "" || req.Title == "" || req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "user_id, type, title and message are required")
		return
	}

	switch req.Type {
	case db.TypeCalorieLimitDaily, db.TypeCalorieLimitMonthly, db.TypeMedicationReminder,
		db.TypeWater, db.TypeSleep, db.TypeGeneral:
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid type", "unknown notification type")
		return
	}

	if len(req.Metadata) > 0 && !json.Valid(req.Metadata) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid metadata", "metadata must be valid JSON")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid user_id", "user_id must be a valid UUID")
		return
	}

	notif := &db.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Metadata: req.Metadata,
		Status:   db.StatusPending,
	}

	if err := h.repo.CreateNotification(ctx, notif); err != nil {
		h.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("user_id", req.UserID),
			zap.String("type", req.Type),
		)
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to create notification", "")
		return
	}

	metrics.RecordNotificationCreated(req.Type)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(CreatedResponse{ID: notif.ID.String()})
}

// GetNotification handles GET /v1/notifications/{id}
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notifID, ok := h.idFromURL(w, r)
	if !ok {
		return
	}

	notif, err := h.repo.GetNotification(ctx, notifID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
			return
		}
		h.logger.Error("failed to get notification", zap.Error(err), zap.String("id", notifID.String()))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to get notification", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(notif)
}

// ListNotifications handles GET /v1/notifications?user_id=xxx&limit=20&offset=0
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userIDFromQuery(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	notifications, err := h.repo.ListNotificationsByUser(ctx, userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err), zap.String("user_id", userID.String()))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list notifications", "")
		return
	}

	h.writeList(w, notifications, len(notifications), limit, offset)
}

// MarkNotificationRead handles PATCH /v1/notifications/{id}/read. The read
// receipt is user-facing and independent of delivery status.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notifID, ok := h.idFromURL(w, r)
	if !ok {
		return
	}

	if err := h.repo.MarkNotificationRead(ctx, notifID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
			return
		}
		h.logger.Error("failed to mark notification read", zap.Error(err), zap.String("id", notifID.String()))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to update notification", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":      notifID.String(),
		"is_read": "true",
	})
}

// DeleteNotification handles DELETE /v1/notifications/{id}. Admin/test
// cleanup; the core pipeline never deletes records.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notifID, ok := h.idFromURL(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteNotification(ctx, notifID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
			return
		}
		h.logger.Error("failed to delete notification", zap.Error(err), zap.String("id", notifID.String()))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to delete notification", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":     notifID.String(),
		"status": "deleted",
	})
}

func (h *Handler) idFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid ID", "ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) userIDFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing user_id", "user_id query parameter is required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid user_id", "user_id must be a valid UUID")
		return uuid.Nil, false
	}
	return userID, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}

func (h *Handler) writeList(w http.ResponseWriter, data interface{}, count, limit, offset int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data":   data,
		"limit":  limit,
		"offset": offset,
		"count":  count,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
