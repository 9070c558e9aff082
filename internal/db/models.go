package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is a durably queued alert addressed to a user. Records are
// created with StatusPending and transitioned exactly once by the delivery
// worker; sent and failed are both terminal.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Status    string          `json:"status"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
	Error     *string         `json:"error,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// Status constants
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification type constants. The type selects the renderer and the shape
// of Metadata.
const (
	TypeCalorieLimitDaily   = "calorie_limit_daily"
	TypeCalorieLimitMonthly = "calorie_limit_monthly"
	TypeMedicationReminder  = "medication_reminder"
	TypeWater               = "water"
	TypeSleep               = "sleep"
	TypeGeneral             = "general"
)

// DailyCalorieMetadata is the payload for TypeCalorieLimitDaily.
type DailyCalorieMetadata struct {
	DailyTotal float64 `json:"dailyTotal"`
	DailyLimit float64 `json:"dailyLimit"`
}

// MonthlyCalorieMetadata is the payload for TypeCalorieLimitMonthly.
type MonthlyCalorieMetadata struct {
	MonthlyTotal float64 `json:"monthlyTotal"`
	MonthlyLimit float64 `json:"monthlyLimit"`
}

// MedicationMetadata is the payload for TypeMedicationReminder.
type MedicationMetadata struct {
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Time           string `json:"time"`
}

// User is the projection of the account record this service needs: where to
// deliver, whether delivery is wanted, and the configured calorie limits.
type User struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	EmailNotifications  bool      `json:"email_notifications"`
	DailyCalorieLimit   float64   `json:"daily_calorie_limit"`
	MonthlyCalorieLimit float64   `json:"monthly_calorie_limit"`
	CreatedAt           time.Time `json:"created_at"`
}

// Default calorie limits applied when a user has not configured their own.
const (
	DefaultDailyCalorieLimit   = 2000
	DefaultMonthlyCalorieLimit = 60000
)

// DietLog is a single logged meal. Writing one triggers threshold evaluation.
type DietLog struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	MealType      string    `json:"meal_type"`
	TotalCalories float64   `json:"total_calories"`
	LoggedAt      time.Time `json:"logged_at"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Medication is a recurring prescription; Times holds "HH:MM" wall-clock
// trigger points scanned by the reminder job.
type Medication struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Times     []string   `json:"times"`
	IsActive  bool       `json:"is_active"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DueMedication pairs a due medication with its owner, as returned by the
// reminder scan.
type DueMedication struct {
	Medication Medication `json:"medication"`
	User       User       `json:"user"`
}
