// Package threshold decides when a user's calorie consumption has breached
// a configured limit and queues the resulting alerts.
package threshold

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
)

// DayRange returns the local calendar day containing t,
// from 00:00:00.000 to 23:59:59.999.
func DayRange(t time.Time) (start, end time.Time) {
	year, month, day := t.Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// MonthRange returns the calendar month containing t, from day 1
// 00:00:00.000 to the last day 23:59:59.999. The last day is day 0 of the
// next month, which handles month lengths and leap years.
func MonthRange(t time.Time) (start, end time.Time) {
	year, month, _ := t.Date()
	start = time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// TotalCalories sums the calories of a set of diet logs.
func TotalCalories(logs []*db.DietLog) float64 {
	var total float64
	for _, log := range logs {
		total += log.TotalCalories
	}
	return total
}

// Intent is a detected breach waiting to become a notification record.
type Intent struct {
	Type     string
	Title    string
	Message  string
	Metadata json.RawMessage
}

// Evaluate compares period totals against limits and returns zero, one or
// two intents. A breach is total strictly greater than the limit; reaching
// the limit exactly does not trigger.
//
// No deduplication happens here: every write that leaves a period over its
// limit produces a fresh intent, matching the repeated-alert behavior the
// product ships with.
func Evaluate(dailyTotal, dailyLimit, monthlyTotal, monthlyLimit float64) []Intent {
	var intents []Intent

	if dailyTotal > dailyLimit {
		meta, _ := json.Marshal(db.DailyCalorieMetadata{
			DailyTotal: dailyTotal,
			DailyLimit: dailyLimit,
		})
		intents = append(intents, Intent{
			Type:  db.TypeCalorieLimitDaily,
			Title: "Daily Calorie Limit Exceeded",
			Message: fmt.Sprintf(
				"You've consumed %.0f kcal today, exceeding your daily limit of %.0f kcal.",
				dailyTotal, dailyLimit,
			),
			Metadata: meta,
		})
	}

	if monthlyTotal > monthlyLimit {
		meta, _ := json.Marshal(db.MonthlyCalorieMetadata{
			MonthlyTotal: monthlyTotal,
			MonthlyLimit: monthlyLimit,
		})
		intents = append(intents, Intent{
			Type:  db.TypeCalorieLimitMonthly,
			Title: "Monthly Calorie Limit Exceeded",
			Message: fmt.Sprintf(
				"You've consumed %.0f kcal this month, exceeding your monthly limit of %.0f kcal.",
				monthlyTotal, monthlyLimit,
			),
			Metadata: meta,
		})
	}

	return intents
}
