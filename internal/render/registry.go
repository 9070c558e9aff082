// Package render maps notification types to user-facing email content.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/Sri-Charith/Hevaul-AI/internal/db"
)

// Content is a fully rendered email: subject line, plain-text body and HTML
// body.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

// Func renders content for one notification type. Implementations must be
// pure and must tolerate missing metadata fields by rendering zero values
// instead of failing.
type Func func(n *db.Notification, user *db.User) Content

// Registry maps a notification type to its renderer. Unrecognized types fall
// back to a minimal rendering built from the record's message.
type Registry struct {
	frontendURL string
	renderers   map[string]Func
}

// NewRegistry builds the default registry. frontendURL is the SPA base used
// for deep links in medication reminders.
func NewRegistry(frontendURL string) *Registry {
	r := &Registry{frontendURL: frontendURL}
	r.renderers = map[string]Func{
		db.TypeCalorieLimitDaily:   renderDailyCalorie,
		db.TypeCalorieLimitMonthly: renderMonthlyCalorie,
		db.TypeMedicationReminder:  r.renderMedicationReminder,
	}
	return r
}

// Render produces the email content for a notification. It never fails;
// types without a dedicated renderer get the generic fallback.
func (r *Registry) Render(n *db.Notification, user *db.User) Content {
	if fn, ok := r.renderers[n.Type]; ok {
		return fn(n, user)
	}
	return renderGeneric(n, user)
}

func renderDailyCalorie(n *db.Notification, user *db.User) Content {
	var meta db.DailyCalorieMetadata
	_ = json.Unmarshal(n.Metadata, &meta)

	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9fafb;">
  <div style="background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <h2 style="color: #ef4444; margin-top: 0;">&#9888;&#65039; Daily Calorie Limit Exceeded</h2>
    <p style="color: #374151; font-size: 16px;">Hello %s,</p>
    <p style="color: #374151; font-size: 16px;">You've exceeded your daily calorie limit of <strong>%.0f kcal</strong>.</p>
    <div style="background-color: #fef2f2; border-left: 4px solid #ef4444; padding: 15px; margin: 20px 0;">
      <p style="margin: 0; color: #991b1b;"><strong>Current Intake:</strong> %.0f kcal</p>
      <p style="margin: 5px 0 0 0; color: #991b1b;"><strong>Over Limit:</strong> %.0f kcal</p>
    </div>
    <p style="color: #374151; font-size: 16px;">Please be mindful of your calorie consumption and consider adjusting your meals for the rest of the day.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Best regards,<br>Hevaul AI Team</p>
  </div>
</div>`,
		user.Name, meta.DailyLimit, meta.DailyTotal, meta.DailyTotal-meta.DailyLimit)

	return Content{
		Subject: "Daily Calorie Limit Exceeded",
		Text:    n.Message,
		HTML:    html,
	}
}

func renderMonthlyCalorie(n *db.Notification, user *db.User) Content {
	var meta db.MonthlyCalorieMetadata
	_ = json.Unmarshal(n.Metadata, &meta)

	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9fafb;">
  <div style="background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <h2 style="color: #ef4444; margin-top: 0;">&#9888;&#65039; Monthly Calorie Limit Exceeded</h2>
    <p style="color: #374151; font-size: 16px;">Hello %s,</p>
    <p style="color: #374151; font-size: 16px;">You've exceeded your monthly calorie limit of <strong>%.0f kcal</strong>.</p>
    <div style="background-color: #fef2f2; border-left: 4px solid #ef4444; padding: 15px; margin: 20px 0;">
      <p style="margin: 0; color: #991b1b;"><strong>Current Intake:</strong> %.0f kcal</p>
      <p style="margin: 5px 0 0 0; color: #991b1b;"><strong>Over Limit:</strong> %.0f kcal</p>
    </div>
    <p style="color: #374151; font-size: 16px;">Please review your monthly diet plan.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Best regards,<br>Hevaul AI Team</p>
  </div>
</div>`,
		user.Name, meta.MonthlyLimit, meta.MonthlyTotal, meta.MonthlyTotal-meta.MonthlyLimit)

	return Content{
		Subject: "Monthly Calorie Limit Exceeded",
		Text:    n.Message,
		HTML:    html,
	}
}

func (r *Registry) renderMedicationReminder(n *db.Notification, user *db.User) Content {
	var meta db.MedicationMetadata
	_ = json.Unmarshal(n.Metadata, &meta)

	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9fafb;">
  <div style="background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <h2 style="color: #3b82f6; margin-top: 0;">&#128138; Medication Reminder</h2>
    <p style="color: #374151; font-size: 16px;">Hello %s,</p>
    <p style="color: #374151; font-size: 16px;">It's time to take your medication:</p>
    <div style="background-color: #eff6ff; border-left: 4px solid #3b82f6; padding: 15px; margin: 20px 0;">
      <p style="margin: 0; color: #1e40af; font-size: 18px; font-weight: bold;">%s</p>
      <p style="margin: 5px 0 0 0; color: #1e40af;"><strong>Dosage:</strong> %s</p>
      <p style="margin: 5px 0 0 0; color: #1e40af;"><strong>Time:</strong> %s</p>
    </div>
    <p style="color: #374151; font-size: 16px;">Please log this dose in the Hevaul AI app once taken.</p>
    <a href="%s/medication" style="display: inline-block; background-color: #3b82f6; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; margin-top: 10px;">Log Dose</a>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Best regards,<br>Hevaul AI Team</p>
  </div>
</div>`,
		user.Name, meta.MedicationName, meta.Dosage, meta.Time, r.frontendURL)

	return Content{
		Subject: "Medication Reminder",
		Text:    n.Message,
		HTML:    html,
	}
}

func renderGeneric(n *db.Notification, _ *db.User) Content {
	return Content{
		Subject: n.Title,
		Text:    n.Message,
		HTML:    fmt.Sprintf("<p>%s</p>", n.Message),
	}
}
