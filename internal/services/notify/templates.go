package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

// Template is a named subject/body pair. Placeholders use {name}
// markers, user_name and user_email are always available.
type Template struct {
	Name     string
	Subject  string
	Body     string
	Priority int
}

var templates = map[string]Template{
	"welcome": {
		Name:    "welcome",
		Subject: "Welcome to the school, {user_name}!",
		Body:    "Your account {user_email} is ready. Browse the catalog and pick your first course.",
	},
	"course_access_granted": {
		Name:     "course_access_granted",
		Subject:  "Access granted: {course_title}",
		Body:     "Hi {user_name}, the course \"{course_title}\" is now open for you.",
		Priority: 2,
	},
	"lesson_completed": {
		Name:    "lesson_completed",
		Subject: "Lesson completed",
		Body:    "Nice work, {user_name}! You finished \"{lesson_title}\". Course progress: {progress}%.",
	},
	"assignment_submitted": {
		Name:    "assignment_submitted",
		Subject: "New submission: {assignment_title}",
		Body:    "{student_name} submitted work for \"{assignment_title}\".",
	},
	"assignment_graded": {
		Name:     "assignment_graded",
		Subject:  "Your work was graded",
		Body:     "\"{assignment_title}\": {score} of {max_score}. {feedback}",
		Priority: 2,
	},
	"test_completed": {
		Name:    "test_completed",
		Subject: "Test result: {test_title}",
		Body:    "You scored {percent}% on \"{test_title}\". {verdict}",
	},
	"payment_success": {
		Name:     "payment_success",
		Subject:  "Payment received",
		Body:     "Hi {user_name}, we received {amount} for \"{course_title}\". Access is open.",
		Priority: 3,
	},
	"payment_failed": {
		Name:     "payment_failed",
		Subject:  "Payment failed",
		Body:     "The payment for \"{course_title}\" did not go through. You can retry from the course page.",
		Priority: 3,
	},
	"course_reminder": {
		Name:    "course_reminder",
		Subject: "Continue your course",
		Body:    "Hi {user_name}, \"{course_title}\" is waiting. You stopped at {progress}%.",
	},
	"deadline_reminder": {
		Name:     "deadline_reminder",
		Subject:  "Deadline tomorrow: {assignment_title}",
		Body:     "The assignment \"{assignment_title}\" is due {due_at}. Submit before the deadline.",
		Priority: 2,
	},
	"system_announcement": {
		Name:     "system_announcement",
		Subject:  "{subject}",
		Body:     "{body}",
		Priority: 2,
	},
}

// Templates lists the known template names in stable order.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SendTemplate renders the named template and dispatches it. Caller
// vars override nothing, user_name and user_email come from the user
// row.
func (s *Service) SendTemplate(ctx context.Context, userID int64, name string, vars map[string]string, channels ...enums.NotificationChannel) (DeliveryResult, error) {
	tmpl, ok := templates[name]
	if !ok {
		return DeliveryResult{}, fmt.Errorf("unknown template %q: %w", name, ErrValidation)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("find user: %w", err)
	}

	merged := make(map[string]string, len(vars)+2)
	for k, v := range vars {
		merged[k] = v
	}
	displayName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if displayName == "" {
		displayName = user.Username
	}
	merged["user_name"] = displayName
	merged["user_email"] = user.Email

	return s.Dispatch(ctx, userID, Message{
		Title:    tmpl.Subject,
		Body:     tmpl.Body,
		Priority: tmpl.Priority,
		Vars:     merged,
	}, channels...)
}

// Broadcast sends a template to every listed user. Per-user failures
// are collected, a bad recipient never stops the rest.
func (s *Service) Broadcast(ctx context.Context, userIDs []int64, name string, vars map[string]string, channels ...enums.NotificationChannel) (sent int, failed []int64) {
	for _, userID := range userIDs {
		result, err := s.SendTemplate(ctx, userID, name, vars, channels...)
		if err != nil || !result.AllDelivered() {
			failed = append(failed, userID)
			continue
		}
		sent++
	}
	return sent, failed
}
