package enums

type ActivityType string

const (
	ActivityLogin            ActivityType = "login"
	ActivityLogout           ActivityType = "logout"
	ActivityCourseView       ActivityType = "course_view"
	ActivityLessonView       ActivityType = "lesson_view"
	ActivityLessonComplete   ActivityType = "lesson_complete"
	ActivityTestStart        ActivityType = "test_start"
	ActivityTestComplete     ActivityType = "test_complete"
	ActivityAssignmentSubmit ActivityType = "assignment_submit"
	ActivityPaymentInitiated ActivityType = "payment_initiated"
	ActivityPaymentCompleted ActivityType = "payment_completed"
	ActivityAccessGranted    ActivityType = "access_granted"
	ActivityAccessRevoked    ActivityType = "access_revoked"
	ActivityNotificationSent ActivityType = "notification_sent"
	ActivityProfileUpdated   ActivityType = "profile_updated"
	ActivityTelegramLinked   ActivityType = "telegram_linked"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLogin, ActivityLogout, ActivityCourseView, ActivityLessonView,
		ActivityLessonComplete, ActivityTestStart, ActivityTestComplete,
		ActivityAssignmentSubmit, ActivityPaymentInitiated, ActivityPaymentCompleted,
		ActivityAccessGranted, ActivityAccessRevoked, ActivityNotificationSent,
		ActivityProfileUpdated, ActivityTelegramLinked:
		return true
	}
	return false
}
