package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/config"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	accesssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/access"
	activitysvc "github.com/Pavlentius2007/school-photobusiness/internal/services/activity"
	assignmentssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/assignments"
	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
	coursessvc "github.com/Pavlentius2007/school-photobusiness/internal/services/courses"
	mediasvc "github.com/Pavlentius2007/school-photobusiness/internal/services/media"
	notifysvc "github.com/Pavlentius2007/school-photobusiness/internal/services/notify"
	paymentssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/payments"
	progresssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/progress"
	quizzessvc "github.com/Pavlentius2007/school-photobusiness/internal/services/quizzes"
	userssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/users"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService       *authsvc.Service
	UserService       *userssvc.Service
	CourseService     *coursessvc.Service
	ProgressService   *progresssvc.Service
	AccessService     *accesssvc.Service
	PaymentService    *paymentssvc.Service
	AssignmentService *assignmentssvc.Service
	QuizService       *quizzessvc.Service
	NotifyService     *notifysvc.Service
	ActivityService   *activitysvc.Service
	MediaService      *mediasvc.Service
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Config.Auth.LoginWindow)
	userHandler := handlers.NewUserHandler(deps.UserService)
	courseHandler := handlers.NewCourseHandler(deps.CourseService)
	progressHandler := handlers.NewProgressHandler(deps.ProgressService)
	accessHandler := handlers.NewAccessHandler(deps.AccessService)
	paymentHandler := handlers.NewPaymentHandler(deps.PaymentService)
	assignmentHandler := handlers.NewAssignmentHandler(deps.AssignmentService)
	quizHandler := handlers.NewQuizHandler(deps.QuizService)
	notificationHandler := handlers.NewNotificationHandler(deps.NotifyService)
	activityHandler := handlers.NewActivityHandler(deps.ActivityService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	adminMW := RequireRole(string(enums.RoleAdmin))
	staffMW := RequireRole(string(enums.RoleAdmin), string(enums.RoleCurator))

	r.Get("/healthz", healthHandler.Get)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
			r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
			r.With(authMW).Post("/password", authHandler.ChangePassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(authMW).Get("/me", userHandler.Me)
			r.With(authMW).Put("/me", userHandler.UpdateMe)
			r.With(authMW).Post("/me/telegram-link", userHandler.LinkCode)
			r.With(authMW, adminMW).Get("/", userHandler.List)
			r.With(authMW, adminMW).Get("/{userID}", userHandler.Get)
			r.With(authMW, adminMW).Put("/{userID}/role", userHandler.ChangeRole)
			r.With(authMW, adminMW).Put("/{userID}/active", userHandler.SetActive)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", courseHandler.Catalog)
			r.Get("/slug/{slug}", courseHandler.GetBySlug)
			r.Get("/{courseID}", courseHandler.Get)
			r.Get("/{courseID}/modules", courseHandler.ListModules)
			r.With(authMW, staffMW).Get("/all", courseHandler.List)
			r.With(authMW, staffMW).Post("/", courseHandler.Create)
			r.With(authMW, staffMW).Put("/{courseID}", courseHandler.Update)
			r.With(authMW, staffMW).Put("/{courseID}/status", courseHandler.SetStatus)
			r.With(authMW, adminMW).Delete("/{courseID}", courseHandler.Delete)
			r.With(authMW, staffMW).Post("/{courseID}/modules", courseHandler.AddModule)
			r.With(authMW).Get("/{courseID}/progress", progressHandler.CourseProgress)
			r.With(authMW).Get("/{courseID}/progress/lessons", progressHandler.CourseLessons)
			r.With(authMW, adminMW).Get("/{courseID}/access", accessHandler.ListForCourse)
		})

		r.Route("/modules", func(r chi.Router) {
			r.Get("/{moduleID}/lessons", courseHandler.ListLessons)
			r.With(authMW, staffMW).Put("/{moduleID}", courseHandler.UpdateModule)
			r.With(authMW, staffMW).Delete("/{moduleID}", courseHandler.DeleteModule)
			r.With(authMW, staffMW).Post("/{moduleID}/lessons", courseHandler.AddLesson)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.With(authMW).Get("/{lessonID}", courseHandler.LessonContent)
			r.With(authMW, staffMW).Put("/{lessonID}", courseHandler.UpdateLesson)
			r.With(authMW, staffMW).Delete("/{lessonID}", courseHandler.DeleteLesson)
			r.With(authMW).Post("/{lessonID}/progress", progressHandler.Track)
			r.Get("/{lessonID}/tests", quizHandler.ListByLesson)
			r.Get("/{lessonID}/assignments", assignmentHandler.ListByLesson)
		})

		r.With(authMW).Get("/my/courses", progressHandler.MyCourses)
		r.With(authMW).Get("/my/access", accessHandler.Mine)

		r.Route("/access", func(r chi.Router) {
			r.Use(authMW, adminMW)
			r.Post("/", accessHandler.Grant)
			r.Post("/{accessID}/revoke", accessHandler.Revoke)
			r.Post("/{accessID}/suspend", accessHandler.Suspend)
			r.Post("/{accessID}/resume", accessHandler.Resume)
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(authMW).Post("/", paymentHandler.Initiate)
			r.With(authMW).Get("/my", paymentHandler.ListMine)
			r.With(authMW, adminMW).Get("/", paymentHandler.ListAll)
			r.With(authMW, adminMW).Get("/stats", paymentHandler.Stats)
			r.With(authMW).Get("/{paymentID}", paymentHandler.Get)
			r.With(authMW).Post("/{paymentID}/check", paymentHandler.CheckStatus)
			r.With(authMW, adminMW).Post("/{paymentID}/refund", paymentHandler.Refund)
		})

		r.Post("/webhooks/yookassa", paymentHandler.YooKassaWebhook)
		r.Post("/webhooks/sberbank", paymentHandler.SberbankWebhook)

		r.Route("/tests", func(r chi.Router) {
			r.With(authMW, staffMW).Post("/", quizHandler.CreateTest)
			r.With(authMW, staffMW).Put("/{testID}", quizHandler.UpdateTest)
			r.With(authMW, staffMW).Put("/{testID}/status", quizHandler.SetTestStatus)
			r.With(authMW, staffMW).Delete("/{testID}", quizHandler.DeleteTest)
			r.With(authMW, staffMW).Post("/{testID}/questions", quizHandler.AddQuestion)
			r.With(authMW, staffMW).Delete("/{testID}/questions/{questionID}", quizHandler.DeleteQuestion)
			r.With(authMW).Get("/{testID}/questions", quizHandler.Questions)
			r.With(authMW).Post("/{testID}/attempts", quizHandler.StartAttempt)
			r.With(authMW, staffMW).Get("/{testID}/attempts", quizHandler.ListAttempts)
			r.With(authMW, staffMW).Get("/{testID}/attempts/review", quizHandler.ListNeedingReview)
		})

		r.Route("/attempts", func(r chi.Router) {
			r.With(authMW).Post("/{attemptID}/submit", quizHandler.SubmitAttempt)
			r.With(authMW).Get("/{attemptID}", quizHandler.AttemptResult)
			r.With(authMW, staffMW).Post("/{attemptID}/grade", quizHandler.GradeAttempt)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.With(authMW, staffMW).Post("/", assignmentHandler.Create)
			r.Get("/{assignmentID}", assignmentHandler.Get)
			r.With(authMW, staffMW).Put("/{assignmentID}", assignmentHandler.Update)
			r.With(authMW, staffMW).Put("/{assignmentID}/status", assignmentHandler.SetStatus)
			r.With(authMW, staffMW).Delete("/{assignmentID}", assignmentHandler.Delete)
			r.With(authMW).Post("/{assignmentID}/submissions", assignmentHandler.Submit)
			r.With(authMW).Get("/{assignmentID}/submissions/my", assignmentHandler.MySubmission)
			r.With(authMW, staffMW).Get("/{assignmentID}/submissions", assignmentHandler.ListSubmissions)
		})

		r.With(authMW, staffMW).Post("/submissions/{submissionID}/grade", assignmentHandler.Grade)

		r.Route("/notifications", func(r chi.Router) {
			r.With(authMW).Get("/", notificationHandler.List)
			r.With(authMW).Get("/unread", notificationHandler.UnreadCount)
			r.With(authMW).Post("/{notificationID}/read", notificationHandler.MarkRead)
			r.With(authMW).Post("/read_all", notificationHandler.MarkAllRead)
			r.With(authMW).Delete("/{notificationID}", notificationHandler.Delete)
			r.With(authMW, adminMW).Get("/templates", notificationHandler.Templates)
			r.With(authMW, adminMW).Get("/stats", notificationHandler.Stats)
			r.With(authMW, adminMW).Post("/send", notificationHandler.Send)
			r.With(authMW, adminMW).Post("/broadcast", notificationHandler.Broadcast)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Use(authMW, adminMW)
			r.Get("/", activityHandler.List)
			r.Get("/stats", activityHandler.Stats)
		})

		r.Route("/media", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/upload", mediaHandler.Upload)
			r.Get("/url", mediaHandler.DownloadURL)
		})
	})
}
