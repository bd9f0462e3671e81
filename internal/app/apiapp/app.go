package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/config"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	"github.com/Pavlentius2007/school-photobusiness/internal/infra/httpclient"
	s3infra "github.com/Pavlentius2007/school-photobusiness/internal/infra/s3"
	smtpinfra "github.com/Pavlentius2007/school-photobusiness/internal/infra/smtp"
	tginfra "github.com/Pavlentius2007/school-photobusiness/internal/infra/telegram"
	"github.com/Pavlentius2007/school-photobusiness/internal/jobs/deadline"
	"github.com/Pavlentius2007/school-photobusiness/internal/jobs/reconcile"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	redrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/redis"
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
)

const catalogCacheTTL = 5 * time.Minute

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler

	PaymentService    *paymentssvc.Service
	AccessService     *accesssvc.Service
	AssignmentService *assignmentssvc.Service
	UserService       *userssvc.Service
	ActivityService   *activitysvc.Service
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	catalogCache := redrepo.NewCatalogCacheRepo(redisClient, catalogCacheTTL)

	userRepo := pgrepo.NewUserRepo(pool)
	linkRepo := pgrepo.NewTelegramLinkRepo(pool)
	courseRepo := pgrepo.NewCourseRepo(pool)
	moduleRepo := pgrepo.NewModuleRepo(pool)
	lessonRepo := pgrepo.NewLessonRepo(pool)
	accessRepo := pgrepo.NewAccessRepo(pool)
	progressRepo := pgrepo.NewProgressRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)
	assignmentRepo := pgrepo.NewAssignmentRepo(pool)
	testRepo := pgrepo.NewTestRepo(pool)
	attemptRepo := pgrepo.NewAttemptRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	activityRepo := pgrepo.NewActivityRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, cfg.Auth.RefreshTTL)
	authService.AttachThrottle(rateRepo, authsvc.ThrottleConfig{
		MaxAttempts: cfg.Auth.LoginMaxAttempts,
		Window:      cfg.Auth.LoginWindow,
	})

	userService := userssvc.NewService(userRepo, linkRepo, cfg.Bot.LinkCodeTTL)
	accessService := accesssvc.NewService(accessRepo, log)
	courseService := coursessvc.NewService(courseStoreAdapter{courseRepo}, moduleRepo, lessonRepo, accessService, catalogCache, log)
	progressService := progresssvc.NewService(progressRepo, lessonRepo, accessService, log)
	assignmentService := assignmentssvc.NewService(assignmentRepo, lessonRepo, courseRepo, accessService, log)
	quizService := quizzessvc.NewService(testRepo, attemptRepo, lessonRepo, courseRepo, accessService, log)
	activityService := activitysvc.NewService(activityRepo, log)

	var emailSender notifysvc.EmailSender
	if cfg.SMTP.Host != "" {
		sender, err := smtpinfra.NewSender(smtpinfra.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			log.Warn("smtp init failed, email channel disabled", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var telegramSender notifysvc.TelegramSender
	if cfg.Bot.Token != "" {
		bot, err := tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			log.Warn("telegram init failed, telegram channel disabled", zap.Error(err))
		} else {
			telegramSender = bot
		}
	}

	notifyService := notifysvc.NewService(notificationRepo, userRepo, emailSender, telegramSender, log)
	progressService.AttachNotifier(func(ctx context.Context, userID int64, name string, vars map[string]string, channels ...enums.NotificationChannel) error {
		_, err := notifyService.SendTemplate(ctx, userID, name, vars, channels...)
		return err
	})

	authService.AttachActivity(func(ctx context.Context, userID int64) {
		activityService.TryRecord(ctx, activitysvc.Event{UserID: userID, Type: enums.ActivityLogin, Description: "user logged in"})
	})
	userService.AttachActivity(func(ctx context.Context, userID, chatID int64) {
		activityService.TryRecord(ctx, activitysvc.Event{
			UserID:      userID,
			Type:        enums.ActivityTelegramLinked,
			Description: "telegram chat linked",
			Metadata:    map[string]any{"chat_id": chatID},
		})
	})
	accessService.AttachActivity(
		func(ctx context.Context, grant model.CourseAccess) {
			activityService.TryRecord(ctx, activitysvc.Event{
				UserID:      grant.UserID,
				Type:        enums.ActivityAccessGranted,
				Description: "course access granted",
				CourseID:    &grant.CourseID,
			})
		},
		func(ctx context.Context, grant model.CourseAccess) {
			activityService.TryRecord(ctx, activitysvc.Event{
				UserID:      grant.UserID,
				Type:        enums.ActivityAccessRevoked,
				Description: "course access revoked",
				CourseID:    &grant.CourseID,
			})
		},
	)
	progressService.AttachActivity(func(ctx context.Context, userID int64, lesson model.Lesson) {
		activityService.TryRecord(ctx, activitysvc.Event{
			UserID:      userID,
			Type:        enums.ActivityLessonComplete,
			Description: "lesson completed: " + lesson.Title,
			LessonID:    &lesson.ID,
		})
	})
	assignmentService.AttachActivity(func(ctx context.Context, studentID int64, submission model.Submission) {
		activityService.TryRecord(ctx, activitysvc.Event{
			UserID:      studentID,
			Type:        enums.ActivityAssignmentSubmit,
			Description: "assignment submitted",
			Metadata:    map[string]any{"assignment_id": submission.AssignmentID},
		})
	})
	quizService.AttachActivity(func(ctx context.Context, studentID int64, attempt model.TestAttempt) {
		activityService.TryRecord(ctx, activitysvc.Event{
			UserID:      studentID,
			Type:        enums.ActivityTestComplete,
			Description: "test attempt submitted",
			Metadata:    map[string]any{"test_id": attempt.TestID, "score": attempt.Score},
		})
	})

	gatewayClient := httpclient.New(15 * time.Second)
	var gateways []paymentssvc.Gateway
	if yk, err := paymentssvc.NewYooKassaGateway(paymentssvc.YooKassaConfig{
		ShopID:        cfg.Payments.YooKassa.ShopID,
		SecretKey:     cfg.Payments.YooKassa.SecretKey,
		WebhookSecret: cfg.Payments.YooKassa.WebhookSecret,
		BaseURL:       cfg.Payments.YooKassa.BaseURL,
	}, gatewayClient); err != nil {
		log.Warn("yookassa gateway disabled", zap.Error(err))
	} else {
		gateways = append(gateways, yk)
	}
	if sber, err := paymentssvc.NewSberbankGateway(paymentssvc.SberbankConfig{
		Username:      cfg.Payments.Sberbank.Username,
		Password:      cfg.Payments.Sberbank.Password,
		WebhookSecret: cfg.Payments.Sberbank.WebhookSecret,
		BaseURL:       cfg.Payments.Sberbank.BaseURL,
		MinAmount:     cfg.Payments.Sberbank.InstallmentMin,
		MaxAmount:     cfg.Payments.Sberbank.InstallmentMax,
	}, gatewayClient); err != nil {
		log.Warn("sberbank gateway disabled", zap.Error(err))
	} else {
		gateways = append(gateways, sber)
	}

	paymentService := paymentssvc.NewService(paymentssvc.Dependencies{
		Payments:  paymentRepo,
		Courses:   courseRepo,
		Access:    accessService,
		Gateways:  paymentssvc.NewRegistry(gateways...),
		ReturnURL: cfg.Payments.ReturnURL,
		Log:       log,
	})
	paymentService.AttachHooks(
		func(ctx context.Context, payment model.Payment) {
			activityService.TryRecord(ctx, activitysvc.Event{
				UserID:      payment.UserID,
				Type:        enums.ActivityPaymentInitiated,
				Description: "payment initiated",
				CourseID:    &payment.CourseID,
				Metadata:    map[string]any{"payment_id": payment.ID, "amount": payment.Amount},
			})
		},
		func(ctx context.Context, payment model.Payment, succeeded bool) {
			template := "payment_failed"
			if succeeded {
				template = "payment_success"
			}
			vars := map[string]string{"amount": formatAmount(payment.Amount, payment.Currency)}
			if course, err := courseRepo.FindByID(ctx, payment.CourseID); err == nil {
				vars["course_title"] = course.Title
			}
			if _, err := notifyService.SendTemplate(ctx, payment.UserID, template, vars, enums.ChannelInternal, enums.ChannelEmail); err != nil {
				log.Warn("payment notification failed", zap.Int64("payment_id", payment.ID), zap.Error(err))
			}
			if succeeded {
				activityService.TryRecord(ctx, activitysvc.Event{
					UserID:      payment.UserID,
					Type:        enums.ActivityPaymentCompleted,
					Description: "payment completed",
					CourseID:    &payment.CourseID,
					Metadata:    map[string]any{"payment_id": payment.ID, "amount": payment.Amount},
				})
			}
		},
	)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaStorage)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:       authService,
		UserService:       userService,
		CourseService:     courseService,
		ProgressService:   progressService,
		AccessService:     accessService,
		PaymentService:    paymentService,
		AssignmentService: assignmentService,
		QuizService:       quizService,
		NotifyService:     notifyService,
		ActivityService:   activityService,
		MediaService:      mediaService,
		Logger:            log,
		Config:            cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,

		PaymentService:    paymentService,
		AccessService:     accessService,
		AssignmentService: assignmentService,
		UserService:       userService,
		ActivityService:   activityService,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// formatAmount renders a minor-unit amount for notification templates.
func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
}

// RunJobs drives the periodic reconcile and deadline passes until the
// context is cancelled. Job failures are logged, not fatal.
func (a *App) RunJobs(ctx context.Context) error {
	reconcileJob := reconcile.New(a.PaymentService, a.cfg.Jobs.ReconcileMinAge, a.cfg.Jobs.ReconcileBatch, a.logger)
	deadlineJob := deadline.New(a.AccessService, a.AssignmentService, a.UserService, a.ActivityService, 0, a.logger)

	reconcileInterval := a.cfg.Jobs.ReconcileInterval
	if reconcileInterval <= 0 {
		reconcileInterval = 5 * time.Minute
	}
	deadlineInterval := a.cfg.Jobs.DeadlineInterval
	if deadlineInterval <= 0 {
		deadlineInterval = time.Hour
	}

	reconcileTicker := time.NewTicker(reconcileInterval)
	defer reconcileTicker.Stop()
	deadlineTicker := time.NewTicker(deadlineInterval)
	defer deadlineTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconcileTicker.C:
			if err := reconcileJob.Run(ctx); err != nil {
				a.logger.Warn("reconcile job failed", zap.Error(err))
			}
		case <-deadlineTicker.C:
			if err := deadlineJob.Run(ctx); err != nil {
				a.logger.Warn("deadline job failed", zap.Error(err))
			}
		}
	}
}

// courseStoreAdapter bridges *pgrepo.CourseRepo to the courses.CourseStore
// interface: the repo's SetStatus takes a timestamp and returns the updated
// course, while the service only needs the error. A zero time lets the repo
// fall back to its own time.Now().UTC() default.
type courseStoreAdapter struct {
	*pgrepo.CourseRepo
}

func (a courseStoreAdapter) SetStatus(ctx context.Context, courseID int64, status enums.CourseStatus) error {
	_, err := a.CourseRepo.SetStatus(ctx, courseID, status, time.Time{})
	return err
}
