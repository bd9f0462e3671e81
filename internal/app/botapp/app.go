package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/config"
	tginfra "github.com/Pavlentius2007/school-photobusiness/internal/infra/telegram"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	userssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/users"
)

const (
	welcomeText = "Привет! Отправь /start <код> из личного кабинета, чтобы привязать аккаунт и получать уведомления о курсах."
	linkedText  = "Аккаунт %s привязан. Уведомления о курсах будут приходить сюда."
	badCodeText = "Код не подошёл. Получите новый в личном кабинете и отправьте /start <код> ещё раз."
	helpText    = "Команды:\n/start <код> — привязать аккаунт\n/status — проверить привязку\n/help — эта справка"
	noLinkText  = "Этот чат пока не привязан. Получите код в личном кабинете и отправьте /start <код>."
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	bot      *tginfra.Bot
	users    *userssvc.Service
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	linkRepo := pgrepo.NewTelegramLinkRepo(pool)
	userService := userssvc.NewService(userRepo, linkRepo, cfg.Bot.LinkCodeTTL)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, telegram listener disabled")
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		bot:      bot,
		users:    userService,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand: a.handleCommand,
				OnText:    a.handleText,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

// runCleanupLoop drops expired link codes so abandoned codes do not
// pile up between deadline-job passes.
func (a *App) runCleanupLoop(ctx context.Context) error {
	interval := a.cfg.Jobs.DeadlineInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := a.users.CleanupLinkCodes(ctx)
			if err != nil {
				a.logger.Warn("link code cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("expired link codes removed", zap.Int64("rows", removed))
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.handleStart(ctx, update)
	case "status":
		return a.handleStatus(ctx, update)
	case "help":
		return a.bot.SendText(ctx, update.ChatID, helpText)
	default:
		return nil
	}
}

// handleStart consumes the one-time code from /start <code> and binds
// the chat to the account that issued it.
func (a *App) handleStart(ctx context.Context, update tginfra.CommandUpdate) error {
	code := strings.TrimSpace(update.Args)
	if code == "" {
		return a.bot.SendText(ctx, update.ChatID, welcomeText)
	}

	user, err := a.users.ConsumeLinkCode(ctx, code, update.ChatID)
	if err != nil {
		if errors.Is(err, userssvc.ErrLinkCodeInvalid) || errors.Is(err, userssvc.ErrValidation) {
			return a.bot.SendText(ctx, update.ChatID, badCodeText)
		}
		a.logger.Error("consume link code failed", zap.Error(err), zap.Int64("chat_id", update.ChatID))
		return a.bot.SendText(ctx, update.ChatID, "Что-то пошло не так, попробуйте позже.")
	}

	a.logger.Info("telegram chat linked",
		zap.Int64("user_id", user.ID),
		zap.Int64("chat_id", update.ChatID))

	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf(linkedText, displayName(user.FirstName, user.LastName, user.Username)))
}

func (a *App) handleStatus(ctx context.Context, update tginfra.CommandUpdate) error {
	user, err := a.users.FindByChatID(ctx, update.ChatID)
	if err != nil {
		if errors.Is(err, userssvc.ErrNotFound) {
			return a.bot.SendText(ctx, update.ChatID, noLinkText)
		}
		return err
	}

	return a.bot.SendText(ctx, update.ChatID,
		fmt.Sprintf("Чат привязан к аккаунту %s.", displayName(user.FirstName, user.LastName, user.Username)))
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}

	// A bare code pasted without /start still links the chat.
	code := strings.TrimSpace(update.Text)
	if code == "" || strings.ContainsAny(code, " \n") {
		return a.bot.SendText(ctx, update.ChatID, helpText)
	}

	user, err := a.users.ConsumeLinkCode(ctx, code, update.ChatID)
	if err != nil {
		if errors.Is(err, userssvc.ErrLinkCodeInvalid) || errors.Is(err, userssvc.ErrValidation) {
			return a.bot.SendText(ctx, update.ChatID, helpText)
		}
		return err
	}

	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf(linkedText, displayName(user.FirstName, user.LastName, user.Username)))
}

func displayName(first, last, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	if username != "" {
		return username
	}
	return "без имени"
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
