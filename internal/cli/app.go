package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/reminder-bot/internal/agent"
	"github.com/example/reminder-bot/internal/application"
	"github.com/example/reminder-bot/internal/config"
	"github.com/example/reminder-bot/internal/greenapi"
	"github.com/example/reminder-bot/internal/persistence/sqlite"
)

// app holds the wired object graph shared by the commands. Optional
// pieces (gateway, agent) are nil when their credentials are absent;
// commands that need them validate first.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	pool *sqlite.ConnectionPool

	users     *sqlite.UserRepository
	templates *sqlite.TemplateRepository
	instances *sqlite.InstanceRepository
	messages  *sqlite.MessageRepository

	gateway *greenapi.Client
	chat    *agent.Agent

	userService   *application.UserService
	materializer  *application.Materializer
	reminders     *application.ReminderService
	sweeper       *application.Sweeper
	conversations *application.ConversationService
}

// newApp opens the database, runs migrations and wires the services.
// Callers own the returned app and must Close it.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlite.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		users:     sqlite.NewUserRepository(pool),
		templates: sqlite.NewTemplateRepository(pool),
		instances: sqlite.NewInstanceRepository(pool),
		messages:  sqlite.NewMessageRepository(pool),
	}

	if cfg.GreenAPIInstanceID != "" && cfg.GreenAPIToken != "" {
		a.gateway = greenapi.NewClient(cfg.GreenAPIBaseURL, cfg.GreenAPIInstanceID, cfg.GreenAPIToken)
	}
	if cfg.OpenAIAPIKey != "" {
		a.chat = agent.New(agent.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}

	idGenerator := uuid.NewString

	a.userService = application.NewUserServiceWithLogger(a.users, idGenerator, nil, logger)
	a.materializer = application.NewMaterializer(a.templates, a.instances, a.users, idGenerator, nil, logger)
	a.reminders = application.NewReminderService(a.users, a.templates, a.instances, a.materializer, idGenerator, nil, cfg.HorizonDays, logger)

	var chat application.ChatAgent
	if a.chat != nil {
		chat = a.chat
	}
	var gateway application.MessageGateway
	if a.gateway != nil {
		gateway = a.gateway
	}
	a.sweeper = application.NewSweeper(a.users, a.instances, a.messages, chat, gateway, idGenerator, nil, logger)
	a.conversations = application.NewConversationService(a.userService, a.reminders, a.messages, chat, gateway, idGenerator, nil, logger)

	return a, nil
}

func (a *app) Close() {
	if a == nil || a.pool == nil {
		return
	}
	if err := a.pool.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
