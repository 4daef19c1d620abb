package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pledgeboard/internal/app"
	"pledgeboard/internal/auth"
	"pledgeboard/internal/config"
	"pledgeboard/internal/domain"
	"pledgeboard/internal/infra/memory"
	pginfra "pledgeboard/internal/infra/postgres"
	redisinfra "pledgeboard/internal/infra/redis"
	"pledgeboard/internal/mail"
	"pledgeboard/internal/ratelimit"
	transport "pledgeboard/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the pledge board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(builtinQuizzes())
	if pool != nil {
		loader = pginfra.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var pledges app.PledgeStore = memory.NewPledgeStore()
	if pool != nil {
		pledges = pginfra.NewPledgeStore(pool)
	}

	var statsStore app.StatsStore = memory.NewStatsStore()
	if redisClient != nil {
		statsStore = redisinfra.NewStatsStore(redisClient)
	}

	feed := app.NewFeedService(pledges, logger)
	stats := app.NewStatsService(statsStore, logger)

	linkTTL := config.TTLDuration(cfg.Auth.LinkTTL, 15*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Auth.SessionTTL, 7*24*time.Hour)
	identity := auth.NewJWTIdentity(cfg.Auth.Secret, cfg.Auth.LinkURL, linkTTL, sessionTTL)

	var mailer mail.Mailer = mail.NewConsoleMailer(logger)
	if cfg.Mail.SendgridKey != "" {
		mailer = mail.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName,
			cfg.Mail.FromAddr, cfg.Mail.AppName)
	}

	maxPerWindow := cfg.RateLimit.MaxPerWindow
	if maxPerWindow <= 0 {
		maxPerWindow = 5
	}
	window := config.TTLDuration(cfg.RateLimit.Window, time.Hour)
	minInterval := config.TTLDuration(cfg.RateLimit.MinInterval, 30*time.Second)
	limiter := ratelimit.New(maxPerWindow, window, minInterval)

	janitorStop := make(chan struct{})
	defer close(janitorStop)
	go limiter.Janitor(10*time.Minute, janitorStop)

	quizID := cfg.Quiz.ID
	if quizID == "" {
		quizID = "sdg-awareness"
	}

	routes := transport.Routes{
		WS:       transport.NewWSHandler(feed, quizRepo, stats, identity, logger, quizID),
		SendLink: transport.NewSendLinkHandler(identity, mailer, limiter, stats, logger, cfg.Auth.AllowedDomain, cfg.CORS.AllowedOrigin, cfg.Mail.AppName),
		Auth:     transport.NewAuthHandler(identity, logger, sessionTTL),
		Stats:    transport.NewStatsHandler(stats, identity, logger),
		Gate:     transport.NewGatekeeper(cfg),
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      routes.Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting pledge board service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// builtinQuizzes seeds the in-memory loader when no database is configured.
// Production deployments load quiz content from postgres instead.
func builtinQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"sdg-awareness": {
			ID: "sdg-awareness",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "How many Sustainable Development Goals are in the UN 2030 Agenda?",
					Options: []string{
						"10", "15", "17", "20",
					},
					Answer:      2,
					Explanation: "The 2030 Agenda, adopted in 2015, defines 17 interconnected goals.",
				},
				{
					ID:     "q2",
					Prompt: "Which SDG focuses on ensuring quality education for all?",
					Options: []string{
						"SDG 2", "SDG 4", "SDG 7", "SDG 11",
					},
					Answer:      1,
					Explanation: "SDG 4 targets inclusive and equitable quality education.",
				},
				{
					ID:     "q3",
					Prompt: "SDG 13 calls for urgent action on which issue?",
					Options: []string{
						"Ocean pollution", "Climate change", "Gender equality", "Clean water",
					},
					Answer:      1,
					Explanation: "SDG 13 is Climate Action.",
				},
				{
					ID:     "q4",
					Prompt: "Which goal aims to end poverty in all its forms everywhere?",
					Options: []string{
						"SDG 1", "SDG 3", "SDG 8", "SDG 16",
					},
					Answer:      0,
					Explanation: "No Poverty is the first goal of the agenda.",
				},
				{
					ID:     "q5",
					Prompt: "By which year are the Sustainable Development Goals meant to be achieved?",
					Options: []string{
						"2025", "2030", "2040", "2050",
					},
					Answer:      1,
					Explanation: "The goals set 2030 as the target year.",
				},
			},
		},
	}
}
