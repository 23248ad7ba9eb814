package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/fcv-2025.net/assessment/internal/adapter/backend"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/clock"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/compiler"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/crypto"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/languages"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/postgres/submissionoutbox"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/postgres/userrepository"
	"gitlab.com/fcv-2025.net/assessment/internal/adapter/redis/attemptstore"
	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/activity"
	auth2 "gitlab.com/fcv-2025.net/assessment/internal/core/services/auth"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/runner"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	logger2 "gitlab.com/fcv-2025.net/assessment/internal/global/logger"
	http2 "gitlab.com/fcv-2025.net/assessment/internal/http"
	"gitlab.com/fcv-2025.net/assessment/internal/schedulerengine"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg := config.NewSystemConfig()
	logger2.Logger = logging.NewZapLogger(sysCfg.DebugMode)
	logger := logger2.Logger
	logger.Info("Starting assessment service")

	db, err := setupDatabase(sysCfg.PostgresConfig)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// SECONDARY PORTS
	attemptStore, err := attemptstore.NewAttemptRepository(redisClient, logger.With("component", "attemptstore"))
	if err != nil {
		logger.Error("Failed to set up attempt store", "error", err)
		os.Exit(1)
	}
	outbox := submissionoutbox.NewOutboxRepository(db, logger)
	userPort := userrepository.New(db, logger, "public")
	lmsClient := backend.NewClient(sysCfg.BackendConfig, logger.With("component", "backend"))
	executor := compiler.NewExecutor(sysCfg.ExecutorConfig, logger.With("component", "compiler"))
	languageCatalog, err := languages.LoadFile(sysCfg.ExecutorConfig.LanguagesFile)
	if err != nil {
		logger.Error("Failed to load language catalog", "error", err)
		os.Exit(1)
	}

	//primary ports
	jwtProvider := crypto.NewJWTService(sysCfg.JwtConfig)

	//services
	sessions := session.NewManager(attemptStore, lmsClient, outbox, clock.Wall{}, logger.With("component", "session"), sysCfg.SessionSvcCfg)
	catalog := activity.NewCatalog(lmsClient, sysCfg.BackendConfig.ActivityCache, logger)
	runnerSvc := runner.NewRunnerService(sessions, catalog, executor, languageCatalog, logger.With("component", "runner"))
	ggAuth := auth2.NewGoogleAuthService(userPort, jwtProvider, sysCfg.GGAuthConfig)
	localAuth := auth2.NewLocalAuthService(userPort, jwtProvider)
	serviceProvider := http2.NewServiceProvider(sessions, runnerSvc, catalog, jwtProvider, ggAuth, localAuth)

	//server
	httpServer := http2.NewServer(sysCfg.HttpConfig.Port, "assessment", *serviceProvider, sysCfg.GGAuthConfig, logger)
	if err := httpServer.Init(); err != nil {
		logger.Error("Failed to init http server", "error", err)
		os.Exit(1)
	}
	serverErr := httpServer.Start()

	ctxBg, stopBackground := context.WithCancel(context.Background())
	schedulerSvc := schedulerengine.NewSchedulerEngine(sysCfg.SessionSvcCfg, sessions, logger.With("component", "scheduler"))
	schedulerSvc.Start(ctxBg)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Stop(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	stopBackground()
	schedulerSvc.Wait()

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
