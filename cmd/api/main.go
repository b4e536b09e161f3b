package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/taskmanager/internal/handlers"
	"github.com/diagnosis/taskmanager/internal/notify"
	"github.com/diagnosis/taskmanager/internal/repository"
	"github.com/diagnosis/taskmanager/internal/repository/memory"
	"github.com/diagnosis/taskmanager/internal/service"
	"github.com/diagnosis/taskmanager/pkg/auth"
	"github.com/diagnosis/taskmanager/pkg/config"
	"github.com/diagnosis/taskmanager/pkg/database"
	"github.com/diagnosis/taskmanager/pkg/events"
	"github.com/diagnosis/taskmanager/pkg/logger"
	"github.com/diagnosis/taskmanager/pkg/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))

	if err := run(); err != nil {
		logger.Error("Task manager API stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	users  repository.UserRepository
	otps   repository.OTPRepository
	tasks  repository.TaskRepository
	health func(ctx context.Context) error
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		m := memory.NewStore()
		return &stores{users: m.Users(), otps: m.OTPs(), tasks: m.Tasks(), close: func() {}}, nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Database migrations applied")
	}

	return &stores{
		users:  repository.NewUserRepository(pool),
		otps:   repository.NewOTPRepository(pool),
		tasks:  repository.NewTaskRepository(pool),
		health: pool.Ping,
		close:  pool.Close,
	}, nil
}

// openLimiter returns the OTP send limiter and, for the in-process one, the
// loop that prunes idle keys.
func openLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(context.Context), func(), error) {
	if cfg.Redis.URL == "" {
		l := ratelimit.NewMemoryLimiter(cfg.OTP.RateLimit, cfg.OTP.RateLimitWindow)
		return l, l.Run, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Rate limiting OTP sends through Redis")

	l := ratelimit.NewRedisLimiter(client, "taskmanager:otp", cfg.OTP.RateLimit, cfg.OTP.RateLimitWindow)
	return l, nil, func() { client.Close() }, nil
}

func openEventBus(cfg *config.Config) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		return events.NopPublisher{}, nil
	}
	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	limiter, limiterLoop, closeLimiter, err := openLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	eventBus, err := openEventBus(cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	sessions := auth.NewSessionIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	dispatcher := notify.NewFromConfig(cfg.Email, cfg.SMS, cfg.OTP.TTL)

	otpService := service.NewOTPService(st.otps, st.users, dispatcher, eventBus, cfg.OTP.TTL)
	authService := service.NewAuthService(st.users, otpService, sessions, eventBus)
	taskService := service.NewTaskService(st.tasks, eventBus)

	h := handlers.New(authService, otpService, taskService, sessions, limiter, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Routes(st.health),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting task manager API", "port", cfg.Server.Port, "env", cfg.Server.Env, "store", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return service.NewSweeper(otpService, cfg.OTP.SweepInterval).Run(gctx)
	})

	if limiterLoop != nil {
		g.Go(func() error {
			limiterLoop(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down task manager API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
