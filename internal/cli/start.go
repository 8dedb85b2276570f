package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cogscreen-service/internal/adaptive"
	"cogscreen-service/internal/app"
	"cogscreen-service/internal/classifier"
	"cogscreen-service/internal/config"
	"cogscreen-service/internal/infra/memory"
	"cogscreen-service/internal/infra/postgres"
	infraredis "cogscreen-service/internal/infra/redis"
	"cogscreen-service/internal/observability"
	"cogscreen-service/internal/security"
	transport "cogscreen-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the screening server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type repositories struct {
	users        app.UserRepository
	sessions     app.ScreeningRepository
	appointments app.AppointmentRepository
	progress     app.ProgressRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

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
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	repos := buildRepositories(cfg, pool, redisClient)
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	predictor, explainer := buildClassifier(cfg, redisClient)
	feed := app.NewFeed()

	opts := []app.AssessmentOption{
		app.WithMaxPerDomain(cfg.Assessment.MaxPerDomain),
		app.WithFeed(feed),
		app.WithMetrics(metrics),
	}
	var sealer app.Sealer
	if cfg.Security.AES256KeyB64 != "" {
		cipher, err := security.NewFieldCipher(cfg.Security.AES256KeyB64)
		if err != nil {
			return err
		}
		sealer = cipher
		opts = append(opts, app.WithSealer(cipher))
	} else {
		log.Println("no field encryption key configured, screenings are stored in plaintext")
	}

	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, config.TTLDuration(cfg.Security.TokenTTL, 12*time.Hour))
	assessment := app.NewAssessmentService(
		adaptive.NewSelector(adaptive.DefaultCatalog(), adaptive.DefaultSource()),
		predictor, explainer, repos.sessions, repos.progress, opts...,
	)

	srv := transport.NewServer(transport.Deps{
		Assessment:     assessment,
		Accounts:       app.NewAccountService(repos.users, tokens),
		Appointments:   app.NewAppointmentService(repos.appointments, repos.users, sealer),
		Dashboard:      app.NewDashboardService(repos.users, repos.sessions, sealer),
		Feed:           feed,
		Tokens:         tokens,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("starting screening service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildRepositories(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) repositories {
	var repos repositories
	if pool != nil {
		repos.users = postgres.NewUserRepository(pool)
		repos.sessions = postgres.NewScreeningRepository(pool)
		repos.appointments = postgres.NewAppointmentRepository(pool)
	} else {
		log.Println("no postgres url configured, using in-memory repositories")
		repos.users = memory.NewUserStore()
		repos.sessions = memory.NewScreeningStore()
		repos.appointments = memory.NewAppointmentStore()
	}

	progressTTL := config.TTLDuration(cfg.Assessment.ProgressTTL, 24*time.Hour)
	if redisClient != nil {
		repos.progress = infraredis.NewProgressStore(redisClient, progressTTL)
	} else {
		repos.progress = memory.NewProgressStore()
	}
	return repos
}

func buildClassifier(cfg config.Config, redisClient *redis.Client) (app.Classifier, app.Explainer) {
	if cfg.Classifier.URL == "" {
		log.Println("no classifier url configured, finishing assessments will fail with prediction errors")
		return classifier.Unconfigured{}, classifier.Unconfigured{}
	}
	client := classifier.NewClient(cfg.Classifier.URL, config.TTLDuration(cfg.Classifier.Timeout, 10*time.Second))

	cacheTTL := config.TTLDuration(cfg.Classifier.CacheTTL, 10*time.Minute)
	if redisClient != nil {
		return infraredis.NewPredictionCache(redisClient, client, cacheTTL), client
	}
	return memory.NewPredictionCache(client, cacheTTL), client
}
