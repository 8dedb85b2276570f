package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"cogscreen-service/internal/adaptive"
	"cogscreen-service/internal/app"
	"cogscreen-service/internal/domain"
	"cogscreen-service/internal/infra/postgres"
	pgmigrations "cogscreen-service/internal/infra/postgres/migrations"
	infraredis "cogscreen-service/internal/infra/redis"
	"cogscreen-service/internal/security"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const testKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

type fixedClassifier struct{}

func (fixedClassifier) Classify(_ context.Context, _ string) (domain.Prediction, error) {
	return domain.Prediction{
		Label:         domain.RiskMedium,
		Probabilities: map[domain.RiskLabel]float64{domain.RiskLow: 0.25, domain.RiskMedium: 0.6, domain.RiskHigh: 0.15},
		Confidence:    0.6,
	}, nil
}

func (fixedClassifier) Explain(_ context.Context, _ string) (string, error) {
	return "<div>feature weights</div>", nil
}

func TestScreeningEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	cipher, err := security.NewFieldCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	users := postgres.NewUserRepository(pool)
	sessions := postgres.NewScreeningRepository(pool)
	appointments := postgres.NewAppointmentRepository(pool)
	accounts := app.NewAccountService(users, security.NewTokenIssuer("it-secret", time.Hour))

	assessment := app.NewAssessmentService(
		adaptive.NewSelector(adaptive.DefaultCatalog(), nil),
		infraredis.NewPredictionCache(redisClient, fixedClassifier{}, 5*time.Minute),
		fixedClassifier{},
		sessions,
		infraredis.NewProgressStore(redisClient, 5*time.Minute),
		app.WithSealer(cipher),
	)

	patient, err := accounts.Signup(ctx, "pat@example.com", "Pat", domain.RolePatient, "pw")
	if err != nil {
		t.Fatalf("signup patient: %v", err)
	}
	doctor, err := accounts.Signup(ctx, "doc@example.com", "Doc", domain.RoleDoctor, "pw")
	if err != nil {
		t.Fatalf("signup doctor: %v", err)
	}
	if _, err := accounts.Signup(ctx, "PAT@example.com", "Dup", domain.RolePatient, "pw"); err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	var history []domain.AnsweredItem
	for {
		q, done, err := assessment.Next(ctx, patient.ID, history)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if done {
			break
		}
		item, err := assessment.Answer(ctx, patient.ID, q.ID, "apple table penny, and I would plan ahead first")
		if err != nil {
			t.Fatalf("answer: %v", err)
		}
		history = append(history, item)
	}
	progress, err := assessment.Progress(ctx, patient.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != len(history) {
		t.Fatalf("expected %d items of progress, got %d", len(history), len(progress))
	}

	res, err := assessment.Finish(ctx, patient.ID, history)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.RiskLabel != domain.RiskMedium || res.RiskScore != 0.6 {
		t.Fatalf("unexpected result %+v", res)
	}

	var rawTranscript string
	if err := pool.QueryRow(ctx, `SELECT raw_text_enc FROM screening_sessions WHERE id=$1`, res.SessionID).Scan(&rawTranscript); err != nil {
		t.Fatalf("read stored transcript: %v", err)
	}
	if strings.Contains(rawTranscript, "apple") {
		t.Fatalf("transcript stored in plaintext")
	}

	html, err := assessment.Explanation(ctx, patient.ID, res.SessionID)
	if err != nil {
		t.Fatalf("explanation: %v", err)
	}
	if html != "<div>feature weights</div>" {
		t.Fatalf("unexpected explanation %q", html)
	}
	if _, err := assessment.Explanation(ctx, doctor.ID, res.SessionID); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for foreign session, got %v", err)
	}

	progress, err = assessment.Progress(ctx, patient.ID)
	if err != nil || len(progress) != 0 {
		t.Fatalf("expected progress cleared, got %v (%v)", progress, err)
	}

	rows, err := app.NewDashboardService(users, sessions, cipher).Latest(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(rows) != 1 || rows[0].DomainScores[domain.Memory] == 0 {
		t.Fatalf("unexpected dashboard %+v", rows)
	}

	booking := app.NewAppointmentService(appointments, users, cipher)
	if _, err := booking.Book(ctx, patient.ID, doctor.ID, "2026-11-02T10:00", "follow-up"); err != nil {
		t.Fatalf("book: %v", err)
	}
	list, err := booking.List(ctx, doctor.ID, domain.RoleDoctor)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Notes != "follow-up" {
		t.Fatalf("unexpected appointments %+v", list)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "cogscreen", "POSTGRES_PASSWORD": "cogscreen", "POSTGRES_DB": "cogscreen"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		skipWithoutDocker(t, err)
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://cogscreen:cogscreen@%s:%s/cogscreen?sslmode=disable", host, port.Port())
	return dsn, func() { _ = container.Terminate(ctx) }
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		skipWithoutDocker(t, err)
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s", host, port.Port()), func() { _ = container.Terminate(ctx) }
}

func skipWithoutDocker(t *testing.T, err error) {
	t.Helper()
	if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
		t.Skipf("docker not available: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
