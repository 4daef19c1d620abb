package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
	pginfra "pledgeboard/internal/infra/postgres"
	pgmigrations "pledgeboard/internal/infra/postgres/migrations"
	redisinfra "pledgeboard/internal/infra/redis"
)

func TestPledgeFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quizRepo := redisinfra.NewQuizRepository(redisClient, pginfra.NewQuizLoader(pool), 5*time.Minute)
	quiz, err := quizRepo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(quiz.Questions))
	}

	store := pginfra.NewPledgeStore(pool)
	feed := app.NewFeedService(store, zap.NewNop())

	// Quiz run persisted through the feed, same path the socket uses.
	runner := app.NewQuizRunner(quiz, feed, "u1")
	if _, err := runner.Start("Law", "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := range quiz.Questions {
		if _, err := runner.Answer(quiz.Questions[i].Answer); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if _, _, err := runner.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	record, err := runner.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if int(record.Score) != 10 {
		t.Fatalf("score = %d, want 10", record.Score)
	}

	if _, err := feed.Volunteer(ctx, "u2", "Bose", "Medical"); err != nil {
		t.Fatalf("volunteer: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("records = %d, want 2", len(recent))
	}
	// created_at is server-assigned, newest first.
	if recent[0].UserID != "u2" || !recent[0].IsVolunteer() {
		t.Fatalf("newest = %+v", recent[0])
	}
	if recent[0].CreatedTime().IsZero() {
		t.Fatal("created_at not set by the database")
	}

	snap, err := feed.SnapshotFor(ctx, "u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Totals.Pledges != 2 || snap.Totals.Volunteers != 1 || snap.Totals.MyScore != 10 {
		t.Fatalf("totals = %+v", snap.Totals)
	}
	if snap.Leaderboard[0].Name != "Law" || snap.Leaderboard[0].Score != 10 {
		t.Fatalf("leaderboard = %+v", snap.Leaderboard)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "pledge", "POSTGRES_PASSWORD": "pledgepass", "POSTGRES_DB": "pledgedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://pledge:pledgepass@%s:%s/pledgedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
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
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
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

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "one", Options: []string{"a", "b"}, Answer: 1},
			{ID: "q2", Prompt: "two", Options: []string{"a", "b"}, Answer: 0},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
