package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestRunMemoryModeShutsDownGracefully(t *testing.T) {
	t.Setenv("SALES_KAFKA_BROKERS", "")

	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	if err := Run(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestRunRejectsUnknownStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	if err := Run(context.Background(), cfg); !errors.Is(err, errUnknownStorageDriver) {
		t.Fatalf("Run returned %v, want errUnknownStorageDriver", err)
	}
}

func TestNewDependenciesPostgres(t *testing.T) {
	dsn := postgresAppTestDSN()
	if dsn == "" {
		t.Skip("postgres dsn is not configured")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("component", "app-test"))
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}
	defer func() { _ = deps.Close() }()

	if deps.Repo == nil || deps.OutboxRepo == nil || deps.TimelineRepo == nil || deps.IdempotencyRepo == nil {
		t.Fatalf("postgres dependencies are not fully initialized: %+v", deps)
	}
	if deps.Store() == nil {
		t.Fatal("expected postgres store behind dependencies")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := deps.Store().Ping(ctx); err != nil {
		t.Fatalf("ping postgres store: %v", err)
	}
}

func postgresAppTestDSN() string {
	return strings.TrimSpace(os.Getenv("SALES_POSTGRES_TEST_DSN"))
}
