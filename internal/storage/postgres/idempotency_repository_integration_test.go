package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

func TestIdempotencyRepository_PostgresCreateAndReplayFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	key := uuid.NewString()
	ttl := time.Now().UTC().Add(time.Hour).Round(time.Microsecond)

	record, err := repo.CreateProcessing(key, "hash-1", ttl)
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if record.RequestHash != "hash-1" {
		t.Fatalf("unexpected request hash: %s", record.RequestHash)
	}

	if _, err := repo.CreateProcessing(key, "hash-1", ttl); !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateProcessing(key, "hash-2", ttl); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}

	if err := repo.MarkDone(key, []byte(`{"sale_id":"abc"}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	stored, err := repo.Get(key)
	if err != nil {
		t.Fatalf("get stored record: %v", err)
	}
	if stored.Status != domain.IdempotencyStatusDone {
		t.Fatalf("unexpected status after done: %s", stored.Status)
	}
	if stored.HTTPStatus != 201 || string(stored.ResponseBody) != `{"sale_id":"abc"}` {
		t.Fatalf("unexpected stored response: status=%d body=%s", stored.HTTPStatus, stored.ResponseBody)
	}
}

func TestIdempotencyRepository_PostgresValidationAndMissing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("", "hash", ttl); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := repo.CreateProcessing("key", "", ttl); !errors.Is(err, domain.ErrIdempotencyRequestHashRequired) {
		t.Fatalf("expected ErrIdempotencyRequestHashRequired, got %v", err)
	}

	missing := uuid.NewString()
	if _, err := repo.Get(missing); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
	if err := repo.MarkDone(missing, nil, 200); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound on mark done, got %v", err)
	}
	if err := repo.MarkFailed(missing, nil, 500); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound on mark failed, got %v", err)
	}
}

func TestIdempotencyRepository_PostgresDeleteExpired(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)

	expired1 := uuid.NewString()
	expired2 := uuid.NewString()
	alive := uuid.NewString()

	for key, ttl := range map[string]time.Time{
		expired1: now.Add(-2 * time.Hour),
		expired2: now.Add(-time.Minute),
		alive:    now.Add(time.Hour),
	} {
		if _, err := repo.CreateProcessing(key, "hash", ttl); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}

	deleted, err := repo.DeleteExpired(now, 1)
	if err != nil {
		t.Fatalf("delete expired with limit: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted with limit, got %d", deleted)
	}

	deleted, err = repo.DeleteExpired(now, 10)
	if err != nil {
		t.Fatalf("delete remaining expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 more deleted, got %d", deleted)
	}

	if _, err := repo.Get(alive); err != nil {
		t.Fatalf("alive record must survive cleanup: %v", err)
	}
	if _, err := repo.Get(expired1); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected expired1 removed, got %v", err)
	}
}
