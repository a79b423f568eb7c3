package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/claude/mapty/internal/config"
	"github.com/go-redis/redismock/v8"
)

// exerciseStore runs the BlobStore contract against any backend.
func exerciseStore(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, WorkoutsKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(absent) err = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, WorkoutsKey, `[{"type":"running"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, WorkoutsKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `[{"type":"running"}]` {
		t.Errorf("Get = %q", got)
	}

	if err := s.Set(ctx, WorkoutsKey, "[]"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, WorkoutsKey); got != "[]" {
		t.Errorf("Get after overwrite = %q, want []", got)
	}

	if err := s.Remove(ctx, WorkoutsKey); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, WorkoutsKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove err = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, WorkoutsKey); err != nil {
		t.Errorf("Remove(absent) = %v, want nil", err)
	}
}

// TestMemoryStore verifies the in-memory backend.
func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

// TestSQLiteStore verifies the SQLite backend, including reopening the same file.
func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)

	ctx := context.Background()
	if err := s.Set(ctx, "other", "kept"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	reopened, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, err := reopened.Get(ctx, "other"); err != nil || got != "kept" {
		t.Errorf("Get after reopen = %q, %v; want kept", got, err)
	}
}

// TestRedisStore verifies key prefixing and redis.Nil mapping using redismock.
func TestRedisStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	defer s.Close()
	ctx := context.Background()

	mock.ExpectGet("mapty::workouts").RedisNil()
	mock.ExpectSet("mapty::workouts", "[]", 0).SetVal("OK")
	mock.ExpectGet("mapty::workouts").SetVal("[]")
	mock.ExpectDel("mapty::workouts").SetVal(1)

	if _, err := s.Get(ctx, WorkoutsKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(absent) err = %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, WorkoutsKey, "[]"); err != nil {
		t.Errorf("Set: %v", err)
	}
	if got, err := s.Get(ctx, WorkoutsKey); err != nil || got != "[]" {
		t.Errorf("Get = %q, %v; want []", got, err)
	}
	if err := s.Remove(ctx, WorkoutsKey); err != nil {
		t.Errorf("Remove: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// TestRedisStoreError verifies backend failures are wrapped, not reported as absent.
func TestRedisStoreError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	defer s.Close()

	mock.ExpectGet("mapty::workouts").SetErr(errors.New("connection refused"))
	_, err := s.Get(context.Background(), WorkoutsKey)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, want wrapped backend error", err)
	}
}

// TestOpenBackends verifies Open picks the configured local backend and rejects unknown ones.
func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Backend: config.BackendMemory}, "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("memory backend = %T", s)
	}

	s, err = Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, SQLiteDir: t.TempDir()}, "")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLite); !ok {
		t.Errorf("sqlite backend = %T", s)
	}

	if _, err := Open(ctx, config.StorageConfig{Backend: "dynamo"}, ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
