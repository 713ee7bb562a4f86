package webhooks

import (
	"context"
	"testing"
	"time"
)

type stubStore struct {
	seen map[string]string
	err  error
}

func newStubStore() *stubStore {
	return &stubStore{seen: map[string]string{}}
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	return s.seen[key], nil
}

func (s *stubStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = "1"
	return true, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (s *stubStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

func TestCheckAndMark(t *testing.T) {
	t.Parallel()

	guard, err := NewIdempotencyGuard(newStubStore(), time.Hour, "stripe-webhooks")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	duplicate, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if duplicate {
		t.Fatal("first delivery must not be a duplicate")
	}

	duplicate, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if !duplicate {
		t.Fatal("redelivery must be flagged as duplicate")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	t.Parallel()

	guard, err := NewIdempotencyGuard(newStubStore(), time.Hour, "stripe-webhooks")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	if _, err := guard.CheckAndMark(ctx, "evt_retry"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Delete(ctx, "evt_retry"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	duplicate, err := guard.CheckAndMark(ctx, "evt_retry")
	if err != nil {
		t.Fatalf("remark: %v", err)
	}
	if duplicate {
		t.Fatal("deleted event must be markable again")
	}
}

func TestGuardValidatesInputs(t *testing.T) {
	t.Parallel()

	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newStubStore(), time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}

	guard, err := NewIdempotencyGuard(newStubStore(), time.Hour, "scope")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
