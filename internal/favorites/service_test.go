package favorites

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{R: client}
}

func TestToggleAndCheck(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()
	courseID := uuid.New()
	ctx := context.Background()

	favorited, err := svc.Toggle(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !favorited {
		t.Fatal("expected favorited after first toggle")
	}

	exists, err := svc.Check(ctx, userID, courseID)
	if err != nil || !exists {
		t.Fatalf("expected favorite present, got %v %v", exists, err)
	}

	favorited, err = svc.Toggle(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if favorited {
		t.Fatal("expected unfavorited after second toggle")
	}
}

func TestListPerUser(t *testing.T) {
	svc := newTestService(t)
	alice := uuid.New()
	bob := uuid.New()
	course := uuid.New()
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, alice, course); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	aliceList, err := svc.List(ctx, alice)
	if err != nil || len(aliceList) != 1 {
		t.Fatalf("expected one favorite for alice, got %v %v", aliceList, err)
	}
	bobList, err := svc.List(ctx, bob)
	if err != nil || len(bobList) != 0 {
		t.Fatalf("expected no favorites for bob, got %v %v", bobList, err)
	}
}
