package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mastery-quiz-service/internal/app"
	"mastery-quiz-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession("s-1", "u1", sampleQuiz(), domain.ModeNormal)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Save(session)
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if live, err := store.Live(context.Background(), "s-1"); err != nil || !live {
		t.Fatalf("expected live session, got %v %v", live, err)
	}

	mr.FastForward(50 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session present")
	}
	if ttl := mr.TTL("quiz:session:s-1"); ttl != time.Minute {
		t.Fatalf("expected ttl refreshed on access, got %v", ttl)
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}
