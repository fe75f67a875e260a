package memory

import (
	"testing"

	"mastery-quiz-service/internal/app"
	"mastery-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, err := app.NewSession("s-1", "u1", sampleQuiz(), domain.ModeNormal)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Save(session)
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", store.Len())
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}
