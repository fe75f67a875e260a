package memory

import (
	"context"
	"testing"

	"mastery-quiz-service/internal/domain"
)

func TestProgressStoreKeepsFirstResult(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	_ = store.RecordCompletion(ctx, domain.SessionResult{SessionID: "s-1", CorrectCount: 3, TotalQuestions: 3})
	_ = store.RecordCompletion(ctx, domain.SessionResult{SessionID: "s-1", CorrectCount: 1, TotalQuestions: 1})

	got, ok := store.Result("s-1")
	if !ok || got.CorrectCount != 3 {
		t.Fatalf("expected first result kept, got %+v", got)
	}
}

func TestProgressStoreWeakTopicsByUser(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	_ = store.FlagWeakTopic(ctx, domain.WeakTopic{UserID: "u1", QuestionID: "q1"})
	_ = store.FlagWeakTopic(ctx, domain.WeakTopic{UserID: "u2", QuestionID: "q2"})

	topics := store.WeakTopics("u1")
	if len(topics) != 1 || topics[0].QuestionID != "q1" {
		t.Fatalf("unexpected topics %+v", topics)
	}
}
