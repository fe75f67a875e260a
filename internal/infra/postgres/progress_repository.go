package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"mastery-quiz-service/internal/domain"
)

// ProgressRepository writes session results and weak-topic flags.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// RecordCompletion inserts one row per session; replays of the same session are ignored.
func (r *ProgressRepository) RecordCompletion(ctx context.Context, result domain.SessionResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_results
			(session_id, quiz_id, user_id, mode, correct_count, total_questions, total_reward, elapsed_seconds, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.QuizID, result.UserID, string(result.Mode),
		result.CorrectCount, result.TotalQuestions, result.TotalReward, result.ElapsedSeconds, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session result: %w", err)
	}
	return nil
}

// FlagWeakTopic upserts the flag for (user, question) and counts how often it was raised.
func (r *ProgressRepository) FlagWeakTopic(ctx context.Context, topic domain.WeakTopic) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO weak_topics
			(user_id, question_id, quiz_id, topic_id, last_session_id, mistakes, flag_count, last_detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			quiz_id = EXCLUDED.quiz_id,
			topic_id = EXCLUDED.topic_id,
			last_session_id = EXCLUDED.last_session_id,
			mistakes = EXCLUDED.mistakes,
			flag_count = weak_topics.flag_count + 1,
			last_detected_at = EXCLUDED.last_detected_at`,
		topic.UserID, topic.QuestionID, topic.QuizID, topic.TopicID, topic.SessionID, topic.Mistakes, topic.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert weak topic: %w", err)
	}
	return nil
}

// WeakTopics lists the questions flagged for a user, most recent first.
func (r *ProgressRepository) WeakTopics(ctx context.Context, userID string) ([]domain.WeakTopic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, question_id, quiz_id, topic_id, last_session_id, mistakes, last_detected_at
		FROM weak_topics WHERE user_id=$1 ORDER BY last_detected_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query weak topics: %w", err)
	}
	defer rows.Close()

	var out []domain.WeakTopic
	for rows.Next() {
		var t domain.WeakTopic
		if err := rows.Scan(&t.UserID, &t.QuestionID, &t.QuizID, &t.TopicID, &t.SessionID, &t.Mistakes, &t.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan weak topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
