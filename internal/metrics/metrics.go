// Package metrics exposes prometheus instruments for quiz sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mastery-quiz-service/internal/domain"
)

var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of quiz sessions started",
		},
		[]string{"mode"},
	)

	sessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Total number of quiz sessions that reached termination",
		},
		[]string{"mode"},
	)

	sessionsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_abandoned_total",
			Help: "Total number of sessions discarded before termination",
		},
	)

	answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Total number of submitted answers",
		},
		[]string{"mode", "result"}, // result: correct/wrong
	)

	rewardAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_reward_awarded_total",
			Help: "Sum of reward granted for first-time correct answers",
		},
	)

	weakTopics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_weak_topics_flagged_total",
			Help: "Total number of sessions that flagged a weak topic",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_active_sessions_current",
			Help: "Current number of live quiz sessions",
		},
	)
)

func SessionStarted(mode domain.Mode) {
	sessionsStarted.WithLabelValues(string(mode)).Inc()
	activeSessions.Inc()
}

func SessionCompleted(mode domain.Mode) {
	sessionsCompleted.WithLabelValues(string(mode)).Inc()
	activeSessions.Dec()
}

func SessionAbandoned() {
	sessionsAbandoned.Inc()
	activeSessions.Dec()
}

// AnswerRecorded counts a submission and the reward it earned.
func AnswerRecorded(mode domain.Mode, correct bool, awarded int) {
	result := "wrong"
	if correct {
		result = "correct"
	}
	answers.WithLabelValues(string(mode), result).Inc()
	if awarded > 0 {
		rewardAwarded.Add(float64(awarded))
	}
}

func WeakTopicFlagged() {
	weakTopics.Inc()
}
