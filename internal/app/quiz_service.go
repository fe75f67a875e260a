package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mastery-quiz-service/internal/domain"
	"mastery-quiz-service/internal/engine"
	"mastery-quiz-service/internal/metrics"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ProgressRecorder persists what a session produced.
type ProgressRecorder interface {
	RecordCompletion(ctx context.Context, result domain.SessionResult) error
	FlagWeakTopic(ctx context.Context, topic domain.WeakTopic) error
}

// EventPublisher forwards session events to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SessionEvent) error
}

// QuizService hosts quiz session engines and routes their callbacks.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	progress ProgressRecorder
	events   EventPublisher
	bonus    engine.SpeedBonus
	now      func() time.Time
	newID    func() string
}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

// WithSpeedBonus sets the reward table handed to every new session.
func WithSpeedBonus(bonus engine.SpeedBonus) ServiceOption {
	return func(s *QuizService) { s.bonus = bonus }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

// WithIDGenerator replaces uuid session ids.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *QuizService) { s.newID = newID }
}

// NewQuizService wires the collaborators. events may be nil.
func NewQuizService(store SessionRepository, quizzes QuizRepository, progress ProgressRecorder, events EventPublisher, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions: store,
		quizzes:  quizzes,
		progress: progress,
		events:   events,
		bonus:    engine.DefaultSpeedBonus(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession loads a quiz and opens a session on its first question.
func (s *QuizService) StartSession(ctx context.Context, quizID, userID string, mode domain.Mode) (domain.QuestionView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuestionView{}, err
	}

	session, err := newSessionWithClock(s.newID(), userID, quiz, mode, s.bonus, s.now)
	if err != nil {
		return domain.QuestionView{}, fmt.Errorf("start quiz %s: %w", quizID, err)
	}
	s.sessions.Save(session)
	metrics.SessionStarted(mode)

	s.publish(ctx, domain.SessionEvent{
		Type:       domain.EventSessionStarted,
		SessionID:  session.id,
		QuizID:     session.quizID,
		UserID:     session.userID,
		Mode:       session.mode,
		OccurredAt: s.now(),
	})
	return session.view()
}

// Current returns the question on screen for a session.
func (s *QuizService) Current(_ context.Context, sessionID string) (domain.QuestionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.QuestionView{}, domain.ErrSessionNotFound
	}
	return session.view()
}

// Snapshot returns a read-only copy of a session's state.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot()
}

// SubmitAnswer records an answer and returns the reveal.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, optionIndex int) (domain.AnswerOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrSessionNotFound
	}

	outcome, events, err := session.submit(optionIndex)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	metrics.AnswerRecorded(session.mode, outcome.Correct, outcome.Awarded)
	s.handleEvents(ctx, session, events)
	return outcome, nil
}

// Continue moves past the reveal to the next question or the final tally.
func (s *QuizService) Continue(ctx context.Context, sessionID string) (domain.Progress, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Progress{}, domain.ErrSessionNotFound
	}

	progress, events, err := session.advance()
	if err != nil {
		return domain.Progress{}, err
	}
	s.handleEvents(ctx, session, events)
	return progress, nil
}

// Tick advances a session's per-question timer by one second.
func (s *QuizService) Tick(sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.tick()
	return nil
}

// Subscribe returns a channel that receives events for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionEvent, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session.subscribe()
}

// Leave discards a session; an unfinished session is counted as abandoned.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.abandon() {
		metrics.SessionAbandoned()
	}
	s.sessions.Delete(sessionID)
}

// handleEvents runs host side effects after the engine call has returned.
// Weak-topic persistence is best-effort and never affects session flow.
func (s *QuizService) handleEvents(ctx context.Context, session *Session, events []domain.SessionEvent) {
	for _, event := range events {
		switch event.Type {
		case domain.EventWeakTopic:
			metrics.WeakTopicFlagged()
			if err := s.progress.FlagWeakTopic(ctx, *event.WeakTopic); err != nil {
				log.Printf("flag weak topic failed for session %s: %v", session.id, err)
			}
		case domain.EventSessionCompleted:
			metrics.SessionCompleted(session.mode)
			if err := s.progress.RecordCompletion(ctx, *event.Result); err != nil {
				log.Printf("record completion failed for session %s: %v", session.id, err)
			}
			s.sessions.Delete(session.id)
		}
		s.publish(ctx, event)
	}
}

func (s *QuizService) publish(ctx context.Context, event domain.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed for session %s: %v", event.Type, event.SessionID, err)
	}
}
