package app

import (
	"sync"
	"time"

	"mastery-quiz-service/internal/domain"
	"mastery-quiz-service/internal/engine"
)

// Session is one user's live quiz: an engine plus the subscribers watching it.
// The mutex is what serializes answers, continues and timer ticks into the engine.
type Session struct {
	id        string
	quizID    string
	userID    string
	mode      domain.Mode
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	engine      *engine.Engine
	pending     []domain.SessionEvent
	subscribers map[chan domain.SessionEvent]struct{}
	done        bool
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, userID string, quiz domain.Quiz, mode domain.Mode) (*Session, error) {
	return newSessionWithClock(id, userID, quiz, mode, engine.DefaultSpeedBonus(), time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID string, quiz domain.Quiz, mode domain.Mode, now func() time.Time) (*Session, error) {
	return newSessionWithClock(id, userID, quiz, mode, engine.DefaultSpeedBonus(), now)
}

func newSessionWithClock(id, userID string, quiz domain.Quiz, mode domain.Mode, bonus engine.SpeedBonus, now func() time.Time) (*Session, error) {
	s := &Session{
		id:          id,
		quizID:      quiz.ID,
		userID:      userID,
		mode:        mode,
		createdAt:   now(),
		now:         now,
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
	eng, err := engine.New(quiz.Questions, mode,
		engine.WithClock(now),
		engine.WithSpeedBonus(bonus),
		engine.WithHooks(engine.Hooks{
			OnWeakTopic: s.onWeakTopic,
			OnComplete:  s.onComplete,
		}),
	)
	if err != nil {
		return nil, err
	}
	s.engine = eng
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Done reports whether the session terminated or was abandoned.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// onWeakTopic and onComplete run inside engine calls, with mu held.
func (s *Session) onWeakTopic(questionID string) {
	q, _ := s.engine.Question(questionID)
	now := s.now()
	s.pending = append(s.pending, domain.SessionEvent{
		Type:      domain.EventWeakTopic,
		SessionID: s.id,
		QuizID:    s.quizID,
		UserID:    s.userID,
		Mode:      s.mode,
		WeakTopic: &domain.WeakTopic{
			SessionID:  s.id,
			UserID:     s.userID,
			QuizID:     s.quizID,
			QuestionID: questionID,
			TopicID:    q.TopicID,
			Mistakes:   engine.WeakTopicThreshold,
			DetectedAt: now,
		},
		OccurredAt: now,
	})
}

func (s *Session) onComplete(c domain.Completion) {
	now := s.now()
	s.pending = append(s.pending, domain.SessionEvent{
		Type:      domain.EventSessionCompleted,
		SessionID: s.id,
		QuizID:    s.quizID,
		UserID:    s.userID,
		Mode:      s.mode,
		Result: &domain.SessionResult{
			SessionID:      s.id,
			QuizID:         s.quizID,
			UserID:         s.userID,
			Mode:           s.mode,
			CorrectCount:   c.CorrectCount,
			TotalQuestions: c.TotalQuestions,
			TotalReward:    c.TotalReward,
			ElapsedSeconds: c.ElapsedSeconds,
			CompletedAt:    now,
		},
		OccurredAt: now,
	})
}

func (s *Session) view() (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return domain.QuestionView{}, domain.ErrSessionNotFound
	}
	return s.viewLocked(), nil
}

func (s *Session) viewLocked() domain.QuestionView {
	q, _ := s.engine.Current()
	return domain.QuestionView{
		SessionID:  s.id,
		QuestionID: q.ID,
		Text:       q.Text,
		Options:    append([]string(nil), q.Options...),
		ImageRef:   q.ImageRef,
		Solved:     s.engine.Solved(),
		Remaining:  s.engine.Remaining(),
		Total:      s.engine.Total(),
	}
}

func (s *Session) snapshot() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return s.engine.Snapshot(), nil
}

// submit checks the engine's preconditions itself so remote input can never trip an engine panic.
func (s *Session) submit(optionIndex int) (domain.AnswerOutcome, []domain.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return domain.AnswerOutcome{}, nil, domain.ErrSessionNotFound
	}
	if s.engine.Phase() != domain.PhaseActive {
		return domain.AnswerOutcome{}, nil, domain.ErrWrongPhase
	}
	q, _ := s.engine.Current()
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.AnswerOutcome{}, nil, domain.ErrOptionOutOfRange
	}

	outcome := s.engine.Submit(optionIndex)
	return outcome, s.flushLocked(), nil
}

func (s *Session) advance() (domain.Progress, []domain.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return domain.Progress{}, nil, domain.ErrSessionNotFound
	}
	if s.engine.Phase() != domain.PhaseRevealed {
		return domain.Progress{}, nil, domain.ErrWrongPhase
	}

	var progress domain.Progress
	if s.engine.Continue() {
		view := s.viewLocked()
		progress.Question = &view
	} else {
		c, _ := s.engine.Completion()
		progress.Completion = &c
	}
	return progress, s.flushLocked(), nil
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.engine.Tick()
	}
}

// abandon stops the timer and releases subscribers. It reports whether the
// session was still running.
func (s *Session) abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.engine.Stop()
	s.closeLocked()
	return true
}

// flushLocked hands the events raised by the last engine call to subscribers
// and returns them for the service to persist.
func (s *Session) flushLocked() []domain.SessionEvent {
	events := s.pending
	s.pending = nil
	for _, event := range events {
		s.broadcastLocked(event)
	}
	if s.engine.Phase() == domain.PhaseTerminated {
		s.closeLocked()
	}
	return events
}

func (s *Session) subscribe() (<-chan domain.SessionEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch := make(chan domain.SessionEvent, 8)
	s.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Session) broadcastLocked(event domain.SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *Session) closeLocked() {
	s.done = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
