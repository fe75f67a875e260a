package domain

import "time"

// Mode selects how a session reacts to a wrong answer.
type Mode string

const (
	// ModeNormal requeues wrong answers until every question is solved.
	ModeNormal Mode = "normal"
	// ModeHeadToHead ends the session on the first wrong answer.
	ModeHeadToHead Mode = "headToHead"
)

// ParseMode maps client input to a Mode. Empty input means normal play.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeNormal:
		return ModeNormal, nil
	case ModeHeadToHead:
		return ModeHeadToHead, nil
	}
	return "", ErrInvalidMode
}

// Phase is the position of a session in its answer/reveal cycle.
type Phase string

const (
	PhaseActive     Phase = "active"
	PhaseRevealed   Phase = "revealed"
	PhaseTerminated Phase = "terminated"
)

// Question models an MCQ item with exactly one correct option.
type Question struct {
	ID                 string   `json:"id" yaml:"id"`
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correct"`
	Explanation        string   `json:"explanation,omitempty" yaml:"explanation"`
	BaseReward         int      `json:"baseReward" yaml:"reward"`
	ImageRef           string   `json:"imageRef,omitempty" yaml:"image"`
	TopicID            string   `json:"topicId,omitempty" yaml:"topic"`
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Completion is what a session reports when it terminates.
type Completion struct {
	CorrectCount   int `json:"correctCount"`
	TotalQuestions int `json:"totalQuestions"`
	TotalReward    int `json:"totalReward"`
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// QuestionView is the displayable form of a question; it never carries the answer key.
type QuestionView struct {
	SessionID  string   `json:"sessionId"`
	QuestionID string   `json:"questionId"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	ImageRef   string   `json:"imageRef,omitempty"`
	Solved     int      `json:"solved"`
	Remaining  int      `json:"remaining"`
	Total      int      `json:"total"`
}

// AnswerOutcome is the reveal shown after a submission.
type AnswerOutcome struct {
	QuestionID         string `json:"questionId"`
	Correct            bool   `json:"correct"`
	CorrectOptionIndex int    `json:"correctOptionIndex"`
	Explanation        string `json:"explanation,omitempty"`
	Awarded            int    `json:"awarded"`
	TotalReward        int    `json:"totalReward"`
	Mistakes           int    `json:"mistakes"`
	WeakTopic          bool   `json:"weakTopic"`
	Terminated         bool   `json:"terminated"`
}

// Progress is the result of continuing past a reveal: either the next question or the final tally.
type Progress struct {
	Question   *QuestionView `json:"question,omitempty"`
	Completion *Completion   `json:"completion,omitempty"`
}

// SessionSnapshot is a read-only copy of engine state.
type SessionSnapshot struct {
	Mode             Mode           `json:"mode"`
	Phase            Phase          `json:"phase"`
	Queue            []string       `json:"queue"`
	Cursor           int            `json:"cursor"`
	Solved           []string       `json:"solved"`
	Mistakes         map[string]int `json:"mistakes"`
	TotalReward      int            `json:"totalReward"`
	ElapsedSeconds   int            `json:"elapsedSeconds"`
	WeakTopicFlagged bool           `json:"weakTopicFlagged"`
	TotalQuestions   int            `json:"totalQuestions"`
}

// SessionResult is the persisted record of a completed session.
type SessionResult struct {
	SessionID      string    `json:"sessionId"`
	QuizID         string    `json:"quizId"`
	UserID         string    `json:"userId"`
	Mode           Mode      `json:"mode"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	TotalReward    int       `json:"totalReward"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	CompletedAt    time.Time `json:"completedAt"`
}

// WeakTopic records a question the user kept missing within one session.
type WeakTopic struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId"`
	QuizID     string    `json:"quizId"`
	QuestionID string    `json:"questionId"`
	TopicID    string    `json:"topicId,omitempty"`
	Mistakes   int       `json:"mistakes"`
	DetectedAt time.Time `json:"detectedAt"`
}

// EventType names a session lifecycle event.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventWeakTopic        EventType = "weak_topic"
	EventSessionCompleted EventType = "session_completed"
)

// SessionEvent is fanned out to subscribers and the message broker.
type SessionEvent struct {
	Type       EventType      `json:"type"`
	SessionID  string         `json:"sessionId"`
	QuizID     string         `json:"quizId"`
	UserID     string         `json:"userId"`
	Mode       Mode           `json:"mode"`
	WeakTopic  *WeakTopic     `json:"weakTopic,omitempty"`
	Result     *SessionResult `json:"result,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
