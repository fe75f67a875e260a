// Package engine runs a single adaptive quiz session: a queue of questions that
// requeues wrong answers to the tail until every question has been answered
// correctly once, or, in head-to-head play, until the first wrong answer.
//
// An Engine is not safe for concurrent use. The host serializes Submit,
// Continue and Tick on one logical thread. Calling an operation in the wrong
// phase, or with an option index the current question does not have, panics
// with an error wrapping domain.ErrWrongPhase or domain.ErrOptionOutOfRange.
package engine

import (
	"fmt"
	"time"

	"mastery-quiz-service/internal/domain"
)

// WeakTopicThreshold is the number of mistakes on one question that flags a weak topic.
const WeakTopicThreshold = 2

// Hooks are the callbacks an engine fires into its host. Both run synchronously
// inside the engine call that triggers them and must not call back into the engine.
type Hooks struct {
	// OnWeakTopic fires at most once per session, on the mistake that reaches WeakTopicThreshold.
	OnWeakTopic func(questionID string)
	// OnComplete fires once, when the session terminates.
	OnComplete func(domain.Completion)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for wall-clock measurements.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSpeedBonus replaces the default reward table.
func WithSpeedBonus(bonus SpeedBonus) Option {
	return func(e *Engine) { e.bonus = bonus }
}

// WithHooks registers host callbacks.
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// reveal pins the answered question between Submit and Continue, so queue
// mutation can never change which question the host is showing.
type reveal struct {
	questionID string
	correct    bool
	outcome    domain.AnswerOutcome
}

// Engine holds the mutable state of one session.
type Engine struct {
	mode      domain.Mode
	questions map[string]domain.Question
	total     int

	queue  []string
	cursor int

	solved   map[string]struct{}
	order    []string
	mistakes map[string]int

	reward       int
	elapsed      int
	timerRunning bool
	weakFlagged  bool

	phase      domain.Phase
	revealed   *reveal
	completion *domain.Completion

	startedAt time.Time
	now       func() time.Time
	bonus     SpeedBonus
	hooks     Hooks
}

// New validates questions and starts a session on the first of them.
func New(questions []domain.Question, mode domain.Mode, opts ...Option) (*Engine, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if mode != domain.ModeNormal && mode != domain.ModeHeadToHead {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	e := &Engine{
		mode:      mode,
		questions: make(map[string]domain.Question, len(questions)),
		total:     len(questions),
		queue:     make([]string, 0, len(questions)),
		solved:    make(map[string]struct{}, len(questions)),
		mistakes:  make(map[string]int),
		phase:     domain.PhaseActive,
		now:       time.Now,
		bonus:     DefaultSpeedBonus(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if _, dup := e.questions[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidQuestion, q.ID)
		}
		q.Options = append([]string(nil), q.Options...)
		e.questions[q.ID] = q
		e.queue = append(e.queue, q.ID)
	}

	e.startedAt = e.now()
	e.timerRunning = true
	return e, nil
}

func validateQuestion(q domain.Question) error {
	switch {
	case q.ID == "":
		return fmt.Errorf("%w: empty id", domain.ErrInvalidQuestion)
	case len(q.Options) < 2:
		return fmt.Errorf("%w: %q has %d options", domain.ErrInvalidQuestion, q.ID, len(q.Options))
	case q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options):
		return fmt.Errorf("%w: %q correct index %d", domain.ErrInvalidQuestion, q.ID, q.CorrectOptionIndex)
	case q.BaseReward < 0:
		return fmt.Errorf("%w: %q negative reward", domain.ErrInvalidQuestion, q.ID)
	}
	return nil
}

// Submit records an answer for the current question and moves to the reveal.
func (e *Engine) Submit(selectedOptionIndex int) domain.AnswerOutcome {
	e.require(domain.PhaseActive, "Submit")
	q := e.questions[e.queue[e.cursor]]
	if selectedOptionIndex < 0 || selectedOptionIndex >= len(q.Options) {
		panic(fmt.Errorf("%w: %d not in [0,%d) for %q", domain.ErrOptionOutOfRange, selectedOptionIndex, len(q.Options), q.ID))
	}

	correct := selectedOptionIndex == q.CorrectOptionIndex
	e.phase = domain.PhaseRevealed
	e.timerRunning = false
	e.revealed = &reveal{questionID: q.ID, correct: correct}

	out := domain.AnswerOutcome{
		QuestionID:         q.ID,
		Correct:            correct,
		CorrectOptionIndex: q.CorrectOptionIndex,
		Explanation:        q.Explanation,
	}

	switch {
	case correct:
		if _, done := e.solved[q.ID]; !done {
			e.solved[q.ID] = struct{}{}
			e.order = append(e.order, q.ID)
			out.Awarded = q.BaseReward + e.bonus.For(e.elapsed)
			e.reward += out.Awarded
		}
	case e.mode == domain.ModeHeadToHead:
		// First wrong answer ends the duel; the total counts only what was answered.
		solved := len(e.solved)
		e.terminate(domain.Completion{
			CorrectCount:   solved,
			TotalQuestions: solved,
			TotalReward:    e.reward,
			ElapsedSeconds: e.wallClockSeconds(),
		})
		out.Terminated = true
	default:
		e.mistakes[q.ID]++
		if e.mistakes[q.ID] == WeakTopicThreshold && !e.weakFlagged {
			e.weakFlagged = true
			out.WeakTopic = true
			if e.hooks.OnWeakTopic != nil {
				e.hooks.OnWeakTopic(q.ID)
			}
		}
	}

	out.TotalReward = e.reward
	out.Mistakes = e.mistakes[q.ID]
	e.revealed.outcome = out
	return out
}

// Continue leaves the reveal and either shows the next question or terminates.
// It reports whether the session is still running.
func (e *Engine) Continue() bool {
	e.require(domain.PhaseRevealed, "Continue")
	r := e.revealed
	e.revealed = nil
	e.elapsed = 0
	e.timerRunning = true
	e.phase = domain.PhaseActive

	pos := e.position(r.questionID)
	if r.correct {
		if pos >= 0 {
			e.queue = append(e.queue[:pos], e.queue[pos+1:]...)
		}
		if len(e.solved) == e.total {
			e.terminate(domain.Completion{
				CorrectCount:   e.total,
				TotalQuestions: e.total,
				TotalReward:    e.reward,
				ElapsedSeconds: e.wallClockSeconds(),
			})
			return false
		}
		e.cursor = pos
	} else {
		e.queue = append(e.queue[:pos], e.queue[pos+1:]...)
		e.queue = append(e.queue, r.questionID)
		e.cursor = pos
		// A requeued item that was already last would come straight back.
		if pos == len(e.queue)-1 {
			e.cursor = 0
		}
	}
	if e.cursor < 0 || e.cursor >= len(e.queue) {
		e.cursor = 0
	}
	return true
}

// Tick advances the per-question timer by one second while a question is awaiting an answer.
func (e *Engine) Tick() {
	if e.phase == domain.PhaseActive && e.timerRunning {
		e.elapsed++
	}
}

// Stop halts the timer when the host abandons the session.
func (e *Engine) Stop() {
	e.timerRunning = false
}

// Phase reports the current phase.
func (e *Engine) Phase() domain.Phase { return e.phase }

// Mode reports the session mode.
func (e *Engine) Mode() domain.Mode { return e.mode }

// Total is the number of questions the session started with.
func (e *Engine) Total() int { return e.total }

// Current returns the question on screen: the pending one while active, the
// answered one while revealed. It reports false once the session is over.
func (e *Engine) Current() (domain.Question, bool) {
	switch e.phase {
	case domain.PhaseActive:
		return e.questions[e.queue[e.cursor]], true
	case domain.PhaseRevealed:
		return e.questions[e.revealed.questionID], true
	}
	return domain.Question{}, false
}

// Question looks up a session question by id.
func (e *Engine) Question(id string) (domain.Question, bool) {
	q, ok := e.questions[id]
	return q, ok
}

// LastOutcome returns the reveal currently on screen.
func (e *Engine) LastOutcome() (domain.AnswerOutcome, bool) {
	if e.revealed == nil {
		return domain.AnswerOutcome{}, false
	}
	return e.revealed.outcome, true
}

// Completion returns the final tally once the session has terminated.
func (e *Engine) Completion() (domain.Completion, bool) {
	if e.completion == nil {
		return domain.Completion{}, false
	}
	return *e.completion, true
}

// Solved reports how many distinct questions have been answered correctly.
func (e *Engine) Solved() int { return len(e.solved) }

// Remaining reports how many questions are still in the queue.
func (e *Engine) Remaining() int { return len(e.queue) }

// Snapshot copies the session state for display.
func (e *Engine) Snapshot() domain.SessionSnapshot {
	mistakes := make(map[string]int, len(e.mistakes))
	for id, n := range e.mistakes {
		mistakes[id] = n
	}
	return domain.SessionSnapshot{
		Mode:             e.mode,
		Phase:            e.phase,
		Queue:            append([]string(nil), e.queue...),
		Cursor:           e.cursor,
		Solved:           append([]string(nil), e.order...),
		Mistakes:         mistakes,
		TotalReward:      e.reward,
		ElapsedSeconds:   e.elapsed,
		WeakTopicFlagged: e.weakFlagged,
		TotalQuestions:   e.total,
	}
}

func (e *Engine) terminate(c domain.Completion) {
	e.phase = domain.PhaseTerminated
	e.timerRunning = false
	e.completion = &c
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(c)
	}
}

func (e *Engine) position(questionID string) int {
	for i, id := range e.queue {
		if id == questionID {
			return i
		}
	}
	return -1
}

func (e *Engine) wallClockSeconds() int {
	return int(e.now().Sub(e.startedAt) / time.Second)
}

func (e *Engine) require(phase domain.Phase, op string) {
	if e.phase != phase {
		panic(fmt.Errorf("%w: %s in %s", domain.ErrWrongPhase, op, e.phase))
	}
}
