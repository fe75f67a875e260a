package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"mastery-quiz-service/internal/domain"
)

const (
	wrong   = 0
	correct = 1
)

type recorder struct {
	weak      []string
	completes []domain.Completion
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnWeakTopic: func(id string) { r.weak = append(r.weak, id) },
		OnComplete:  func(c domain.Completion) { r.completes = append(r.completes, c) },
	}
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Text:               fmt.Sprintf("Question %d", i+1),
			Options:            []string{"a", "b", "c"},
			CorrectOptionIndex: correct,
			Explanation:        "b is right",
			BaseReward:         10,
		}
	}
	return qs
}

func newEngine(t *testing.T, n int, mode domain.Mode, rec *recorder, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithHooks(rec.hooks()))
	e, err := New(sampleQuestions(n), mode, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func currentID(t *testing.T, e *Engine) string {
	t.Helper()
	q, ok := e.Current()
	if !ok {
		t.Fatalf("expected a current question in phase %s", e.Phase())
	}
	return q.ID
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("expected panic wrapping %v, got %v", target, r)
		}
	}()
	fn()
}

func TestNormalSessionCompletesAfterEveryQuestionSolved(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 3, domain.ModeNormal, rec)

	for i := 0; i < 3; i++ {
		if len(rec.completes) != 0 {
			t.Fatalf("completed early after %d answers", i)
		}
		e.Submit(correct)
		e.Continue()
	}

	if len(rec.completes) != 1 {
		t.Fatalf("expected one completion, got %d", len(rec.completes))
	}
	c := rec.completes[0]
	if c.CorrectCount != 3 || c.TotalQuestions != 3 {
		t.Fatalf("expected 3/3, got %+v", c)
	}
	if c.TotalReward != 3*30 {
		t.Fatalf("expected reward 90, got %d", c.TotalReward)
	}
	if e.Phase() != domain.PhaseTerminated {
		t.Fatalf("expected terminated, got %s", e.Phase())
	}
	if got := e.Snapshot().Solved; len(got) != 3 || got[0] != "q1" || got[1] != "q2" || got[2] != "q3" {
		t.Fatalf("unexpected solved order %v", got)
	}
}

func TestRequeueScenarioRewardsEachQuestionOnce(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 3, domain.ModeNormal, rec)

	steps := []struct {
		want   string
		answer int
	}{
		{"q1", wrong},
		{"q2", correct},
		{"q3", correct},
		{"q1", correct},
	}
	for i, step := range steps {
		if id := currentID(t, e); id != step.want {
			t.Fatalf("step %d: expected %s on screen, got %s", i, step.want, id)
		}
		e.Submit(step.answer)
		if i < len(steps)-1 && !e.Continue() {
			t.Fatalf("step %d: terminated before q1 was retried", i)
		}
	}
	if len(rec.completes) != 0 {
		t.Fatalf("completion must wait for continue")
	}
	if e.Continue() {
		t.Fatalf("expected termination after q1 retry")
	}

	c := rec.completes[0]
	if c.CorrectCount != 3 || c.TotalQuestions != 3 {
		t.Fatalf("expected 3/3, got %+v", c)
	}
	if c.TotalReward != 3*30 {
		t.Fatalf("expected three rewards (90), got %d", c.TotalReward)
	}
	if len(e.Snapshot().Solved) != 3 {
		t.Fatalf("expected solved set of 3")
	}
}

func TestHeadToHeadEndsOnFirstWrongAnswer(t *testing.T) {
	rec := &recorder{}
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	e := newEngine(t, 3, domain.ModeHeadToHead, rec, WithClock(clock))

	e.Submit(correct)
	e.Continue()
	e.Submit(correct)
	e.Continue()
	now = now.Add(42 * time.Second)
	out := e.Submit(wrong)

	if !out.Terminated {
		t.Fatalf("expected terminated outcome")
	}
	if e.Phase() != domain.PhaseTerminated {
		t.Fatalf("expected terminated phase, got %s", e.Phase())
	}
	if len(rec.completes) != 1 {
		t.Fatalf("expected completion inside submit, got %d", len(rec.completes))
	}
	want := domain.Completion{CorrectCount: 2, TotalQuestions: 2, TotalReward: 60, ElapsedSeconds: 42}
	if rec.completes[0] != want {
		t.Fatalf("expected %+v, got %+v", want, rec.completes[0])
	}
	snap := e.Snapshot()
	if len(snap.Queue) != 1 || snap.Queue[0] != "q3" {
		t.Fatalf("q3 must not be requeued, queue=%v", snap.Queue)
	}
	if len(snap.Mistakes) != 0 {
		t.Fatalf("head-to-head must not count mistakes, got %v", snap.Mistakes)
	}
	expectPanic(t, domain.ErrWrongPhase, func() { e.Continue() })
}

func TestSingleQuestionWrongThenCorrect(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 1, domain.ModeNormal, rec)

	e.Submit(wrong)
	if e.Phase() != domain.PhaseRevealed {
		t.Fatalf("must wait for continue, got %s", e.Phase())
	}
	if !e.Continue() {
		t.Fatalf("session should continue after a wrong answer")
	}
	if n := len(e.Snapshot().Queue); n != 1 {
		t.Fatalf("queue length %d, want 1", n)
	}
	if id := currentID(t, e); id != "q1" {
		t.Fatalf("expected q1 re-presented, got %s", id)
	}

	e.Submit(correct)
	if n := len(e.Snapshot().Queue); n != 1 {
		t.Fatalf("queue length %d before continue, want 1", n)
	}
	e.Continue()

	if len(rec.completes) != 1 {
		t.Fatalf("expected completion")
	}
	if c := rec.completes[0]; c.CorrectCount != 1 || c.TotalQuestions != 1 {
		t.Fatalf("expected 1/1, got %+v", c)
	}
}

func TestWeakTopicFiresOnSecondMistakeOnly(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 1, domain.ModeNormal, rec)

	out := e.Submit(wrong)
	if out.WeakTopic || len(rec.weak) != 0 {
		t.Fatalf("first mistake must not flag")
	}
	e.Continue()

	out = e.Submit(wrong)
	if !out.WeakTopic || out.Mistakes != 2 {
		t.Fatalf("second mistake must flag, got %+v", out)
	}
	if len(rec.weak) != 1 || rec.weak[0] != "q1" {
		t.Fatalf("expected weak topic q1 before continue, got %v", rec.weak)
	}
	e.Continue()

	out = e.Submit(wrong)
	if out.WeakTopic || len(rec.weak) != 1 {
		t.Fatalf("third mistake must not re-flag, got %v", rec.weak)
	}
	if out.Mistakes != 3 {
		t.Fatalf("expected 3 mistakes, got %d", out.Mistakes)
	}
}

func TestWeakTopicFlagsOncePerSessionAcrossQuestions(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 2, domain.ModeNormal, rec)

	// q1, q2, q1, q2 all wrong: both reach the threshold.
	for i := 0; i < 4; i++ {
		e.Submit(wrong)
		e.Continue()
	}
	if len(rec.weak) != 1 || rec.weak[0] != "q1" {
		t.Fatalf("expected a single weak topic for q1, got %v", rec.weak)
	}
	snap := e.Snapshot()
	if snap.Mistakes["q1"] != 2 || snap.Mistakes["q2"] != 2 {
		t.Fatalf("unexpected mistakes %v", snap.Mistakes)
	}
	if !snap.WeakTopicFlagged {
		t.Fatalf("expected flag set")
	}
}

func TestWrongAnswerIsNotShownBackToBack(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 3, domain.ModeNormal, rec)

	e.Submit(wrong)
	e.Continue()
	if id := currentID(t, e); id != "q2" {
		t.Fatalf("expected q2 after requeue, got %s", id)
	}
	if q := e.Snapshot().Queue; q[len(q)-1] != "q1" {
		t.Fatalf("expected q1 at tail, got %v", q)
	}
}

func TestRevealFreezesDisplayedQuestion(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 2, domain.ModeNormal, rec)

	out := e.Submit(correct)
	if id := currentID(t, e); id != out.QuestionID {
		t.Fatalf("displayed %s while revealing %s", id, out.QuestionID)
	}
	last, ok := e.LastOutcome()
	if !ok || last.QuestionID != "q1" || !last.Correct || last.Explanation == "" {
		t.Fatalf("unexpected reveal %+v", last)
	}
	e.Continue()
	if _, ok := e.LastOutcome(); ok {
		t.Fatalf("reveal must clear on continue")
	}
	if id := currentID(t, e); id != "q2" {
		t.Fatalf("expected q2, got %s", id)
	}
}

func TestTimerPausesOnRevealAndResets(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 2, domain.ModeNormal, rec)

	for i := 0; i < 50; i++ {
		e.Tick()
	}
	out := e.Submit(correct)
	if out.Awarded != 10+10 {
		t.Fatalf("expected base 10 + 50s bonus 10, got %d", out.Awarded)
	}
	e.Tick()
	e.Tick()
	if got := e.Snapshot().ElapsedSeconds; got != 50 {
		t.Fatalf("timer must pause on reveal, elapsed=%d", got)
	}
	e.Continue()
	if got := e.Snapshot().ElapsedSeconds; got != 0 {
		t.Fatalf("timer must reset on continue, elapsed=%d", got)
	}
	e.Tick()
	if got := e.Snapshot().ElapsedSeconds; got != 1 {
		t.Fatalf("timer must resume, elapsed=%d", got)
	}
	e.Stop()
	e.Tick()
	if got := e.Snapshot().ElapsedSeconds; got != 1 {
		t.Fatalf("stopped timer advanced, elapsed=%d", got)
	}
}

func TestWallClockElapsedReported(t *testing.T) {
	rec := &recorder{}
	now := time.Unix(1_700_000_000, 0)
	e := newEngine(t, 1, domain.ModeNormal, rec, WithClock(func() time.Time { return now }))

	now = now.Add(95 * time.Second)
	e.Submit(correct)
	e.Continue()
	if got := rec.completes[0].ElapsedSeconds; got != 95 {
		t.Fatalf("expected 95s, got %d", got)
	}
}

func TestContractViolationsPanic(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, 2, domain.ModeNormal, rec)

	expectPanic(t, domain.ErrWrongPhase, func() { e.Continue() })
	expectPanic(t, domain.ErrOptionOutOfRange, func() { e.Submit(3) })
	expectPanic(t, domain.ErrOptionOutOfRange, func() { e.Submit(-1) })

	e.Submit(correct)
	expectPanic(t, domain.ErrWrongPhase, func() { e.Submit(correct) })
}

func TestNewRejectsInvalidContent(t *testing.T) {
	dup := sampleQuestions(2)
	dup[1].ID = dup[0].ID
	oneOption := sampleQuestions(1)
	oneOption[0].Options = []string{"only"}
	badIndex := sampleQuestions(1)
	badIndex[0].CorrectOptionIndex = 5

	cases := []struct {
		name string
		qs   []domain.Question
		mode domain.Mode
		want error
	}{
		{"empty", nil, domain.ModeNormal, domain.ErrNoQuestions},
		{"duplicate", dup, domain.ModeNormal, domain.ErrInvalidQuestion},
		{"one option", oneOption, domain.ModeNormal, domain.ErrInvalidQuestion},
		{"bad index", badIndex, domain.ModeNormal, domain.ErrInvalidQuestion},
		{"bad mode", sampleQuestions(1), domain.Mode("solo"), domain.ErrInvalidMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.qs, tc.mode); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestQueueNeverHoldsSolvedQuestion(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		rec := &recorder{}
		n := 1 + rnd.Intn(6)
		e := newEngine(t, n, domain.ModeNormal, rec)

		for steps := 0; e.Phase() != domain.PhaseTerminated; steps++ {
			if steps > 10_000 {
				t.Fatalf("run %d: session did not terminate", run)
			}
			answer := wrong
			if rnd.Intn(3) > 0 {
				answer = correct
			}
			e.Submit(answer)
			e.Continue()

			snap := e.Snapshot()
			solved := make(map[string]bool, len(snap.Solved))
			for _, id := range snap.Solved {
				if solved[id] {
					t.Fatalf("run %d: %s solved twice", run, id)
				}
				solved[id] = true
			}
			seen := make(map[string]bool, len(snap.Queue))
			for _, id := range snap.Queue {
				if solved[id] {
					t.Fatalf("run %d: solved %s still queued %v", run, id, snap.Queue)
				}
				if seen[id] {
					t.Fatalf("run %d: %s queued twice %v", run, id, snap.Queue)
				}
				seen[id] = true
			}
			if len(snap.Queue)+len(snap.Solved) != n {
				t.Fatalf("run %d: queue %v and solved %v do not cover %d questions", run, snap.Queue, snap.Solved, n)
			}
		}
		if len(rec.completes) != 1 {
			t.Fatalf("run %d: expected one completion, got %d", run, len(rec.completes))
		}
		if c := rec.completes[0]; c.CorrectCount != n || c.TotalQuestions != n || c.TotalReward != n*30 {
			t.Fatalf("run %d: unexpected completion %+v for %d questions", run, c, n)
		}
	}
}
