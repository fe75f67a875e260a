package memory

import (
	"context"
	"sync"

	"mastery-quiz-service/internal/domain"
)

// ProgressStore keeps session results and weak-topic flags in memory.
// Used when no Postgres URL is configured.
type ProgressStore struct {
	mu         sync.RWMutex
	results    map[string]domain.SessionResult
	weakTopics []domain.WeakTopic
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{results: make(map[string]domain.SessionResult)}
}

// RecordCompletion stores a result; a second result for the same session is ignored.
func (p *ProgressStore) RecordCompletion(_ context.Context, result domain.SessionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.results[result.SessionID]; !ok {
		p.results[result.SessionID] = result
	}
	return nil
}

func (p *ProgressStore) FlagWeakTopic(_ context.Context, topic domain.WeakTopic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weakTopics = append(p.weakTopics, topic)
	return nil
}

// Result returns the stored result for a session.
func (p *ProgressStore) Result(sessionID string) (domain.SessionResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.results[sessionID]
	return r, ok
}

// WeakTopics returns the flags recorded for a user, oldest first.
func (p *ProgressStore) WeakTopics(userID string) []domain.WeakTopic {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []domain.WeakTopic
	for _, t := range p.weakTopics {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}
