package filing

import "sync"

// subjectLocks serializes lifecycle work per filing subject: at most one
// in-flight transition sequence per subject, so no transition ever acts on
// stale state from before a concurrent one completed.
type subjectLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{m: make(map[string]*sync.Mutex)}
}

// acquire locks the subject and returns the unlock function.
func (l *subjectLocks) acquire(subjectID string) func() {
	l.mu.Lock()
	sm, ok := l.m[subjectID]
	if !ok {
		sm = &sync.Mutex{}
		l.m[subjectID] = sm
	}
	l.mu.Unlock()

	sm.Lock()
	return sm.Unlock
}
