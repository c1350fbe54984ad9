package interview

import "sync"

// leases grants at most one holder per session id. Sessions never share a
// lock; a busy session is reported to the caller instead of queued.
type leases struct {
	held sync.Map
}

func (l *leases) acquire(sessionID string) (release func(), ok bool) {
	if _, busy := l.held.LoadOrStore(sessionID, struct{}{}); busy {
		return nil, false
	}
	return func() { l.held.Delete(sessionID) }, true
}
