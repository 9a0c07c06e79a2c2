package broadcast

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"meshrelay.dev/pkg/utils/context"
)

// memoryDedup is the default DedupBackend: a process-local map from event
// id to the time it was locally processed, exactly the §3 Dedup Record.
type memoryDedup struct {
	seen *xsync.MapOf[string, time.Time]
}

func newMemoryDedup() *memoryDedup {
	return &memoryDedup{seen: xsync.NewMapOf[string, time.Time]()}
}

func (m *memoryDedup) CheckAndMark(_ context.T, id string, retention time.Duration) (bool, error) {
	if t, ok := m.seen.Load(id); ok && time.Since(t) < retention {
		return true, nil
	}
	m.seen.Store(id, time.Now())
	return false, nil
}

func (m *memoryDedup) Sweep(retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	m.seen.Range(func(id string, at time.Time) bool {
		if at.Before(cutoff) {
			m.seen.Delete(id)
		}
		return true
	})
}

// Clear drops every dedup record, called by the Lifecycle Timer when no
// sockets remain attached (§4.9).
func (m *memoryDedup) Clear() {
	m.seen.Clear()
}
