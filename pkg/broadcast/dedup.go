package broadcast

import (
	"time"

	"meshrelay.dev/pkg/utils/context"
)

// DedupBackend records which event ids this instance has already
// processed, to suppress cross-region echo (§3 Dedup Record, §4.7). The
// default backend is process-local memory; RedisDedup is an optional
// enrichment that shares the record across a fleet of instances.
type DedupBackend interface {
	// CheckAndMark atomically reports whether id was already marked within
	// retention and, if not, marks it now.
	CheckAndMark(ctx context.T, id string, retention time.Duration) (wasSeen bool, err error)
	// Sweep drops entries past retention. A backend with its own native
	// expiry (Redis's TTL) can make this a no-op.
	Sweep(retention time.Duration)
}
