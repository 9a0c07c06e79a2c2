// Package ratelimit implements the per-session token buckets the Admission
// Pipeline checks before publish and subscribe (§4.3, §5 back-pressure).
package ratelimit

import (
	"golang.org/x/time/rate"

	"meshrelay.dev/pkg/encoders/event"
)

// Buckets holds a session's two independent token buckets. Limiter state
// is intentionally not persisted (§4.1): rehydration always starts a
// session with fresh buckets.
type Buckets struct {
	Publish   *rate.Limiter
	Subscribe *rate.Limiter
	exempt    map[int]struct{}
}

// New builds a pair of buckets from the configured rate (tokens/sec) and
// burst (capacity) for each class, plus the set of kinds exempt from the
// publish bucket.
func New(publishRate float64, publishBurst int, subscribeRate float64, subscribeBurst int, exemptKinds []int) *Buckets {
	exempt := make(map[int]struct{}, len(exemptKinds))
	for _, k := range exemptKinds {
		exempt[k] = struct{}{}
	}
	return &Buckets{
		Publish:   rate.NewLimiter(rate.Limit(publishRate), publishBurst),
		Subscribe: rate.NewLimiter(rate.Limit(subscribeRate), subscribeBurst),
		exempt:    exempt,
	}
}

// AllowPublish reports whether an EVENT of this kind may proceed, consuming
// a publish token unless the kind is exempt. Exempt kinds never consume or
// check the bucket.
func (b *Buckets) AllowPublish(kind event.Kind) bool {
	if _, ok := b.exempt[int(kind)]; ok {
		return true
	}
	return b.Publish.Allow()
}

// AllowSubscribe reports whether a REQ may proceed, consuming a subscribe
// token.
func (b *Buckets) AllowSubscribe() bool {
	return b.Subscribe.Allow()
}
