// Package instance assembles one relay instance's Admission Pipeline,
// Subscription Registry, Query Cache, Payment Cache and Broadcast Fabric
// into the single object the socket and HTTP surfaces drive (§4, §5).
package instance

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"meshrelay.dev/pkg/app/config"
	"meshrelay.dev/pkg/broadcast"
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/interfaces/payment"
	"meshrelay.dev/pkg/interfaces/store"
	"meshrelay.dev/pkg/paymentcache"
	"meshrelay.dev/pkg/protocol/ws"
	"meshrelay.dev/pkg/querycache"
	"meshrelay.dev/pkg/ratelimit"
	"meshrelay.dev/pkg/storage/substore"
	"meshrelay.dev/pkg/subscription"
	"meshrelay.dev/pkg/utils/chk"
)

// Instance holds every piece of per-process state a connection's frame
// handling touches. Ownership is exclusive to this instance (§3): sibling
// instances are reached only through the Broadcast Fabric.
type Instance struct {
	Config  *config.C
	Store   store.I
	Signer  event.Signer
	Payment payment.I

	QueryCache   *querycache.Cache
	PaymentCache *paymentcache.Cache
	Fabric       *broadcast.Fabric
	Registry     *subscription.Registry

	// Durable is the instance-local store for subscription lists and the
	// alarm record (§6, §9): nil in tests that never exercise rehydration.
	Durable *substore.D

	moderation Moderation

	mu       sync.Mutex
	sessions map[string]*ws.Session
}

// New assembles an Instance from its configuration and external
// collaborators (storage, signature verification, payment oracle, and the
// durable subscription/alarm store). durable may be nil, which disables
// rehydration and persistence (used by tests that never hibernate).
func New(cfg *config.C, st store.I, signer event.Signer, payer payment.I, durable *substore.D) *Instance {
	registry := subscription.NewRegistry()
	inst := &Instance{
		Config:     cfg,
		Store:      st,
		Signer:     signer,
		Payment:    payer,
		QueryCache: querycache.New(cfg.QueryCacheTTL, cfg.QueryCacheSoftCap),
		Registry:   registry,
		Durable:    durable,
		moderation: newModeration(cfg),
		sessions:   make(map[string]*ws.Session),
	}
	if payer != nil {
		inst.PaymentCache = paymentcache.New(payer, cfg.PaymentCacheCap, cfg.PaymentCacheTTL)
	}
	inst.Fabric = broadcast.New(
		cfg.InstanceName, cfg.RegionalEndpoints, cfg.EndpointHints,
		cfg.BroadcastSecret, cfg.BroadcastTimeout, cfg.DedupRetention, registry,
		newDedupBackend(cfg),
	)
	return inst
}

// newDedupBackend constructs the Broadcast Fabric's dedup record store from
// configuration: a shared Redis instance when MESH_DEDUP_BACKEND=redis, the
// default in-process map otherwise (a nil return tells broadcast.New to
// fall back to its own memory backend).
func newDedupBackend(cfg *config.C) broadcast.DedupBackend {
	if cfg.DedupBackend != "redis" || cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return broadcast.NewRedisDedup(client, cfg.InstanceName+":dedup:")
}

// NewLimiters builds a fresh pair of per-session token buckets from the
// instance's configured rates. Limiter state is never persisted (§4.1): a
// rehydrated session always gets a new pair.
func (inst *Instance) NewLimiters() *ratelimit.Buckets {
	return ratelimit.New(
		inst.Config.PublishRateLimit, inst.Config.PublishBurst,
		inst.Config.SubscribeRateLimit, inst.Config.SubscribeBurst,
		inst.Config.ExcludedRateLimitKinds,
	)
}

// Attach registers a live session so it can be found again by id on the
// next inbound frame, and so the Lifecycle Timer can sweep it when idle.
func (inst *Instance) Attach(s *ws.Session) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.sessions[s.ID] = s
}

// Detach removes a session and its live subscriptions on an ordinary close,
// and purges its persisted subscription list: a closed session will never
// be rehydrated, so nothing should be left for the orphan sweep to find
// (§4.1: "close and error events... purge persisted subscriptions for that
// session").
func (inst *Instance) Detach(s *ws.Session) {
	inst.mu.Lock()
	delete(inst.sessions, s.ID)
	inst.mu.Unlock()
	inst.Registry.Remove(s)
	if inst.Durable != nil {
		chk.E(inst.Durable.DeleteSubscriptions(s.ID))
	}
}

// PersistSubscriptions durably saves sess's current subscription set so a
// later rehydration (after this process evicts the session's in-memory
// state, or restarts) can reconstruct it. Called after every REQ/CLOSE that
// changes the set; a nil Durable store is a no-op for tests.
func (inst *Instance) PersistSubscriptions(sess *ws.Session) {
	if inst.Durable == nil {
		return
	}
	chk.E(inst.Durable.SaveSubscriptions(sess.ID, sess.Subscriptions()))
}

// Rehydrate reconstructs a session's subscriptions from durable storage and
// re-installs them in the Subscription Registry, the idiomatic analogue of
// a hibernating Durable Object waking up on its next inbound message (§9):
// only the session id survives the gap, carried in the upgrade request's
// "sid" parameter, and only the filter lists needed durable storage; the
// bookmark is not carried over. Rate limiters are never persisted and
// always start fresh (§4.1).
func (inst *Instance) Rehydrate(sess *ws.Session) {
	if inst.Durable == nil {
		return
	}
	subs, err := inst.Durable.LoadSubscriptions(sess.ID)
	if chk.E(err) {
		return
	}
	for subID, filters := range subs {
		sess.AddSubscription(subID, filters)
		inst.Registry.Install(sess, subID, filters)
	}
}

// Lookup finds an in-memory session by id, returning ok=false if it needs
// rehydration (the process hibernated, or this is the first frame on a
// fresh attachment).
func (inst *Instance) Lookup(id string) (s *ws.Session, ok bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	s, ok = inst.sessions[id]
	return
}

// SessionCount reports the number of live in-memory sessions, for the
// resource monitor and lifecycle sweeps.
func (inst *Instance) SessionCount() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return len(inst.sessions)
}

// AuthRequired reports whether connections must complete the auth
// handshake before publish/subscribe are admitted.
func (inst *Instance) AuthRequired() bool { return inst.Config.AuthRequired }

// AuthTimeout is the max skew between an auth response's created_at and
// the server clock.
func (inst *Instance) AuthTimeout() time.Duration { return inst.Config.AuthTimeout }

// ServiceURL is this instance's canonical address, checked against AUTH
// response "relay" tags.
func (inst *Instance) ServiceURL() string { return inst.Config.ServiceURL }
