// Package paymentcache implements the Payment Cache (§3, §4): a TTL-bounded
// map of author key -> (has-paid, timestamp), evicted oldest-first when it
// exceeds a configured cap, sitting in front of the external payment-status
// oracle so the admission hot path avoids a network call on every publish.
package paymentcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"meshrelay.dev/pkg/interfaces/payment"
	"meshrelay.dev/pkg/utils/context"
)

// Cache fronts a payment.I oracle with a bounded, TTL-expiring cache. The
// cap+TTL+oldest-evicted shape is exactly what hashicorp/golang-lru's
// expirable LRU provides, so the cache itself is a thin wrapper rather
// than a hand-rolled list+map.
type Cache struct {
	oracle payment.I
	lru    *expirable.LRU[string, bool]
}

// New builds a Cache of the given capacity and TTL in front of oracle.
func New(oracle payment.I, cap int, ttl time.Duration) *Cache {
	return &Cache{
		oracle: oracle,
		lru:    expirable.NewLRU[string, bool](cap, nil, ttl),
	}
}

// HasPaid returns whether pubkey has paid, consulting the cache first and
// falling back to the oracle (populating the cache) on a miss or expiry.
func (c *Cache) HasPaid(ctx context.T, pubkey string) (bool, error) {
	if paid, ok := c.lru.Get(pubkey); ok {
		return paid, nil
	}
	paid, err := c.oracle.HasPaid(ctx, pubkey)
	if err != nil {
		return false, err
	}
	c.lru.Add(pubkey, paid)
	return paid, nil
}

// Clear empties the cache, called by the Lifecycle Timer when no sockets
// remain attached to the instance (§4.9).
func (c *Cache) Clear() { c.lru.Purge() }

// Len reports the current number of cached entries, for tests and metrics.
func (c *Cache) Len() int { return c.lru.Len() }
