// Package payment declares the external payment-status oracle boundary
// (§6): a lookup returning whether a key (an author pubkey) has paid. The
// core never implements billing, only consumes it through I, and only when
// PayToRelayEnabled gates it into the Admission Pipeline.
package payment

import "meshrelay.dev/pkg/utils/context"

// I is the payment-status oracle. HasPaid is assumed to have its own
// caching/latency characteristics at the implementation's discretion; the
// relay additionally layers its own Payment Cache (§3, §4) in front of it
// to keep the admission hot path off the network on repeat lookups.
type I interface {
	HasPaid(c context.T, pubkey string) (bool, error)
}
