// Package paymentoracle provides a trivial reference implementation of the
// external payment.I boundary (§6) for local development: every pubkey is
// reported as paid. A production deployment replaces this with a real
// lookup against whatever billing system issues payment status.
package paymentoracle

import "meshrelay.dev/pkg/utils/context"

// AllowAll is a payment.I that always reports a pubkey as paid.
type AllowAll struct{}

func (AllowAll) HasPaid(ctx context.T, pubkey string) (bool, error) { return true, nil }
