// Package reason formats the relay's reply-reason taxonomy (§7): every
// admission failure carries one of a fixed set of machine-parseable
// prefixes followed by free-text detail.
package reason

import "fmt"

type Prefix string

const (
	AuthRequired Prefix = "auth-required"
	RateLimited  Prefix = "rate-limited"
	Blocked      Prefix = "blocked"
	Invalid      Prefix = "invalid"
	Error        Prefix = "error"
	Unsupported  Prefix = "unsupported"
	Duplicate    Prefix = "duplicate"
	Restricted   Prefix = "restricted"
)

// F formats "<prefix>: <detail>", e.g. reason.F(reason.RateLimited, "slow down").
func F(p Prefix, format string, a ...any) string {
	return string(p) + ": " + fmt.Sprintf(format, a...)
}

// Bare returns p with no appended detail, e.g. "auth-required". §8 scenario
// 3 pins this exact string for the CLOSED/OK reason when auth is required
// and missing; unlike rate-limited/blocked/invalid/error, auth-required
// never carries free text.
func Bare(p Prefix) string {
	return string(p)
}
