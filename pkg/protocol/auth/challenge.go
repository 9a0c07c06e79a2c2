// Package auth implements the NIP-42-style challenge/response handshake
// (§4.8): the server issues an opaque challenge on connect, the client
// answers with a signed kind-22242 event naming the challenge and the
// relay's own URL, and the server validates it against a time-skew window.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"meshrelay.dev/pkg/encoders/event"
)

// Kind is the reserved event kind used for auth responses.
const Kind = 22242

const (
	ChallengeTag = "challenge"
	RelayTag     = "relay"
)

// GenerateChallenge returns a fresh 32-byte random challenge, hex encoded
// (§4.8, §6).
func GenerateChallenge() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// CreateUnsigned builds the auth response event a client would sign: kind
// 22242 with "challenge" and "relay" tags, left for the caller to sign.
func CreateUnsigned(pubkey, challenge, relayURL string) *event.E {
	return &event.E{
		Pubkey:    pubkey,
		CreatedAt: time.Now().Unix(),
		Kind:      Kind,
		Tags: [][]string{
			{ChallengeTag, challenge},
			{RelayTag, relayURL},
		},
	}
}

// Validate checks that ev is a well-formed, timely, correctly-addressed and
// correctly-signed response to challenge on behalf of relayURL.
//
// The relay-tag comparison is host-only (scheme and path are ignored, and
// the port is stripped before comparing) so a relay reachable at multiple
// schemes or behind a port-translating proxy still validates client
// responses built against its advertised hostname.
func Validate(ev *event.E, challenge, relayURL string, skew time.Duration, s event.Signer) (bool, error) {
	if ev.Kind != Kind {
		return false, nil
	}
	if got := ev.Tag(ChallengeTag); len(got) < 2 || got[1] != challenge {
		return false, nil
	}
	relayTag := ev.Tag(RelayTag)
	if len(relayTag) < 2 || !hostMatches(relayTag[1], relayURL) {
		return false, nil
	}
	now := time.Now().Unix()
	skewSecs := int64(skew / time.Second)
	if ev.CreatedAt < now-skewSecs || ev.CreatedAt > now+skewSecs {
		return false, nil
	}
	return ev.Verify(s)
}

func hostMatches(a, b string) bool {
	return normalizeHost(a) == normalizeHost(b)
}

func normalizeHost(raw string) string {
	u, err := url.Parse(raw)
	host := raw
	if err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := splitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "/"))
}

func splitHostPort(hostport string) (host, port string, err error) {
	idx := strings.LastIndex(hostport, ":")
	if idx == -1 {
		return hostport, "", nil
	}
	// avoid mis-splitting a bare IPv6 literal with no brackets and no port
	if strings.Count(hostport, ":") > 1 && !strings.HasSuffix(hostport, "]") {
		return hostport, "", nil
	}
	return hostport[:idx], hostport[idx+1:], nil
}
