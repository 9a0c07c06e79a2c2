package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshrelay.dev/pkg/encoders/event"
)

// stubSigner is a deterministic stand-in for the external signature
// primitive: Sign/Verify just check a sha256-derived tag against the
// pubkey, enough to exercise the auth handshake's plumbing without a real
// secp256k1 implementation.
type stubSigner struct {
	pub []byte
}

func (s *stubSigner) Pub() []byte { return s.pub }
func (s *stubSigner) Sign(id []byte) ([]byte, error) {
	sum := sha256.Sum256(append(append([]byte{}, s.pub...), id...))
	return sum[:], nil
}
func (s *stubSigner) Verify(id, sig []byte) (bool, error) {
	sum := sha256.Sum256(append(append([]byte{}, s.pub...), id...))
	return hex.EncodeToString(sum[:]) == hex.EncodeToString(sig), nil
}
func (s *stubSigner) InitPub(pubkey []byte) error { s.pub = pubkey; return nil }

func TestValidateRoundTrip(t *testing.T) {
	signer := &stubSigner{pub: []byte("01234567890123456789012345678901")}
	challenge := GenerateChallenge()
	ev := CreateUnsigned(hex.EncodeToString(signer.pub), challenge, "wss://relay.example.com/")
	require.NoError(t, ev.Sign(signer))

	ok, err := Validate(ev, challenge, "wss://relay.example.com", time.Minute, signer)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateRejectsWrongChallenge(t *testing.T) {
	signer := &stubSigner{pub: []byte("01234567890123456789012345678901")}
	ev := CreateUnsigned(hex.EncodeToString(signer.pub), GenerateChallenge(), "wss://relay.example.com")
	require.NoError(t, ev.Sign(signer))

	ok, err := Validate(ev, "some-other-challenge", "wss://relay.example.com", time.Minute, signer)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateIgnoresPortAndScheme(t *testing.T) {
	signer := &stubSigner{pub: []byte("01234567890123456789012345678901")}
	challenge := GenerateChallenge()
	ev := CreateUnsigned(hex.EncodeToString(signer.pub), challenge, "wss://relay.example.com:443/")
	require.NoError(t, ev.Sign(signer))

	ok, err := Validate(ev, challenge, "ws://relay.example.com", time.Minute, signer)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateRejectsStaleTimestamp(t *testing.T) {
	signer := &stubSigner{pub: []byte("01234567890123456789012345678901")}
	challenge := GenerateChallenge()
	ev := CreateUnsigned(hex.EncodeToString(signer.pub), challenge, "wss://relay.example.com")
	ev.CreatedAt -= int64(time.Hour / time.Second)
	require.NoError(t, ev.Sign(signer))

	ok, err := Validate(ev, challenge, "wss://relay.example.com", time.Minute, signer)
	require.NoError(t, err)
	require.False(t, ok)
}
