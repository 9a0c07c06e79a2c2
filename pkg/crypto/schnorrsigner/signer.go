// Package schnorrsigner implements the event.Signer boundary (§6) with
// real BIP-340 Schnorr signatures over secp256k1, the scheme the wire
// protocol's 64-hex pubkey / 128-hex sig fields assume. The core treats
// this as a pluggable, swappable collaborator (§1): nothing outside this
// package knows or cares which curve library backs it.
package schnorrsigner

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Signer signs and verifies events for a single keypair. InitPub swaps in
// a different public key for one-shot verification of someone else's
// event, without disturbing the signer's own signing key.
type Signer struct {
	priv *secp256k1.PrivateKey
	pub  *secp256k1.PublicKey
}

// New builds a Signer from a 32-byte private key.
func New(privBytes []byte) (*Signer, error) {
	if len(privBytes) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)
	return &Signer{priv: priv, pub: priv.PubKey()}, nil
}

// Pub returns the 32-byte x-only serialization of the signer's own public
// key.
func (s *Signer) Pub() []byte {
	if s.priv != nil {
		return schnorr.SerializePubKey(s.priv.PubKey())
	}
	return schnorr.SerializePubKey(s.pub)
}

// Sign produces a 64-byte Schnorr signature over id using the signer's own
// private key.
func (s *Signer) Sign(id []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("signer has no private key loaded")
	}
	sig, err := schnorr.Sign(s.priv, id)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks sig over id against whichever public key was last loaded
// via InitPub (or the signer's own key, if InitPub was never called).
func (s *Signer) Verify(id, sig []byte) (bool, error) {
	if s.pub == nil {
		return false, errors.New("signer has no public key loaded")
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false, nil
	}
	return parsed.Verify(id, s.pub), nil
}

// InitPub loads a 32-byte x-only public key to verify against.
func (s *Signer) InitPub(pubkey []byte) error {
	pk, err := schnorr.ParsePubKey(pubkey)
	if err != nil {
		return err
	}
	s.pub = pk
	return nil
}
