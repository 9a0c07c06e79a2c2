// Package event defines the signed event record exchanged over the relay's
// wire protocol, and the pure-function signature boundary (§6) the core
// consumes rather than implementing cryptography itself.
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"meshrelay.dev/pkg/utils"
)

// E is a signed event, positioned on the wire inside an EVENT envelope as
// ["EVENT", <subscription id>, E] or ["EVENT", E].
type E struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      Kind       `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Kind is an event kind number, broken out as its own type so
// e.Kind.IsPrivileged() reads naturally at call sites.
type Kind int

// IsPrivileged reports whether delivery of an event of this kind should be
// restricted to its author and its tagged "p" participants (direct
// messages and gift wraps).
func (k Kind) IsPrivileged() bool {
	switch int(k) {
	case 4, 1059, 1060:
		return true
	default:
		return false
	}
}

// Signer is the external pure-function signature boundary (§6): the core
// never implements secp256k1 itself, it only calls through this interface.
type Signer interface {
	Pub() []byte
	Sign(id []byte) ([]byte, error)
	Verify(id, sig []byte) (bool, error)
	InitPub(pubkey []byte) error
}

// SerializedForID renders the fields that participate in the event id hash,
// in NIP-01 canonical array order: [0, pubkey, created_at, kind, tags, content].
func (e *E) SerializedForID() ([]byte, error) {
	arr := []any{0, e.Pubkey, e.CreatedAt, e.Kind, e.Tags, e.Content}
	return json.Marshal(arr)
}

// ComputeID recomputes the event id as the hex-encoded sha256 of the
// canonical serialization, without mutating e.
func (e *E) ComputeID() (string, error) {
	b, err := e.SerializedForID()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// CheckID reports whether e.ID matches the recomputed id. The comparison
// runs byte-wise on the decoded id, not on the hex strings.
func (e *E) CheckID() (bool, error) {
	b, err := e.SerializedForID()
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(b)
	got, err := hex.DecodeString(e.ID)
	if err != nil {
		return false, nil
	}
	return utils.FastEqual(sum[:], got), nil
}

// Verify checks the event's id and signature using the given Signer bound
// to the event's claimed pubkey.
func (e *E) Verify(s Signer) (bool, error) {
	ok, err := e.CheckID()
	if err != nil || !ok {
		return false, err
	}
	pk, err := hex.DecodeString(e.Pubkey)
	if err != nil {
		return false, fmt.Errorf("invalid pubkey: %w", err)
	}
	if err = s.InitPub(pk); err != nil {
		return false, err
	}
	id, err := hex.DecodeString(e.ID)
	if err != nil {
		return false, fmt.Errorf("invalid id: %w", err)
	}
	sig, err := hex.DecodeString(e.Sig)
	if err != nil {
		return false, fmt.Errorf("invalid sig: %w", err)
	}
	return s.Verify(id, sig)
}

// Sign populates ID and Sig from the given Signer, recomputing the id from
// the current field values first.
func (e *E) Sign(s Signer) (err error) {
	e.Pubkey = hex.EncodeToString(s.Pub())
	var id string
	if id, err = e.ComputeID(); err != nil {
		return
	}
	e.ID = id
	idb, _ := hex.DecodeString(id)
	sig, err := s.Sign(idb)
	if err != nil {
		return err
	}
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// MaxKind is the largest kind number the wire protocol accepts (the
// replaceable-range ceiling plus headroom for addressable kinds), past
// which a kind is shape-invalid rather than merely unmoderated.
const MaxKind = 65535

// ValidateShape runs the Admission Pipeline's shape check (§4.3 step 1): all
// required fields present with the right hex widths, and the kind within
// the valid range. It does not verify the id or signature; Verify does
// that once shape and every earlier admission step has passed.
func (e *E) ValidateShape() error {
	if len(e.ID) != 64 {
		return fmt.Errorf("id must be 64 hex characters, got %d", len(e.ID))
	}
	if !isHex(e.ID) {
		return fmt.Errorf("id must be hex")
	}
	if len(e.Pubkey) != 64 {
		return fmt.Errorf("pubkey must be 64 hex characters, got %d", len(e.Pubkey))
	}
	if !isHex(e.Pubkey) {
		return fmt.Errorf("pubkey must be hex")
	}
	if len(e.Sig) != 128 {
		return fmt.Errorf("sig must be 128 hex characters, got %d", len(e.Sig))
	}
	if !isHex(e.Sig) {
		return fmt.Errorf("sig must be hex")
	}
	if e.Kind < 0 || e.Kind > MaxKind {
		return fmt.Errorf("kind %d out of range", e.Kind)
	}
	if e.CreatedAt <= 0 {
		return fmt.Errorf("created_at must be a positive unix timestamp")
	}
	for _, t := range e.Tags {
		if len(t) == 0 {
			return fmt.Errorf("tag must have at least a name")
		}
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Tag returns the first tag whose name (element 0) matches name, or nil.
func (e *E) Tag(name string) []string {
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			return t
		}
	}
	return nil
}

// TagValues returns element 1 of every tag named name.
func (e *E) TagValues(name string) (out []string) {
	for _, t := range e.Tags {
		if len(t) > 1 && t[0] == name {
			out = append(out, t[1])
		}
	}
	return
}

