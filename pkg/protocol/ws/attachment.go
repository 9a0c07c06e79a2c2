package ws

import "github.com/vmihailenco/msgpack/v5"

// Attachment is the small serializable header describing a session (§4.1,
// §9): "enough to reconstruct the session's identity; the rest
// (subscriptions) lives in durable storage; rate limiters start fresh."
// The upgrade path's rehydration does not read it; it takes the session id
// from the request's "sid" query parameter.
type Attachment struct {
	SessionID    string `msgpack:"id"`
	Bookmark     string `msgpack:"bookmark"`
	Host         string `msgpack:"host"`
	InstanceName string `msgpack:"instance"`
	HasPaid      bool   `msgpack:"paid"`
}

// Marshal encodes the attachment for storage alongside the socket.
func (a *Attachment) Marshal() ([]byte, error) {
	return msgpack.Marshal(a)
}

// UnmarshalAttachment decodes a previously-marshaled attachment blob.
func UnmarshalAttachment(b []byte) (*Attachment, error) {
	a := &Attachment{}
	if err := msgpack.Unmarshal(b, a); err != nil {
		return nil, err
	}
	return a, nil
}
