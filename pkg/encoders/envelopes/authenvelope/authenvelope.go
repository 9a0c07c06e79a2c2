// Package authenvelope implements the two AUTH tuple shapes: the server's
// challenge ["AUTH", challenge] and the client's signed response
// ["AUTH", E].
package authenvelope

import (
	"encoding/json"
	"errors"

	"meshrelay.dev/pkg/encoders/event"
)

// Challenge is the server->client frame issuing a fresh auth challenge.
type Challenge struct {
	Challenge string
}

func NewChallenge(challenge string) *Challenge { return &Challenge{Challenge: challenge} }

func (c *Challenge) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"AUTH", c.Challenge})
}

// Response is the client->server frame answering a challenge with a
// signed kind-22242 event.
type Response struct {
	Event *event.E
}

func (r *Response) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return errors.New("malformed AUTH envelope")
	}
	r.Event = &event.E{}
	return json.Unmarshal(tuple[1], r.Event)
}

func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"AUTH", r.Event})
}
