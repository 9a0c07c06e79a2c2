// Package noticeenvelope implements the server's free-text notice frame:
// ["NOTICE", message]. NOTICE is the reply for malformed JSON and oversize
// frames, which don't carry an event id or subscription id to key an OK or
// CLOSED off of.
package noticeenvelope

import (
	"encoding/json"
	"errors"
)

type T struct {
	Message string
}

func NewFrom(msg string) *T { return &T{Message: msg} }

func (t *T) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"NOTICE", t.Message})
}

func (t *T) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return errors.New("malformed NOTICE envelope")
	}
	return json.Unmarshal(tuple[1], &t.Message)
}
