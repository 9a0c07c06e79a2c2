// Package eoseenvelope implements the end-of-stored-events marker:
// ["EOSE", subID].
package eoseenvelope

import (
	"encoding/json"
	"errors"
)

type T struct {
	Subscription string
}

func NewFrom(sub string) *T { return &T{Subscription: sub} }

func (t *T) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"EOSE", t.Subscription})
}

func (t *T) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return errors.New("malformed EOSE envelope")
	}
	return json.Unmarshal(tuple[1], &t.Subscription)
}
