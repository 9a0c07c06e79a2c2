// Package closedenvelope implements the server's subscription-terminated
// frame: ["CLOSED", subID, reason].
package closedenvelope

import (
	"encoding/json"
	"errors"
)

type T struct {
	Subscription string
	Reason       string
}

func NewFrom(sub, reason string) *T {
	return &T{Subscription: sub, Reason: reason}
}

func (t *T) Marshal() ([]byte, error) {
	return json.Marshal([3]any{"CLOSED", t.Subscription, t.Reason})
}

func (t *T) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 3 {
		return errors.New("malformed CLOSED envelope")
	}
	if err := json.Unmarshal(tuple[1], &t.Subscription); err != nil {
		return err
	}
	return json.Unmarshal(tuple[2], &t.Reason)
}
