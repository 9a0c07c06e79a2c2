// Package okenvelope implements the server's publish-acknowledgement
// frame: ["OK", eventID, accepted, reason].
package okenvelope

import (
	"encoding/json"
	"errors"
)

type T struct {
	EventID  string
	OK       bool
	Reason   string
}

func NewFrom(eventID string, ok bool, reason string) *T {
	return &T{EventID: eventID, OK: ok, Reason: reason}
}

func (t *T) Marshal() ([]byte, error) {
	return json.Marshal([4]any{"OK", t.EventID, t.OK, t.Reason})
}

func (t *T) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 4 {
		return errors.New("malformed OK envelope")
	}
	if err := json.Unmarshal(tuple[1], &t.EventID); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[2], &t.OK); err != nil {
		return err
	}
	return json.Unmarshal(tuple[3], &t.Reason)
}
