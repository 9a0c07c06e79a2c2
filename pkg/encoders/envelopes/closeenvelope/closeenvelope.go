// Package closeenvelope implements the client's subscription-cancel frame:
// ["CLOSE", subID].
package closeenvelope

import (
	"encoding/json"
	"errors"
)

type T struct {
	Subscription string
}

func (t *T) Unmarshal(b []byte) error {
	var tuple [2]json.RawMessage
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New("CLOSE requires exactly a subscription id")
	}
	copy(tuple[:], raw)
	if err := json.Unmarshal(tuple[1], &t.Subscription); err != nil {
		return err
	}
	if t.Subscription == "" {
		return errors.New("CLOSE subscription id must not be empty")
	}
	return nil
}

func (t *T) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"CLOSE", t.Subscription})
}
