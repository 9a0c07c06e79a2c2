// Package reqenvelope implements the REQ tuple:
// ["REQ", subID, filter, filter, ...].
package reqenvelope

import (
	"encoding/json"
	"errors"

	"meshrelay.dev/pkg/encoders/filter"
)

type T struct {
	Subscription string
	Filters      []*filter.F
}

func (t *T) Unmarshal(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) < 3 {
		return errors.New("REQ requires a subscription id and at least one filter")
	}
	if err := json.Unmarshal(tuple[1], &t.Subscription); err != nil {
		return err
	}
	if t.Subscription == "" {
		return errors.New("REQ subscription id must not be empty")
	}
	for _, raw := range tuple[2:] {
		f := &filter.F{}
		if err := json.Unmarshal(raw, f); err != nil {
			return err
		}
		t.Filters = append(t.Filters, f)
	}
	return nil
}

func (t *T) Marshal() ([]byte, error) {
	arr := make([]any, 0, len(t.Filters)+2)
	arr = append(arr, "REQ", t.Subscription)
	for _, f := range t.Filters {
		arr = append(arr, f)
	}
	return json.Marshal(arr)
}
