// Package eventenvelope implements the two EVENT tuple shapes: the client's
// publish request ["EVENT", E] and the server's delivery frame
// ["EVENT", subID, E].
package eventenvelope

import (
	"encoding/json"
	"errors"

	"meshrelay.dev/pkg/encoders/event"
)

// Submission is a client's publish request: ["EVENT", E].
type Submission struct {
	Event *event.E
}

func (s *Submission) Unmarshal(b []byte) error {
	var tuple [2]json.RawMessage
	if err := unmarshalTuple(b, tuple[:]); err != nil {
		return err
	}
	s.Event = &event.E{}
	return json.Unmarshal(tuple[1], s.Event)
}

func (s *Submission) Marshal() ([]byte, error) {
	return json.Marshal([2]any{"EVENT", s.Event})
}

// Result is a delivery frame carrying a matched event to a subscriber:
// ["EVENT", subID, E].
type Result struct {
	Subscription string
	Event        *event.E
}

func NewFrom(sub string, ev *event.E) *Result {
	return &Result{Subscription: sub, Event: ev}
}

func (r *Result) Marshal() ([]byte, error) {
	return json.Marshal([3]any{"EVENT", r.Subscription, r.Event})
}

func (r *Result) Unmarshal(b []byte) error {
	var tuple [3]json.RawMessage
	if err := unmarshalTuple(b, tuple[:]); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &r.Subscription); err != nil {
		return err
	}
	r.Event = &event.E{}
	return json.Unmarshal(tuple[2], r.Event)
}

func unmarshalTuple(b []byte, out []json.RawMessage) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != len(out) {
		return errors.New("wrong envelope arity")
	}
	copy(out, tuple)
	return nil
}
