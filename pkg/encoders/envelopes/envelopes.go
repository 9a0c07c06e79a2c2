// Package envelopes identifies and dispatches the relay's positional-tuple
// wire frames: ["LABEL", ...fields]. Concrete frame shapes live in the
// sibling eventenvelope/reqenvelope/closeenvelope/closedenvelope/okenvelope/
// eoseenvelope/noticeenvelope/authenvelope packages.
package envelopes

import (
	"encoding/json"
	"errors"
)

// Label is the first element of every envelope tuple.
type Label string

const (
	Event  Label = "EVENT"
	Req    Label = "REQ"
	Close  Label = "CLOSE"
	Closed Label = "CLOSED"
	OK     Label = "OK"
	EOSE   Label = "EOSE"
	Notice Label = "NOTICE"
	Auth   Label = "AUTH"
)

// Identify inspects the first element of a JSON array envelope to determine
// its label, without otherwise parsing the frame.
func Identify(msg []byte) (l Label, err error) {
	var tuple []json.RawMessage
	if err = json.Unmarshal(msg, &tuple); err != nil {
		return
	}
	if len(tuple) == 0 {
		err = errors.New("empty envelope")
		return
	}
	var s string
	if err = json.Unmarshal(tuple[0], &s); err != nil {
		return
	}
	return Label(s), nil
}
