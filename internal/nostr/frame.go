package nostr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned for frames that are not a known relay message.
var ErrMalformedFrame = errors.New("malformed relay frame")

// Filter is a NIP-01 subscription filter.
type Filter struct {
	Kinds []int    `json:"kinds,omitempty"`
	Since *int64   `json:"since,omitempty"`
	P     []string `json:"#p,omitempty"`
}

// Frame is an inbound relay message. Event is set only for EVENT frames.
type Frame struct {
	Type    string
	SubID   string
	Event   *Event
	Message string
}

// ReqFrame encodes ["REQ", subID, filter].
func ReqFrame(subID string, f Filter) ([]byte, error) {
	return json.Marshal([]interface{}{"REQ", subID, f})
}

// EventFrame encodes ["EVENT", ev].
func EventFrame(ev *Event) ([]byte, error) {
	return json.Marshal([]interface{}{"EVENT", ev})
}

// ParseFrame decodes a relay message. Unknown frame types are returned with
// only Type set.
func ParseFrame(raw []byte) (*Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(parts) < 2 {
		return nil, ErrMalformedFrame
	}

	f := &Frame{}
	if err := json.Unmarshal(parts[0], &f.Type); err != nil {
		return nil, ErrMalformedFrame
	}

	switch f.Type {
	case "EVENT":
		if len(parts) < 3 {
			return nil, ErrMalformedFrame
		}
		if err := json.Unmarshal(parts[1], &f.SubID); err != nil {
			return nil, ErrMalformedFrame
		}
		var ev Event
		if err := json.Unmarshal(parts[2], &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		f.Event = &ev
	case "NOTICE", "EOSE", "CLOSED":
		_ = json.Unmarshal(parts[1], &f.Message)
	case "OK":
		_ = json.Unmarshal(parts[1], &f.SubID)
		if len(parts) >= 4 {
			_ = json.Unmarshal(parts[3], &f.Message)
		}
	}
	return f, nil
}
