package bridge

import (
	"encoding/json"

	"PanoPaint/internal/geom"
)

// Frame operations understood by the viewer page.
const (
	OpCall   = "call"   // run Action
	OpPoints = "points" // post the points of Name
	OpProps  = "props"  // post position and size of Name
	OpEval   = "eval"   // run Action, then post the values of Vars
)

// Frame is one instruction sent to the viewer page.
type Frame struct {
	Op     string   `json:"op"`
	ID     string   `json:"id,omitempty"`
	Tag    string   `json:"tag,omitempty"`
	Name   string   `json:"name,omitempty"`
	Action string   `json:"action,omitempty"`
	Vars   []string `json:"vars,omitempty"`

	// Delay postpones the frame on the page, in milliseconds.
	Delay int `json:"delay,omitempty"`
}

// Message types posted by the page besides query tags chosen by callers.
const (
	TypeReply   = "reply"
	TypeGesture = "gesture"
	TypeReady   = "ready"
)

// Message is anything the viewer page posts back.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	Points []geom.SpherePoint `json:"points,omitempty"`

	Ath       float64 `json:"ath,omitempty"`
	Atv       float64 `json:"atv,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	CenterAth float64 `json:"centerAth,omitempty"`
	CenterAtv float64 `json:"centerAtv,omitempty"`
	Diameter  float64 `json:"diameter,omitempty"`

	Values map[string]float64 `json:"values,omitempty"`

	Phase string  `json:"phase,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
}

// Decode parses a posted message. Anything without a type is rejected.
func Decode(raw []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil || m.Type == "" {
		return Message{}, false
	}
	return m, true
}
