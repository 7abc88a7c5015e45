package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command is the kiosk → controller message envelope. The action tag always
// lives inside Data; flat envelopes seen in older controller firmware are
// not emitted.
type Command struct {
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data"`
}

// NewCommand builds a command envelope for the given action. The fields map
// may be nil for actions with no arguments.
func NewCommand(action string, fields map[string]any) Command {
	data := make(map[string]any, len(fields)+1)
	data["action"] = action
	for k, v := range fields {
		data[k] = v
	}
	return Command{
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    "web",
		Data:      data,
	}
}

func (c Command) Action() string {
	action, _ := c.Data["action"].(string)
	return action
}

func (c Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Event is a controller → kiosk message. Data is decoded lazily by the
// handler that owns the action.
type Event struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func ParseEvent(raw []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if evt.Action == "" {
		return nil, fmt.Errorf("parse event: missing action")
	}
	return &evt, nil
}
