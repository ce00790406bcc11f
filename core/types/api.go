package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AgentRequest is the body accepted by POST /agent.
type AgentRequest struct {
	InputText string `json:"input_text"`
}

// AgentResponse is returned by POST /agent. OutputText is empty whenever
// Error is set.
type AgentResponse struct {
	OutputText string `json:"output_text"`
	Error      string `json:"error,omitempty"`
}

// AlertPayload is the part of a vendor alert the webhook understands. Any
// other key in the body is kept in Extra.
type AlertPayload struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Extra   map[string]any `json:"-"`
}

// UnmarshalJSON requires an object with string title and message.
func (a *AlertPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("alert must be a JSON object")
	}

	for _, key := range []string{"title", "message"} {
		v, ok := raw[key]
		if !ok {
			return fmt.Errorf("missing field %q", key)
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string", key)
		}
		if key == "title" {
			a.Title = s
		} else {
			a.Message = s
		}
		delete(raw, key)
	}
	a.Extra = raw
	return nil
}

// Input is the text handed to the supervisor for this alert.
func (a AlertPayload) Input() string {
	return fmt.Sprintf("Alert: %s\n%s", a.Title, a.Message)
}
