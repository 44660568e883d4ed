package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Commands understood by the owner process.
const (
	CommandStatus   = "status"
	CommandSnapshot = "snapshot"
	CommandControls = "controls"
	CommandSet      = "set"
	CommandStart    = "start"
	CommandStop     = "stop"
	CommandDoc      = "doc"
	CommandEdit     = "edit"
	CommandMode     = "mode"
	CommandReply    = "reply"
)

// Request is one newline-delimited JSON command.
type Request struct {
	Command string `json:"command"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Response carries the result of one command. Data holds a command-specific payload.
type Response struct {
	OK      bool            `json:"ok"`
	State   string          `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DataResponse builds a successful response carrying v as its payload.
func DataResponse(state string, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse(fmt.Errorf("encode response data: %w", err))
	}
	return Response{OK: true, State: state, Data: data}
}

// ErrorResponse reports err to the client.
func ErrorResponse(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

// DecodeData unmarshals the response payload into v.
func (r Response) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return errors.New("response carries no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
