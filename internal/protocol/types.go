package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Request types.
const (
	TypePing                      = "ping"
	TypeStatus                    = "status"
	TypeSetInteractive            = "set_interactive"
	TypeUpdateHint                = "update_hint"
	TypePowerHint                 = "power_hint"
	TypeSetFeature                = "set_feature"
	TypeGetPlatformLowPowerStats  = "get_platform_low_power_stats"
	TypeGetSubsystemLowPowerStats = "get_subsystem_low_power_stats"
	TypeIsModeSupported           = "is_mode_supported"
	TypeSetMode                   = "set_mode"
)

// ResultType names the response to a request of type t.
func ResultType(t string) string {
	return t + "_result"
}

// Request is a message from the framework to the HAL.
type Request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response acknowledges a Request.
type Response struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewResponse encodes payload into a response for req.
func NewResponse(req Request, success bool, payload interface{}) Response {
	resp := Response{ID: req.ID, Type: ResultType(req.Type), Success: success}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			resp.Success = false
			raw, _ = json.Marshal(ErrorPayload{Error: err.Error()})
		}
		resp.Payload = raw
	}
	return resp
}

// ErrorResponse reports a failed request.
func ErrorResponse(req Request, err error) Response {
	return NewResponse(req, false, ErrorPayload{Error: err.Error()})
}

// Enum is a hint, mode or feature given either by name or by number.
type Enum string

func (e *Enum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = Enum(s)
		return nil
	}
	var n int32
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("enum must be a name or an int32: %w", err)
	}
	*e = Enum(strconv.Itoa(int(n)))
	return nil
}

// HAL interface versions accepted in PowerHintPayload.
const (
	Version10 = "1.0"
	Version12 = "1.2"
	Version13 = "1.3"
)

// PowerHintPayload is the payload for a "power_hint" request.
type PowerHintPayload struct {
	Hint Enum  `json:"hint"`
	Data int32 `json:"data"`
	// Version selects the dispatcher; defaults to Version13.
	Version string `json:"version,omitempty"`
}

// UpdateHintPayload is the payload for an "update_hint" request.
type UpdateHintPayload struct {
	Name   string `json:"name"`
	Enable bool   `json:"enable"`
}

// SetInteractivePayload is the payload for a "set_interactive" request.
type SetInteractivePayload struct {
	Interactive bool `json:"interactive"`
}

// SetFeaturePayload is the payload for a "set_feature" request.
type SetFeaturePayload struct {
	Feature  Enum `json:"feature"`
	Activate bool `json:"activate"`
}

// ModePayload is the payload for "is_mode_supported" and "set_mode".
type ModePayload struct {
	Mode    Enum `json:"mode"`
	Enabled bool `json:"enabled,omitempty"`
}

// ModeResult is the payload of mode responses.
type ModeResult struct {
	Mode      string `json:"mode"`
	Supported bool   `json:"supported,omitempty"`
	Handled   bool   `json:"handled,omitempty"`
}

// StatsResult is the payload of the low-power stats responses.
type StatsResult struct {
	Status int32       `json:"status"`
	States interface{} `json:"states"`
}

// StatusResult is the payload of a "status" response.
type StatusResult struct {
	Ready         bool `json:"ready"`
	SustainedPerf bool `json:"sustained_perf"`
}

// ErrorPayload for error responses.
type ErrorPayload struct {
	Error string `json:"error"`
}
