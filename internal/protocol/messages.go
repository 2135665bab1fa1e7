package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResultUndefined is the result value returned for division by zero.
const ResultUndefined = "undefined"

// MathOperation is the structured arithmetic result extracted from a spoken
// question. Result is a number for every defined operation and the string
// "undefined" for division by zero, so it carries its own JSON codec.
type MathOperation struct {
	Num1     int     `json:"num1"`
	Operator string  `json:"operator"`
	Num2     int     `json:"num2"`
	Result   float64 `json:"-"`
	// Undefined is true when the operation has no numeric result.
	Undefined bool `json:"-"`
}

type mathOperationWire struct {
	Num1     int             `json:"num1"`
	Operator string          `json:"operator"`
	Num2     int             `json:"num2"`
	Result   json.RawMessage `json:"result"`
}

func (m MathOperation) MarshalJSON() ([]byte, error) {
	wire := mathOperationWire{Num1: m.Num1, Operator: m.Operator, Num2: m.Num2}
	if m.Undefined {
		wire.Result = json.RawMessage(`"` + ResultUndefined + `"`)
	} else {
		result, err := json.Marshal(m.Result)
		if err != nil {
			return nil, err
		}
		wire.Result = result
	}
	return json.Marshal(wire)
}

func (m *MathOperation) UnmarshalJSON(data []byte) error {
	var wire mathOperationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Num1 = wire.Num1
	m.Operator = wire.Operator
	m.Num2 = wire.Num2
	m.Undefined = false
	m.Result = 0

	if len(wire.Result) == 0 || string(wire.Result) == "null" {
		return fmt.Errorf("math operation result missing")
	}
	var numeric float64
	if err := json.Unmarshal(wire.Result, &numeric); err == nil {
		m.Result = numeric
		return nil
	}
	var text string
	if err := json.Unmarshal(wire.Result, &text); err != nil {
		return fmt.Errorf("math operation result must be a number or string: %w", err)
	}
	if text != ResultUndefined {
		return fmt.Errorf("unexpected math operation result %q", text)
	}
	m.Undefined = true
	return nil
}

// ResultString renders the result the way it appears on the wire.
func (m MathOperation) ResultString() string {
	if m.Undefined {
		return ResultUndefined
	}
	if m.Result == float64(int64(m.Result)) {
		return fmt.Sprintf("%d", int64(m.Result))
	}
	return fmt.Sprintf("%g", m.Result)
}

// ChatResponse is the body returned by POST /api/process-audio. ResponseID
// keys the synthesized spoken reply at GET /api/audio/{id}.
type ChatResponse struct {
	TextResponse  string         `json:"text_response"`
	MathOperation *MathOperation `json:"math_operation"`
	ResponseID    string         `json:"response_id,omitempty"`
}

// TranscriptEvent is broadcast on the bus once an upload has been transcribed.
type TranscriptEvent struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseEvent is broadcast on the bus once an answer has been produced.
type ResponseEvent struct {
	SessionID  string         `json:"session_id"`
	ResponseID string         `json:"response_id"`
	Text       string         `json:"text"`
	MathOp     *MathOperation `json:"math_operation,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

const (
	SubjectTranscriptFinal = "chat.transcript.final"
	SubjectResponseFinal   = "chat.response.final"
)
