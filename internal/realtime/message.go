package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned for inbound payloads that are not a JSON
// object carrying a prediction or an error.
var ErrMalformedMessage = errors.New("malformed prediction message")

// PredictionMessage is one inference result from the prediction service.
// Either Error is set, or it carries an optional letter and a confidence.
type PredictionMessage struct {
	Letter     string  `json:"prediction,omitempty"`
	HasLetter  bool    `json:"-"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// IsError reports whether the service reported a failure instead of a result.
func (m PredictionMessage) IsError() bool {
	return m.Error != ""
}

var jsonNull = []byte("null")

// DecodeMessage parses an inbound payload. An "error" field takes precedence
// over a prediction. Confidence is clamped to [0,1].
func DecodeMessage(data []byte) (PredictionMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return PredictionMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if raw, ok := fields["error"]; ok && !bytes.Equal(raw, jsonNull) {
		var reason string
		if err := json.Unmarshal(raw, &reason); err != nil {
			return PredictionMessage{}, fmt.Errorf("%w: error field: %v", ErrMalformedMessage, err)
		}
		if reason != "" {
			return PredictionMessage{Error: reason}, nil
		}
	}

	raw, ok := fields["prediction"]
	if !ok {
		return PredictionMessage{}, fmt.Errorf("%w: no prediction or error field", ErrMalformedMessage)
	}

	var msg PredictionMessage
	if !bytes.Equal(raw, jsonNull) {
		if err := json.Unmarshal(raw, &msg.Letter); err != nil {
			return PredictionMessage{}, fmt.Errorf("%w: prediction field: %v", ErrMalformedMessage, err)
		}
		msg.HasLetter = msg.Letter != ""
	}

	if raw, ok := fields["confidence"]; ok && !bytes.Equal(raw, jsonNull) {
		if err := json.Unmarshal(raw, &msg.Confidence); err != nil {
			return PredictionMessage{}, fmt.Errorf("%w: confidence field: %v", ErrMalformedMessage, err)
		}
	}
	msg.Confidence = min(max(msg.Confidence, 0), 1)

	return msg, nil
}
