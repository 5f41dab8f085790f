// Package codec maps typed requests and responses to the bridge's JSON wire
// format and classifies the error objects the bridge embeds in its bodies.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hue-bridge-client/internal/domain/model"
)

// Bridge error types (API v1).
const (
	TypeUnauthorizedUser     = 1
	TypeInvalidJSON          = 2
	TypeResourceNotAvailable = 3
	TypeMethodNotAvailable   = 4
	TypeMissingParameters    = 5
	TypeParameterNotAvail    = 6
	TypeInvalidValue         = 7
	TypeParameterReadOnly    = 8
	TypeTooManyItems         = 11
	TypeLinkButtonNotPressed = 101
	TypeDeviceIsOff          = 201
	TypeInternalError        = 901
)

const maxRaw = 512

// APIError is the error object of a bridge response item.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type responseItem struct {
	Success json.RawMessage `json:"success,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// Classify maps a bridge error object to a typed BridgeError.
func Classify(e APIError) *model.BridgeError {
	kind := model.KindUnclassified
	switch e.Type {
	case TypeUnauthorizedUser:
		kind = model.KindUnauthorized
	case TypeResourceNotAvailable:
		kind = model.KindNotFound
	case TypeMethodNotAvailable:
		kind = model.KindMethodNotSupported
	case TypeInvalidJSON, TypeMissingParameters, TypeParameterNotAvail,
		TypeInvalidValue, TypeParameterReadOnly, TypeTooManyItems, TypeDeviceIsOff:
		kind = model.KindBadRequest
	case TypeInternalError:
		kind = model.KindInternal
	case TypeLinkButtonNotPressed:
		kind = model.KindLinkButtonNotPressed
	}
	return &model.BridgeError{
		Kind:        kind,
		Code:        e.Type,
		Address:     e.Address,
		Description: e.Description,
	}
}

// unclassified builds the error for bodies that are not valid bridge responses.
func unclassified(status int, body []byte, format string, args ...any) *model.BridgeError {
	raw := body
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return &model.BridgeError{
		Kind:        model.KindUnclassified,
		Description: fmt.Sprintf(format, args...),
		Status:      status,
		Raw:         string(raw),
	}
}

// decodeItems parses a bridge response array.
func decodeItems(status int, body []byte) ([]responseItem, error) {
	var items []responseItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, unclassified(status, body, "malformed response: %v", err)
	}
	return items, nil
}

func isArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// firstError returns the first embedded bridge error, or nil.
func firstError(items []responseItem) error {
	for _, item := range items {
		if item.Error != nil {
			return Classify(*item.Error)
		}
	}
	return nil
}

// errorEnvelope catches a bare {"error": {...}} object.
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// decodeObject decodes a body expected to be a JSON object. Error arrays and
// bare error objects are classified even when the HTTP status is 200.
func decodeObject(status int, body []byte, v any) error {
	if isArray(body) {
		items, err := decodeItems(status, body)
		if err != nil {
			return err
		}
		if err := firstError(items); err != nil {
			return err
		}
		return unclassified(status, body, "unexpected array response")
	}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return Classify(*env.Error)
	}
	if status < 200 || status > 299 {
		return unclassified(status, body, "unexpected http status")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return unclassified(status, body, "malformed response: %v", err)
	}
	return nil
}

// decodeArray decodes a body expected to be a success/error array.
func decodeArray(status int, body []byte) ([]responseItem, error) {
	if !isArray(body) {
		return nil, unclassified(status, body, "expected response array")
	}
	items, err := decodeItems(status, body)
	if err != nil {
		return nil, err
	}
	if err := firstError(items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, unclassified(status, body, "empty response")
	}
	return items, nil
}

// DecodeWriteResult checks the response of a state write. The bridge applies
// each field independently, so when it reports a mix of success and error
// items the first error is returned even though other fields took effect.
// A response with no success item at all is Unclassified.
func DecodeWriteResult(status int, body []byte) error {
	items, err := decodeArray(status, body)
	if err != nil {
		return err
	}
	for _, item := range items {
		if hasSuccess(item) {
			return nil
		}
	}
	return unclassified(status, body, "no success item")
}

func hasSuccess(item responseItem) bool {
	trimmed := bytes.TrimSpace(item.Success)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeConfig decodes GET /api/<username>/config.
func DecodeConfig(status int, body []byte) (model.BridgeConfig, error) {
	var cfg model.BridgeConfig
	if err := decodeObject(status, body, &cfg); err != nil {
		return model.BridgeConfig{}, err
	}
	return cfg, nil
}
