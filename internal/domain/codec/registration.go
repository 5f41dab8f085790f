package codec

import (
	"encoding/json"
	"hue-bridge-client/internal/domain/model"
)

type registerRequest struct {
	DeviceType string `json:"devicetype"`
}

type registerSuccess struct {
	Username string `json:"username"`
}

// EncodeRegistration builds the POST /api body.
func EncodeRegistration(deviceType string) ([]byte, error) {
	return json.Marshal(registerRequest{DeviceType: deviceType})
}

// DecodeRegistration extracts the issued username. A pending link button is
// returned as a BridgeError of KindLinkButtonNotPressed.
func DecodeRegistration(status int, body []byte) (model.Credential, error) {
	items, err := decodeArray(status, body)
	if err != nil {
		return model.Credential{}, err
	}
	for _, item := range items {
		if len(item.Success) == 0 {
			continue
		}
		var s registerSuccess
		if err := json.Unmarshal(item.Success, &s); err != nil {
			return model.Credential{}, unclassified(status, body, "malformed success item: %v", err)
		}
		if s.Username == "" {
			return model.Credential{}, unclassified(status, body, "success without username")
		}
		return model.Credential{Username: s.Username}, nil
	}
	return model.Credential{}, unclassified(status, body, "no success item")
}

// DecodeRegistrationRequest parses a POST /api body.
func DecodeRegistrationRequest(body []byte) (string, error) {
	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", err
	}
	return req.DeviceType, nil
}
