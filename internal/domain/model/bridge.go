package model

import (
	"slices"
	"strings"
)

type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// BridgeDescriptor is a bridge candidate produced by discovery.
type BridgeDescriptor struct {
	Address      string   `json:"address"`
	ID           string   `json:"id,omitempty"`
	FriendlyName string   `json:"friendly_name,omitempty"`
	ModelName    string   `json:"model_name,omitempty"`
	Sources      []Source `json:"sources,omitempty"`
}

// Key identifies the bridge: its ID when known, otherwise its address.
func (d BridgeDescriptor) Key() string {
	if d.ID != "" {
		return strings.ToLower(d.ID)
	}
	return d.Address
}

// Confirmed reports whether both the local probe and the remote lookup saw
// this bridge.
func (d BridgeDescriptor) Confirmed() bool {
	return slices.Contains(d.Sources, SourceLocal) && slices.Contains(d.Sources, SourceRemote)
}

// BaseURL returns the bridge root with a trailing slash, e.g. "http://192.168.1.2/".
func (d BridgeDescriptor) BaseURL() string {
	return BaseURL(d.Address)
}

// BaseURL normalizes a bare host, host:port or URL into a bridge root URL.
func BaseURL(address string) string {
	u := address
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// Credential is the username token issued by a bridge after pairing.
type Credential struct {
	Username string `json:"username"`
}

func (c Credential) IsZero() bool {
	return c.Username == ""
}

// BridgeConfig is the subset of the bridge configuration resource exposed to callers.
type BridgeConfig struct {
	Name            string `json:"name"`
	BridgeID        string `json:"bridgeid"`
	APIVersion      string `json:"apiversion"`
	SoftwareVersion string `json:"swversion"`
	MAC             string `json:"mac"`
	ModelID         string `json:"modelid"`
}
