package ports

import (
	"context"
	"hue-bridge-client/internal/domain/model"
)

// PairedBridge is a bridge together with the credential it issued.
type PairedBridge struct {
	Bridge     model.BridgeDescriptor `json:"bridge"`
	Credential model.Credential       `json:"credential"`
}

// CredentialRepository persists paired bridges keyed by BridgeDescriptor.Key.
// Get returns nil, nil when nothing is stored under key.
type CredentialRepository interface {
	Get(ctx context.Context, key string) (*PairedBridge, error)
	List(ctx context.Context) ([]*PairedBridge, error)
	Save(ctx context.Context, paired *PairedBridge) error
	Delete(ctx context.Context, key string) error
}
