package ports

import (
	"context"
	"hue-bridge-client/internal/domain/model"
	"time"
)

// CredentialRequester drives one pairing attempt against a bridge.
type CredentialRequester interface {
	RequestCredential(ctx context.Context, deviceName string, pollInterval, maxWait time.Duration) (model.Credential, error)
}
