package ports

import (
	"context"
	"hue-bridge-client/internal/domain/model"
)

// BridgePort is the authenticated light control surface of one bridge.
type BridgePort interface {
	ListLights(ctx context.Context) (map[model.LightID]model.Light, error)
	GetLight(ctx context.Context, id model.LightID) (model.Light, error)
	SetLightState(ctx context.Context, id model.LightID, update model.StateUpdate) error
	SwitchLight(ctx context.Context, id model.LightID, on bool) error
	Config(ctx context.Context) (model.BridgeConfig, error)
}
