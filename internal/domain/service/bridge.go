package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hue-bridge-client/internal/domain/codec"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BridgeClient is the authenticated facade over one bridge. It is bound to a
// single address and credential for its lifetime, keeps no cache and holds
// no mutable state, so one instance may be shared between goroutines.
//
// Nothing is retried. An Unauthorized error means the credential was revoked
// or never valid and the caller has to pair again.
type BridgeClient struct {
	baseURL string
	cred    model.Credential
	http    ports.HTTPDoer
	logger  zerolog.Logger
}

var _ ports.BridgePort = (*BridgeClient)(nil)

type ClientOption func(*BridgeClient)

func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *BridgeClient) { c.logger = l }
}

func NewBridgeClient(bridge model.BridgeDescriptor, cred model.Credential, doer ports.HTTPDoer, opts ...ClientOption) *BridgeClient {
	c := &BridgeClient{
		baseURL: bridge.BaseURL(),
		cred:    cred,
		http:    doer,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "bridge_client").Str("bridge", bridge.Address).Logger()
	return c
}

// ListLights returns every light the bridge knows. A bridge without lights
// yields an empty map.
func (c *BridgeClient) ListLights(ctx context.Context) (map[model.LightID]model.Light, error) {
	status, body, err := c.do(ctx, http.MethodGet, codec.LightsURL(c.baseURL, c.cred), nil)
	if err != nil {
		return nil, err
	}
	lights, err := codec.DecodeLights(status, body)
	if err != nil {
		return nil, fmt.Errorf("list lights: %w", err)
	}
	c.logger.Debug().Int("count", len(lights)).Msg("Listed lights")
	return lights, nil
}

// GetLight fetches one light; an unknown id fails with model.ErrNotFound.
func (c *BridgeClient) GetLight(ctx context.Context, id model.LightID) (model.Light, error) {
	status, body, err := c.do(ctx, http.MethodGet, codec.LightURL(c.baseURL, c.cred, id), nil)
	if err != nil {
		return model.Light{}, err
	}
	light, err := codec.DecodeLight(id, status, body)
	if err != nil {
		return model.Light{}, fmt.Errorf("get light %s: %w", id, err)
	}
	return light, nil
}

// SetLightState writes the set fields of update to the light.
//
// The bridge applies each field on its own. When it accepts some fields and
// rejects others, the first rejection is returned although the accepted
// fields have already changed the light. Callers that need to know the
// resulting state must read it back with GetLight.
func (c *BridgeClient) SetLightState(ctx context.Context, id model.LightID, update model.StateUpdate) error {
	payload, err := codec.EncodeStateUpdate(update)
	if err != nil {
		return fmt.Errorf("set light %s: %w", id, err)
	}
	status, body, err := c.do(ctx, http.MethodPut, codec.LightStateURL(c.baseURL, c.cred, id), payload)
	if err != nil {
		return err
	}
	if err := codec.DecodeWriteResult(status, body); err != nil {
		return fmt.Errorf("set light %s: %w", id, err)
	}
	c.logger.Debug().Str("light", string(id)).Strs("fields", codec.UpdateFields(update)).Msg("Light state updated")
	return nil
}

// SwitchLight turns a light on or off.
func (c *BridgeClient) SwitchLight(ctx context.Context, id model.LightID, on bool) error {
	return c.SetLightState(ctx, id, model.StateUpdate{On: model.Some(on)})
}

// Config reads the bridge configuration. It is the cheapest authenticated
// call and doubles as a credential check.
func (c *BridgeClient) Config(ctx context.Context) (model.BridgeConfig, error) {
	status, body, err := c.do(ctx, http.MethodGet, codec.ConfigURL(c.baseURL, c.cred), nil)
	if err != nil {
		return model.BridgeConfig{}, err
	}
	cfg, err := codec.DecodeConfig(status, body)
	if err != nil {
		return model.BridgeConfig{}, fmt.Errorf("get config: %w", err)
	}
	return cfg, nil
}

func (c *BridgeClient) do(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, c.transportError(method, target, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, c.transportError(method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, c.transportError(method, target, err)
	}
	return resp.StatusCode, data, nil
}

// transportError wraps err without the username. net/http repeats the full
// URL in its own errors, so those are rewritten too.
func (c *BridgeClient) transportError(method, target string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = &url.Error{Op: ue.Op, URL: c.redact(ue.URL), Err: ue.Err}
	}
	return &model.TransportError{Op: method, URL: c.redact(target), Err: err}
}

// redact keeps the username out of error messages.
func (c *BridgeClient) redact(rawURL string) string {
	if c.cred.Username == "" {
		return rawURL
	}
	return strings.Replace(rawURL, "/api/"+url.PathEscape(c.cred.Username), "/api/<redacted>", 1)
}
