package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"hue-bridge-client/internal/domain/model"
	"net/http"

	"github.com/amimof/huego"
)

// DefaultRemoteURL is the public lookup service listing the bridges
// registered from the caller's network.
const DefaultRemoteURL = "https://discovery.meethue.com/"

func (e *Engine) lookupRemote(ctx context.Context) ([]model.BridgeDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.remoteURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: http.MethodGet, URL: e.remoteURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote lookup: unexpected status code: %d", resp.StatusCode)
	}

	var bridges []huego.Bridge
	if err := json.NewDecoder(resp.Body).Decode(&bridges); err != nil {
		return nil, fmt.Errorf("remote lookup: %w", err)
	}

	found := make([]model.BridgeDescriptor, 0, len(bridges))
	for _, b := range bridges {
		if b.Host == "" {
			e.logger.Debug().Str("id", b.ID).Msg("Skipping remote entry without address")
			continue
		}
		found = append(found, model.BridgeDescriptor{
			Address: b.Host,
			ID:      b.ID,
			Sources: []model.Source{model.SourceRemote},
		})
	}
	return found, nil
}
