package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"hue-bridge-client/internal/domain/model"
	"net/http"
)

// deviceDescription is the part of the UPnP description.xml we read.
type deviceDescription struct {
	URLBase string `xml:"URLBase"`
	Device  struct {
		FriendlyName string `xml:"friendlyName"`
		ModelName    string `xml:"modelName"`
		SerialNumber string `xml:"serialNumber"`
		UDN          string `xml:"UDN"`
	} `xml:"device"`
}

func (e *Engine) fetchDescription(ctx context.Context, location string) (*deviceDescription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: http.MethodGet, URL: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	desc := &deviceDescription{}
	if err := xml.NewDecoder(resp.Body).Decode(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

// describe fills naming fields from the bridge's description document. A
// failed fetch leaves the descriptor as it was.
func (e *Engine) describe(ctx context.Context, d model.BridgeDescriptor, location string) model.BridgeDescriptor {
	desc, err := e.fetchDescription(ctx, location)
	if err != nil {
		e.logger.Debug().Err(err).Str("location", location).Msg("Could not fetch bridge description")
		return d
	}
	d.FriendlyName = desc.Device.FriendlyName
	d.ModelName = desc.Device.ModelName
	if d.ID == "" {
		d.ID = desc.Device.SerialNumber
	}
	return d
}
