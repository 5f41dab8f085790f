package codec

import (
	"hue-bridge-client/internal/domain/model"
)

type wireLight struct {
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	ModelID          string    `json:"modelid"`
	ManufacturerName string    `json:"manufacturername"`
	UniqueID         string    `json:"uniqueid"`
	SwVersion        string    `json:"swversion"`
	State            wireState `json:"state"`
}

func (w wireLight) toModel(id model.LightID) model.Light {
	return model.Light{
		ID:               id,
		Name:             w.Name,
		Type:             w.Type,
		ModelID:          w.ModelID,
		ManufacturerName: w.ManufacturerName,
		UniqueID:         w.UniqueID,
		SoftwareVersion:  w.SwVersion,
		State:            w.State.toModel(),
	}
}

// DecodeLights decodes GET /api/<username>/lights. An empty object is a
// valid, empty result.
func DecodeLights(status int, body []byte) (map[model.LightID]model.Light, error) {
	var raw map[string]wireLight
	if err := decodeObject(status, body, &raw); err != nil {
		return nil, err
	}
	lights := make(map[model.LightID]model.Light, len(raw))
	for id, l := range raw {
		lights[model.LightID(id)] = l.toModel(model.LightID(id))
	}
	return lights, nil
}

// DecodeLight decodes GET /api/<username>/lights/<id>.
func DecodeLight(id model.LightID, status int, body []byte) (model.Light, error) {
	var raw wireLight
	if err := decodeObject(status, body, &raw); err != nil {
		return model.Light{}, err
	}
	return raw.toModel(id), nil
}
