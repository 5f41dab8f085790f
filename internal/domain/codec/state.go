package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"hue-bridge-client/internal/domain/model"
)

var (
	ErrEmptyUpdate  = errors.New("codec: state update sets no field")
	ErrInvalidValue = errors.New("codec: value out of range")
)

const maxSaturation = 254

// wireState is the JSON shape of a light state. Pointers keep absent fields
// absent in both directions; omitempty only drops nil.
type wireState struct {
	On             *bool   `json:"on,omitempty"`
	Bri            *uint8  `json:"bri,omitempty"`
	Hue            *uint16 `json:"hue,omitempty"`
	Sat            *uint8  `json:"sat,omitempty"`
	Ct             *uint16 `json:"ct,omitempty"`
	TransitionTime *uint16 `json:"transitiontime,omitempty"`
	Alert          *string `json:"alert,omitempty"`
	Effect         *string `json:"effect,omitempty"`
	ColorMode      *string `json:"colormode,omitempty"`
	Reachable      *bool   `json:"reachable,omitempty"`
}

// EncodeStateUpdate builds the PUT .../state body from the set fields only.
func EncodeStateUpdate(u model.StateUpdate) ([]byte, error) {
	if u.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	if sat, ok := u.Saturation.Get(); ok && sat > maxSaturation {
		return nil, fmt.Errorf("%w: saturation %d exceeds %d", ErrInvalidValue, sat, maxSaturation)
	}
	w := wireState{
		On:             u.On.Ptr(),
		Bri:            u.Brightness.Ptr(),
		Hue:            u.Hue.Ptr(),
		Sat:            u.Saturation.Ptr(),
		Ct:             u.ColorTemperature.Ptr(),
		TransitionTime: u.TransitionTime.Ptr(),
		Alert:          u.Alert.Ptr(),
		Effect:         u.Effect.Ptr(),
	}
	return json.Marshal(w)
}

// DecodeStateUpdate parses a PUT .../state body. Fields missing from the body
// stay unset.
func DecodeStateUpdate(body []byte) (model.StateUpdate, error) {
	var w wireState
	if err := json.Unmarshal(body, &w); err != nil {
		return model.StateUpdate{}, err
	}
	return model.StateUpdate{
		On:               model.FromPtr(w.On),
		Brightness:       model.FromPtr(w.Bri),
		Hue:              model.FromPtr(w.Hue),
		Saturation:       model.FromPtr(w.Sat),
		ColorTemperature: model.FromPtr(w.Ct),
		TransitionTime:   model.FromPtr(w.TransitionTime),
		Alert:            model.FromPtr(w.Alert),
		Effect:           model.FromPtr(w.Effect),
	}, nil
}

// UpdateFields lists the wire names an update will send, in a stable order.
func UpdateFields(u model.StateUpdate) []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.On.IsSet(), "on")
	add(u.Brightness.IsSet(), "bri")
	add(u.Hue.IsSet(), "hue")
	add(u.Saturation.IsSet(), "sat")
	add(u.ColorTemperature.IsSet(), "ct")
	add(u.TransitionTime.IsSet(), "transitiontime")
	add(u.Alert.IsSet(), "alert")
	add(u.Effect.IsSet(), "effect")
	return fields
}

func (w wireState) toModel() model.LightState {
	s := model.LightState{
		Brightness:       model.FromPtr(w.Bri),
		Hue:              model.FromPtr(w.Hue),
		Saturation:       model.FromPtr(w.Sat),
		ColorTemperature: model.FromPtr(w.Ct),
	}
	if w.On != nil {
		s.On = *w.On
	}
	if w.Reachable != nil {
		s.Reachable = *w.Reachable
	}
	if w.ColorMode != nil {
		s.ColorMode = *w.ColorMode
	}
	if w.Alert != nil {
		s.Alert = *w.Alert
	}
	if w.Effect != nil {
		s.Effect = *w.Effect
	}
	return s
}
