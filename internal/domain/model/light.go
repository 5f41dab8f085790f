package model

// LightID is the bridge-assigned light identifier ("1", "2", ...). It is
// stable across sessions but not across bridge resets.
type LightID string

// LightState is the state of a light as reported by the bridge. Fields the
// bridge did not report stay unset; on/off plugs carry no brightness.
type LightState struct {
	On               bool
	Brightness       Optional[uint8]
	Hue              Optional[uint16]
	Saturation       Optional[uint8]
	ColorTemperature Optional[uint16] // mired
	Reachable        bool
	ColorMode        string
	Alert            string
	Effect           string
}

// StateUpdate is a partial light state write. Unset fields are not sent and
// the bridge leaves them unchanged.
type StateUpdate struct {
	On               Optional[bool]
	Brightness       Optional[uint8]
	Hue              Optional[uint16]
	Saturation       Optional[uint8]
	ColorTemperature Optional[uint16]
	TransitionTime   Optional[uint16] // multiples of 100ms
	Alert            Optional[string]
	Effect           Optional[string]
}

// IsEmpty reports whether no field is set.
func (u StateUpdate) IsEmpty() bool {
	return !u.On.IsSet() &&
		!u.Brightness.IsSet() &&
		!u.Hue.IsSet() &&
		!u.Saturation.IsSet() &&
		!u.ColorTemperature.IsSet() &&
		!u.TransitionTime.IsSet() &&
		!u.Alert.IsSet() &&
		!u.Effect.IsSet()
}

type Light struct {
	ID               LightID
	Name             string
	Type             string
	ModelID          string
	ManufacturerName string
	UniqueID         string
	SoftwareVersion  string
	State            LightState
}
