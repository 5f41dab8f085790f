// Package translator converts between human units and the ranges the bridge
// speaks.
package translator

import (
	"fmt"
	"math"
)

const (
	MinBrightness = 1
	MaxBrightness = 254
	MaxSaturation = 254

	// Color temperature range accepted by current bulbs, in mired.
	MinMired = 153
	MaxMired = 500
)

// PercentToBrightness maps 0-100 % onto 1-254. Zero percent is the dimmest
// level, not off.
func PercentToBrightness(p float64) (uint8, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("brightness %.1f%% out of range 0-100", p)
	}
	return uint8(max(MinBrightness, math.Round(p*MaxBrightness/100))), nil
}

func BrightnessToPercent(bri uint8) float64 {
	return math.Round(float64(bri)*1000/MaxBrightness) / 10
}

// KelvinToMired converts a color temperature, clamped to what bulbs accept.
func KelvinToMired(kelvin int) (uint16, error) {
	if kelvin <= 0 {
		return 0, fmt.Errorf("color temperature %dK must be positive", kelvin)
	}
	m := math.Round(1e6 / float64(kelvin))
	return uint16(min(max(m, MinMired), MaxMired)), nil
}

func MiredToKelvin(mired uint16) int {
	if mired == 0 {
		return 0
	}
	return int(math.Round(1e6 / float64(mired)))
}

// DegreesToHue maps a color wheel angle onto 0-65535. Angles wrap around.
func DegreesToHue(deg float64) (uint16, error) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, fmt.Errorf("hue angle %v is not a number", deg)
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return uint16(math.Round(deg*65535/360)) % 65535, nil
}

func HueToDegrees(hue uint16) float64 {
	return math.Round(float64(hue)*3600/65535) / 10
}

// PercentToSaturation maps 0-100 % onto 0-254.
func PercentToSaturation(p float64) (uint8, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("saturation %.1f%% out of range 0-100", p)
	}
	return uint8(math.Round(p * MaxSaturation / 100)), nil
}
