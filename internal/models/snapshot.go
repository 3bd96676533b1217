package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SensorSnapshot is one point-in-time reading of every smart-home subsystem
type SensorSnapshot struct {
	Fire     *FireSystem     `json:"SmartFireSystem"`
	Lights   *LightSystem    `json:"SmartLightSystem"`
	Garage   *GarageSystem   `json:"SmartGarageDoorSystem"`
	Overview *SystemOverview `json:"SystemOverview"`

	// Legacy writers put the threshold at the root instead of under SystemOverview
	ThresholdPowerMW *Number `json:"threshold_power_mW"`
}

// FireSystem holds the fire sensor readings
type FireSystem struct {
	Flame   *float64 `json:"Flame"`
	Heat    *float64 `json:"Heat"`
	Smoke   *float64 `json:"Smoke"`
	PowerMW *float64 `json:"power_mW"`
	Index   *float64 `json:"index"`
}

// LightSystem holds the three room lights
type LightSystem struct {
	Light1Status     *Flag    `json:"Light1_status"`
	Light2Status     *Flag    `json:"Light2_status"`
	Light3Status     *Flag    `json:"Light3_status"`
	Light1Brightness *float64 `json:"Light1_brightness"`
	Light2Brightness *float64 `json:"Light2_brightness"`
	Light3Brightness *float64 `json:"Light3_brightness"`
}

// GarageSystem holds the garage door controller state
type GarageSystem struct {
	MotionDetected *Flag `json:"motion_detected"`
	IsOn           *Flag `json:"isOn"`
}

// SystemOverview holds house-wide aggregates
type SystemOverview struct {
	TotalPowerMW     *float64 `json:"total_power_mW"`
	ThresholdPowerMW *Number  `json:"threshold_power_mW"`
}

// Threshold returns the configured power threshold, if any
func (s *SensorSnapshot) Threshold() *Number {
	if s.Overview != nil && s.Overview.ThresholdPowerMW != nil {
		return s.Overview.ThresholdPowerMW
	}
	return s.ThresholdPowerMW
}

// Number is a JSON number that remembers whether it was written as an integer
type Number struct {
	Value    float64
	Integral bool
}

// UnmarshalJSON reads any JSON number; "50" is integral, "50.0" and "5e1" are not
func (n *Number) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = v
	n.Integral = !bytes.ContainsAny(bytes.TrimSpace(data), ".eE")
	return nil
}

// MarshalJSON writes the plain number
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// Flag is an on/off value. Firmware writes it as a JSON bool or a number.
type Flag bool

// UnmarshalJSON accepts true/false, numbers (non-zero is on) and the strings "true"/"false"/"on"/"off"
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1":
			*f = true
		case "false", "off", "0", "":
			*f = false
		default:
			return fmt.Errorf("invalid flag value %q", v)
		}
	case nil:
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", string(data))
	}
	return nil
}

// MarshalJSON writes the flag as a JSON bool
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// On reports whether the flag is set; a nil flag is off
func (f *Flag) On() bool {
	return f != nil && bool(*f)
}

// Float returns 1 for on and 0 for off
func (f *Flag) Float() float64 {
	if f.On() {
		return 1
	}
	return 0
}
