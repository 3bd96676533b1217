// Package features turns smart-home snapshots into the fixed-order vectors the models were trained on.
package features

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// WrapperKey is the optional top-level key snapshots are nested under
const WrapperKey = "SmartHomeSystem"

// Column order must match training exactly; a reordering still predicts, just wrongly.
var (
	FireFeatureNames = []string{"flame", "heat", "smoke", "power_mW", "index"}

	OccupancyFeatureNames = []string{
		"light1_status", "light2_status", "light3_status",
		"light1_brightness", "light2_brightness", "light3_brightness",
		"motion_detected",
	}

	// PowerFeatureNames shares the occupancy layout
	PowerFeatureNames = append([]string(nil), OccupancyFeatureNames...)
)

// ErrInvalidPayload is returned when the body is not a JSON snapshot
var ErrInvalidPayload = errors.New("invalid snapshot payload")

// MissingFieldError is returned when a required snapshot section or field is absent
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Decode parses a snapshot nested under WrapperKey or flattened at the root,
// and checks that every section is present.
func Decode(payload []byte) (*models.SensorSnapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	body := payload
	if nested, ok := top[WrapperKey]; ok {
		body = nested
	}

	var snapshot models.SensorSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := ValidateSections(&snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ValidateSections fails fast on the first absent section
func ValidateSections(s *models.SensorSnapshot) error {
	switch {
	case s.Fire == nil:
		return &MissingFieldError{Field: "SmartFireSystem"}
	case s.Lights == nil:
		return &MissingFieldError{Field: "SmartLightSystem"}
	case s.Garage == nil:
		return &MissingFieldError{Field: "SmartGarageDoorSystem"}
	case s.Overview == nil:
		return &MissingFieldError{Field: "SystemOverview"}
	}
	return nil
}

// Extract builds the fire, occupancy and power vectors
func Extract(s *models.SensorSnapshot) (models.FeatureSet, error) {
	if err := ValidateSections(s); err != nil {
		return models.FeatureSet{}, err
	}

	fire, err := FireVector(s.Fire)
	if err != nil {
		return models.FeatureSet{}, err
	}

	occupancy, err := OccupancyVector(s.Lights, s.Garage)
	if err != nil {
		return models.FeatureSet{}, err
	}

	power := make(models.FeatureVector, len(occupancy))
	copy(power, occupancy)

	return models.FeatureSet{Fire: fire, Occupancy: occupancy, Power: power}, nil
}

// FireVector returns [flame, heat, smoke, power_mW, index]. Nothing is defaulted.
func FireVector(f *models.FireSystem) (models.FeatureVector, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"Flame", f.Flame},
		{"Heat", f.Heat},
		{"Smoke", f.Smoke},
		{"power_mW", f.PowerMW},
		{"index", f.Index},
	}

	vec := make(models.FeatureVector, 0, len(fields))
	for _, field := range fields {
		if field.value == nil {
			return nil, &MissingFieldError{Field: "SmartFireSystem." + field.name}
		}
		vec = append(vec, *field.value)
	}
	return vec, nil
}

// OccupancyVector returns the three light statuses (0/1), the three brightnesses
// and motion (0/1, default 0).
func OccupancyVector(l *models.LightSystem, g *models.GarageSystem) (models.FeatureVector, error) {
	statuses := []struct {
		name string
		flag *models.Flag
	}{
		{"Light1_status", l.Light1Status},
		{"Light2_status", l.Light2Status},
		{"Light3_status", l.Light3Status},
	}
	brightness := []struct {
		name  string
		value *float64
	}{
		{"Light1_brightness", l.Light1Brightness},
		{"Light2_brightness", l.Light2Brightness},
		{"Light3_brightness", l.Light3Brightness},
	}

	vec := make(models.FeatureVector, 0, len(OccupancyFeatureNames))
	for _, s := range statuses {
		if s.flag == nil {
			return nil, &MissingFieldError{Field: "SmartLightSystem." + s.name}
		}
		vec = append(vec, s.flag.Float())
	}
	for _, b := range brightness {
		if b.value == nil {
			return nil, &MissingFieldError{Field: "SmartLightSystem." + b.name}
		}
		vec = append(vec, *b.value)
	}

	var motion float64
	if g != nil {
		motion = g.MotionDetected.Float()
	}
	return append(vec, motion), nil
}

// TotalPower returns SystemOverview.total_power_mW
func TotalPower(s *models.SensorSnapshot) (float64, error) {
	if s.Overview == nil {
		return 0, &MissingFieldError{Field: "SystemOverview"}
	}
	if s.Overview.TotalPowerMW == nil {
		return 0, &MissingFieldError{Field: "SystemOverview.total_power_mW"}
	}
	return *s.Overview.TotalPowerMW, nil
}
