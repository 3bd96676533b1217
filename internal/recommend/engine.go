// Package recommend turns model scores and snapshot context into advisory text.
package recommend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// Separator joins advisories in the response
const Separator = " | "

// Advisory texts, in evaluation order
const (
	AdvisoryFireRisk         = "🔥 High fire risk detected – please monitor immediately."
	AdvisoryDaytimeOverload  = "Room lights during daytime may push total power (%.0f mW) above limit (%s)."
	AdvisoryIdleGarage       = "Garage system has been idle for a while. Consider turning it off."
	AdvisoryUnneededActivity = "Power usage is high but no motion detected. System may be unnecessarily active."
	AdvisoryLateNight        = "It's late and no one is in the kitchen (room 3). Consider turning selected appliances off."
	AdvisoryTrendPending     = "Trend analysis over the last 7 days not yet implemented."
)

// Rule thresholds
const (
	FireRiskThreshold   = 0.4
	IdleOccupancyLimit  = 0.2
	LateOccupancyLimit  = 0.5
	DaytimeStartHour    = 6
	DaytimeEndHour      = 18
	LateNightStartHour  = 22 // exclusive
	EarlyMorningEndHour = 6  // exclusive
)

// Input is everything the rules look at
type Input struct {
	FireProbability float64
	OccupancyScore  float64
	TotalPower      float64
	Threshold       *float64 // nil when not configured
	ThresholdFloat  bool     // threshold was written as a float, e.g. 50.0
	MotionDetected  bool
	GarageOn        bool
	Light3On        bool
}

// InputFromSnapshot collects rule inputs from the scores and the snapshot
func InputFromSnapshot(s *models.SensorSnapshot, fireProbability, occupancyScore, totalPower float64) Input {
	in := Input{
		FireProbability: fireProbability,
		OccupancyScore:  occupancyScore,
		TotalPower:      totalPower,
	}
	if t := s.Threshold(); t != nil {
		in.Threshold = &t.Value
		in.ThresholdFloat = !t.Integral
	}
	if s.Garage != nil {
		in.MotionDetected = s.Garage.MotionDetected.On()
		in.GarageOn = s.Garage.IsOn.On()
	}
	if s.Lights != nil {
		in.Light3On = s.Lights.Light3Status.On()
	}
	return in
}

// Evaluate applies every rule in order. All matching rules fire and the
// trend placeholder is always last. It depends only on its arguments.
func Evaluate(in Input, hour int) []string {
	var recs []string

	if in.FireProbability > FireRiskThreshold {
		recs = append(recs, AdvisoryFireRisk)
	}

	// A zero threshold counts as unset
	threshold := 0.0
	if in.Threshold != nil {
		threshold = *in.Threshold
	}

	if threshold != 0 && hour >= DaytimeStartHour && hour <= DaytimeEndHour && in.TotalPower > threshold {
		recs = append(recs, fmt.Sprintf(AdvisoryDaytimeOverload, in.TotalPower, formatThreshold(threshold, in.ThresholdFloat)))
	}

	if !in.MotionDetected && in.GarageOn {
		recs = append(recs, AdvisoryIdleGarage)
	}

	if in.OccupancyScore < IdleOccupancyLimit && in.TotalPower > threshold {
		recs = append(recs, AdvisoryUnneededActivity)
	}

	if (hour < EarlyMorningEndHour || hour > LateNightStartHour) && in.OccupancyScore < LateOccupancyLimit && in.Light3On {
		recs = append(recs, AdvisoryLateNight)
	}

	return append(recs, AdvisoryTrendPending)
}

// Recommend joins Evaluate's advisories with Separator
func Recommend(in Input, hour int) string {
	return strings.Join(Evaluate(in, hour), Separator)
}

// formatThreshold prints an integral threshold as written. A float threshold always
// keeps a fractional part and switches to exponent form outside [1e-4, 1e16).
func formatThreshold(v float64, asFloat bool) string {
	if !asFloat {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Engine evaluates rules against an injected clock
type Engine struct {
	now      func() time.Time
	location *time.Location
}

// NewEngine creates an engine. A nil clock means time.Now, a nil location means time.Local.
func NewEngine(now func() time.Time, location *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &Engine{now: now, location: location}
}

// Hour returns the current hour of day in the engine's location
func (e *Engine) Hour() int {
	return e.now().In(e.location).Hour()
}

// Recommend evaluates the rules at the current hour
func (e *Engine) Recommend(in Input) string {
	return Recommend(in, e.Hour())
}
