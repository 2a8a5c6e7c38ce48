package bmc

import "time"

type SensorKind string

const (
	KindTemperature SensorKind = "temperature"
	KindFanRpm      SensorKind = "fan_rpm"
	KindPower       SensorKind = "power"
)

// SensorReading is an immutable snapshot of a single BMC sensor,
// produced fresh on every poll.
type SensorReading struct {
	ID    string     `json:"id"`
	Kind  SensorKind `json:"kind"`
	Value float64    `json:"value"`
	Time  time.Time  `json:"time"`
}

// MaxTemperature returns the highest temperature among the readings whose ID
// is contained in monitored. An empty monitored list matches all temperature
// sensors. The second return value is false when no reading matched.
func MaxTemperature(readings []SensorReading, monitored []string) (float64, bool) {
	monitoredSet := map[string]bool{}
	for _, id := range monitored {
		monitoredSet[id] = true
	}

	maxTemp := 0.0
	found := false
	for _, reading := range readings {
		if reading.Kind != KindTemperature {
			continue
		}
		if len(monitoredSet) > 0 && !monitoredSet[reading.ID] {
			continue
		}
		if !found || reading.Value > maxTemp {
			maxTemp = reading.Value
			found = true
		}
	}
	return maxTemp, found
}
