package configuration

import "time"

type ControllerConfig struct {
	// PollInterval is the time between two control loop ticks.
	PollInterval time.Duration `json:"pollInterval"`
	// Hysteresis suppresses duty changes smaller than this delta (in percent points).
	Hysteresis int `json:"hysteresis"`
	// MinDuty is the lowest nonzero duty cycle at which the fans still spin reliably.
	MinDuty int `json:"minDuty"`
	// FailsafeDuty is applied after FailureThreshold consecutive poll failures.
	// A value of 0 disables the fail-safe escalation.
	FailsafeDuty     int `json:"failsafeDuty"`
	FailureThreshold int `json:"failureThreshold"`
	// MaxDutyIncreasePerSecond limits how fast the duty cycle may ramp up.
	// Ramping down is always immediate. A value of 0 disables the limit.
	MaxDutyIncreasePerSecond float64 `json:"maxDutyIncreasePerSecond"`
	// TempRollingWindowSize is the number of samples in the temperature smoothing window.
	TempRollingWindowSize int `json:"tempRollingWindowSize"`
	// EmergencyTemp forces 100% duty after the highest monitored temperature
	// stayed at or above this value for EmergencyDuration.
	EmergencyTemp     float64       `json:"emergencyTemp"`
	EmergencyDuration time.Duration `json:"emergencyDuration"`
}
