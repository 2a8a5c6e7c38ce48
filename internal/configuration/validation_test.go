package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Configuration {
	return Configuration{
		Bmc: BmcConfig{
			Host:     "192.168.0.2",
			Username: "admin",
			Password: "admin",
			Timeout:  10 * time.Second,
		},
		Controller: ControllerConfig{
			PollInterval:          1500 * time.Millisecond,
			Hysteresis:            2,
			MinDuty:               12,
			FailsafeDuty:          100,
			FailureThreshold:      3,
			TempRollingWindowSize: 10,
		},
		Curve: CurveConfig{
			Points: map[int]int{
				40: 12,
				85: 30,
			},
		},
		Sensors: []string{"CPU0_Temp"},
	}
}

func TestValidateValidConfig(t *testing.T) {
	// GIVEN
	config := validConfig()

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.NoError(t, err)
}

func TestValidateMissingHost(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Bmc.Host = ""

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Bmc: missing host")
}

func TestValidateMissingCredentials(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Bmc.Password = ""

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Bmc: missing credentials")
}

func TestValidateMissingTimeout(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Bmc.Timeout = 0

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Bmc: timeout must be > 0")
}

func TestValidateInvalidPollInterval(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Controller.PollInterval = 0

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Controller: pollInterval must be > 0")
}

func TestValidateEmptyCurve(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Curve.Points = map[int]int{}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Curve: points must contain at least one breakpoint")
}

func TestValidateCurveDutyOutOfRange(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Curve.Points = map[int]int{
		40: 12,
		85: 130,
	}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Curve: points: duty 130 at 85°C out of range [0..100]")
}

func TestValidateCurveNotMonotone(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Curve.Points = map[int]int{
		40: 30,
		85: 12,
	}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Curve: points: duty must be non-decreasing, 85°C -> 12 breaks monotonicity")
}

func TestValidateNightWindow(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Curve.NightPoints = map[int]int{
		40: 12,
		85: 50,
	}
	config.Curve.NightStart = "1:30am"
	config.Curve.NightEnd = "07:00"

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nightStart")
}

func TestValidateMqttPort(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Mqtt = MqttConfig{
		Broker:    "broker.local",
		Port:      123456,
		Namespace: "bmcfanctl",
		Device:    DeviceId(config.Bmc.Host),
	}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.EqualError(t, err, "Mqtt: invalid port 123456")
}

func TestDeviceId(t *testing.T) {
	// WHEN
	id := DeviceId("192.168.0.2")

	// THEN
	assert.Equal(t, "server_192_168_0_2", id)
}
