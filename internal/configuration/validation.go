package configuration

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bmcfanctl/bmcfanctl/internal/util"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if err := validateBmc(config); err != nil {
		return err
	}
	if err := validateController(config); err != nil {
		return err
	}
	if err := validateCurve(config); err != nil {
		return err
	}
	return validateMqtt(config)
}

func validateBmc(config *Configuration) error {
	bmc := config.Bmc
	if len(bmc.Host) <= 0 {
		return errors.New("Bmc: missing host")
	}
	if len(bmc.Username) <= 0 || len(bmc.Password) <= 0 {
		return errors.New("Bmc: missing credentials")
	}
	if bmc.Timeout <= 0 {
		return errors.New("Bmc: timeout must be > 0")
	}
	return nil
}

func validateController(config *Configuration) error {
	controller := config.Controller
	if controller.PollInterval <= 0 {
		return errors.New("Controller: pollInterval must be > 0")
	}
	if controller.Hysteresis < 0 {
		return errors.New("Controller: hysteresis must be >= 0")
	}
	if controller.MinDuty < 0 || controller.MinDuty > 100 {
		return fmt.Errorf("Controller: minDuty %d out of range [0..100]", controller.MinDuty)
	}
	if controller.FailsafeDuty < 0 || controller.FailsafeDuty > 100 {
		return fmt.Errorf("Controller: failsafeDuty %d out of range [0..100]", controller.FailsafeDuty)
	}
	if controller.FailureThreshold < 1 {
		return errors.New("Controller: failureThreshold must be >= 1")
	}
	if controller.MaxDutyIncreasePerSecond < 0 {
		return errors.New("Controller: maxDutyIncreasePerSecond must be >= 0")
	}
	if controller.TempRollingWindowSize < 1 {
		return errors.New("Controller: tempRollingWindowSize must be >= 1")
	}
	if controller.EmergencyDuration < 0 {
		return errors.New("Controller: emergencyDuration must be >= 0")
	}
	return nil
}

func validateCurve(config *Configuration) error {
	curve := config.Curve
	if err := validatePoints("points", curve.Points); err != nil {
		return err
	}
	if curve.NightPoints != nil {
		if err := validatePoints("nightPoints", curve.NightPoints); err != nil {
			return err
		}
		if _, err := util.ParseClock(curve.NightStart); err != nil {
			return fmt.Errorf("Curve: nightStart: %v", err)
		}
		if _, err := util.ParseClock(curve.NightEnd); err != nil {
			return fmt.Errorf("Curve: nightEnd: %v", err)
		}
	}
	return nil
}

func validatePoints(name string, points map[int]int) error {
	if len(points) <= 0 {
		return fmt.Errorf("Curve: %s must contain at least one breakpoint", name)
	}

	temps := make([]int, 0, len(points))
	for temp := range points {
		temps = append(temps, temp)
	}
	sort.Ints(temps)

	lastDuty := -1
	for _, temp := range temps {
		duty := points[temp]
		if duty < 0 || duty > 100 {
			return fmt.Errorf("Curve: %s: duty %d at %d°C out of range [0..100]", name, duty, temp)
		}
		if duty < lastDuty {
			return fmt.Errorf("Curve: %s: duty must be non-decreasing, %d°C -> %d breaks monotonicity", name, temp, duty)
		}
		lastDuty = duty
	}
	return nil
}

func validateMqtt(config *Configuration) error {
	mqtt := config.Mqtt
	if len(mqtt.Broker) <= 0 {
		// bridge disabled
		return nil
	}
	if mqtt.Port <= 0 || mqtt.Port > 65535 {
		return fmt.Errorf("Mqtt: invalid port %d", mqtt.Port)
	}
	if len(mqtt.Namespace) <= 0 {
		return errors.New("Mqtt: missing namespace")
	}
	if len(mqtt.Device) <= 0 {
		return errors.New("Mqtt: missing device")
	}
	return nil
}
