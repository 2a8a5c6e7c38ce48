package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// autoPayload on the command topic clears the override and returns control
// to the fan curve.
const autoPayload = "auto"

// Command is the parsed form of a message received on the duty command topic.
type Command struct {
	Duty  int
	Clear bool
}

func parseCommand(payload string) (Command, error) {
	trimmed := strings.TrimSpace(payload)
	if strings.EqualFold(trimmed, autoPayload) {
		return Command{Clear: true}, nil
	}

	duty, err := strconv.Atoi(trimmed)
	if err != nil {
		return Command{}, fmt.Errorf("invalid duty payload %q, expected an integer or %q", payload, autoPayload)
	}
	if duty < 0 || duty > 100 {
		return Command{}, fmt.Errorf("duty %d out of range [0..100]", duty)
	}
	return Command{Duty: duty}, nil
}

func sensorTopic(namespace string, device string, sensorId string) string {
	return fmt.Sprintf("%s/%s/%s", namespace, device, sensorId)
}

func dutyTopic(namespace string, device string) string {
	return fmt.Sprintf("%s/%s/duty", namespace, device)
}

func stateTopic(namespace string, device string) string {
	return fmt.Sprintf("%s/%s/state", namespace, device)
}

func commandTopic(namespace string, device string) string {
	return fmt.Sprintf("%s/%s/duty/set", namespace, device)
}
