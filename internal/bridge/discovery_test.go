package bridge

import (
	"encoding/json"
	"testing"

	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/stretchr/testify/assert"
)

func discoveryTestConfig() configuration.MqttConfig {
	return configuration.MqttConfig{
		Broker:          "broker.local",
		Port:            1883,
		Namespace:       "bmcfanctl",
		Device:          "server_192_168_0_2",
		DiscoveryPrefix: "homeassistant",
	}
}

func TestDiscoveryMessages(t *testing.T) {
	// GIVEN
	config := discoveryTestConfig()
	readings := []bmc.SensorReading{
		{ID: "CPU0_Temp", Kind: bmc.KindTemperature, Value: 45},
		{ID: "FAN1_RPM", Kind: bmc.KindFanRpm, Value: 3600},
		{ID: "Total_Power", Kind: bmc.KindPower, Value: 180},
	}

	// WHEN
	messages, err := discoveryMessages(config, readings)

	// THEN the aggregate entities plus one entity per temperature and fan
	// reading are announced, power readings stay aggregate-only
	assert.NoError(t, err)
	topics := make([]string, 0, len(messages))
	for _, message := range messages {
		topics = append(topics, message.topic)
	}
	assert.Equal(t, []string{
		"homeassistant/sensor/server_192_168_0_2_temperature/config",
		"homeassistant/sensor/server_192_168_0_2_power/config",
		"homeassistant/sensor/server_192_168_0_2_duty/config",
		"homeassistant/sensor/server_192_168_0_2_mode/config",
		"homeassistant/number/server_192_168_0_2_duty_set/config",
		"homeassistant/sensor/server_192_168_0_2_cpu0_temp/config",
		"homeassistant/sensor/server_192_168_0_2_fan1_rpm/config",
	}, topics)
}

func TestDiscoveryTemperatureEntity(t *testing.T) {
	// GIVEN
	config := discoveryTestConfig()

	// WHEN
	messages, err := discoveryMessages(config, []bmc.SensorReading{
		{ID: "CPU0_Temp", Kind: bmc.KindTemperature, Value: 45},
	})
	assert.NoError(t, err)

	// THEN the per-sensor entity points at the plain sensor topic
	var entityConfig sensorDiscoveryConfig
	assert.NoError(t, json.Unmarshal(messages[len(messages)-1].payload, &entityConfig))
	assert.Equal(t, "Server CPU0 Temp", entityConfig.Name)
	assert.Equal(t, "server_192_168_0_2_cpu0_temp", entityConfig.UniqueId)
	assert.Equal(t, "bmcfanctl/server_192_168_0_2/CPU0_Temp", entityConfig.StateTopic)
	assert.Equal(t, "°C", entityConfig.UnitOfMeasurement)
	assert.Equal(t, "temperature", entityConfig.DeviceClass)
	assert.Equal(t, []string{"server_192_168_0_2"}, entityConfig.Device.Identifiers)
}

func TestDiscoveryNumberEntity(t *testing.T) {
	// GIVEN
	config := discoveryTestConfig()

	// WHEN
	messages, err := discoveryMessages(config, nil)
	assert.NoError(t, err)

	// THEN the duty control entity binds the command topic
	var entityConfig numberDiscoveryConfig
	assert.NoError(t, json.Unmarshal(messages[4].payload, &entityConfig))
	assert.Equal(t, "bmcfanctl/server_192_168_0_2/duty/set", entityConfig.CommandTopic)
	assert.Equal(t, "bmcfanctl/server_192_168_0_2/state", entityConfig.StateTopic)
	assert.Equal(t, "{{ value_json.duty }}", entityConfig.ValueTemplate)
	assert.Equal(t, 0, entityConfig.Min)
	assert.Equal(t, 100, entityConfig.Max)
	assert.Equal(t, 1, entityConfig.Step)
}
