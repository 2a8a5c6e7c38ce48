package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/eclipse/paho.golang/autopaho"
)

// Home Assistant MQTT discovery. On every connection-up the bridge
// announces its entities as retained config messages under the
// configured discovery prefix, so a fresh Home Assistant instance picks
// up the controller without manual configuration.

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SwVersion    string   `json:"sw_version"`
}

type sensorDiscoveryConfig struct {
	Name              string          `json:"name"`
	UniqueId          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	ValueTemplate     string          `json:"value_template,omitempty"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	DeviceClass       string          `json:"device_class,omitempty"`
	Icon              string          `json:"icon,omitempty"`
	Device            discoveryDevice `json:"device"`
}

type numberDiscoveryConfig struct {
	Name              string          `json:"name"`
	UniqueId          string          `json:"unique_id"`
	CommandTopic      string          `json:"command_topic"`
	StateTopic        string          `json:"state_topic"`
	ValueTemplate     string          `json:"value_template"`
	Min               int             `json:"min"`
	Max               int             `json:"max"`
	Step              int             `json:"step"`
	UnitOfMeasurement string          `json:"unit_of_measurement"`
	Icon              string          `json:"icon"`
	Device            discoveryDevice `json:"device"`
}

type discoveryMessage struct {
	topic   string
	payload []byte
}

func discoveryTopic(prefix string, component string, objectId string) string {
	return fmt.Sprintf("%s/%s/%s/config", prefix, component, objectId)
}

// discoveryMessages assembles the retained config messages for all
// entities this controller exposes: the aggregate state fields, a
// per-sensor entity for every known temperature and fan reading, and a
// number entity bound to the duty command topic.
func discoveryMessages(config configuration.MqttConfig, readings []bmc.SensorReading) ([]discoveryMessage, error) {
	prefix := config.DiscoveryPrefix
	device := config.Device
	state := stateTopic(config.Namespace, device)

	deviceInfo := discoveryDevice{
		Identifiers:  []string{device},
		Name:         fmt.Sprintf("BMC Fan Controller (%s)", device),
		Manufacturer: "bmcfanctl",
		Model:        "BMC Fan Controller",
		SwVersion:    "0.1.0",
	}

	type entity struct {
		topic  string
		config interface{}
	}
	entities := []entity{
		{
			topic: discoveryTopic(prefix, "sensor", device+"_temperature"),
			config: sensorDiscoveryConfig{
				Name:              "Server Temperature (Max)",
				UniqueId:          device + "_temperature",
				StateTopic:        state,
				ValueTemplate:     "{{ value_json.temperature }}",
				UnitOfMeasurement: "°C",
				DeviceClass:       "temperature",
				Device:            deviceInfo,
			},
		},
		{
			topic: discoveryTopic(prefix, "sensor", device+"_power"),
			config: sensorDiscoveryConfig{
				Name:              "Server Power",
				UniqueId:          device + "_power",
				StateTopic:        state,
				ValueTemplate:     "{{ value_json.power }}",
				UnitOfMeasurement: "W",
				DeviceClass:       "power",
				Device:            deviceInfo,
			},
		},
		{
			topic: discoveryTopic(prefix, "sensor", device+"_duty"),
			config: sensorDiscoveryConfig{
				Name:              "Server Fan Duty Cycle",
				UniqueId:          device + "_duty",
				StateTopic:        state,
				ValueTemplate:     "{{ value_json.duty }}",
				UnitOfMeasurement: "%",
				Icon:              "mdi:fan",
				Device:            deviceInfo,
			},
		},
		{
			topic: discoveryTopic(prefix, "sensor", device+"_mode"),
			config: sensorDiscoveryConfig{
				Name:              "Server Fan Mode",
				UniqueId:          device + "_mode",
				StateTopic:        state,
				ValueTemplate:     "{{ value_json.mode }}",
				Icon:              "mdi:cog",
				Device:            deviceInfo,
			},
		},
		{
			topic: discoveryTopic(prefix, "number", device+"_duty_set"),
			config: numberDiscoveryConfig{
				Name:              "Server Fan Speed Control",
				UniqueId:          device + "_duty_set",
				CommandTopic:      commandTopic(config.Namespace, device),
				StateTopic:        state,
				ValueTemplate:     "{{ value_json.duty }}",
				Min:               0,
				Max:               100,
				Step:              1,
				UnitOfMeasurement: "%",
				Icon:              "mdi:fan",
				Device:            deviceInfo,
			},
		},
	}

	for _, reading := range readings {
		entityConfig, ok := readingDiscoveryConfig(config, deviceInfo, reading)
		if !ok {
			continue
		}
		entities = append(entities, entity{
			topic:  discoveryTopic(prefix, "sensor", entityConfig.UniqueId),
			config: entityConfig,
		})
	}

	messages := make([]discoveryMessage, 0, len(entities))
	for _, e := range entities {
		payload, err := json.Marshal(e.config)
		if err != nil {
			return nil, fmt.Errorf("encoding discovery config for %s: %w", e.topic, err)
		}
		messages = append(messages, discoveryMessage{topic: e.topic, payload: payload})
	}
	return messages, nil
}

// readingDiscoveryConfig maps a sensor reading onto a discovery entity.
// Only temperature and fan readings get their own entity, power is
// already part of the aggregate state.
func readingDiscoveryConfig(config configuration.MqttConfig, deviceInfo discoveryDevice, reading bmc.SensorReading) (sensorDiscoveryConfig, bool) {
	friendlyName := strings.ReplaceAll(reading.ID, "_", " ")
	entityConfig := sensorDiscoveryConfig{
		Name:       "Server " + friendlyName,
		UniqueId:   config.Device + "_" + strings.ToLower(reading.ID),
		StateTopic: sensorTopic(config.Namespace, config.Device, reading.ID),
		Device:     deviceInfo,
	}

	switch reading.Kind {
	case bmc.KindTemperature:
		entityConfig.UnitOfMeasurement = "°C"
		entityConfig.DeviceClass = "temperature"
	case bmc.KindFanRpm:
		entityConfig.UnitOfMeasurement = "RPM"
		entityConfig.Icon = "mdi:fan"
	default:
		return sensorDiscoveryConfig{}, false
	}
	return entityConfig, true
}

func (b *MqttBridge) publishDiscovery(ctx context.Context, conn *autopaho.ConnectionManager) {
	messages, err := discoveryMessages(b.config, b.fanController.Readings())
	if err != nil {
		ui.Warning("Failed to build discovery messages: %v", err)
		return
	}

	for _, message := range messages {
		b.publish(ctx, conn, message.topic, string(message.payload), true)
	}
	ui.Info("Published %d Home Assistant discovery messages", len(messages))
}
