package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

const publishTimeout = 1 * time.Second

// MqttBridge republishes controller state to an MQTT broker and feeds
// override commands from the command topic back into the controller.
// All publishing is best-effort: when the broker is unreachable, messages
// for the current tick are dropped and the next tick tries again.
type MqttBridge struct {
	config        configuration.MqttConfig
	fanController controller.FanController

	// conn is written by Run and read by PublishState from the control
	// loop goroutine
	conn atomic.Pointer[autopaho.ConnectionManager]
}

func NewMqttBridge(config configuration.MqttConfig) *MqttBridge {
	return &MqttBridge{
		config: config,
	}
}

// Attach wires the bridge to the controller receiving override commands.
// Must be called before Run.
func (b *MqttBridge) Attach(fanController controller.FanController) {
	b.fanController = fanController
}

// Run connects to the broker and keeps the connection alive until the
// context is cancelled. Connection loss is handled by autopaho, the bridge
// simply skips publishing while disconnected.
func (b *MqttBridge) Run(ctx context.Context) error {
	brokerUrl, err := url.Parse(fmt.Sprintf("mqtt://%s:%d", b.config.Broker, b.config.Port))
	if err != nil {
		return fmt.Errorf("invalid broker address: %w", err)
	}

	clientConfig := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerUrl},
		KeepAlive:                     60,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			ui.Info("Connected to MQTT broker at %s", brokerUrl.Host)
			_, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: commandTopic(b.config.Namespace, b.config.Device), QoS: 0},
				},
			})
			if err != nil {
				ui.Warning("Failed to subscribe to command topic: %v", err)
			}
			if len(b.config.DiscoveryPrefix) > 0 {
				b.publishDiscovery(ctx, cm)
			}
		},
		OnConnectError: func(err error) {
			ui.Warning("MQTT connection error: %v", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: b.config.Device,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				b.onMessage,
			},
			OnClientError: func(err error) {
				ui.Warning("MQTT client error: %v", err)
			},
			OnServerDisconnect: func(disconnect *paho.Disconnect) {
				ui.Warning("MQTT server requested disconnect (reason code %d)", disconnect.ReasonCode)
			},
		},
	}
	if len(b.config.Username) > 0 {
		clientConfig.ConnectUsername = b.config.Username
		clientConfig.ConnectPassword = []byte(b.config.Password)
	}

	conn, err := autopaho.NewConnection(ctx, clientConfig)
	if err != nil {
		return err
	}
	b.conn.Store(conn)

	<-ctx.Done()
	ui.Info("Disconnecting from MQTT broker...")
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()
	return conn.Disconnect(timeoutCtx)
}

// PublishState implements controller.Publisher.
func (b *MqttBridge) PublishState(readings []bmc.SensorReading, duty int, mode string) {
	conn := b.conn.Load()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	// fail fast while the broker is unreachable, telemetry is ephemeral
	if err := conn.AwaitConnection(ctx); err != nil {
		ui.Debug("MQTT broker not connected, skipping telemetry for this tick")
		return
	}

	namespace := b.config.Namespace
	device := b.config.Device

	for _, reading := range readings {
		b.publish(ctx, conn, sensorTopic(namespace, device, reading.ID), formatValue(reading.Value), false)
	}
	b.publish(ctx, conn, dutyTopic(namespace, device), strconv.Itoa(duty), false)

	state := map[string]interface{}{
		"temperature": math.Round(b.fanController.Snapshot().MaxTemperature*10) / 10,
		"power":       math.Round(totalPower(readings)),
		"duty":        duty,
		"mode":        mode,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		ui.Warning("Failed to encode state message: %v", err)
		return
	}
	b.publish(ctx, conn, stateTopic(namespace, device), string(payload), true)
}

func (b *MqttBridge) publish(ctx context.Context, conn *autopaho.ConnectionManager, topic string, payload string, retain bool) {
	_, err := conn.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: []byte(payload),
		QoS:     0,
		Retain:  retain,
	})
	if err != nil {
		ui.Debug("Failed to publish to %s: %v", topic, err)
	}
}

func (b *MqttBridge) onMessage(received paho.PublishReceived) (bool, error) {
	if received.Packet.Topic != commandTopic(b.config.Namespace, b.config.Device) {
		return false, nil
	}

	command, err := parseCommand(string(received.Packet.Payload))
	if err != nil {
		ui.Warning("Ignoring malformed override command: %v", err)
		return true, nil
	}

	if command.Clear {
		b.fanController.ClearOverride()
	} else {
		b.fanController.SetOverride(command.Duty)
	}
	return true, nil
}

func formatValue(value float64) string {
	return strconv.FormatFloat(math.Round(value*10)/10, 'f', -1, 64)
}

func totalPower(readings []bmc.SensorReading) float64 {
	for _, reading := range readings {
		if reading.Kind == bmc.KindPower {
			return reading.Value
		}
	}
	return 0
}
