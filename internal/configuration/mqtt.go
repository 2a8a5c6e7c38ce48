package configuration

import "strings"

type MqttConfig struct {
	// Broker is the address of the MQTT broker. An empty value disables the bridge.
	Broker   string `json:"broker"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Namespace is the first segment of every topic published by the bridge.
	Namespace string `json:"namespace"`
	// Device identifies this controller in the topic hierarchy.
	// Defaults to an identifier derived from the BMC host.
	Device string `json:"device"`
	// DiscoveryPrefix is the Home Assistant MQTT discovery prefix.
	// An empty value disables discovery.
	DiscoveryPrefix string `json:"discoveryPrefix"`
}

// DeviceId derives a topic-safe device identifier from a BMC host address.
func DeviceId(host string) string {
	replacer := strings.NewReplacer(".", "_", ":", "_", "/", "_")
	return "server_" + replacer.Replace(host)
}
