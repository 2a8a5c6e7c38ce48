package configuration

import "time"

type BmcConfig struct {
	// Host is the address of the BMC web interface, without scheme.
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Timeout bounds every single HTTP round trip to the BMC.
	Timeout time.Duration `json:"timeout"`
}
