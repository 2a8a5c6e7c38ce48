package configuration

import (
	"os"
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	Bmc        BmcConfig        `json:"bmc"`
	Controller ControllerConfig `json:"controller"`
	Curve      CurveConfig      `json:"curve"`
	Sensors    []string         `json:"sensors"`
	Mqtt       MqttConfig       `json:"mqtt"`
	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("bmcfanctl")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/bmcfanctl/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("bmc.timeout", 10*time.Second)

	viper.SetDefault("controller.pollInterval", 1500*time.Millisecond)
	viper.SetDefault("controller.hysteresis", 2)
	viper.SetDefault("controller.minDuty", 12)
	viper.SetDefault("controller.failsafeDuty", 100)
	viper.SetDefault("controller.failureThreshold", 3)
	viper.SetDefault("controller.maxDutyIncreasePerSecond", 0.34)
	viper.SetDefault("controller.tempRollingWindowSize", 10)
	viper.SetDefault("controller.emergencyTemp", 90)
	viper.SetDefault("controller.emergencyDuration", 5*time.Minute)

	viper.SetDefault("curve.points", map[int]int{
		0:  12,
		40: 12,
		50: 14,
		60: 17,
		70: 21,
		75: 24,
		80: 27,
		85: 30,
	})
	// higher speeds are acceptable during quiet hours
	viper.SetDefault("curve.nightPoints", map[int]int{
		0:  12,
		40: 12,
		50: 18,
		60: 25,
		70: 33,
		75: 39,
		80: 45,
		85: 50,
	})
	viper.SetDefault("curve.nightStart", "01:30")
	viper.SetDefault("curve.nightEnd", "07:00")

	viper.SetDefault("sensors", []string{})

	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.namespace", "bmcfanctl")
	viper.SetDefault("mqtt.discoveryPrefix", "homeassistant")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
}

// DetectConfigFile returns the path of the configuration file that viper
// will use, failing hard when none can be found.
func DetectConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		// config file is required, so we fail here
		ui.Fatal("Error reading config file, %s", err)
	}
	// this is only populated _after_ ReadInConfig()
	return viper.ConfigFileUsed()
}

func DetectAndReadConfigFile() string {
	path := DetectConfigFile()
	LoadConfig()
	return path
}

func LoadConfig() {
	err := viper.Unmarshal(
		&CurrentConfig,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			curvePointsHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
	)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}

	if CurrentConfig.Mqtt.Device == "" {
		CurrentConfig.Mqtt.Device = DeviceId(CurrentConfig.Bmc.Host)
	}
}
