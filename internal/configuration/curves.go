package configuration

type CurveConfig struct {
	// Points maps a temperature (°C) to a target duty cycle (percent).
	Points map[int]int `json:"points"`
	// NightPoints is an alternative point set used during the night window,
	// typically allowing higher fan speeds during quiet hours.
	NightPoints map[int]int `json:"nightPoints"`
	// NightStart and NightEnd delimit the night window in "HH:MM" notation.
	NightStart string `json:"nightStart"`
	NightEnd   string `json:"nightEnd"`
}
