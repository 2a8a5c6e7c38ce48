package bmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
)

const csrfHeader = "X-CSRFTOKEN"

// Client talks to the undocumented web interface of the BMC. Every call
// performs exactly one network round trip, retry policy is left to the caller.
type Client interface {
	// Login authenticates against the BMC and stores the session token.
	// It is idempotent and doubles as re-authentication after a
	// SessionExpiredError.
	Login(ctx context.Context) error

	// Sensors fetches a snapshot of all known sensor readings.
	Sensors(ctx context.Context) ([]SensorReading, error)

	// SetDuty sets the duty cycle of all fans simultaneously.
	SetDuty(ctx context.Context, duty int) error
}

type webClient struct {
	baseUrl  string
	username string
	password string

	// csrfToken is only written by Login and read by the control goroutine,
	// never concurrently.
	csrfToken string

	client *http.Client
}

func NewClient(config configuration.BmcConfig) Client {
	// session cookie storage, the BMC pairs it with the CSRF token
	jar, _ := cookiejar.New(nil)

	return &webClient{
		baseUrl:  "http://" + config.Host + "/api",
		username: config.Username,
		password: config.Password,
		client: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
	}
}

func (c *webClient) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/session", strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Reason: "building login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.client.Do(req)
	if err != nil {
		return &TransientIOError{Op: "login", Err: err}
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return &AuthError{Reason: fmt.Sprintf("unexpected status %d", response.StatusCode)}
	}

	var result struct {
		CSRFToken string `json:"CSRFToken"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return &AuthError{Reason: "decoding login response", Err: err}
	}
	if len(result.CSRFToken) <= 0 {
		return &AuthError{Reason: "login response did not contain a CSRF token"}
	}

	c.csrfToken = result.CSRFToken
	ui.Debug("Logged in to BMC at %s", c.baseUrl)
	return nil
}

func (c *webClient) Sensors(ctx context.Context) ([]SensorReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"/sensors", nil)
	if err != nil {
		return nil, &TransientIOError{Op: "building sensors request", Err: err}
	}
	req.Header.Set(csrfHeader, c.csrfToken)

	response, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientIOError{Op: "reading sensors", Err: err}
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return nil, &SessionExpiredError{StatusCode: response.StatusCode}
	}
	if response.StatusCode != http.StatusOK {
		return nil, &TransientIOError{Op: "reading sensors", Err: fmt.Errorf("unexpected status %d", response.StatusCode)}
	}

	var raw []struct {
		Name    string  `json:"name"`
		Type    string  `json:"type"`
		Reading float64 `json:"reading"`
	}
	if err := json.NewDecoder(response.Body).Decode(&raw); err != nil {
		return nil, &TransientIOError{Op: "decoding sensors", Err: err}
	}

	now := time.Now()
	readings := make([]SensorReading, 0, len(raw))
	for _, sensor := range raw {
		kind, ok := mapSensorKind(sensor.Name, sensor.Type)
		if !ok {
			continue
		}
		readings = append(readings, SensorReading{
			ID:    sensor.Name,
			Kind:  kind,
			Value: sensor.Reading,
			Time:  now,
		})
	}
	return readings, nil
}

func (c *webClient) SetDuty(ctx context.Context, duty int) error {
	body, err := json.Marshal(map[string]int{"duty": duty})
	if err != nil {
		return &TransientIOError{Op: "encoding duty", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseUrl+"/settings/fan", bytes.NewReader(body))
	if err != nil {
		return &TransientIOError{Op: "building duty request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, c.csrfToken)

	response, err := c.client.Do(req)
	if err != nil {
		return &TransientIOError{Op: "setting duty", Err: err}
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return &SessionExpiredError{StatusCode: response.StatusCode}
	}
	if response.StatusCode != http.StatusOK {
		return &TransientIOError{Op: "setting duty", Err: fmt.Errorf("unexpected status %d", response.StatusCode)}
	}

	return nil
}

// mapSensorKind translates the sensor type naming of the BMC into the
// sensor kinds known to the controller. Sensors of any other type are
// not relevant for fan control or telemetry and are dropped.
func mapSensorKind(name string, bmcType string) (SensorKind, bool) {
	switch {
	case bmcType == "temperature":
		return KindTemperature, true
	case bmcType == "fan" && strings.Contains(name, "RPM"):
		return KindFanRpm, true
	case name == "Total_Power":
		return KindPower, true
	}
	return "", false
}
