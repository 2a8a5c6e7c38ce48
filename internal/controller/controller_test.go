package controller

import (
	"context"
	"testing"
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/curves"
	"github.com/stretchr/testify/assert"
)

type mockClient struct {
	loginCalls  int
	loginErr    error
	sensorCalls int
	sensorsErr  error
	readings    []bmc.SensorReading
	setDutyErr  error
	dutyCalls   []int
}

func (m *mockClient) Login(ctx context.Context) error {
	m.loginCalls++
	return m.loginErr
}

func (m *mockClient) Sensors(ctx context.Context) ([]bmc.SensorReading, error) {
	m.sensorCalls++
	if m.sensorsErr != nil {
		return nil, m.sensorsErr
	}
	return m.readings, nil
}

func (m *mockClient) SetDuty(ctx context.Context, duty int) error {
	if m.setDutyErr != nil {
		return m.setDutyErr
	}
	m.dutyCalls = append(m.dutyCalls, duty)
	return nil
}

type mockPublisher struct {
	duties []int
	modes  []string
}

func (m *mockPublisher) PublishState(readings []bmc.SensorReading, duty int, mode string) {
	m.duties = append(m.duties, duty)
	m.modes = append(m.modes, mode)
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func tempReadings(temp float64) []bmc.SensorReading {
	return []bmc.SensorReading{
		{ID: "CPU0_Temp", Kind: bmc.KindTemperature, Value: temp},
		{ID: "FAN1_RPM", Kind: bmc.KindFanRpm, Value: 3600},
	}
}

func newTestController(t *testing.T, client *mockClient, publisher *mockPublisher) (*fanController, *fakeClock) {
	curveConfig := configuration.CurveConfig{
		Points: map[int]int{
			30: 10,
			50: 30,
			70: 60,
		},
	}
	controllerConfig := configuration.ControllerConfig{
		PollInterval:          time.Second,
		Hysteresis:            0,
		MinDuty:               0,
		FailsafeDuty:          100,
		FailureThreshold:      3,
		TempRollingWindowSize: 1,
		EmergencyTemp:         90,
		EmergencyDuration:     3 * time.Second,
	}

	engine, err := curves.NewEngine(curveConfig, controllerConfig)
	assert.NoError(t, err)

	var pub Publisher
	if publisher != nil {
		pub = publisher
	}
	controller := NewFanController(client, engine, pub, controllerConfig, []string{"CPU0_Temp"}).(*fanController)

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)}
	controller.now = clock.now
	return controller, clock
}

func TestTickActuatesCurveDuty(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(45)}
	publisher := &mockPublisher{}
	controller, _ := newTestController(t, client, publisher)

	// WHEN
	controller.tick(context.Background())

	// THEN
	assert.Equal(t, 1, client.loginCalls)
	assert.Equal(t, []int{25}, client.dutyCalls)
	assert.Equal(t, 25, controller.Snapshot().LastDuty)
	assert.Equal(t, ModeAuto, controller.Snapshot().Mode)
	assert.Equal(t, []int{25}, publisher.duties)
	assert.Equal(t, []string{ModeAuto}, publisher.modes)
}

func TestTickSkipsUnchangedDuty(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(45)}
	controller, clock := newTestController(t, client, nil)
	controller.tick(context.Background())

	// WHEN the temperature is unchanged on the next tick
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN no second actuation happened
	assert.Equal(t, []int{25}, client.dutyCalls)
}

func TestActuationFailureKeepsLastDuty(t *testing.T) {
	// GIVEN a confirmed duty of 25
	client := &mockClient{readings: tempReadings(45)}
	controller, clock := newTestController(t, client, nil)
	controller.tick(context.Background())
	assert.Equal(t, 25, controller.Snapshot().LastDuty)

	// WHEN the next actuation fails
	client.readings = tempReadings(65)
	client.setDutyErr = &bmc.TransientIOError{Op: "setting duty", Err: context.DeadlineExceeded}
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN the confirmed duty is unchanged and the failure is counted
	assert.Equal(t, 25, controller.Snapshot().LastDuty)
	assert.Equal(t, 1, controller.Snapshot().ConsecutiveFailures)
}

func TestFailsafeAfterThresholdExceeded(t *testing.T) {
	// GIVEN
	client := &mockClient{
		readings:   tempReadings(45),
		sensorsErr: &bmc.TransientIOError{Op: "reading sensors", Err: context.DeadlineExceeded},
	}
	controller, clock := newTestController(t, client, nil)

	// WHEN three consecutive polls fail
	for i := 0; i < 3; i++ {
		controller.tick(context.Background())
		clock.advance(30 * time.Second)
	}

	// THEN the duty was not touched
	assert.Empty(t, client.dutyCalls)
	assert.Equal(t, 3, controller.Snapshot().ConsecutiveFailures)

	// WHEN the 4th failure exceeds the threshold
	controller.tick(context.Background())

	// THEN the fail-safe duty is applied
	assert.Equal(t, []int{100}, client.dutyCalls)
	assert.Equal(t, 100, controller.Snapshot().LastDuty)
	assert.Equal(t, ModeFailsafe, controller.Snapshot().Mode)
}

func TestOverridePrecedence(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(45)}
	controller, clock := newTestController(t, client, nil)

	// WHEN an override is active
	controller.SetOverride(75)
	controller.tick(context.Background())

	// THEN the curve output is ignored
	assert.Equal(t, []int{75}, client.dutyCalls)
	assert.Equal(t, ModeManual, controller.Snapshot().Mode)

	// WHEN conflicting sensor data arrives during the override
	client.readings = tempReadings(85)
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN the override still wins
	assert.Equal(t, []int{75}, client.dutyCalls)

	// WHEN the override is cleared
	controller.ClearOverride()
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN curve control resumes
	assert.Equal(t, []int{75, 60}, client.dutyCalls)
	assert.Equal(t, ModeAuto, controller.Snapshot().Mode)
}

func TestOverrideIsClamped(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(45)}
	controller, _ := newTestController(t, client, nil)

	// WHEN
	controller.SetOverride(140)

	// THEN
	override, ok := controller.Override()
	assert.True(t, ok)
	assert.Equal(t, 100, override)
}

func TestSessionExpiryTriggersReauthentication(t *testing.T) {
	// GIVEN
	client := &mockClient{
		readings:   tempReadings(45),
		sensorsErr: &bmc.SessionExpiredError{StatusCode: 401},
	}
	controller, clock := newTestController(t, client, nil)

	// WHEN the session expires mid-poll
	controller.tick(context.Background())

	// THEN the failure is counted and the session is dropped
	assert.Equal(t, 1, client.loginCalls)
	assert.False(t, controller.authenticated)

	// WHEN the BMC recovers
	client.sensorsErr = nil
	clock.advance(30 * time.Second)
	controller.tick(context.Background())

	// THEN the controller logged in again and actuated normally
	assert.Equal(t, 2, client.loginCalls)
	assert.Equal(t, []int{25}, client.dutyCalls)
	assert.Equal(t, 0, controller.Snapshot().ConsecutiveFailures)
}

func TestAuthenticationBackoff(t *testing.T) {
	// GIVEN
	client := &mockClient{
		readings: tempReadings(45),
		loginErr: &bmc.AuthError{Reason: "unexpected status 401"},
	}
	controller, clock := newTestController(t, client, nil)

	// WHEN the first login fails
	controller.tick(context.Background())

	// THEN the next tick within the backoff window does nothing
	clock.advance(100 * time.Millisecond)
	controller.tick(context.Background())
	assert.Equal(t, 1, client.loginCalls)

	// WHEN the backoff window has passed
	clock.advance(30 * time.Second)
	controller.tick(context.Background())

	// THEN another attempt is made
	assert.Equal(t, 2, client.loginCalls)
}

func TestEmergencyMode(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(95)}
	controller, clock := newTestController(t, client, nil)

	// WHEN the temperature first crosses the threshold
	controller.tick(context.Background())

	// THEN the curve still drives the duty (95°C clamps to the last breakpoint)
	assert.Equal(t, []int{60}, client.dutyCalls)

	// WHEN the temperature stays high past the emergency duration
	clock.advance(5 * time.Second)
	controller.tick(context.Background())

	// THEN the fans are forced to full speed
	assert.Equal(t, []int{60, 100}, client.dutyCalls)
	assert.Equal(t, ModeEmergency, controller.Snapshot().Mode)

	// WHEN the temperature recovers
	client.readings = tempReadings(45)
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN curve control resumes
	assert.Equal(t, []int{60, 100, 25}, client.dutyCalls)
	assert.Equal(t, ModeAuto, controller.Snapshot().Mode)
}

func TestEmergencyOutranksOverride(t *testing.T) {
	// GIVEN a manual override while the temperature is dangerously high
	client := &mockClient{readings: tempReadings(95)}
	controller, clock := newTestController(t, client, nil)
	controller.SetOverride(10)
	controller.tick(context.Background())

	// THEN the override still applies while the emergency clock is running
	assert.Equal(t, []int{10}, client.dutyCalls)
	assert.Equal(t, ModeManual, controller.Snapshot().Mode)

	// WHEN the temperature stays high past the emergency duration
	clock.advance(5 * time.Second)
	controller.tick(context.Background())

	// THEN full speed wins over the pinned duty
	assert.Equal(t, []int{10, 100}, client.dutyCalls)
	assert.Equal(t, ModeEmergency, controller.Snapshot().Mode)

	// WHEN the temperature recovers
	client.readings = tempReadings(45)
	clock.advance(time.Second)
	controller.tick(context.Background())

	// THEN the override applies again
	assert.Equal(t, []int{10, 100, 10}, client.dutyCalls)
	assert.Equal(t, ModeManual, controller.Snapshot().Mode)
}

func TestReadingsSnapshot(t *testing.T) {
	// GIVEN
	client := &mockClient{readings: tempReadings(45)}
	controller, _ := newTestController(t, client, nil)

	// WHEN
	controller.tick(context.Background())
	readings := controller.Readings()

	// THEN readings are available, sorted by id
	assert.Len(t, readings, 2)
	assert.Equal(t, "CPU0_Temp", readings[0].ID)
	assert.Equal(t, "FAN1_RPM", readings[1].ID)
}
