package controller

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/curves"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/bmcfanctl/bmcfanctl/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type LoopState string

const (
	StateIdle           LoopState = "idle"
	StateAuthenticating LoopState = "authenticating"
	StatePolling        LoopState = "polling"
	StateEvaluating     LoopState = "evaluating"
	StateActuating      LoopState = "actuating"
	StateSleeping       LoopState = "sleeping"
	StateStopped        LoopState = "stopped"
)

const (
	ModeAuto      = "auto"
	ModeManual    = "manual"
	ModeEmergency = "emergency"
	ModeFailsafe  = "failsafe"
)

// backoffCapFactor caps the exponential retry backoff at a multiple of the
// poll interval.
const backoffCapFactor = 8

// Publisher receives the state of every control tick on a best-effort basis.
// Implementations must never block the control loop.
type Publisher interface {
	PublishState(readings []bmc.SensorReading, duty int, mode string)
}

// Snapshot is a consistent copy of the controller state for API and
// statistics consumers.
type Snapshot struct {
	State               LoopState `json:"state"`
	Mode                string    `json:"mode"`
	LastDuty            int       `json:"lastDuty"`
	LastChange          time.Time `json:"lastChange"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Override            *int      `json:"override"`
	MaxTemperature      float64   `json:"maxTemperature"`
}

type FanController interface {
	Run(ctx context.Context) error

	// SetOverride pins the duty cycle to the given value until ClearOverride
	// is called. Values are clamped to [0..100]. Safe for concurrent use.
	SetOverride(duty int)
	ClearOverride()
	Override() (int, bool)

	Snapshot() Snapshot
	Readings() []bmc.SensorReading
}

type fanController struct {
	client    bmc.Client
	engine    *curves.Engine
	publisher Publisher
	config    configuration.ControllerConfig
	monitored []string

	// loop-owned state, guarded only for Snapshot readers
	stateMu        sync.Mutex
	loopState      LoopState
	mode           string
	lastDuty       int
	lastChange     time.Time
	failures       int
	maxTemperature float64

	// override is the only state written from outside the loop goroutine
	overrideMu sync.Mutex
	override   *int

	readings cmap.ConcurrentMap[string, bmc.SensorReading]

	authenticated bool
	retryAfter    time.Time
	backoffSteps  int

	tempWindow   *rolling.PointPolicy
	windowFilled bool

	highTempSince time.Time
	emergency     bool

	now func() time.Time
}

func NewFanController(
	client bmc.Client,
	engine *curves.Engine,
	publisher Publisher,
	config configuration.ControllerConfig,
	monitored []string,
) FanController {
	return &fanController{
		client:     client,
		engine:     engine,
		publisher:  publisher,
		config:     config,
		monitored:  monitored,
		loopState:  StateIdle,
		mode:       ModeAuto,
		lastDuty:   curves.DutyUnknown,
		readings:   cmap.New[bmc.SensorReading](),
		tempWindow: util.CreateRollingWindow(config.TempRollingWindowSize),
		now:        time.Now,
	}
}

// Run executes the control loop until the context is cancelled. Ticks run
// strictly sequentially, the next tick never starts before the current one
// finished.
func (c *fanController) Run(ctx context.Context) error {
	ui.Info("Starting fan control loop (interval: %s)", c.config.PollInterval)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setLoopState(StateStopped)
			ui.Info("Control loop stopped.")
			return nil
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *fanController) tick(ctx context.Context) {
	now := c.now()
	if now.Before(c.retryAfter) {
		return
	}

	if !c.authenticated {
		c.setLoopState(StateAuthenticating)
		if err := c.client.Login(ctx); err != nil {
			ui.Warning("Authentication failed: %v", err)
			c.registerFailure(ctx)
			return
		}
		c.authenticated = true
	}

	c.setLoopState(StatePolling)
	readings, err := c.client.Sensors(ctx)
	if err != nil {
		c.handleRemoteError("poll", err)
		c.registerFailure(ctx)
		return
	}
	c.storeReadings(readings)

	maxTemp, found := bmc.MaxTemperature(readings, c.monitored)
	if !found {
		ui.Warning("No monitored temperature sensor found in BMC response")
		c.registerFailure(ctx)
		return
	}
	avgTemp := c.updateTempWindow(maxTemp)

	c.setLoopState(StateEvaluating)
	duty, mode := c.desiredDuty(avgTemp, maxTemp, now)

	c.setLoopState(StateActuating)
	if duty != c.lastDutyValue() {
		if err := c.client.SetDuty(ctx, duty); err != nil {
			// a failed actuation must never advance lastDuty
			c.handleRemoteError("actuate", err)
			c.registerFailure(ctx)
			return
		}
		ui.Info("Temperature: %.1f°C -> Setting fans to %d%% (%s)", avgTemp, duty, mode)
		c.confirmDuty(duty, mode, now)
	} else {
		ui.Debug("Temperature: %.1f°C -> Fan duty unchanged (%d%%)", avgTemp, duty)
		c.setMode(mode)
	}
	c.resetFailures()

	if c.publisher != nil {
		c.publisher.PublishState(readings, c.lastDutyValue(), mode)
	}
	c.setLoopState(StateSleeping)
}

// desiredDuty decides the duty cycle for this tick. Precedence:
// emergency protection, then manual override, then the fan curve.
// Emergency tracking runs on every tick, a manual override must not
// pause the high-temperature clock.
func (c *fanController) desiredDuty(avgTemp float64, maxTemp float64, now time.Time) (int, string) {
	if c.emergencyActive(maxTemp, now) {
		return 100, ModeEmergency
	}

	if override, ok := c.Override(); ok {
		return override, ModeManual
	}

	return c.engine.Evaluate(avgTemp, c.lastDutyValue()), ModeAuto
}

// emergencyActive tracks how long the temperature stayed at or above the
// emergency threshold and latches full speed once the configured duration
// is exceeded.
func (c *fanController) emergencyActive(maxTemp float64, now time.Time) bool {
	if c.config.EmergencyTemp <= 0 {
		return false
	}

	if maxTemp >= c.config.EmergencyTemp {
		if c.highTempSince.IsZero() {
			c.highTempSince = now
			ui.Warning("Temperature %.1f°C exceeded emergency threshold, monitoring for %s...",
				maxTemp, c.config.EmergencyDuration)
		} else if !c.emergency && now.Sub(c.highTempSince) >= c.config.EmergencyDuration {
			c.emergency = true
			ui.Error("EMERGENCY: temperature %.1f°C for %s, forcing fans to 100%%",
				maxTemp, now.Sub(c.highTempSince))
		}
	} else {
		if c.emergency {
			ui.Info("Temperature dropped to %.1f°C, leaving emergency mode", maxTemp)
		}
		c.emergency = false
		c.highTempSince = time.Time{}
	}

	return c.emergency
}

// registerFailure increments the failure counter, schedules the next retry
// with exponential backoff and escalates to the fail-safe duty once the
// failure threshold is exceeded.
func (c *fanController) registerFailure(ctx context.Context) {
	c.stateMu.Lock()
	c.failures++
	failures := c.failures
	c.stateMu.Unlock()

	backoff := c.config.PollInterval * (1 << c.backoffSteps)
	maxBackoff := c.config.PollInterval * backoffCapFactor
	if backoff > maxBackoff {
		backoff = maxBackoff
	} else {
		c.backoffSteps++
	}
	c.retryAfter = c.now().Add(backoff)
	ui.Warning("Consecutive failures: %d, next attempt in %s", failures, backoff)

	if c.config.FailsafeDuty > 0 && failures > c.config.FailureThreshold && c.lastDutyValue() != c.config.FailsafeDuty {
		ui.Error("Failure threshold exceeded, escalating to fail-safe duty %d%%", c.config.FailsafeDuty)
		if err := c.client.SetDuty(ctx, c.config.FailsafeDuty); err != nil {
			ui.Error("Unable to apply fail-safe duty: %v", err)
			return
		}
		c.confirmDuty(c.config.FailsafeDuty, ModeFailsafe, c.now())
	}
}

func (c *fanController) resetFailures() {
	c.stateMu.Lock()
	c.failures = 0
	c.stateMu.Unlock()
	c.backoffSteps = 0
	c.retryAfter = time.Time{}
}

// handleRemoteError translates a BMC error into loop state: an expired
// session forces a re-login on the next attempt, everything else is
// retried as-is.
func (c *fanController) handleRemoteError(op string, err error) {
	var expired *bmc.SessionExpiredError
	if errors.As(err, &expired) {
		ui.Warning("BMC session expired during %s, re-authenticating on next tick", op)
		c.authenticated = false
		return
	}
	ui.Warning("BMC %s failed: %v", op, err)
}

func (c *fanController) storeReadings(readings []bmc.SensorReading) {
	for _, reading := range readings {
		c.readings.Set(reading.ID, reading)
	}
}

func (c *fanController) updateTempWindow(maxTemp float64) float64 {
	if !c.windowFilled {
		// seed the window so the average starts at the first measurement
		for i := 0; i < c.config.TempRollingWindowSize; i++ {
			c.tempWindow.Append(maxTemp)
		}
		c.windowFilled = true
	} else {
		c.tempWindow.Append(maxTemp)
	}
	avg := c.tempWindow.Reduce(rolling.Avg)

	c.stateMu.Lock()
	c.maxTemperature = maxTemp
	c.stateMu.Unlock()

	return avg
}

func (c *fanController) SetOverride(duty int) {
	clamped := int(util.Coerce(float64(duty), 0, 100))
	c.overrideMu.Lock()
	c.override = &clamped
	c.overrideMu.Unlock()
	ui.Info("Manual override enabled, duty pinned to %d%%", clamped)
}

func (c *fanController) ClearOverride() {
	c.overrideMu.Lock()
	c.override = nil
	c.overrideMu.Unlock()
	ui.Info("Manual override cleared, returning to curve control")
}

func (c *fanController) Override() (int, bool) {
	c.overrideMu.Lock()
	defer c.overrideMu.Unlock()
	if c.override == nil {
		return 0, false
	}
	return *c.override, true
}

func (c *fanController) Snapshot() Snapshot {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	snapshot := Snapshot{
		State:               c.loopState,
		Mode:                c.mode,
		LastDuty:            c.lastDuty,
		LastChange:          c.lastChange,
		ConsecutiveFailures: c.failures,
		MaxTemperature:      c.maxTemperature,
	}
	if override, ok := c.Override(); ok {
		snapshot.Override = &override
	}
	return snapshot
}

func (c *fanController) Readings() []bmc.SensorReading {
	result := make([]bmc.SensorReading, 0, c.readings.Count())
	for _, reading := range c.readings.Items() {
		result = append(result, reading)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (c *fanController) confirmDuty(duty int, mode string, now time.Time) {
	c.stateMu.Lock()
	c.lastDuty = duty
	c.lastChange = now
	c.mode = mode
	c.stateMu.Unlock()
}

func (c *fanController) lastDutyValue() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.lastDuty
}

func (c *fanController) setMode(mode string) {
	c.stateMu.Lock()
	c.mode = mode
	c.stateMu.Unlock()
}

func (c *fanController) setLoopState(state LoopState) {
	c.stateMu.Lock()
	c.loopState = state
	c.stateMu.Unlock()
}
