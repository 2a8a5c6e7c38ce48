package curves

import (
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/bmcfanctl/bmcfanctl/internal/util"
)

// DutyUnknown is the sentinel for "no previously confirmed duty cycle".
// Hysteresis and ramp limiting only apply once a previous duty is known.
const DutyUnknown = -1

// Engine maps a temperature to a target fan duty cycle using linear
// interpolation over the configured breakpoints. Evaluation is a total
// function, malformed curves are rejected at configuration load time.
type Engine struct {
	points      map[int]int
	nightPoints map[int]int
	nightStart  int
	nightEnd    int

	minDuty      int
	hysteresis   int
	maxStepUp    int
	pollInterval time.Duration

	// now is replaceable for tests
	now func() time.Time
}

func NewEngine(curveConfig configuration.CurveConfig, controllerConfig configuration.ControllerConfig) (*Engine, error) {
	engine := &Engine{
		points:       curveConfig.Points,
		nightPoints:  curveConfig.NightPoints,
		minDuty:      controllerConfig.MinDuty,
		hysteresis:   controllerConfig.Hysteresis,
		pollInterval: controllerConfig.PollInterval,
		now:          time.Now,
	}

	if curveConfig.NightPoints != nil {
		start, err := util.ParseClock(curveConfig.NightStart)
		if err != nil {
			return nil, err
		}
		end, err := util.ParseClock(curveConfig.NightEnd)
		if err != nil {
			return nil, err
		}
		engine.nightStart = start
		engine.nightEnd = end
	}

	if controllerConfig.MaxDutyIncreasePerSecond > 0 {
		step := util.RoundToInt(controllerConfig.MaxDutyIncreasePerSecond * controllerConfig.PollInterval.Seconds())
		if step < 1 {
			step = 1
		}
		engine.maxStepUp = step
	}

	return engine, nil
}

// Evaluate computes the target duty cycle for the given temperature.
// previous is the most recently confirmed duty cycle, or DutyUnknown.
func (e *Engine) Evaluate(temp float64, previous int) int {
	points := e.activePoints()
	duty := util.RoundToInt(util.CalculateInterpolatedCurveValue(points, temp))
	duty = int(util.Coerce(float64(duty), 0, 100))

	if previous != DutyUnknown {
		// suppress changes smaller than the hysteresis band to avoid
		// chatter from sensor noise
		if abs(duty-previous) < e.hysteresis {
			return previous
		}

		// ramp up gradually, ramp down immediately
		if e.maxStepUp > 0 && duty > previous && duty-previous > e.maxStepUp {
			duty = previous + e.maxStepUp
		}
	}

	// fans fail to spin reliably below the floor
	if duty > 0 && duty < e.minDuty {
		duty = e.minDuty
	}

	ui.Debug("Evaluated curve at %.1f°C (previous duty %d): %d", temp, previous, duty)
	return duty
}

// IsNight reports whether the current wall-clock time lies within the
// configured night window.
func (e *Engine) IsNight() bool {
	if e.nightPoints == nil {
		return false
	}

	now := e.now()
	current := now.Hour()*60 + now.Minute()
	if e.nightStart <= e.nightEnd {
		return e.nightStart <= current && current < e.nightEnd
	}
	// window crosses midnight
	return current >= e.nightStart || current < e.nightEnd
}

func (e *Engine) activePoints() map[int]int {
	if e.IsNight() {
		return e.nightPoints
	}
	return e.points
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
