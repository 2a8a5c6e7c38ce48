package util

import (
	"math"
	"sort"

	"github.com/asecurityteam/rolling"
)

func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// Ratio calculates the ratio that target has in comparison to rangeMin and rangeMax
// Make sure that:
// rangeMin <= target <= rangeMax
// rangeMax - rangeMin != 0
func Ratio(target float64, rangeMin float64, rangeMax float64) float64 {
	return (target - rangeMin) / (rangeMax - rangeMin)
}

// Coerce returns a value that is at least min and at most max
func Coerce(value float64, min float64, max float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

func InterpolateLinearly(data map[int]int, start int, stop int) map[int]float64 {
	interpolated := map[int]float64{}
	for i := start; i <= stop; i++ {
		interpolated[i] = CalculateInterpolatedCurveValue(data, float64(i))
	}
	return interpolated
}

// CalculateInterpolatedCurveValue creates a linearly interpolated function from
// the given map of x-values -> y-values and returns the y-value for the given input.
// Inputs below the smallest step fall back to the value of the smallest step,
// inputs above the largest step fall back to the value of the largest step.
func CalculateInterpolatedCurveValue(steps map[int]int, input float64) float64 {
	xValues := make([]int, 0, len(steps))
	for x := range steps {
		xValues = append(xValues, x)
	}
	// sort them increasing
	sort.Ints(xValues)

	for i := 0; i < len(xValues)-1; i++ {
		currentX := xValues[i]
		nextX := xValues[i+1]

		if input <= float64(currentX) && i == 0 {
			return float64(steps[currentX])
		}

		if input >= float64(nextX) {
			continue
		}

		if input == float64(currentX) {
			return float64(steps[currentX])
		} else {
			// input is somewhere in between currentX and nextX
			currentY := float64(steps[currentX])
			nextY := float64(steps[nextX])

			ratio := Ratio(input, float64(currentX), float64(nextX))
			return currentY + ratio*(nextY-currentY)
		}
	}

	return float64(steps[xValues[len(xValues)-1]])
}

// RoundToInt rounds the given value half away from zero
func RoundToInt(value float64) int {
	return int(math.Round(value))
}
