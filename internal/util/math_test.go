package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateInterpolatedCurveValue(t *testing.T) {
	// GIVEN
	expectedInputOutput := map[float64]float64{
		0:      0.0,
		100.0:  100.0,
		500.0:  500.0,
		1000.0: 1000.0,
		2000.0: 1000.0,
	}
	steps := map[int]int{
		0:    0,
		100:  100,
		1000: 1000,
	}

	for input, output := range expectedInputOutput {
		// WHEN
		result := CalculateInterpolatedCurveValue(steps, input)

		// THEN
		assert.Equal(t, output, result)
	}
}

func TestRatio(t *testing.T) {
	// GIVEN
	a := 0.0
	b := 100.0
	c := 50.0

	expected := 0.5

	// WHEN
	result := Ratio(c, a, b)

	// THEN
	assert.Equal(t, expected, result)
}

func TestCoerce(t *testing.T) {
	// GIVEN
	value := 150.0

	// WHEN
	result := Coerce(value, 0, 100)

	// THEN
	assert.Equal(t, 100.0, result)

	// WHEN
	result = Coerce(-20, 0, 100)

	// THEN
	assert.Equal(t, 0.0, result)

	// WHEN
	result = Coerce(42, 0, 100)

	// THEN
	assert.Equal(t, 42.0, result)
}
