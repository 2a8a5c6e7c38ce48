package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	// GIVEN
	cases := map[string]int{
		"00:00": 0,
		"01:30": 90,
		"07:00": 420,
		"23:59": 1439,
	}

	for input, expected := range cases {
		// WHEN
		minutes, err := ParseClock(input)

		// THEN
		assert.NoError(t, err)
		assert.Equal(t, expected, minutes)
	}
}

func TestParseClockInvalid(t *testing.T) {
	// WHEN
	_, err := ParseClock("25:00")

	// THEN
	assert.Error(t, err)

	// WHEN
	_, err = ParseClock("bogus")

	// THEN
	assert.Error(t, err)
}
