package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Accra to Kumasi is roughly 200 km in a straight line.
	d := DistanceKm(5.6037, -0.1870, 6.6885, -1.6244)
	assert.InDelta(t, 200, d, 5)

	assert.Equal(t, 0.0, DistanceKm(5.6, -0.18, 5.6, -0.18))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 12.35, Round2(12.345678))
	assert.Equal(t, 2.0, Round2(1.999))
}
