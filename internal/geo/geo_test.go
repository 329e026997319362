package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMiles(t *testing.T) {
	assert.Zero(t, DistanceMiles(DefaultCenterLat, DefaultCenterLon, DefaultCenterLat, DefaultCenterLon))

	// downtown Dallas
	d := DistanceMiles(DefaultCenterLat, DefaultCenterLon, 32.7767, -96.7970)
	assert.InDelta(t, 30.397, d, 0.01)
	assert.Equal(t, d, DistanceMiles(32.7767, -96.7970, DefaultCenterLat, DefaultCenterLon))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(DefaultCenterLat, DefaultCenterLon))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}

func TestTexasNorthCentral(t *testing.T) {
	p := TexasNorthCentral()

	north, east := p.Forward(31.66666666666667, -98.5)
	assert.InDelta(t, 6561666.666666666, north, 1e-3)
	assert.InDelta(t, 1968500.0, east, 1e-3)

	north, east = p.Forward(DefaultCenterLat, DefaultCenterLon)
	assert.InDelta(t, 6961503.659, north, 0.01)
	assert.InDelta(t, 2331272.896, east, 0.01)

	n2, e2 := p.Forward(DefaultCenterLat+0.01, DefaultCenterLon+0.01)
	assert.Greater(t, n2, north)
	assert.Greater(t, e2, east)
}
