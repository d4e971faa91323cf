package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Square roughly 100m on a side near the equator
var square = []Point{
	{Lat: 0.0, Lon: 0.0},
	{Lat: 0.0, Lon: 0.0009},
	{Lat: 0.0009, Lon: 0.0009},
	{Lat: 0.0009, Lon: 0.0},
	{Lat: 0.0, Lon: 0.0},
}

func TestDistanceMeters(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		p := Point{Lat: 40.4168, Lon: -3.7038}
		assert.InDelta(t, 0, DistanceMeters(p, p), 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 40.4168, Lon: -3.7038}
		b := Point{Lat: 40.4175, Lon: -3.7050}
		assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-9)
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		a := Point{Lat: 0, Lon: 0}
		b := Point{Lat: 1, Lon: 0}
		assert.InDelta(t, 111195, DistanceMeters(a, b), 100)
	})
}

func TestDestinationRoundTrip(t *testing.T) {
	start := Point{Lat: 40.4168, Lon: -3.7038}
	dest := Destination(start, 45, 150)
	assert.InDelta(t, 150, DistanceMeters(start, dest), 0.01)
	assert.InDelta(t, 45, BearingDegrees(start, dest), 0.1)
}

func TestPointInRing(t *testing.T) {
	t.Run("center is inside", func(t *testing.T) {
		assert.True(t, PointInRing(Point{Lat: 0.00045, Lon: 0.00045}, square))
	})

	t.Run("outside point", func(t *testing.T) {
		assert.False(t, PointInRing(Point{Lat: 0.002, Lon: 0.002}, square))
	})

	t.Run("boundary vertex counts as inside", func(t *testing.T) {
		assert.True(t, PointInRing(Point{Lat: 0, Lon: 0}, square))
	})

	t.Run("point on an edge counts as inside", func(t *testing.T) {
		assert.True(t, PointInRing(Point{Lat: 0, Lon: 0.0004}, square))
	})

	t.Run("degenerate ring contains nothing", func(t *testing.T) {
		line := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
		assert.False(t, PointInRing(Point{Lat: 0, Lon: 0.5}, line))
	})
}

func TestSegmentCrossesRing(t *testing.T) {
	t.Run("segment through the square", func(t *testing.T) {
		a := Point{Lat: 0.00045, Lon: -0.001}
		b := Point{Lat: 0.00045, Lon: 0.002}
		assert.True(t, SegmentCrossesRing(a, b, square))
	})

	t.Run("segment missing the square", func(t *testing.T) {
		a := Point{Lat: 0.005, Lon: -0.001}
		b := Point{Lat: 0.005, Lon: 0.002}
		assert.False(t, SegmentCrossesRing(a, b, square))
	})

	t.Run("segment ending inside", func(t *testing.T) {
		a := Point{Lat: 0.00045, Lon: -0.001}
		b := Point{Lat: 0.00045, Lon: 0.0004}
		assert.True(t, SegmentCrossesRing(a, b, square))
	})
}

func TestSegmentRingCrossingFractions(t *testing.T) {
	t.Run("full traversal", func(t *testing.T) {
		a := Point{Lat: 0.00045, Lon: -0.0009}
		b := Point{Lat: 0.00045, Lon: 0.0018}
		cr, ok := SegmentRingCrossingFractions(a, b, square)
		assert.True(t, ok)
		assert.InDelta(t, 1.0/3.0, cr.EntryFraction, 1e-6)
		assert.InDelta(t, 2.0/3.0, cr.ExitFraction, 1e-6)
	})

	t.Run("start inside", func(t *testing.T) {
		a := Point{Lat: 0.00045, Lon: 0.00045}
		b := Point{Lat: 0.00045, Lon: 0.0018}
		cr, ok := SegmentRingCrossingFractions(a, b, square)
		assert.True(t, ok)
		assert.Equal(t, 0.0, cr.EntryFraction)
		assert.True(t, cr.ExitFraction < 1)
	})

	t.Run("miss", func(t *testing.T) {
		a := Point{Lat: 0.005, Lon: -0.001}
		b := Point{Lat: 0.005, Lon: 0.002}
		_, ok := SegmentRingCrossingFractions(a, b, square)
		assert.False(t, ok)
	})
}

func TestBearingDegrees(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	assert.InDelta(t, 0, BearingDegrees(a, Point{Lat: 1, Lon: 0}), 0.01)
	assert.InDelta(t, 90, BearingDegrees(a, Point{Lat: 0, Lon: 1}), 0.01)
	assert.InDelta(t, 180, BearingDegrees(a, Point{Lat: -1, Lon: 0}), 0.01)
	assert.InDelta(t, 270, BearingDegrees(a, Point{Lat: 0, Lon: -1}), 0.01)
}

func TestMetersToYards(t *testing.T) {
	assert.InDelta(t, 109.361, MetersToYards(100), 1e-9)
	assert.True(t, math.Abs(MetersToYards(0)) < 1e-12)
}
