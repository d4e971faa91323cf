package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean earth radius used for all distances
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate (SRID 4326)
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMeters returns the great-circle distance between two points
func DistanceMeters(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * EarthRadiusMeters
}

// BearingDegrees returns the initial bearing from a to b, 0..360 clockwise
// from north
func BearingDegrees(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Destination returns the point reached by travelling distanceMeters from p
// on the given bearing
func Destination(p Point, bearingDeg, distanceMeters float64) Point {
	lat1 := p.Lat * math.Pi / 180
	lon1 := p.Lon * math.Pi / 180
	brng := bearingDeg * math.Pi / 180
	d := distanceMeters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return Point{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi}
}

// PointInRing reports whether p lies inside the closed ring using ray
// casting on lon/lat. Points exactly on an edge count as inside. Rings with
// fewer than 3 distinct vertices contain nothing.
func PointInRing(p Point, ring []Point) bool {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[j]
		if onSegment(p, a, b) {
			return true
		}
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			xCross := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
			if p.Lon < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

const segEpsilon = 1e-12

func onSegment(p, a, b Point) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > segEpsilon {
		return false
	}
	dot := (p.Lon-a.Lon)*(b.Lon-a.Lon) + (p.Lat-a.Lat)*(b.Lat-a.Lat)
	if dot < 0 {
		return false
	}
	sq := (b.Lon-a.Lon)*(b.Lon-a.Lon) + (b.Lat-a.Lat)*(b.Lat-a.Lat)
	return dot <= sq
}

// SegmentRingCrossing describes where a segment enters a ring, as fractions
// of the segment length
type SegmentRingCrossing struct {
	EntryFraction float64
	ExitFraction  float64
}

// SegmentCrossesRing reports whether the segment from a to b touches the
// ring at all, either by crossing an edge or by lying inside it.
func SegmentCrossesRing(a, b Point, ring []Point) bool {
	if PointInRing(a, ring) || PointInRing(b, ring) {
		return true
	}
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		if _, ok := segmentIntersection(a, b, ring[j], ring[i]); ok {
			return true
		}
		j = i
	}
	return false
}

// SegmentRingCrossingFractions returns where the segment a->b first meets the
// ring and where it leaves it, as fractions of the a->b length. ok is false
// when the segment misses the ring entirely.
func SegmentRingCrossingFractions(a, b Point, ring []Point) (SegmentRingCrossing, bool) {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	if n < 3 {
		return SegmentRingCrossing{}, false
	}

	var fractions []float64
	j := n - 1
	for i := 0; i < n; i++ {
		if t, ok := segmentIntersection(a, b, ring[j], ring[i]); ok {
			fractions = append(fractions, t)
		}
		j = i
	}

	aInside := PointInRing(a, ring)
	bInside := PointInRing(b, ring)

	if len(fractions) == 0 {
		if aInside && bInside {
			return SegmentRingCrossing{EntryFraction: 0, ExitFraction: 1}, true
		}
		return SegmentRingCrossing{}, false
	}

	minF, maxF := fractions[0], fractions[0]
	for _, f := range fractions[1:] {
		minF = math.Min(minF, f)
		maxF = math.Max(maxF, f)
	}
	entry, exit := minF, maxF
	if aInside {
		entry = 0
	}
	if bInside {
		exit = 1
	}
	return SegmentRingCrossing{EntryFraction: entry, ExitFraction: exit}, true
}

// segmentIntersection returns the fraction along p1->p2 where it crosses
// p3->p4, if the segments intersect
func segmentIntersection(p1, p2, p3, p4 Point) (float64, bool) {
	d1x := p2.Lon - p1.Lon
	d1y := p2.Lat - p1.Lat
	d2x := p4.Lon - p3.Lon
	d2y := p4.Lat - p3.Lat

	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < segEpsilon {
		return 0, false
	}

	t := ((p3.Lon-p1.Lon)*d2y - (p3.Lat-p1.Lat)*d2x) / denom
	u := ((p3.Lon-p1.Lon)*d1y - (p3.Lat-p1.Lat)*d1x) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// PointToSegmentDistanceMeters returns the distance from p to the nearest
// point of segment a-b, using a local planar approximation that is accurate
// at course scale
func PointToSegmentDistanceMeters(p, a, b Point) float64 {
	// meters per degree at p's latitude
	latScale := EarthRadiusMeters * math.Pi / 180
	lonScale := latScale * math.Cos(p.Lat*math.Pi/180)

	ax := (a.Lon - p.Lon) * lonScale
	ay := (a.Lat - p.Lat) * latScale
	bx := (b.Lon - p.Lon) * lonScale
	by := (b.Lat - p.Lat) * latScale

	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq < segEpsilon {
		return math.Hypot(ax, ay)
	}

	t := -(ax*dx + ay*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx := ax + t*dx
	cy := ay + t*dy
	return math.Hypot(cx, cy)
}

// PointToPolylineDistanceMeters returns the distance from p to the nearest
// point of the polyline
func PointToPolylineDistanceMeters(p Point, line []Point) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return DistanceMeters(p, line[0])
	}
	best := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		d := PointToSegmentDistanceMeters(p, line[i], line[i+1])
		if d < best {
			best = d
		}
	}
	return best
}

// MetersToYards converts meters to yards
func MetersToYards(m float64) float64 {
	return m * 1.09361
}
