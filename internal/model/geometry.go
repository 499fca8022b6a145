package model

import "math"

// ROADBorder is how far a road's legal region extends past its nominal
// endpoints on each axis. Width ends up 2*ROADBorder = 0.8: wide enough that
// a dog standing at an intersection can belong to either crossing road
// without ambiguity.
const ROADBorder = 0.4

// Point is an integer map coordinate, as given in a map descriptor.
type Point struct {
	X, Y int
}

// PointF is a floating-point world coordinate.
type PointF struct {
	X, Y float64
}

func (p PointF) lessEq(o PointF) bool {
	return p.X <= o.X && p.Y <= o.Y
}

// manhattan returns the L1 distance between two points, used to break ties
// between a road's bound and a crossing road's bound during clamping.
func (p PointF) manhattan(o PointF) float64 {
	return math.Abs(p.X-o.X) + math.Abs(p.Y-o.Y)
}

// RoadID identifies a Road within a Map.
type RoadID uint32

// Road is an axis-aligned segment, horizontal or vertical, never both.
type Road struct {
	ID         RoadID
	Start, End Point
	BottomLeft PointF
	TopRight   PointF

	// Intersections maps the transverse integer coordinate at which a
	// perpendicular road crosses this one to that road's id.
	Intersections map[int]RoadID
}

// NewHorizontalRoad builds a road running along y=start.Y from start.X to endX.
func NewHorizontalRoad(id RoadID, start Point, endX int) *Road {
	r := &Road{ID: id, Start: start, End: Point{X: endX, Y: start.Y}, Intersections: map[int]RoadID{}}
	r.setBounds()
	return r
}

// NewVerticalRoad builds a road running along x=start.X from start.Y to endY.
func NewVerticalRoad(id RoadID, start Point, endY int) *Road {
	r := &Road{ID: id, Start: start, End: Point{X: start.X, Y: endY}, Intersections: map[int]RoadID{}}
	r.setBounds()
	return r
}

func (r *Road) setBounds() {
	minX, maxX := minMax(r.Start.X, r.End.X)
	minY, maxY := minMax(r.Start.Y, r.End.Y)
	r.BottomLeft = PointF{X: float64(minX) - ROADBorder, Y: float64(minY) - ROADBorder}
	r.TopRight = PointF{X: float64(maxX) + ROADBorder, Y: float64(maxY) + ROADBorder}
}

func (r *Road) IsHorizontal() bool { return r.Start.Y == r.End.Y }
func (r *Road) IsVertical() bool   { return r.Start.X == r.End.X }

// IsOnRoad reports whether p lies within the road's (bordered) legal region.
func (r *Road) IsOnRoad(p PointF) bool {
	return p.lessEq(r.TopRight) && r.BottomLeft.lessEq(p)
}

// BoundToRoad clamps p into the road's legal rectangle.
func (r *Road) BoundToRoad(p PointF) PointF {
	return PointF{
		X: boundAxis(r.BottomLeft.X, r.TopRight.X, p.X),
		Y: boundAxis(r.BottomLeft.Y, r.TopRight.Y, p.Y),
	}
}

func boundAxis(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// fillIntersections registers, for every horizontal/vertical road pair whose
// transverse coordinate falls within the other's longitudinal range, a
// crossing entry in both directions.
func fillIntersections(roads []*Road) {
	for _, road := range roads {
		for _, other := range roads {
			if road.IsHorizontal() && other.IsVertical() {
				x := other.Start.X
				lo, hi := minMax(road.Start.X, road.End.X)
				if x >= lo && x <= hi {
					road.Intersections[x] = other.ID
				}
			} else if other.IsHorizontal() && road.IsVertical() {
				y := other.Start.Y
				lo, hi := minMax(road.Start.Y, road.End.Y)
				if y >= lo && y <= hi {
					road.Intersections[y] = other.ID
				}
			}
		}
	}
}

// round mimics C++'s std::lround: round-half-away-from-zero.
func round(v float64) int {
	return int(math.Round(v))
}
