package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRoadBounds(t *testing.T) {
	Convey("A horizontal road's bounds extend 0.4 past its endpoints", t, func() {
		r := NewHorizontalRoad(0, Point{0, 0}, 10)
		So(r.BottomLeft, ShouldResemble, PointF{X: -0.4, Y: -0.4})
		So(r.TopRight, ShouldResemble, PointF{X: 10.4, Y: 0.4})
		So(r.IsOnRoad(PointF{X: 0.5, Y: 0}), ShouldBeTrue)
		So(r.IsOnRoad(PointF{X: 10.4, Y: 0}), ShouldBeTrue)
		So(r.IsOnRoad(PointF{X: 10.41, Y: 0}), ShouldBeFalse)
	})

	Convey("BoundToRoad clamps into the bordered rectangle", t, func() {
		r := NewHorizontalRoad(0, Point{0, 0}, 10)
		p := r.BoundToRoad(PointF{X: 20, Y: 5})
		So(p, ShouldResemble, PointF{X: 10.4, Y: 0.4})
	})
}

func TestFillIntersections(t *testing.T) {
	Convey("A crossing vertical road registers in both directions", t, func() {
		h := NewHorizontalRoad(0, Point{0, 0}, 10)
		v := NewVerticalRoad(1, Point{5, -5}, 5)
		fillIntersections([]*Road{h, v})
		So(h.Intersections[5], ShouldEqual, RoadID(1))
		So(v.Intersections[0], ShouldEqual, RoadID(0))
	})
}
