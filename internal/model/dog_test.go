package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDogMovement(t *testing.T) {
	Convey("A dog moving east on a straight road advances freely within bounds", t, func() {
		m := NewMap("town", "Town", 3.0, 3, "{}")
		road := NewHorizontalRoad(0, Point{0, 0}, 10)
		So(m.AddRoad(road), ShouldBeNil)
		m.FillIntersections()

		dog := NewDog(0, "Alice", 3.0, 0)
		dog.SetPosition(PointF{X: 0.2, Y: 0})
		dog.SetSpeed(East, true)

		dog.Move(100, m)
		So(dog.Position.X, ShouldAlmostEqual, 0.5, 1e-9)
		So(dog.Position.Y, ShouldAlmostEqual, 0.0, 1e-9)
	})

	Convey("A dog running off the end of the road clamps to the border and stops", t, func() {
		m := NewMap("town", "Town", 3.0, 3, "{}")
		road := NewHorizontalRoad(0, Point{0, 0}, 10)
		So(m.AddRoad(road), ShouldBeNil)
		m.FillIntersections()

		dog := NewDog(0, "Alice", 3.0, 0)
		dog.SetPosition(PointF{X: 9.9, Y: 0})
		dog.SetSpeed(East, true)

		dog.Move(5000, m)
		So(dog.Position.X, ShouldAlmostEqual, 10.4, 1e-9)
		So(dog.Position.Y, ShouldAlmostEqual, 0.0, 1e-9)
		So(dog.VX, ShouldEqual, 0)
		So(dog.VY, ShouldEqual, 0)
	})

	Convey("SetSpeed STOP semantics distinguish client stop from clamping stop", t, func() {
		dog := NewDog(0, "Alice", 3.0, 0)
		dog.SetSpeed(East, true)
		So(dog.HasMoved(), ShouldBeTrue)

		dog.SetSpeed(Stop, false)
		So(dog.VX, ShouldEqual, 0)
		So(dog.HasMoved(), ShouldBeTrue)

		dog.SetSpeed(Stop, true)
		So(dog.HasMoved(), ShouldBeFalse)
	})
}

func TestIncrementTime(t *testing.T) {
	Convey("Idle time accrues only while not moving, playing time always advances", t, func() {
		dog := NewDog(0, "Alice", 3.0, 0)
		dog.SetSpeed(Stop, true)

		dog.IncrementTime(100)
		So(dog.IdleTimeMS, ShouldEqual, 100)
		So(dog.PlayingTimeMS, ShouldEqual, 100)

		dog.SetSpeed(North, true)
		dog.IncrementTime(50)
		So(dog.IdleTimeMS, ShouldEqual, 0)
		So(dog.PlayingTimeMS, ShouldEqual, 150)
	})
}

func TestBag(t *testing.T) {
	Convey("ClearBag credits score per item and empties the bag", t, func() {
		dog := NewDog(0, "Alice", 3.0, 0)
		dog.GatherObject(LostObject{ID: 0, Type: 0})
		dog.GatherObject(LostObject{ID: 1, Type: 1})
		dog.ClearBag(func(t int) int { return (t + 1) * 10 })
		So(dog.Score, ShouldEqual, 30)
		So(dog.BagSize(), ShouldEqual, 0)
	})
}
