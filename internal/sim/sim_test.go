package sim

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"dogwalker-server/internal/loot"
	"dogwalker-server/internal/model"
)

func buildWorld() (*model.World, *model.Map) {
	m := model.NewMap("town", "Town", 3.0, 3, "{}")
	road := model.NewHorizontalRoad(0, model.Point{X: 0, Y: 0}, 10)
	_ = m.AddRoad(road)
	m.FillIntersections()
	m.SetObjectValue(0, 10)
	m.LootTypes = 1
	m.AddOffice(model.Office{ID: "o1", Position: model.Point{X: 5, Y: 0}})

	w := model.NewWorld()
	w.RetirementTimeMS = 60000
	_ = w.AddMap(m)
	return w, m
}

func TestTickMovesDogs(t *testing.T) {
	Convey("A tick advances dogs along their road", t, func() {
		w, m := buildWorld()
		session := w.SessionForMap(m)
		dog := session.AddDog("Alice", false)
		dog.SetSpeed(model.East, true)

		e := NewEngine(w, func() *loot.Generator { return loot.NewGenerator(60000, 0, func() float64 { return 0 }) })
		e.Tick(100)

		So(dog.Position.X, ShouldBeGreaterThan, 0)
	})
}

func TestTickGathersAndDelivers(t *testing.T) {
	Convey("A dog that walks over an object gathers it, then delivers it at the office for score", t, func() {
		w, m := buildWorld()
		session := w.SessionForMap(m)
		dog := session.AddDog("Alice", false)
		dog.SetPosition(model.PointF{X: 1.9, Y: 0})
		dog.SetSpeed(model.East, true)

		session.AddRestoredObject(model.LostObject{ID: 0, Type: 0, Position: model.PointF{X: 2, Y: 0}})

		e := NewEngine(w, func() *loot.Generator { return loot.NewGenerator(60000, 0, func() float64 { return 0 }) })
		e.Tick(100)

		So(dog.BagSize(), ShouldEqual, 1)
		So(session.NumberOfLostObjects(), ShouldEqual, 0)

		// Walk onto the office at x=5.
		for i := 0; i < 20; i++ {
			e.Tick(100)
		}
		So(dog.BagSize(), ShouldEqual, 0)
		So(dog.Score, ShouldEqual, uint64(10))
	})
}

func TestTickRetiresIdleDogs(t *testing.T) {
	Convey("A dog that never moves retires once idle time crosses the threshold", t, func() {
		w, m := buildWorld()
		w.RetirementTimeMS = 1000
		session := w.SessionForMap(m)
		_ = session.AddDog("Idle", false)

		e := NewEngine(w, func() *loot.Generator { return loot.NewGenerator(60000, 0, func() float64 { return 0 }) })
		retired := e.Tick(500)
		So(retired, ShouldBeEmpty)
		retired = e.Tick(600)
		So(len(retired), ShouldEqual, 1)
		So(session.NumberOfPlayers(), ShouldEqual, 0)
	})
}
