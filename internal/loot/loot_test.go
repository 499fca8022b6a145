package loot

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("With base_interval=1000, probability=0.5, rng always 1, one call spawns exactly one item and resets the timer", t, func() {
		g := NewGenerator(1000, 0.5, func() float64 { return 1 })
		n := g.Generate(1000, 0, 2)
		So(n, ShouldEqual, 1)
		So(g.timeWithoutLootMS, ShouldEqual, 0)
	})

	Convey("With no looters in shortage, nothing spawns regardless of rng", t, func() {
		g := NewGenerator(1000, 0.5, func() float64 { return 1 })
		n := g.Generate(1000, 5, 5)
		So(n, ShouldEqual, 0)
	})

	Convey("With rng always 0, nothing spawns and the timer keeps accumulating", t, func() {
		g := NewGenerator(1000, 0.5, func() float64 { return 0 })
		n := g.Generate(500, 0, 3)
		So(n, ShouldEqual, 0)
		So(g.timeWithoutLootMS, ShouldEqual, 500)
		n = g.Generate(500, 0, 3)
		So(n, ShouldEqual, 0)
		So(g.timeWithoutLootMS, ShouldEqual, 1000)
	})
}

func TestGenerateType(t *testing.T) {
	Convey("GenerateType always returns an index within range", t, func() {
		for i := 0; i < 100; i++ {
			typ := GenerateType(4)
			So(typ, ShouldBeBetween, -1, 4)
		}
	})

	Convey("GenerateType with zero loot types returns zero", t, func() {
		So(GenerateType(0), ShouldEqual, 0)
	})
}
