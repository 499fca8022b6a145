package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleDescriptor = `{
	"defaultDogSpeed": 2.0,
	"defaultBagCapacity": 3,
	"dogRetirementTime": 60,
	"lootGeneratorConfig": {"period": 5, "probability": 0.5},
	"maps": [{
		"id": "town",
		"name": "Town",
		"roads": [{"x0": 0, "y0": 0, "x1": 10}, {"x0": 10, "y0": 0, "y1": 10}],
		"buildings": [{"x": 1, "y": 1, "w": 2, "h": 2}],
		"offices": [{"id": "o1", "x": 5, "y": 5, "offsetX": 0, "offsetY": 0}],
		"lootTypes": [{"value": 10}, {"value": 20}]
	}]
}`

func TestLoad(t *testing.T) {
	Convey("A well-formed descriptor produces a populated world", t, func() {
		loaded, err := Load([]byte(sampleDescriptor))
		So(err, ShouldBeNil)
		So(loaded.LootPeriodMS, ShouldEqual, 5000.0)
		So(loaded.LootProbability, ShouldEqual, 0.5)

		m := loaded.World.FindMap("town")
		So(m, ShouldNotBeNil)
		So(m.DefaultDogSpeed, ShouldEqual, 2.0)
		So(m.BagCapacity, ShouldEqual, 3)
		So(len(m.Roads()), ShouldEqual, 2)
		So(len(m.Buildings()), ShouldEqual, 1)
		So(len(m.Offices()), ShouldEqual, 1)
		So(m.LootTypes, ShouldEqual, 2)
		So(m.ObjectValue(0), ShouldEqual, 10)
		So(m.ObjectValue(1), ShouldEqual, 20)
		So(loaded.World.RetirementTimeMS, ShouldEqual, uint64(60000))
	})

	Convey("A negative dogSpeed is rejected", t, func() {
		bad := `{"lootGeneratorConfig":{"period":1,"probability":0.1},"maps":[{"id":"x","name":"X","dogSpeed":-1,"roads":[{"x0":0,"y0":0,"x1":1}],"buildings":[],"offices":[],"lootTypes":[]}]}`
		_, err := Load([]byte(bad))
		So(err, ShouldNotBeNil)
	})

	Convey("A missing lootGeneratorConfig period is rejected", t, func() {
		bad := `{"lootGeneratorConfig":{"period":0,"probability":0.1},"maps":[]}`
		_, err := Load([]byte(bad))
		So(err, ShouldNotBeNil)
	})
}
