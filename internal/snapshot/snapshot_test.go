package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"dogwalker-server/internal/model"
	"dogwalker-server/internal/players"
)

func buildWorld() (*model.World, *players.Registry) {
	m := model.NewMap("town", "Town", 3.0, 3, "{}")
	road := model.NewHorizontalRoad(0, model.Point{X: 0, Y: 0}, 10)
	_ = m.AddRoad(road)
	m.FillIntersections()

	w := model.NewWorld()
	_ = w.AddMap(m)
	session := w.SessionForMap(m)

	dog := session.AddDog("Alice", false)
	dog.GatherObject(model.LostObject{ID: 0, Type: 1, Position: model.PointF{X: 1, Y: 0}})
	dog.Score = 42

	session.AddObject(2)

	reg := players.NewRegistry()
	reg.Add(dog.ID, session.ID)

	return w, reg
}

func TestRoundTrip(t *testing.T) {
	Convey("Saving and loading a snapshot preserves session and player state", t, func() {
		w, reg := buildWorld()
		snap := FromWorld(w, reg)

		dir := t.TempDir()
		path := filepath.Join(dir, "state.bin")
		So(Save(path, snap), ShouldBeNil)

		loaded, ok, err := Load(path)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		So(len(loaded.Sessions), ShouldEqual, 1)
		So(loaded.Sessions[0].MapID, ShouldEqual, "town")
		So(len(loaded.Sessions[0].Dogs), ShouldEqual, 1)
		So(loaded.Sessions[0].Dogs[0].Name, ShouldEqual, "Alice")
		So(loaded.Sessions[0].Dogs[0].Score, ShouldEqual, uint64(42))
		So(len(loaded.Sessions[0].Dogs[0].Bag), ShouldEqual, 1)
		So(len(loaded.Sessions[0].Objects), ShouldEqual, 1)

		So(len(loaded.Players), ShouldEqual, 1)
		So(loaded.Players[0].Token, ShouldEqual, reg.All()[0].Token)
	})

	Convey("Loading a missing file is not an error", t, func() {
		_, ok, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})

	Convey("Loading a truncated file fails loudly", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.bin")
		So(os.WriteFile(path, []byte{1, 2, 3}, 0o644), ShouldBeNil)
		_, ok, err := Load(path)
		So(err, ShouldNotBeNil)
		So(ok, ShouldBeFalse)
	})
}
