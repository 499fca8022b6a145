package players

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"dogwalker-server/internal/model"
)

func TestRegistry(t *testing.T) {
	Convey("Add mints a 32-character token and registers the player", t, func() {
		r := NewRegistry()
		p, err := r.Add(0, 0)
		So(err, ShouldBeNil)
		So(len(p.Token), ShouldEqual, TokenLength)
		So(p.Active, ShouldBeTrue)
		So(r.FindByToken(p.Token), ShouldEqual, p)
	})

	Convey("Two players never share a token", t, func() {
		r := NewRegistry()
		p1, _ := r.Add(0, 0)
		p2, _ := r.Add(1, 0)
		So(p1.Token, ShouldNotEqual, p2.Token)
	})

	Convey("Delete deactivates the player and releases its token", t, func() {
		r := NewRegistry()
		p, _ := r.Add(model.DogID(7), model.SessionID(1))
		r.Delete(model.DogID(7))
		So(p.Active, ShouldBeFalse)
		So(r.FindByToken(p.Token), ShouldBeNil)
	})

	Convey("AddRestored rejects a token collision", t, func() {
		r := NewRegistry()
		p, _ := r.Add(0, 0)
		_, err := r.AddRestored(1, 0, p.Token)
		So(err, ShouldNotBeNil)
	})
}
