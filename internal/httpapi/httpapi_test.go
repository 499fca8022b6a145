package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"dogwalker-server/internal/loot"
	"dogwalker-server/internal/model"
	"dogwalker-server/internal/players"
	"dogwalker-server/internal/sim"
)

func TestDirRoundTrip(t *testing.T) {
	Convey("DirToStr and StrToDir round-trip over the wire alphabet", t, func() {
		for _, code := range []string{"U", "D", "L", "R", ""} {
			So(DirToStr(StrToDir(code)), ShouldEqual, code)
		}
	})

	Convey("An unrecognized code parses to None", t, func() {
		So(StrToDir("Q"), ShouldEqual, model.None)
	})
}

func newTestServer() (*Server, *model.World, *model.Map) {
	m := model.NewMap("town", "Town", 3.0, 3, "{\"id\":\"town\"}")
	road := model.NewHorizontalRoad(0, model.Point{X: 0, Y: 0}, 10)
	_ = m.AddRoad(road)
	m.FillIntersections()

	w := model.NewWorld()
	_ = w.AddMap(m)

	strand := sim.NewStrand()
	engine := sim.NewEngine(w, func() *loot.Generator { return loot.NewGenerator(60000, 0, func() float64 { return 0 }) })
	reg := players.NewRegistry()

	s := NewServer(Config{
		Strand:   strand,
		Engine:   engine,
		Players:  reg,
		TestMode: true,
	})
	return s, w, m
}

func TestJoinAndAction(t *testing.T) {
	Convey("Joining a loaded map returns a 32-char token, and action sets velocity", t, func() {
		s, _, _ := newTestServer()

		joinBody, _ := json.Marshal(joinRequest{UserName: "Alice", MapID: "town"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/game/join", bytes.NewReader(joinBody))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		So(rec.Code, ShouldEqual, http.StatusOK)

		var joinResp joinResponse
		So(json.Unmarshal(rec.Body.Bytes(), &joinResp), ShouldBeNil)
		So(len(joinResp.AuthToken), ShouldEqual, players.TokenLength)

		actionBody, _ := json.Marshal(actionRequest{Move: "R"})
		req2 := httptest.NewRequest(http.MethodPost, "/api/v1/game/player/action", bytes.NewReader(actionBody))
		req2.Header.Set("Authorization", "Bearer "+joinResp.AuthToken)
		rec2 := httptest.NewRecorder()
		s.ServeHTTP(rec2, req2)
		So(rec2.Code, ShouldEqual, http.StatusOK)

		dog := s.engine.World.FindSession(0).FindDog(model.DogID(joinResp.PlayerID))
		So(dog.VX, ShouldEqual, 3.0)
		So(dog.VY, ShouldEqual, 0.0)
	})

	Convey("Joining an unknown map is rejected", t, func() {
		s, _, _ := newTestServer()
		joinBody, _ := json.Marshal(joinRequest{UserName: "Alice", MapID: "nowhere"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/game/join", bytes.NewReader(joinBody))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		So(rec.Code, ShouldEqual, http.StatusNotFound)
	})

	Convey("An empty userName is rejected", t, func() {
		s, _, _ := newTestServer()
		joinBody, _ := json.Marshal(joinRequest{UserName: "", MapID: "town"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/game/join", bytes.NewReader(joinBody))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		So(rec.Code, ShouldEqual, http.StatusBadRequest)
	})

	Convey("An unknown token is rejected on a protected route", t, func() {
		s, _, _ := newTestServer()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/game/state", nil)
		req.Header.Set("Authorization", "Bearer "+string(make([]byte, players.TokenLength)))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		So(rec.Code, ShouldEqual, http.StatusUnauthorized)
	})
}

func TestMapsList(t *testing.T) {
	Convey("GET /api/v1/maps lists the loaded map", t, func() {
		s, _, _ := newTestServer()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/maps", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		So(rec.Code, ShouldEqual, http.StatusOK)

		var out []mapSummaryDTO
		So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
		So(len(out), ShouldEqual, 1)
		So(out[0].ID, ShouldEqual, "town")
	})
}
