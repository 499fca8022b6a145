// Package httpapi implements the JSON/HTTP transport described in spec.md
// §6-§7: map listing, join, per-tick player actions and state, and the
// leaderboard query. Every request that touches simulation state is
// submitted through the sim.Strand so it interleaves safely with ticks.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dogwalker-server/internal/leaderboard"
	"dogwalker-server/internal/model"
	"dogwalker-server/internal/players"
	"dogwalker-server/internal/sim"
)

// Error codes from the spec's error taxonomy (§7).
const (
	codeInvalidMethod   = "invalidMethod"
	codeInvalidArgument = "invalidArgument"
	codeInvalidToken    = "invalidToken"
	codeBadRequest      = "badRequest"
	codeMapNotFound     = "mapNotFound"
	codeUnknownToken    = "unknownToken"
	codeInternal        = "internalError"
)

const maxRecordsPage = 100

// Server holds everything an HTTP handler needs: the serialized simulation
// engine, the player/token registry, and the leaderboard sink.
type Server struct {
	mux            *http.ServeMux
	strand         *sim.Strand
	engine         *sim.Engine
	players        *players.Registry
	board          *leaderboard.Sink
	randomizeSpawn bool
	testMode       bool
	log            zerolog.Logger
}

// Config bundles Server's dependencies.
type Config struct {
	Strand         *sim.Strand
	Engine         *sim.Engine
	Players        *players.Registry
	Board          *leaderboard.Sink
	RandomizeSpawn bool
	TestMode       bool // true when --tick-period was omitted: enables POST /api/v1/game/tick
	Logger         zerolog.Logger
}

// NewServer builds a Server with every route registered.
func NewServer(cfg Config) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		strand:         cfg.Strand,
		engine:         cfg.Engine,
		players:        cfg.Players,
		board:          cfg.Board,
		randomizeSpawn: cfg.RandomizeSpawn,
		testMode:       cfg.TestMode,
		log:            cfg.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/maps", s.handleMaps)
	s.mux.HandleFunc("HEAD /api/v1/maps", s.handleMaps)
	s.mux.HandleFunc("GET /api/v1/maps/{id}", s.handleMapByID)
	s.mux.HandleFunc("HEAD /api/v1/maps/{id}", s.handleMapByID)
	s.mux.HandleFunc("POST /api/v1/game/join", s.handleJoin)
	s.mux.HandleFunc("GET /api/v1/game/players", s.withAuth(s.handlePlayers))
	s.mux.HandleFunc("HEAD /api/v1/game/players", s.withAuth(s.handlePlayers))
	s.mux.HandleFunc("GET /api/v1/game/state", s.withAuth(s.handleState))
	s.mux.HandleFunc("HEAD /api/v1/game/state", s.withAuth(s.handleState))
	s.mux.HandleFunc("POST /api/v1/game/player/action", s.withAuth(s.handleAction))
	s.mux.HandleFunc("POST /api/v1/game/tick", s.handleTick)
	s.mux.HandleFunc("GET /api/v1/game/records", s.handleRecords)
	s.mux.HandleFunc("HEAD /api/v1/game/records", s.handleRecords)
}

// ServeHTTP implements http.Handler, wrapping every request with the
// no-cache header and a panic-to-500 recovery boundary (§7: "a catch-all
// converts panics into 500s; the strand itself survives").
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		}
	}()
	s.mux.ServeHTTP(w, r)
}

// --- direction wire codes (§6, round-trip property in §8) ---

// DirToStr renders a model.Direction as its one-character (or empty) wire
// code. Facing directions not in {N,S,W,E} have no wire code and return "".
func DirToStr(d model.Direction) string {
	switch d {
	case model.North:
		return "U"
	case model.South:
		return "D"
	case model.West:
		return "L"
	case model.East:
		return "R"
	case model.Stop:
		return ""
	}
	return ""
}

// StrToDir parses a wire code into a Direction. Any value outside
// {U,D,L,R,""} yields model.None, signaling a parse error to the caller.
func StrToDir(code string) model.Direction {
	switch code {
	case "U":
		return model.North
	case "D":
		return model.South
	case "L":
		return model.West
	case "R":
		return model.East
	case "":
		return model.Stop
	}
	return model.None
}

// --- GET /api/v1/maps ---

type mapSummaryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	maps := sim.Run(s.strand, func() []mapSummaryDTO {
		var out []mapSummaryDTO
		for _, m := range s.engine.World.Maps() {
			out = append(out, mapSummaryDTO{ID: string(m.ID), Name: m.Name})
		}
		return out
	})
	writeJSON(w, http.StatusOK, maps)
}

// --- GET /api/v1/maps/{id} ---

func (s *Server) handleMapByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	raw, ok := sim.Run(s.strand, func() (string, bool) {
		m := s.engine.World.FindMap(model.MapID(id))
		if m == nil {
			return "", false
		}
		return m.JSON, true
	})
	if !ok {
		writeError(w, http.StatusNotFound, codeMapNotFound, "map not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(raw))
}

// --- POST /api/v1/game/join ---

type joinRequest struct {
	UserName string `json:"userName"`
	MapID    string `json:"mapId"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  uint32 `json:"playerId"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}
	if req.UserName == "" {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "userName must not be empty")
		return
	}

	type result struct {
		resp joinResponse
		err  string
	}
	res := sim.Run(s.strand, func() result {
		m := s.engine.World.FindMap(model.MapID(req.MapID))
		if m == nil {
			return result{err: codeMapNotFound}
		}
		session := s.engine.World.SessionForMap(m)
		dog := session.AddDog(req.UserName, s.randomizeSpawn)
		p, err := s.players.Add(dog.ID, session.ID)
		if err != nil {
			return result{err: codeInternal}
		}
		return result{resp: joinResponse{AuthToken: p.Token, PlayerID: uint32(dog.ID)}}
	})
	if res.err == codeMapNotFound {
		writeError(w, http.StatusNotFound, codeMapNotFound, "map not found")
		return
	}
	if res.err != "" {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not create player")
		return
	}
	writeJSON(w, http.StatusOK, res.resp)
}

// --- Bearer auth middleware ---

type ctxKey int

const playerCtxKey ctxKey = 0

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "missing or malformed Authorization header")
			return
		}
		p := sim.Run(s.strand, func() *players.Player { return s.players.FindByToken(token) })
		if p == nil {
			writeError(w, http.StatusUnauthorized, codeUnknownToken, "unknown token")
			return
		}
		ctx := context.WithValue(r.Context(), playerCtxKey, p)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(h, prefix)
	if len(token) != players.TokenLength {
		return "", false
	}
	return token, true
}

func playerFromContext(r *http.Request) *players.Player {
	p, _ := r.Context().Value(playerCtxKey).(*players.Player)
	return p
}

// --- GET /api/v1/game/players ---

type playerInfoDTO struct {
	Name string `json:"name"`
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	p := playerFromContext(r)
	out := sim.Run(s.strand, func() map[string]playerInfoDTO {
		result := map[string]playerInfoDTO{}
		session := s.engine.World.FindSession(p.SessionID)
		if session == nil {
			return result
		}
		for _, d := range session.Dogs() {
			result[strconv.FormatUint(uint64(d.ID), 10)] = playerInfoDTO{Name: d.Name}
		}
		return result
	})
	writeJSON(w, http.StatusOK, out)
}

// --- GET /api/v1/game/state ---

type dogStateDTO struct {
	Pos   [2]float64    `json:"pos"`
	Speed [2]float64    `json:"speed"`
	Dir   string        `json:"dir"`
	Bag   []bagEntryDTO `json:"bag"`
	Score uint64        `json:"score"`
}

type bagEntryDTO struct {
	ID   uint32 `json:"id"`
	Type int    `json:"type"`
}

type lostObjectStateDTO struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type stateResponse struct {
	Players     map[string]dogStateDTO        `json:"players"`
	LostObjects map[string]lostObjectStateDTO `json:"lostObjects"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p := playerFromContext(r)
	resp := sim.Run(s.strand, func() stateResponse {
		out := stateResponse{Players: map[string]dogStateDTO{}, LostObjects: map[string]lostObjectStateDTO{}}
		session := s.engine.World.FindSession(p.SessionID)
		if session == nil {
			return out
		}
		for _, d := range session.Dogs() {
			dto := dogStateDTO{
				Pos:   [2]float64{round1(d.Position.X), round1(d.Position.Y)},
				Speed: [2]float64{round1(d.VX), round1(d.VY)},
				Dir:   DirToStr(d.Facing),
				Score: d.Score,
			}
			for _, o := range d.Bag {
				dto.Bag = append(dto.Bag, bagEntryDTO{ID: uint32(o.ID), Type: o.Type})
			}
			out.Players[strconv.FormatUint(uint64(d.ID), 10)] = dto
		}
		for _, o := range session.LostObjects() {
			out.LostObjects[strconv.FormatUint(uint64(o.ID), 10)] = lostObjectStateDTO{
				Type: o.Type,
				Pos:  [2]float64{round1(o.Position.X), round1(o.Position.Y)},
			}
		}
		return out
	})
	writeJSON(w, http.StatusOK, resp)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5*sign(v))) / 10
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// --- POST /api/v1/game/player/action ---

type actionRequest struct {
	Move string `json:"move"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	p := playerFromContext(r)
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}
	dir := StrToDir(req.Move)
	if dir == model.None {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "invalid move code")
		return
	}
	sim.RunVoid(s.strand, func() {
		session := s.engine.World.FindSession(p.SessionID)
		if session == nil {
			return
		}
		dog := session.FindDog(p.DogID)
		if dog == nil {
			return
		}
		dog.SetSpeed(dir, true)
	})
	writeJSON(w, http.StatusOK, map[string]string{})
}

// --- POST /api/v1/game/tick ---

type tickRequest struct {
	TimeDelta int `json:"timeDelta"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.testMode {
		writeError(w, http.StatusBadRequest, codeBadRequest, "manual ticking is disabled when the server runs its own ticker")
		return
	}
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}
	if req.TimeDelta < 0 {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "timeDelta must not be negative")
		return
	}

	retired := sim.Run(s.strand, func() []model.RetirementRecord {
		return s.engine.Tick(req.TimeDelta)
	})
	s.saveRetirements(r.Context(), retired)
	writeJSON(w, http.StatusOK, map[string]string{})
}

// saveRetirements persists retirement records. A write failure is logged and
// does not fail the request (§7: runtime persistence failures are logged,
// not fatal).
func (s *Server) saveRetirements(ctx context.Context, retired []model.RetirementRecord) {
	if s.board == nil || len(retired) == 0 {
		return
	}
	records := make([]leaderboard.Record, 0, len(retired))
	for _, r := range retired {
		records = append(records, leaderboard.Record{Name: r.Name, Score: r.Score, PlayingTimeMS: r.PlayingTimeMS})
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.board.Save(ctx, records); err != nil {
		s.log.Error().Err(err).Msg("leaderboard save failed")
	}
}

// --- GET /api/v1/game/records ---

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	start := 0
	if v := r.URL.Query().Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidArgument, "start must be a non-negative integer")
			return
		}
		start = n
	}
	maxItems := 100
	if v := r.URL.Query().Get("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidArgument, "maxItems must be a non-negative integer")
			return
		}
		maxItems = n
	}
	if maxItems > maxRecordsPage {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "maxItems must not exceed 100")
		return
	}

	if s.board == nil {
		writeJSON(w, http.StatusOK, []leaderboard.Record{})
		return
	}
	records, err := s.board.Top(r.Context(), start, maxItems)
	if err != nil {
		s.log.Error().Err(err).Msg("leaderboard query failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "could not read leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// --- response helpers ---

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"code":%q,"message":"encode error"}`, codeInternal)
	}
}
