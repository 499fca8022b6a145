// Package players implements the opaque-token <-> player <-> dog registry
// described in spec.md §4.6.
package players

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"dogwalker-server/internal/model"
)

// TokenLength is the fixed length of a minted token: two zero-padded
// 16-hex-digit (64-bit) values concatenated.
const TokenLength = 32

// Player is the external identity bridging a bearer token to a (session,
// dog) pair. Active becomes false on retirement or explicit deletion; the
// struct itself stays reachable by dog id for post-mortem lookups (§4.6).
type Player struct {
	DogID     model.DogID
	SessionID model.SessionID
	Token     string
	Active    bool
}

// mintToken draws two uniformly random 64-bit values from a CSPRNG and
// formats each as 16 zero-padded hex digits, matching the C++ original's
// two-mt19937_64-generator scheme (§4.6).
func mintToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	hi := binary.BigEndian.Uint64(buf[0:8])
	lo := binary.BigEndian.Uint64(buf[8:16])
	return fmt.Sprintf("%016x%016x", hi, lo), nil
}

// Registry is the Players collection: token -> Player and dog id -> Player.
type Registry struct {
	players    []*Player
	byToken    map[string]*Player
	byDogID    map[model.DogID]*Player
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byToken: map[string]*Player{},
		byDogID: map[model.DogID]*Player{},
	}
}

// Add mints a token and registers a new active player for the given dog in
// the given session. Returns an error only on the astronomically unlikely
// token collision (§4.6).
func (r *Registry) Add(dogID model.DogID, sessionID model.SessionID) (*Player, error) {
	token, err := mintToken()
	if err != nil {
		return nil, err
	}
	if _, exists := r.byToken[token]; exists {
		return nil, fmt.Errorf("token collision, retry join")
	}
	p := &Player{DogID: dogID, SessionID: sessionID, Token: token, Active: true}
	r.players = append(r.players, p)
	r.byToken[token] = p
	r.byDogID[dogID] = p
	return p, nil
}

// AddRestored re-registers a player reconstructed from a snapshot, keeping
// its original token (used only by the snapshot loader at start-up).
func (r *Registry) AddRestored(dogID model.DogID, sessionID model.SessionID, token string) (*Player, error) {
	if _, exists := r.byToken[token]; exists {
		return nil, fmt.Errorf("player with token %s already exists", token)
	}
	p := &Player{DogID: dogID, SessionID: sessionID, Token: token, Active: true}
	r.players = append(r.players, p)
	r.byToken[token] = p
	r.byDogID[dogID] = p
	return p, nil
}

// FindByToken returns the active player for a token, or nil.
func (r *Registry) FindByToken(token string) *Player {
	if p, ok := r.byToken[token]; ok && p.Active {
		return p
	}
	return nil
}

// Delete deactivates the player owning dogID and releases its token back to
// the pool. The Player struct remains reachable via All() for audit.
func (r *Registry) Delete(dogID model.DogID) {
	p, ok := r.byDogID[dogID]
	if !ok {
		return
	}
	delete(r.byToken, p.Token)
	delete(r.byDogID, dogID)
	p.Active = false
}

// All returns every player ever registered, active or not.
func (r *Registry) All() []*Player { return r.players }

// ActiveCount returns the number of currently active players.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, p := range r.players {
		if p.Active {
			n++
		}
	}
	return n
}
