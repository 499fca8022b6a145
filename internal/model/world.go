package model

import "fmt"

// World holds every Map (immutable, created at config load) and every
// Session (created lazily on first join, reused afterward). It is the single
// point of shared mutable state the simulation strand serializes access to.
type World struct {
	maps      []*Map
	mapIndex  map[MapID]int

	sessions        []*Session
	sessionByMap    map[MapID]*Session
	nextSessionID   SessionID

	RetirementTimeMS uint64
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		mapIndex:     map[MapID]int{},
		sessionByMap: map[MapID]*Session{},
	}
}

// AddMap registers a map, rejecting a duplicate id.
func (w *World) AddMap(m *Map) error {
	if _, exists := w.mapIndex[m.ID]; exists {
		return fmt.Errorf("map with id %q already exists", m.ID)
	}
	w.mapIndex[m.ID] = len(w.maps)
	w.maps = append(w.maps, m)
	return nil
}

// Maps returns every registered map, in registration order.
func (w *World) Maps() []*Map { return w.maps }

// FindMap returns the map with the given id, or nil.
func (w *World) FindMap(id MapID) *Map {
	if idx, ok := w.mapIndex[id]; ok {
		return w.maps[idx]
	}
	return nil
}

// SessionForMap returns the live session for a map, creating it on first
// call (§3 Lifecycles: "Session: created lazily on first join for a given
// Map; reused for all subsequent joins to that Map").
func (w *World) SessionForMap(m *Map) *Session {
	if s, ok := w.sessionByMap[m.ID]; ok {
		return s
	}
	id := w.nextSessionID
	w.nextSessionID++
	s := NewSession(id, m, w.RetirementTimeMS)
	w.sessions = append(w.sessions, s)
	w.sessionByMap[m.ID] = s
	return s
}

// Sessions returns every live session.
func (w *World) Sessions() []*Session { return w.sessions }

// FindSession returns the session with the given id, or nil.
func (w *World) FindSession(id SessionID) *Session {
	for _, s := range w.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RestoreSession re-registers a session produced by the snapshot loader,
// assigning it the next session id and wiring it to its map. Used only at
// start-up, before any client traffic.
func (w *World) RestoreSession(mapID MapID, dogs []*Dog, objects []LostObject) (*Session, error) {
	m := w.FindMap(mapID)
	if m == nil {
		return nil, fmt.Errorf("restore: unknown map id %q", mapID)
	}
	id := w.nextSessionID
	w.nextSessionID++
	s := NewSession(id, m, w.RetirementTimeMS)
	for _, d := range dogs {
		if err := s.AddRestoredDog(d); err != nil {
			return nil, err
		}
	}
	for _, o := range objects {
		if err := s.AddRestoredObject(o); err != nil {
			return nil, err
		}
	}
	w.sessions = append(w.sessions, s)
	w.sessionByMap[mapID] = s
	return s, nil
}
