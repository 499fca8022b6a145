package model

import "fmt"

// SessionID identifies a Session within a World.
type SessionID uint32

// Session is a live instance of a Map, owning its dogs and lost objects.
// Dogs and lost objects are kept in insertion-ordered slices alongside an
// id->index map, mirroring the C++ original's vector+index-map pairing; the
// ordered slice index is also the "gatherer_id"/"item_id" the collision
// detector works with for one tick.
type Session struct {
	ID    SessionID
	MapID MapID
	Map   *Map

	RetirementTimeMS uint64

	dogs      []*Dog
	dogIndex  map[DogID]int
	nextDogID DogID

	objects      []LostObject
	objectIndex  map[LostObjectID]int
	nextObjectID LostObjectID
}

// NewSession creates an empty session bound to a map.
func NewSession(id SessionID, m *Map, retirementTimeMS uint64) *Session {
	return &Session{
		ID:               id,
		MapID:            m.ID,
		Map:              m,
		RetirementTimeMS: retirementTimeMS,
		dogIndex:         map[DogID]int{},
		objectIndex:      map[LostObjectID]int{},
	}
}

// AddDog mints a new dog id, places it on a road (random if randomizeSpawn)
// and registers it.
func (s *Session) AddDog(name string, randomizeSpawn bool) *Dog {
	id := s.nextDogID
	s.nextDogID++
	roadID := s.Map.RandomRoad(randomizeSpawn)
	dog := NewDog(id, name, s.Map.DefaultDogSpeed, roadID)
	dog.SetPosition(s.Map.RandomPosition(roadID, randomizeSpawn))
	s.registerDog(dog)
	return dog
}

// AddRestoredDog registers a dog reconstructed from a snapshot, preserving
// its id and bumping nextDogID past it so future AddDog calls never collide.
func (s *Session) AddRestoredDog(dog *Dog) error {
	if _, exists := s.dogIndex[dog.ID]; exists {
		return fmt.Errorf("dog with id %d already exists in session", dog.ID)
	}
	s.registerDog(dog)
	if dog.ID >= s.nextDogID {
		s.nextDogID = dog.ID + 1
	}
	return nil
}

func (s *Session) registerDog(dog *Dog) {
	s.dogIndex[dog.ID] = len(s.dogs)
	s.dogs = append(s.dogs, dog)
}

// FindDog returns the dog with the given id, or nil.
func (s *Session) FindDog(id DogID) *Dog {
	if idx, ok := s.dogIndex[id]; ok {
		return s.dogs[idx]
	}
	return nil
}

// Dogs returns the dogs in stable order (the order used as the collision
// detector's gatherer index for this tick).
func (s *Session) Dogs() []*Dog { return s.dogs }

// NumberOfPlayers is the live dog count.
func (s *Session) NumberOfPlayers() int { return len(s.dogs) }

// AddObject spawns a lost object of the given type at a random road/position.
func (s *Session) AddObject(objType int) *LostObject {
	roadID := s.Map.RandomRoad(true)
	pos := s.Map.RandomPosition(roadID, true)
	return s.addObjectAt(objType, pos)
}

func (s *Session) addObjectAt(objType int, pos PointF) *LostObject {
	id := s.nextObjectID
	s.nextObjectID++
	obj := LostObject{ID: id, Type: objType, Position: pos}
	s.objectIndex[obj.ID] = len(s.objects)
	s.objects = append(s.objects, obj)
	return &s.objects[len(s.objects)-1]
}

// AddRestoredObject registers a lost object reconstructed from a snapshot,
// preserving its id.
func (s *Session) AddRestoredObject(obj LostObject) error {
	if _, exists := s.objectIndex[obj.ID]; exists {
		return fmt.Errorf("lost object with id %d already exists in session", obj.ID)
	}
	s.objectIndex[obj.ID] = len(s.objects)
	s.objects = append(s.objects, obj)
	if obj.ID >= s.nextObjectID {
		s.nextObjectID = obj.ID + 1
	}
	return nil
}

// LostObjects returns the lost objects in stable order (the order used as
// the collision detector's item index, before offices).
func (s *Session) LostObjects() []LostObject { return s.objects }

// NumberOfLostObjects is the live lost object count.
func (s *Session) NumberOfLostObjects() int { return len(s.objects) }

// RemoveObject deletes a lost object by id; it does not rebuild the index
// immediately (see RemoveLostObjects, called once per tick).
func (s *Session) removeObject(id LostObjectID) {
	delete(s.objectIndex, id)
}

// RemoveLostObjects physically removes every object no longer present in
// objectIndex and rebuilds the index map (§9: fixes the original's
// remove_if-without-erase bug; this removes physically, matching the spec).
func (s *Session) RemoveLostObjects() {
	kept := s.objects[:0]
	for _, o := range s.objects {
		if _, ok := s.objectIndex[o.ID]; ok {
			kept = append(kept, o)
		}
	}
	s.objects = kept
	s.objectIndex = make(map[LostObjectID]int, len(s.objects))
	for i, o := range s.objects {
		s.objectIndex[o.ID] = i
	}
}

// AdvanceRetirement increments every dog's playing/idle time by deltaMS and
// returns retirement records for any dog whose idle time has crossed the
// session's retirement threshold, removing them from the active index
// (§4.5 step 2). The dog struct itself is left in place until
// DeleteRetiredDogs is called, so a single tick can still reference it.
// RetirementTimeMS == 0 disables retirement entirely, rather than retiring
// every dog on its first idle tick.
func (s *Session) AdvanceRetirement(deltaMS uint64) []RetirementRecord {
	if s.RetirementTimeMS == 0 {
		for _, dog := range s.dogs {
			dog.IncrementTime(deltaMS)
		}
		return nil
	}
	var retired []RetirementRecord
	for _, dog := range s.dogs {
		dog.IncrementTime(deltaMS)
		if dog.IdleTimeMS >= s.RetirementTimeMS {
			retired = append(retired, RetirementRecord{
				DogID:         dog.ID,
				Name:          dog.Name,
				Score:         dog.Score,
				PlayingTimeMS: dog.PlayingTimeMS,
			})
			delete(s.dogIndex, dog.ID)
		}
	}
	return retired
}

// DeleteRetiredDogs physically removes every dog no longer present in
// dogIndex and rebuilds the index map (§9: same fix as RemoveLostObjects).
func (s *Session) DeleteRetiredDogs() {
	kept := s.dogs[:0]
	for _, d := range s.dogs {
		if _, ok := s.dogIndex[d.ID]; ok {
			kept = append(kept, d)
		}
	}
	s.dogs = kept
	s.dogIndex = make(map[DogID]int, len(s.dogs))
	for i, d := range s.dogs {
		s.dogIndex[d.ID] = i
	}
}

// Advance runs one movement tick for every dog in the session (§4.1).
func (s *Session) Advance(deltaMS int) {
	for _, dog := range s.dogs {
		dog.Move(deltaMS, s.Map)
	}
}

// RemoveObjectByID marks an object consumed; it is physically removed on the
// next RemoveLostObjects call.
func (s *Session) RemoveObjectByID(id LostObjectID) { s.removeObject(id) }

// ObjectAt returns the lost object at the given collision-detector item
// index, or false if out of range.
func (s *Session) ObjectAt(idx int) (LostObject, bool) {
	if idx < 0 || idx >= len(s.objects) {
		return LostObject{}, false
	}
	return s.objects[idx], true
}

// DogAt returns the dog at the given collision-detector gatherer index, or
// nil if out of range.
func (s *Session) DogAt(idx int) *Dog {
	if idx < 0 || idx >= len(s.dogs) {
		return nil
	}
	return s.dogs[idx]
}

// ActiveDogs returns the dogs not yet retired this tick, in a stable order
// suitable for use as a fresh collision-detector gatherer index (distinct
// from the raw slice index once a retirement has removed an entry from
// dogIndex but before DeleteRetiredDogs has run).
func (s *Session) ActiveDogs() []*Dog {
	active := make([]*Dog, 0, len(s.dogs))
	for _, d := range s.dogs {
		if _, ok := s.dogIndex[d.ID]; ok {
			active = append(active, d)
		}
	}
	return active
}
