package model

// Direction is an input/facing token. STOP and NONE are only ever used as
// inputs to SetSpeed; they are never stored as a dog's facing.
type Direction int

const (
	North Direction = iota
	South
	West
	East
	Stop
	None
)

// DogID identifies a Dog within a Session, minted monotonically starting at 0.
type DogID uint32

// Dog is a player's in-world avatar.
type Dog struct {
	ID            DogID
	Name          string
	DefaultSpeed  float64
	CurrentRoadID RoadID

	Position         PointF
	PreviousPosition PointF
	VX, VY           float64
	Facing           Direction

	Bag   []LostObject
	Score uint64

	PlayingTimeMS uint64
	IdleTimeMS    uint64
	hasMoved      bool
}

// NewDog creates a dog on the given road at the origin; callers place it with
// SetPosition immediately after construction (mirrors the C++ constructor,
// which likewise leaves pos at the default and relies on the caller to set
// it from Map.RandomPosition).
func NewDog(id DogID, name string, defaultSpeed float64, roadID RoadID) *Dog {
	return &Dog{
		ID:            id,
		Name:          name,
		DefaultSpeed:  defaultSpeed,
		CurrentRoadID: roadID,
		Facing:        North,
	}
}

// SetPosition sets both position and previous position, used on join/restore
// so the dog starts with zero velocity-implied movement.
func (d *Dog) SetPosition(p PointF) {
	d.Position = p
	d.PreviousPosition = p
}

// SetSpeed applies a directional command (§4.4). stop=true for explicit
// client STOP input; stop=false for internal stops caused by clamping at a
// road/intersection boundary (§4.1 steps 5-6), which must not clear
// hasMoved so idle-time accounting stays correct.
func (d *Dog) SetSpeed(dir Direction, stop bool) {
	switch dir {
	case North:
		d.VX, d.VY = 0, -d.DefaultSpeed
		d.hasMoved = true
	case South:
		d.VX, d.VY = 0, d.DefaultSpeed
		d.hasMoved = true
	case West:
		d.VX, d.VY = -d.DefaultSpeed, 0
		d.hasMoved = true
	case East:
		d.VX, d.VY = d.DefaultSpeed, 0
		d.hasMoved = true
	case Stop:
		d.VX, d.VY = 0, 0
		if stop {
			d.hasMoved = false
		}
	}
	if dir != Stop && dir != None {
		d.Facing = dir
	}
}

// HasMoved reports whether the dog is currently considered active for idle
// accounting (§3, §4.5).
func (d *Dog) HasMoved() bool { return d.hasMoved }

// Move advances the dog one tick along its current road, handling
// intersection transfer and boundary clamping per §4.1.
func (d *Dog) Move(deltaMS int, m *Map) {
	deltaSec := float64(deltaMS) / 1000.0
	newPos := PointF{X: d.Position.X + deltaSec*d.VX, Y: d.Position.Y + deltaSec*d.VY}

	d.PreviousPosition = d.Position

	curr := m.FindRoad(d.CurrentRoadID)
	if curr == nil {
		return
	}

	var nearestAxis int
	if curr.IsHorizontal() {
		nearestAxis = round(d.Position.X)
	} else {
		nearestAxis = round(d.Position.Y)
	}
	crossID, hasCross := curr.Intersections[nearestAxis]
	var cross *Road
	if hasCross {
		cross = m.FindRoad(crossID)
	}

	switch {
	case curr.IsOnRoad(newPos):
		d.Position = newPos
	case cross != nil && cross.IsOnRoad(newPos):
		d.Position = newPos
		d.CurrentRoadID = cross.ID
	case cross != nil:
		currPos := curr.BoundToRoad(newPos)
		crossPos := cross.BoundToRoad(newPos)
		if newPos.manhattan(currPos) < newPos.manhattan(crossPos) {
			d.Position = currPos
		} else {
			d.Position = crossPos
			d.CurrentRoadID = cross.ID
		}
		d.SetSpeed(Stop, false)
	default:
		d.Position = curr.BoundToRoad(newPos)
		d.SetSpeed(Stop, false)
	}
}

// IncrementTime advances playing and idle time by delta milliseconds (§4.5
// step 2): idle accrues while the dog is not moving, and resets to zero the
// instant it moves again.
func (d *Dog) IncrementTime(deltaMS uint64) {
	if !d.hasMoved {
		d.IdleTimeMS += deltaMS
	} else {
		d.IdleTimeMS = 0
	}
	d.PlayingTimeMS += deltaMS
}

// GatherObject appends an object to the bag. Callers must check BagSize()
// against the map's bag capacity first.
func (d *Dog) GatherObject(o LostObject) { d.Bag = append(d.Bag, o) }

// ClearBag credits score for every carried object at the given value lookup
// and empties the bag (office delivery, §4.5 step 3 Drop).
func (d *Dog) ClearBag(valueOf func(objType int) int) {
	for _, o := range d.Bag {
		d.Score += uint64(valueOf(o.Type))
	}
	d.Bag = nil
}

// BagSize returns the number of objects currently carried.
func (d *Dog) BagSize() int { return len(d.Bag) }

// RetirementRecord is the information kept for a retired dog once it leaves
// the active index (§4.5 step 2, §6 leaderboard sink).
type RetirementRecord struct {
	DogID         DogID
	Name          string
	Score         uint64
	PlayingTimeMS uint64
}
