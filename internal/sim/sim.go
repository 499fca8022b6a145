// Package sim orchestrates one simulation tick across every live session
// (spec.md §4.5) and provides the strand: a serialized task queue that every
// state-mutating operation (join, action, tick, snapshot) is submitted
// through, so they run one at a time regardless of how many goroutines call
// in (spec.md §5).
package sim

import (
	"dogwalker-server/internal/collision"
	"dogwalker-server/internal/loot"
	"dogwalker-server/internal/model"
)

// dogRadius and officeRadius are the fixed collision radii from §4.2.
const (
	dogRadius    = 0.6
	officeRadius = 0.5
)

// Engine owns the world and per-session loot generators, and runs ticks
// against them. It holds no lock itself — callers serialize access to it via
// a Strand.
type Engine struct {
	World      *model.World
	generators map[model.SessionID]*loot.Generator
	newGen     func() *loot.Generator
}

// NewEngine creates an engine. newGen is called once per session the first
// time it is ticked, to seed that session's loot generator (every session on
// a map shares the descriptor's loot-generator parameters, per §4.8).
func NewEngine(w *model.World, newGen func() *loot.Generator) *Engine {
	return &Engine{World: w, generators: map[model.SessionID]*loot.Generator{}, newGen: newGen}
}

func (e *Engine) generatorFor(s *model.Session) *loot.Generator {
	g, ok := e.generators[s.ID]
	if !ok {
		g = e.newGen()
		e.generators[s.ID] = g
	}
	return g
}

// Tick advances every session by deltaMS and returns every dog retired this
// tick, across all sessions (§4.5).
func (e *Engine) Tick(deltaMS int) []model.RetirementRecord {
	sessions := e.World.Sessions()

	for _, s := range sessions {
		s.Advance(deltaMS)
		spawnLoot(s, e.generatorFor(s), deltaMS)
	}

	var retired []model.RetirementRecord
	for _, s := range sessions {
		retired = append(retired, s.AdvanceRetirement(uint64(deltaMS))...)
	}

	for _, s := range sessions {
		resolveCollisions(s)
		s.RemoveLostObjects()
		s.DeleteRetiredDogs()
	}

	return retired
}

func spawnLoot(s *model.Session, gen *loot.Generator, deltaMS int) {
	n := gen.Generate(deltaMS, s.NumberOfLostObjects(), s.NumberOfPlayers())
	for i := 0; i < n; i++ {
		objType := loot.GenerateType(s.Map.LootTypes)
		s.AddObject(objType)
	}
}

// sessionProvider adapts a Session's active dogs and (lost objects, then
// offices) into a collision.Provider, per §4.2's required item ordering.
type sessionProvider struct {
	dogs    []*model.Dog
	objects []model.LostObject
	offices []model.Office
}

func newSessionProvider(s *model.Session) *sessionProvider {
	return &sessionProvider{
		dogs:    s.ActiveDogs(),
		objects: s.LostObjects(),
		offices: s.Map.Offices(),
	}
}

func (p *sessionProvider) ItemsCount() int { return len(p.objects) + len(p.offices) }

func (p *sessionProvider) Item(idx int) collision.Item {
	if idx < len(p.objects) {
		o := p.objects[idx]
		return collision.Item{Position: collision.Point{X: o.Position.X, Y: o.Position.Y}, Radius: 0}
	}
	o := p.offices[idx-len(p.objects)]
	return collision.Item{Position: collision.Point{X: float64(o.Position.X), Y: float64(o.Position.Y)}, Radius: officeRadius}
}

func (p *sessionProvider) GatherersCount() int { return len(p.dogs) }

func (p *sessionProvider) Gatherer(idx int) collision.Gatherer {
	d := p.dogs[idx]
	return collision.Gatherer{
		Start:  collision.Point{X: d.PreviousPosition.X, Y: d.PreviousPosition.Y},
		End:    collision.Point{X: d.Position.X, Y: d.Position.Y},
		Radius: dogRadius,
	}
}

// resolveCollisions runs the collision detector over one session's current
// tick and applies every Gather/Drop event in time order (§4.5 step 3).
func resolveCollisions(s *model.Session) {
	provider := newSessionProvider(s)
	events := collision.FindEvents(provider)
	events = collision.FilterEvents(events, len(provider.objects))

	for _, ev := range events {
		dog := provider.dogs[ev.GathererIndex]
		switch ev.Type {
		case collision.Gather:
			obj := provider.objects[ev.ItemIndex]
			if dog.BagSize() < s.Map.BagCapacity {
				dog.GatherObject(obj)
				s.RemoveObjectByID(obj.ID)
			}
		case collision.Drop:
			dog.ClearBag(s.Map.ObjectValue)
		}
	}
}
