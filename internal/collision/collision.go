// Package collision implements the time-ordered gather/drop event detector
// described in spec.md §4.2: given a set of moving gatherer segments and a
// set of stationary items, it reports which gatherer touched which item
// first.
package collision

import (
	"math"
	"sort"
)

// eps mirrors the C++ original's std::numeric_limits<double>::epsilon() used
// to decide whether a gatherer "moved" this tick.
const eps = 2.220446049250313e-16

// Point is a 2D world coordinate.
type Point struct{ X, Y float64 }

// Item is a stationary collision target: a lost object (radius 0) or an
// office (radius 0.5).
type Item struct {
	Position Point
	Radius   float64
}

// Gatherer is a moving collision source: a dog's previous_position →
// position segment, with its collision radius (0.6 for dogs).
type Gatherer struct {
	Start, End Point
	Radius     float64
}

// hasMoved reports whether the gatherer's segment has nonzero length beyond
// floating-point noise; stationary gatherers never emit events.
func (g Gatherer) hasMoved() bool {
	return math.Abs(g.Start.X-g.End.X) > eps || math.Abs(g.Start.Y-g.End.Y) > eps
}

// Provider exposes the items and gatherers for one tick's collision pass.
// The concrete game implementation presents lost objects first, then
// offices (so an item index below len(lost objects) is a Gather, the rest
// are Drops); the in-memory test provider is used directly in unit tests.
type Provider interface {
	ItemsCount() int
	Item(idx int) Item
	GatherersCount() int
	Gatherer(idx int) Gatherer
}

// TestProvider is a narrow in-memory Provider used by unit tests and by
// callers assembling ad-hoc collision scenarios.
type TestProvider struct {
	Items     []Item
	Gatherers []Gatherer
}

func (p *TestProvider) ItemsCount() int           { return len(p.Items) }
func (p *TestProvider) Item(idx int) Item         { return p.Items[idx] }
func (p *TestProvider) GatherersCount() int       { return len(p.Gatherers) }
func (p *TestProvider) Gatherer(idx int) Gatherer { return p.Gatherers[idx] }

// EventType classifies a GatheringEvent once its item index is known.
type EventType int

const (
	None EventType = iota
	Gather
	Drop
)

// Event is one detected gather/drop touch, carrying enough to sort and
// classify it.
type Event struct {
	ItemIndex     int
	GathererIndex int
	SqDistance    float64
	Time          float64 // projection ratio along the gatherer's segment, in [0,1]
	Type          EventType
}

// collectResult is the raw geometry of one gatherer/item test.
type collectResult struct {
	sqDistance float64
	projRatio  float64
}

func (r collectResult) isCollected(radius float64) bool {
	return r.projRatio >= 0 && r.projRatio <= 1 && r.sqDistance <= radius*radius
}

// tryCollectPoint projects point c onto segment a→b and returns the squared
// perpendicular distance and the projection ratio (§4.2).
func tryCollectPoint(a, b, c Point) collectResult {
	ux, uy := c.X-a.X, c.Y-a.Y
	vx, vy := b.X-a.X, b.Y-a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy
	projRatio := uDotV / vLen2
	sqDistance := uLen2 - (uDotV*uDotV)/vLen2
	return collectResult{sqDistance: sqDistance, projRatio: projRatio}
}

// FindEvents runs every (gatherer, item) pair through tryCollectPoint and
// returns every hit, sorted ascending by time (§4.2).
func FindEvents(p Provider) []Event {
	var events []Event
	for i := 0; i < p.GatherersCount(); i++ {
		g := p.Gatherer(i)
		if !g.hasMoved() {
			continue
		}
		for j := 0; j < p.ItemsCount(); j++ {
			item := p.Item(j)
			res := tryCollectPoint(g.Start, g.End, item.Position)
			if res.isCollected(g.Radius + item.Radius) {
				events = append(events, Event{
					ItemIndex:     j,
					GathererIndex: i,
					SqDistance:    res.sqDistance,
					Time:          res.projRatio,
				})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events
}

// FilterEvents classifies each event (items below typeDelim are Gather, the
// rest are Drop) and drops duplicate Gather events so each item is
// collected at most once — the first in time order wins. Drop events are
// never deduplicated. This replaces the source's erase-while-iterating
// FilterGatherEvents (see spec.md §9 Open questions) with the prescribed
// semantics: build a fresh slice rather than mutate in place.
func FilterEvents(events []Event, typeDelim int) []Event {
	seen := make(map[int]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.ItemIndex < typeDelim {
			ev.Type = Gather
			if seen[ev.ItemIndex] {
				continue
			}
			seen[ev.ItemIndex] = true
		} else {
			ev.Type = Drop
		}
		out = append(out, ev)
	}
	return out
}
