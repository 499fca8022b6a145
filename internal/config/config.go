// Package config loads the JSON map descriptor described in spec.md §4.8/§6
// into a populated model.World, grounded on the original json_loader.cpp.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"dogwalker-server/internal/loot"
	"dogwalker-server/internal/model"
)

const (
	defaultDogSpeed       = 1.0
	defaultBagCapacity    = 3
	defaultRetirementSecs = 60.0
)

type roadDTO struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingDTO struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeDTO struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type lootTypeDTO struct {
	Value int `json:"value"`
}

type mapDTO struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	DogSpeed    *float64      `json:"dogSpeed,omitempty"`
	BagCapacity *int          `json:"bagCapacity,omitempty"`
	Roads       []roadDTO     `json:"roads"`
	Buildings   []buildingDTO `json:"buildings"`
	Offices     []officeDTO   `json:"offices"`
	LootTypes   []lootTypeDTO `json:"lootTypes"`
}

type lootGeneratorDTO struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type gameDTO struct {
	DefaultDogSpeed     *float64         `json:"defaultDogSpeed,omitempty"`
	DefaultBagCapacity  *int             `json:"defaultBagCapacity,omitempty"`
	LootGeneratorConfig lootGeneratorDTO `json:"lootGeneratorConfig"`
	DogRetirementTime   *float64         `json:"dogRetirementTime,omitempty"`
	Maps                []mapDTO         `json:"maps"`
}

// Loaded is everything the descriptor produces: a populated World plus the
// loot-generator parameters each session's generator is seeded with.
type Loaded struct {
	World              *model.World
	LootPeriodMS       float64
	LootProbability    float64
}

// LoadFile reads and parses a map descriptor file, per §4.8.
func LoadFile(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(data)
}

// Load parses a map descriptor already in memory.
func Load(data []byte) (*Loaded, error) {
	var g gameDTO
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	dogSpeed := defaultDogSpeed
	if g.DefaultDogSpeed != nil {
		dogSpeed = *g.DefaultDogSpeed
	}
	bagCapacity := defaultBagCapacity
	if g.DefaultBagCapacity != nil {
		bagCapacity = *g.DefaultBagCapacity
	}

	if g.LootGeneratorConfig.Period <= 0 {
		return nil, fmt.Errorf("config: lootGeneratorConfig.period must be positive")
	}
	if g.LootGeneratorConfig.Probability < 0 || g.LootGeneratorConfig.Probability > 1 {
		return nil, fmt.Errorf("config: lootGeneratorConfig.probability must be in [0,1]")
	}

	retirementSecs := defaultRetirementSecs
	if g.DogRetirementTime != nil {
		retirementSecs = *g.DogRetirementTime
	}
	if retirementSecs < 0 {
		return nil, fmt.Errorf("config: dogRetirementTime must not be negative")
	}

	w := model.NewWorld()
	w.RetirementTimeMS = uint64(retirementSecs * 1000)

	if len(g.Maps) == 0 {
		return nil, fmt.Errorf("config: no maps defined")
	}
	for i, mapDTO := range g.Maps {
		m, err := buildMap(mapDTO, dogSpeed, bagCapacity)
		if err != nil {
			return nil, fmt.Errorf("config: map[%d]: %w", i, err)
		}
		if err := w.AddMap(m); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	return &Loaded{
		World:           w,
		LootPeriodMS:    g.LootGeneratorConfig.Period * 1000,
		LootProbability: g.LootGeneratorConfig.Probability,
	}, nil
}

func buildMap(dto mapDTO, defaultSpeed float64, defaultBagCapacity int) (*model.Map, error) {
	if dto.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if len(dto.Roads) == 0 {
		return nil, fmt.Errorf("map %q: must have at least one road", dto.ID)
	}

	speed := defaultSpeed
	if dto.DogSpeed != nil {
		speed = *dto.DogSpeed
	}
	if speed < 0 {
		return nil, fmt.Errorf("map %q: dogSpeed must not be negative", dto.ID)
	}

	bagCapacity := defaultBagCapacity
	if dto.BagCapacity != nil {
		bagCapacity = *dto.BagCapacity
	}

	// The raw descriptor is echoed back verbatim to clients requesting this
	// map's static layout (§6 supplemented feature), so re-serialize exactly
	// the subset of fields the original exposes.
	echo := struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Roads     []roadDTO     `json:"roads"`
		Buildings []buildingDTO `json:"buildings"`
		Offices   []officeDTO   `json:"offices"`
		LootTypes []lootTypeDTO `json:"lootTypes"`
	}{dto.ID, dto.Name, dto.Roads, dto.Buildings, dto.Offices, dto.LootTypes}
	echoJSON, err := json.Marshal(echo)
	if err != nil {
		return nil, fmt.Errorf("map %q: re-encode: %w", dto.ID, err)
	}

	m := model.NewMap(model.MapID(dto.ID), dto.Name, speed, bagCapacity, string(echoJSON))

	for t, lt := range dto.LootTypes {
		m.SetObjectValue(t, lt.Value)
	}
	m.LootTypes = len(dto.LootTypes)

	var roadID model.RoadID
	for _, r := range dto.Roads {
		var road *model.Road
		if r.X1 != nil {
			road = model.NewHorizontalRoad(roadID, model.Point{X: r.X0, Y: r.Y0}, *r.X1)
		} else if r.Y1 != nil {
			road = model.NewVerticalRoad(roadID, model.Point{X: r.X0, Y: r.Y0}, *r.Y1)
		} else {
			return nil, fmt.Errorf("map %q: road must specify x1 or y1", dto.ID)
		}
		if err := m.AddRoad(road); err != nil {
			return nil, err
		}
		roadID++
	}
	m.FillIntersections()

	for _, b := range dto.Buildings {
		m.AddBuilding(model.Building{Bounds: model.Rectangle{
			Position: model.Point{X: b.X, Y: b.Y},
			Size:     model.Size{Width: b.W, Height: b.H},
		}})
	}

	for _, o := range dto.Offices {
		if o.ID == "" {
			return nil, fmt.Errorf("map %q: office missing id", dto.ID)
		}
		m.AddOffice(model.Office{
			ID:       model.OfficeID(o.ID),
			Position: model.Point{X: o.X, Y: o.Y},
			Offset:   model.Offset{DX: o.OffsetX, DY: o.OffsetY},
		})
	}

	return m, nil
}

// NewLootGenerator builds the loot.Generator for a session using this
// descriptor's parameters (one generator per session, per §4.3).
func (l *Loaded) NewLootGenerator() *loot.Generator {
	return loot.NewGenerator(l.LootPeriodMS, l.LootProbability, nil)
}
