// Package snapshot implements deterministic binary serialization of the
// running World, as described in spec.md §4.7: a length-prefixed sequence of
// SessionRepr followed by a length-prefixed sequence of PlayerRepr, written
// atomically via a temp-file-then-rename protocol.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dogwalker-server/internal/model"
	"dogwalker-server/internal/players"
)

// LostObjectRepr is the on-disk form of a model.LostObject.
type LostObjectRepr struct {
	ID       uint32
	Type     uint64
	PosX     float64
	PosY     float64
}

// DogRepr is the on-disk form of a model.Dog.
type DogRepr struct {
	ID            uint32
	Name          string
	PosX, PosY    float64
	DefaultSpeed  float64
	CurrentRoadID uint32
	VX, VY        float64
	Facing        uint8
	Score         uint64
	Bag           []LostObjectRepr
}

// SessionRepr is the on-disk form of a model.Session.
type SessionRepr struct {
	ID      uint32
	MapID   string
	Dogs    []DogRepr
	Objects []LostObjectRepr
}

// PlayerRepr is the on-disk form of a players.Player.
type PlayerRepr struct {
	DogID     uint32
	SessionID uint32
	Token     string
}

// Snapshot is the full persisted state: every live session and every active
// player.
type Snapshot struct {
	Sessions []SessionRepr
	Players  []PlayerRepr
}

// FromWorld captures the current state of a World and Players registry.
func FromWorld(w *model.World, reg *players.Registry) Snapshot {
	var snap Snapshot
	for _, s := range w.Sessions() {
		sr := SessionRepr{ID: uint32(s.ID), MapID: string(s.MapID)}
		for _, d := range s.Dogs() {
			sr.Dogs = append(sr.Dogs, dogToRepr(d))
		}
		for _, o := range s.LostObjects() {
			sr.Objects = append(sr.Objects, objectToRepr(o))
		}
		snap.Sessions = append(snap.Sessions, sr)
	}
	for _, p := range reg.All() {
		if !p.Active {
			continue
		}
		snap.Players = append(snap.Players, PlayerRepr{
			DogID:     uint32(p.DogID),
			SessionID: uint32(p.SessionID),
			Token:     p.Token,
		})
	}
	return snap
}

func dogToRepr(d *model.Dog) DogRepr {
	r := DogRepr{
		ID:            uint32(d.ID),
		Name:          d.Name,
		PosX:          d.Position.X,
		PosY:          d.Position.Y,
		DefaultSpeed:  d.DefaultSpeed,
		CurrentRoadID: uint32(d.CurrentRoadID),
		VX:            d.VX,
		VY:            d.VY,
		Facing:        uint8(d.Facing),
		Score:         d.Score,
	}
	for _, o := range d.Bag {
		r.Bag = append(r.Bag, objectToRepr(o))
	}
	return r
}

func objectToRepr(o model.LostObject) LostObjectRepr {
	return LostObjectRepr{ID: uint32(o.ID), Type: uint64(o.Type), PosX: o.Position.X, PosY: o.Position.Y}
}

// Restore rebuilds model dogs and objects from a SessionRepr, per §4.7: a
// restored dog's previous position is set equal to its position, and its
// velocity is re-derived from its persisted facing via SetSpeed, which
// necessarily marks it as having moved (idle time is not part of the
// representation and restarts at zero; see spec.md §9).
func (sr SessionRepr) Restore() ([]*model.Dog, []model.LostObject) {
	dogs := make([]*model.Dog, 0, len(sr.Dogs))
	for _, dr := range sr.Dogs {
		d := model.NewDog(model.DogID(dr.ID), dr.Name, dr.DefaultSpeed, model.RoadID(dr.CurrentRoadID))
		d.SetPosition(model.PointF{X: dr.PosX, Y: dr.PosY})
		d.Score = dr.Score
		d.Facing = model.Direction(dr.Facing)
		d.SetSpeed(d.Facing, false)
		for _, br := range dr.Bag {
			d.Bag = append(d.Bag, br.toObject())
		}
		dogs = append(dogs, d)
	}
	objects := make([]model.LostObject, 0, len(sr.Objects))
	for _, or := range sr.Objects {
		objects = append(objects, or.toObject())
	}
	return dogs, objects
}

func (r LostObjectRepr) toObject() model.LostObject {
	return model.LostObject{ID: model.LostObjectID(r.ID), Type: int(r.Type), Position: model.PointF{X: r.PosX, Y: r.PosY}}
}

// Save writes the snapshot to path atomically: a temp file in the same
// directory is written and fsynced, then renamed over the destination.
func Save(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot save: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	if err := writeSnapshot(w, snap); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot save: write: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot save: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot save: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot save: close: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot save: remove old: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("snapshot save: rename: %w", err)
	}
	return nil
}

// Load reads a snapshot from path. A missing file is reported via ok=false
// with a nil error (best-effort); any other read failure is fatal and
// returned as an error (§4.7).
func Load(path string) (snap Snapshot, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("snapshot load: open: %w", err)
	}
	defer f.Close()

	snap, err = readSnapshot(bufio.NewReader(f))
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot load: %s: %w", path, err)
	}
	return snap, true, nil
}

func writeSnapshot(w io.Writer, snap Snapshot) error {
	if err := writeUint32(w, uint32(len(snap.Sessions))); err != nil {
		return err
	}
	for _, s := range snap.Sessions {
		if err := writeSession(w, s); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(snap.Players))); err != nil {
		return err
	}
	for _, p := range snap.Players {
		if err := writeUint32(w, p.DogID); err != nil {
			return err
		}
		if err := writeUint32(w, p.SessionID); err != nil {
			return err
		}
		if err := writeString(w, p.Token); err != nil {
			return err
		}
	}
	return nil
}

func writeSession(w io.Writer, s SessionRepr) error {
	if err := writeUint32(w, s.ID); err != nil {
		return err
	}
	if err := writeString(w, s.MapID); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(s.Dogs))); err != nil {
		return err
	}
	for _, d := range s.Dogs {
		if err := writeDog(w, d); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(s.Objects))); err != nil {
		return err
	}
	for _, o := range s.Objects {
		if err := writeObject(w, o); err != nil {
			return err
		}
	}
	return nil
}

func writeDog(w io.Writer, d DogRepr) error {
	if err := writeUint32(w, d.ID); err != nil {
		return err
	}
	if err := writeString(w, d.Name); err != nil {
		return err
	}
	for _, v := range []float64{d.PosX, d.PosY, d.DefaultSpeed} {
		if err := writeFloat64(w, v); err != nil {
			return err
		}
	}
	if err := writeUint32(w, d.CurrentRoadID); err != nil {
		return err
	}
	for _, v := range []float64{d.VX, d.VY} {
		if err := writeFloat64(w, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, d.Facing); err != nil {
		return err
	}
	if err := writeUint64(w, d.Score); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(d.Bag))); err != nil {
		return err
	}
	for _, o := range d.Bag {
		if err := writeObject(w, o); err != nil {
			return err
		}
	}
	return nil
}

func writeObject(w io.Writer, o LostObjectRepr) error {
	if err := writeUint32(w, o.ID); err != nil {
		return err
	}
	if err := writeUint64(w, o.Type); err != nil {
		return err
	}
	if err := writeFloat64(w, o.PosX); err != nil {
		return err
	}
	return writeFloat64(w, o.PosY)
}

func readSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	nSessions, err := readUint32(r)
	if err != nil {
		return snap, err
	}
	for i := uint32(0); i < nSessions; i++ {
		s, err := readSession(r)
		if err != nil {
			return snap, err
		}
		snap.Sessions = append(snap.Sessions, s)
	}
	nPlayers, err := readUint32(r)
	if err != nil {
		return snap, err
	}
	for i := uint32(0); i < nPlayers; i++ {
		dogID, err := readUint32(r)
		if err != nil {
			return snap, err
		}
		sessionID, err := readUint32(r)
		if err != nil {
			return snap, err
		}
		token, err := readString(r)
		if err != nil {
			return snap, err
		}
		snap.Players = append(snap.Players, PlayerRepr{DogID: dogID, SessionID: sessionID, Token: token})
	}
	return snap, nil
}

func readSession(r io.Reader) (SessionRepr, error) {
	var s SessionRepr
	id, err := readUint32(r)
	if err != nil {
		return s, err
	}
	s.ID = id
	mapID, err := readString(r)
	if err != nil {
		return s, err
	}
	s.MapID = mapID

	nDogs, err := readUint32(r)
	if err != nil {
		return s, err
	}
	for i := uint32(0); i < nDogs; i++ {
		d, err := readDog(r)
		if err != nil {
			return s, err
		}
		s.Dogs = append(s.Dogs, d)
	}

	nObjects, err := readUint32(r)
	if err != nil {
		return s, err
	}
	for i := uint32(0); i < nObjects; i++ {
		o, err := readObject(r)
		if err != nil {
			return s, err
		}
		s.Objects = append(s.Objects, o)
	}
	return s, nil
}

func readDog(r io.Reader) (DogRepr, error) {
	var d DogRepr
	var err error
	if d.ID, err = readUint32(r); err != nil {
		return d, err
	}
	if d.Name, err = readString(r); err != nil {
		return d, err
	}
	if d.PosX, err = readFloat64(r); err != nil {
		return d, err
	}
	if d.PosY, err = readFloat64(r); err != nil {
		return d, err
	}
	if d.DefaultSpeed, err = readFloat64(r); err != nil {
		return d, err
	}
	if d.CurrentRoadID, err = readUint32(r); err != nil {
		return d, err
	}
	if d.VX, err = readFloat64(r); err != nil {
		return d, err
	}
	if d.VY, err = readFloat64(r); err != nil {
		return d, err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Facing); err != nil {
		return d, err
	}
	if d.Score, err = readUint64(r); err != nil {
		return d, err
	}
	nBag, err := readUint32(r)
	if err != nil {
		return d, err
	}
	for i := uint32(0); i < nBag; i++ {
		o, err := readObject(r)
		if err != nil {
			return d, err
		}
		d.Bag = append(d.Bag, o)
	}
	return d, nil
}

func readObject(r io.Reader) (LostObjectRepr, error) {
	var o LostObjectRepr
	var err error
	if o.ID, err = readUint32(r); err != nil {
		return o, err
	}
	if o.Type, err = readUint64(r); err != nil {
		return o, err
	}
	if o.PosX, err = readFloat64(r); err != nil {
		return o, err
	}
	if o.PosY, err = readFloat64(r); err != nil {
		return o, err
	}
	return o, nil
}

func writeUint32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }
func writeUint64(w io.Writer, v uint64) error { return binary.Write(w, binary.LittleEndian, v) }
func writeFloat64(w io.Writer, v float64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readFloat64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
