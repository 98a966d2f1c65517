// Package config implements the SIF-style persisted configuration tree
// (spec §6): the seat roster and input-device-to-seat bindings, read and
// written as a single atomic file. It is a pure codec over that tree —
// deciding what to do with a loaded seat or a device that isn't
// currently connected belongs to the display, the only object that
// knows about live seats and devices.
package config

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/dsid"
)

// SeatEntry is one persisted seat: `seat(id, name)` in spec §6.
type SeatEntry struct {
	ID   dsid.SeatID `yaml:"id"`
	Name string      `yaml:"name"`
}

// IdevCfgEntry is one persisted device binding: `idevcfg(svc-name,
// seat-id)` in spec §6. SvcName, not a resolved device id, is what's
// persisted — the id a name currently resolves to may change across
// reboots.
type IdevCfgEntry struct {
	SvcName string      `yaml:"svc-name"`
	SeatID  dsid.SeatID `yaml:"seat-id"`
}

type seatsNode struct {
	Seat []SeatEntry `yaml:"seat"`
}

type idevcfgsNode struct {
	IdevCfg []IdevCfgEntry `yaml:"idevcfg"`
}

type displayNode struct {
	Seats    seatsNode    `yaml:"seats"`
	IdevCfgs idevcfgsNode `yaml:"idevcfgs"`
}

type document struct {
	Display displayNode `yaml:"display"`
}

// Tree is the in-memory form of the persisted tree: `display {
// seats{seat*} idevcfgs{idevcfg*} }`.
type Tree struct {
	Seats    []SeatEntry
	IdevCfgs []IdevCfgEntry
}

// Load reads and parses the configuration tree at path.
func Load(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tree{}, dserr.Wrap(dserr.KindIO, "config.Load", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tree{}, dserr.Wrap(dserr.KindInvalid, "config.Load", err)
	}
	return Tree{
		Seats:    doc.Display.Seats.Seat,
		IdevCfgs: doc.Display.IdevCfgs.IdevCfg,
	}, nil
}

// Save serializes tree to path atomically: it writes to a temporary
// file in the same directory, fsyncs its contents, renames it over the
// target (an atomic replace on the same filesystem), then fsyncs the
// directory entry so the rename itself survives a crash. A failure at
// any step leaves the original file at path untouched.
func Save(path string, tree Tree) error {
	doc := document{Display: displayNode{
		Seats:    seatsNode{Seat: tree.Seats},
		IdevCfgs: idevcfgsNode{IdevCfg: tree.IdevCfgs},
	}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dispd-cfg-*")
	if err != nil {
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}
	if err := unix.Fsync(int(tmp.Fd())); err != nil {
		tmp.Close()
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}
	if err := tmp.Close(); err != nil {
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return dserr.Wrap(dserr.KindIO, "config.Save", err)
	}

	if dirf, err := os.Open(dir); err == nil {
		_ = unix.Fsync(int(dirf.Fd()))
		dirf.Close()
	}
	return nil
}
