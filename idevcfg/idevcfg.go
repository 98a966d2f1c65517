// Package idevcfg holds the persisted binding of an input device to a
// seat. An Entry is owned jointly by the Display (which can enumerate
// and persist every binding) and the Seat it targets (which routes
// incoming device events through it); Table is the Display-side registry
// that both sides share.
package idevcfg

import (
	"golang.org/x/exp/slices"

	"github.com/kestrelos/dispd/dsid"
)

// Entry binds one input device to one seat.
type Entry struct {
	ID      dsid.EntryID
	Idev    dsid.IdevID
	Seat    dsid.SeatID
	SvcName string // service name used to resolve Idev on config load
}

// Table is the display-wide registry of idevcfg entries, kept in one map
// keyed by entry id and scanned for lookup by device (routing) and by
// seat (enumeration, cascade delete).
type Table struct {
	nextID  dsid.EntryID
	entries map[dsid.EntryID]*Entry
}

// NewTable creates an empty binding table.
func NewTable() *Table {
	return &Table{entries: make(map[dsid.EntryID]*Entry)}
}

// Assign creates a new binding of idev to seat and returns it.
func (t *Table) Assign(idev dsid.IdevID, seat dsid.SeatID, svcName string) *Entry {
	t.nextID++
	e := &Entry{ID: t.nextID, Idev: idev, Seat: seat, SvcName: svcName}
	t.entries[e.ID] = e
	return e
}

// Unassign removes a binding by its entry id.
func (t *Table) Unassign(id dsid.EntryID) {
	delete(t.entries, id)
}

// BySeat returns every device bound to seat, ordered by entry id so
// repeated calls over an unchanged table return a stable order.
func (t *Table) BySeat(seat dsid.SeatID) []*Entry {
	var out []*Entry
	for _, e := range t.entries {
		if e.Seat == seat {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entry) bool { return a.ID < b.ID })
	return out
}

// ByIdev returns the seat idev is currently bound to, if any.
func (t *Table) ByIdev(idev dsid.IdevID) (dsid.SeatID, bool) {
	for _, e := range t.entries {
		if e.Idev == idev {
			return e.Seat, true
		}
	}
	return 0, false
}

// RemoveSeat cascade-deletes every entry bound to seat (invariant: a
// destroyed seat leaves no dangling idevcfg entries).
func (t *Table) RemoveSeat(seat dsid.SeatID) {
	for id, e := range t.entries {
		if e.Seat == seat {
			delete(t.entries, id)
		}
	}
}

// All returns every entry in the table, ordered by entry id so repeated
// calls over an unchanged table return a stable order.
func (t *Table) All() []*Entry {
	out := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entry) bool { return a.ID < b.ID })
	return out
}
