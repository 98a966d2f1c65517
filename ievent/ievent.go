// Package ievent defines the raw keyboard and pointer event types posted
// by the external input service (spec §1, out of scope), plus the
// single-threaded input pump that coalesces redundant pointer motion
// before dispatch (spec §4.4).
package ievent

import (
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/gfx"
)

// Modifiers is a bitset of active keyboard modifiers, named the way the
// teacher names its key.Modifiers bitset.
type Modifiers uint32

const (
	ModCtrl Modifiers = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Name identifies a key, mirroring the teacher's key.Name string idiom:
// printable keys use their own rune, named keys use a short ASCII name.
type Name string

const (
	NameTab Name = "Tab"
	NameF4  Name = "F4"
)

// KbdEventType distinguishes a key press from a release.
type KbdEventType int

const (
	KbdPress KbdEventType = iota
	KbdRelease
)

// KbdEvent is a single keyboard event from one input device.
type KbdEvent struct {
	Type KbdEventType
	Name Name
	Mods Modifiers
	Idev dsid.IdevID
}

// PtdEventType distinguishes the shapes of pointer event the input
// service may produce.
type PtdEventType int

const (
	// PtdMove is a relative pointer motion (Dx, Dy).
	PtdMove PtdEventType = iota
	// PtdAbsMove is an absolute pointer position within a reported
	// bounding box (AbsX, AbsY, BoundsW, BoundsH), e.g. from a tablet.
	PtdAbsMove
	PtdPress
	PtdRelease
	PtdDoubleClick
)

// PtdEvent is a single pointer event from one input device.
type PtdEvent struct {
	Type   PtdEventType
	Idev   dsid.IdevID
	Button int // valid for Press/Release/DoubleClick

	Dx, Dy int // valid for Move

	AbsX, AbsY       int // valid for AbsMove
	BoundsW, BoundsH int // valid for AbsMove
}

// PosEventType distinguishes the shapes of a resolved, display-absolute
// pointer event, after a Seat has folded a device's raw PtdEvent stream
// into a position (spec §4.3).
type PosEventType int

const (
	PosPress PosEventType = iota
	PosRelease
	PosUpdate
	PosDoubleClick
)

// PosEvent is a pointer event in display coordinates, already resolved to
// an absolute position by the owning seat and ready to route to a window.
type PosEvent struct {
	Type   PosEventType
	Button int
	Idev   dsid.IdevID
	Pos    gfx.Point
}

// Sink is the display's routing entry point, used by Pump to dispatch
// drained events under the display lock.
type Sink interface {
	PostKbd(e KbdEvent)
	PostPtd(e PtdEvent)
}

// rawEvent is a queued entry: exactly one of Kbd/Ptd is meaningful,
// discriminated by isKbd.
type rawEvent struct {
	isKbd bool
	kbd   KbdEvent
	ptd   PtdEvent
}

// Pump is the single-threaded cooperative queue described in spec §4.4:
// a FIFO of kbd/ptd events, coalesced on the enqueue side, drained by one
// goroutine that calls into Sink while the caller's lock discipline (the
// display lock) is satisfied by Sink's own methods.
type Pump struct {
	sink Sink

	mu     chanGuard
	queue  []rawEvent
	notify chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

// chanGuard is a tiny mutex alias kept distinct so the zero Pump doesn't
// need an explicit constructor for its lock.
type chanGuard struct{ ch chan struct{} }

func (g *chanGuard) lock() {
	if g.ch == nil {
		g.ch = make(chan struct{}, 1)
	}
	g.ch <- struct{}{}
}

func (g *chanGuard) unlock() { <-g.ch }

// NewPump creates a pump that dispatches drained events to sink.
func NewPump(sink Sink) *Pump {
	return &Pump{
		sink:   sink,
		notify: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// PostKbd enqueues a keyboard event. Keyboard events are never coalesced.
func (p *Pump) PostKbd(e KbdEvent) {
	p.mu.lock()
	p.queue = append(p.queue, rawEvent{isKbd: true, kbd: e})
	p.mu.unlock()
	p.wake()
}

// PostPtd enqueues a pointer event, applying the coalescing rule: a
// relative Move merges with a pending Move from the same device by
// summing deltas; an AbsMove merges with a pending AbsMove from the same
// device by overwriting the absolute position and bounds. Either
// collapses the new event into the queue tail without growing it.
func (p *Pump) PostPtd(e PtdEvent) {
	p.mu.lock()
	if n := len(p.queue); n > 0 {
		tail := &p.queue[n-1]
		if !tail.isKbd && tail.ptd.Idev == e.Idev {
			switch {
			case tail.ptd.Type == PtdMove && e.Type == PtdMove:
				tail.ptd.Dx += e.Dx
				tail.ptd.Dy += e.Dy
				p.mu.unlock()
				p.wake()
				return
			case tail.ptd.Type == PtdAbsMove && e.Type == PtdAbsMove:
				tail.ptd.AbsX, tail.ptd.AbsY = e.AbsX, e.AbsY
				tail.ptd.BoundsW, tail.ptd.BoundsH = e.BoundsW, e.BoundsH
				p.mu.unlock()
				p.wake()
				return
			}
		}
	}
	p.queue = append(p.queue, rawEvent{ptd: e})
	p.mu.unlock()
	p.wake()
}

func (p *Pump) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run drains the queue until Stop is called, dispatching each event to
// the sink. It is meant to run in its own goroutine; the caller joins it
// via Stop.
func (p *Pump) Run() {
	defer close(p.done)
	for {
		p.mu.lock()
		var ev rawEvent
		have := false
		if len(p.queue) > 0 {
			ev = p.queue[0]
			p.queue = p.queue[1:]
			have = true
		}
		p.mu.unlock()
		if have {
			if ev.isKbd {
				p.sink.PostKbd(ev.kbd)
			} else {
				p.sink.PostPtd(ev.ptd)
			}
			continue
		}
		select {
		case <-p.quit:
			return
		case <-p.notify:
		}
	}
}

// Stop signals the pump to quit and blocks until Run has returned.
func (p *Pump) Stop() {
	close(p.quit)
	<-p.done
}
