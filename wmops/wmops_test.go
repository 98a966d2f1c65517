package wmops

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/kestrelos/dispd/display"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/window"
)

type fakeGC struct{}
type fakeBitmap struct{ params gfx.BitmapParams }

func (b *fakeBitmap) Params() gfx.BitmapParams                     { return b.params }
func (b *fakeBitmap) GetAlloc() (gfx.BitmapAlloc, error)           { return gfx.BitmapAlloc{}, nil }
func (g *fakeGC) SetClipRect(r *gfx.Rect) error                    { return nil }
func (g *fakeGC) SetColor(c gfx.Color) error                       { return nil }
func (g *fakeGC) FillRect(r gfx.Rect) error                        { return nil }
func (g *fakeGC) BitmapDestroy(b gfx.Bitmap) error                 { return nil }
func (g *fakeGC) BitmapRender(b gfx.Bitmap, s gfx.Rect, o gfx.Point) error { return nil }
func (g *fakeGC) BitmapGetAlloc(b gfx.Bitmap) (gfx.BitmapAlloc, error) {
	return gfx.BitmapAlloc{}, nil
}
func (g *fakeGC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	return &fakeBitmap{params: params}, nil
}

func newTestDisplay(t *testing.T) *display.Display {
	t.Helper()
	d := display.New(0, zerolog.Nop())
	if err := d.AddOutput(display.Output{GC: &fakeGC{}, Rect: gfx.NewRect(0, 0, 400, 300)}); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if _, err := d.CreateSeat("seat0"); err != nil {
		t.Fatalf("CreateSeat: %v", err)
	}
	return d
}

func TestListWindowIDsReturnsBareIDsInZOrder(t *testing.T) {
	d := newTestDisplay(t)
	d.AddClient(1, nil)
	wm := d.AddWMClient(2, nil)
	cn := New(d, wm)

	w1, err := d.CreateWindow(1, window.Params{Rect: gfx.NewRect(0, 0, 50, 50), MinSize: gfx.Point{X: 10, Y: 10}})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	w2, err := d.CreateWindow(1, window.Params{Rect: gfx.NewRect(0, 0, 50, 50), MinSize: gfx.Point{X: 10, Y: 10}})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	ids := cn.ListWindowIDs()
	if len(ids) != 2 || ids[0] != w2.ID || ids[1] != w1.ID {
		t.Fatalf("expected [%d %d] (topmost first), got %v", w2.ID, w1.ID, ids)
	}
}

func TestGetWindowInfoUnknownID(t *testing.T) {
	d := newTestDisplay(t)
	wm := d.AddWMClient(2, nil)
	cn := New(d, wm)
	if _, err := cn.GetWindowInfo(999); !dserr.Is(err, dserr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestActivateWindowFailsWithoutSeatBinding(t *testing.T) {
	d := newTestDisplay(t)
	d.AddClient(1, nil)
	wm := d.AddWMClient(2, nil)
	cn := New(d, wm)

	w, err := d.CreateWindow(1, window.Params{
		Rect:    gfx.NewRect(0, 0, 50, 50),
		MinSize: gfx.Point{X: 10, Y: 10},
		Flags:   window.FlagNoFocus,
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	if err := cn.ActivateWindow(77, w.ID); !dserr.Is(err, dserr.KindNotFound) {
		t.Fatalf("expected activate with an unbound idev to fail with KindNotFound, got %v", err)
	}
}

func TestWindowLifecycleBroadcastsToWMClient(t *testing.T) {
	d := newTestDisplay(t)
	d.AddClient(1, nil)
	wm := d.AddWMClient(2, nil)
	cn := New(d, wm)

	w, err := d.CreateWindow(1, window.Params{Rect: gfx.NewRect(0, 0, 50, 50), MinSize: gfx.Point{X: 10, Y: 10}})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	ev, ok := cn.GetEvent()
	if !ok || ev.Kind != 0 || ev.Info.ID != w.ID {
		t.Fatalf("expected a WMWindowAdded event for %d, got %+v (ok=%v)", w.ID, ev, ok)
	}

	if err := cn.CloseWindow(w.ID); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
}
