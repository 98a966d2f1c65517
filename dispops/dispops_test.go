package dispops

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/kestrelos/dispd/client"
	"github.com/kestrelos/dispd/display"
	"github.com/kestrelos/dispd/dserr"
	"github.com/kestrelos/dispd/gfx"
	"github.com/kestrelos/dispd/window"
)

type fakeGC struct{}
type fakeBitmap struct{ params gfx.BitmapParams }

func (b *fakeBitmap) Params() gfx.BitmapParams { return b.params }
func (b *fakeBitmap) GetAlloc() (gfx.BitmapAlloc, error) {
	return gfx.BitmapAlloc{}, nil
}
func (g *fakeGC) SetClipRect(r *gfx.Rect) error { return nil }
func (g *fakeGC) SetColor(c gfx.Color) error    { return nil }
func (g *fakeGC) FillRect(r gfx.Rect) error     { return nil }
func (g *fakeGC) BitmapCreate(params gfx.BitmapParams, alloc *gfx.BitmapAlloc) (gfx.Bitmap, error) {
	return &fakeBitmap{params: params}, nil
}
func (g *fakeGC) BitmapDestroy(b gfx.Bitmap) error { return nil }
func (g *fakeGC) BitmapRender(b gfx.Bitmap, srcRect gfx.Rect, offset gfx.Point) error {
	return nil
}
func (g *fakeGC) BitmapGetAlloc(b gfx.Bitmap) (gfx.BitmapAlloc, error) {
	return gfx.BitmapAlloc{}, nil
}

func newTestConn(t *testing.T) (*Conn, *display.Display, *client.Client) {
	t.Helper()
	d := display.New(0, zerolog.Nop())
	if err := d.AddOutput(display.Output{GC: &fakeGC{}, Rect: gfx.NewRect(0, 0, 400, 300)}); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if _, err := d.CreateSeat("seat0"); err != nil {
		t.Fatalf("CreateSeat: %v", err)
	}
	c := d.AddClient(1, nil)
	return New(d, c), d, c
}

func TestCreateWindowOwnedByConnClient(t *testing.T) {
	cn, _, c := newTestConn(t)
	w, err := cn.CreateWindow(window.Params{
		Rect:    gfx.NewRect(0, 0, 50, 50),
		MinSize: gfx.Point{X: 10, Y: 10},
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if _, ok := c.Windows[w.ID]; !ok {
		t.Fatal("expected the created window to be owned by the connection's client")
	}
}

func TestFindOwnRejectsWindowFromAnotherClient(t *testing.T) {
	cn, d, _ := newTestConn(t)
	other := d.AddClient(2, nil)
	otherConn := New(d, other)
	w, err := otherConn.CreateWindow(window.Params{
		Rect:    gfx.NewRect(0, 0, 50, 50),
		MinSize: gfx.Point{X: 10, Y: 10},
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	_, err = cn.GetWindowPos(w.ID)
	if err == nil {
		t.Fatal("expected a window owned by another client to be rejected")
	}
	if !dserr.Is(err, dserr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestGetEventPopsOnlyThisClientsEvents(t *testing.T) {
	cn, _, _ := newTestConn(t)
	w, err := cn.CreateWindow(window.Params{
		Rect:    gfx.NewRect(0, 0, 50, 50),
		MinSize: gfx.Point{X: 10, Y: 10},
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	w.PostCloseEvent()

	// Creating the window focused it on seat0, so its focus event is
	// queued ahead of the close event.
	ev, ok := cn.GetEvent()
	if !ok || ev.Kind != client.EvFocus || ev.WindowID != w.ID {
		t.Fatalf("expected a queued focus event first, got %+v (ok=%v)", ev, ok)
	}
	ev, ok = cn.GetEvent()
	if !ok {
		t.Fatal("expected a queued close event")
	}
	if ev.Kind != client.EvClose || ev.WindowID != w.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if _, ok := cn.GetEvent(); ok {
		t.Fatal("expected the queue to be drained after the close event")
	}
}

func TestGetInfoReturnsDisplayRect(t *testing.T) {
	cn, _, _ := newTestConn(t)
	info := cn.GetInfo()
	if info.Rect.Dx() != 400 || info.Rect.Dy() != 300 {
		t.Fatalf("unexpected rect: %+v", info.Rect)
	}
}

func TestDestroyWindowRemovesItFromClient(t *testing.T) {
	cn, _, c := newTestConn(t)
	w, err := cn.CreateWindow(window.Params{
		Rect:    gfx.NewRect(0, 0, 50, 50),
		MinSize: gfx.Point{X: 10, Y: 10},
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if err := cn.DestroyWindow(w.ID); err != nil {
		t.Fatalf("DestroyWindow: %v", err)
	}
	if _, ok := c.Windows[w.ID]; ok {
		t.Fatal("expected the window to be gone from the client's window set")
	}
}
