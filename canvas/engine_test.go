package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"merch-studio/compositor"
	"merch-studio/editor"
	"merch-studio/export"
	"merch-studio/models"
)

type fakeLoader struct {
	mu     sync.Mutex
	images map[string]image.Image
	gates  map[string]chan struct{}
	calls  map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		images: map[string]image.Image{
			"mock://white-front": fill(60, 60, color.NRGBA{R: 250, G: 250, B: 250, A: 255}),
			"mock://white-back":  fill(60, 60, color.NRGBA{R: 240, G: 240, B: 240, A: 255}),
			"art://red":          fill(10, 10, color.NRGBA{R: 255, A: 255}),
			"art://blue":         fill(10, 10, color.NRGBA{B: 255, A: 255}),
			"art://green":        fill(10, 10, color.NRGBA{G: 255, A: 255}),
			"art://slow":         fill(10, 10, color.NRGBA{R: 9, A: 255}),
		},
		gates: make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

func (f *fakeLoader) Load(ctx context.Context, url string) (image.Image, error) {
	f.mu.Lock()
	f.calls[url]++
	gate := f.gates[url]
	img, ok := f.images[url]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("image not found: %s", url)
	}
	return img, nil
}

func (f *fakeLoader) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeLoader) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func tee() models.ClothingProduct {
	return models.ClothingProduct{
		ID:     "tee",
		Name:   "Classic tee",
		Colors: []string{"white", "black"},
		Images: map[string]map[models.View]string{
			"white": {models.ViewFront: "mock://white-front", models.ViewBack: "mock://white-back"},
		},
	}
}

func art(id, url string) models.Design {
	return models.Design{SourceDesignID: id, ImageURL: url, Name: id}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestEngine(t *testing.T, loader *fakeLoader) (*editor.Store, *Engine, *RasterSurface) {
	t.Helper()
	surface := NewRasterSurface(compositor.Size{W: 600, H: 600})
	store, engine := newTestEngineOn(t, loader, surface)
	return store, engine, surface
}

func newTestEngineOn(t *testing.T, loader *fakeLoader, surface Surface) (*editor.Store, *Engine) {
	t.Helper()
	store := editor.NewStore(editor.Options{
		DefaultPosition: models.Position{X: 300, Y: 300},
		Products:        []models.ClothingProduct{tee()},
	})
	store.SetActiveProduct("tee")
	engine := NewEngine(store, loader, Options{
		DesignBaseSize: 150,
		Exporter:       export.New(loader, export.Options{}),
	})
	if !engine.InitCanvas(surface) {
		t.Fatal("InitCanvas returned false on a fresh engine")
	}
	t.Cleanup(engine.CleanupCanvas)
	return store, engine
}

// stallingSurface parks the engine loop inside Render once armed
type stallingSurface struct {
	*RasterSurface
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *stallingSurface) Render() *image.RGBA {
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return s.RasterSurface.Render()
}

func idsByZ(designs []models.Design) []string {
	sorted := append([]models.Design(nil), designs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ZIndex < sorted[j].ZIndex })
	ids := make([]string, len(sorted))
	for i, d := range sorted {
		ids[i] = d.ID
	}
	return ids
}

func settledSnapshot(t *testing.T, ctx context.Context, e *Engine) Snapshot {
	t.Helper()
	if err := e.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	snap, err := e.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func TestReconcileConverges(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())

	d1, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	store.AddDesignToCanvas(art("b", "art://blue"), models.ViewFront)
	d3, _ := store.AddDesignToCanvas(art("c", "art://green"), models.ViewFront)

	snap := settledSnapshot(t, ctx, engine)
	if want := idsByZ(store.DesignsByView(models.ViewFront)); !reflect.DeepEqual(snap.IDs(), want) {
		t.Fatalf("renderables = %v, want %v", snap.IDs(), want)
	}
	if !snap.HasBackground {
		t.Fatal("mockup was not attached")
	}
	if snap.ActiveID != d3.ID {
		t.Fatalf("active = %q, want %q", snap.ActiveID, d3.ID)
	}

	store.RemoveDesign(d1.ID)
	snap = settledSnapshot(t, ctx, engine)
	if want := idsByZ(store.DesignsByView(models.ViewFront)); !reflect.DeepEqual(snap.IDs(), want) {
		t.Fatalf("after removal renderables = %v, want %v", snap.IDs(), want)
	}
	if snap.Loading != 0 {
		t.Fatalf("loads still in flight: %d", snap.Loading)
	}
}

func TestZOrderFollowsReorder(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())

	d1, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	d2, _ := store.AddDesignToCanvas(art("b", "art://blue"), models.ViewFront)
	if got := settledSnapshot(t, ctx, engine).IDs(); !reflect.DeepEqual(got, []string{d1.ID, d2.ID}) {
		t.Fatalf("initial stack = %v", got)
	}

	store.ReorderDesignIDs(models.ViewFront, []string{d1.ID, d2.ID})
	if got := settledSnapshot(t, ctx, engine).IDs(); !reflect.DeepEqual(got, []string{d2.ID, d1.ID}) {
		t.Fatalf("stack after reorder = %v, want d1 on top", got)
	}
}

func TestViewSwitchSwapsRenderables(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())

	front, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	back, _ := store.AddDesignToCanvas(art("b", "art://blue"), models.ViewBack)

	if got := settledSnapshot(t, ctx, engine).IDs(); !reflect.DeepEqual(got, []string{front.ID}) {
		t.Fatalf("front renderables = %v", got)
	}
	store.SetActiveView(models.ViewBack)
	if got := settledSnapshot(t, ctx, engine).IDs(); !reflect.DeepEqual(got, []string{back.ID}) {
		t.Fatalf("back renderables = %v", got)
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	ctx := testContext(t)
	loader := newFakeLoader()
	release := loader.gate("art://slow")
	store, engine, _ := newTestEngine(t, loader)

	slow, _ := store.AddDesignToCanvas(art("slow", "art://slow"), models.ViewFront)
	if err := engine.Reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	store.SetActiveView(models.ViewBack)
	if err := engine.Reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)

	if got := settledSnapshot(t, ctx, engine).IDs(); len(got) != 0 {
		t.Fatalf("stale load was attached to the back view: %v", got)
	}

	store.SetActiveView(models.ViewFront)
	if got := settledSnapshot(t, ctx, engine).IDs(); !reflect.DeepEqual(got, []string{slow.ID}) {
		t.Fatalf("front renderables = %v", got)
	}
	if n := loader.callCount("art://slow"); n != 2 {
		t.Fatalf("slow image loaded %d times, want 2", n)
	}
}

func TestLoadFailureSkipsDesign(t *testing.T) {
	ctx := testContext(t)
	loader := newFakeLoader()
	store, engine, _ := newTestEngine(t, loader)

	broken, _ := store.AddDesignToCanvas(art("broken", "art://missing"), models.ViewFront)
	ok, _ := store.AddDesignToCanvas(art("ok", "art://red"), models.ViewFront)

	snap := settledSnapshot(t, ctx, engine)
	if !reflect.DeepEqual(snap.IDs(), []string{ok.ID}) {
		t.Fatalf("renderables = %v, want only the loadable design", snap.IDs())
	}

	store.UpdateDesignOpacity(broken.ID, 0.5)
	settledSnapshot(t, ctx, engine)
	if n := loader.callCount("art://missing"); n != 1 {
		t.Fatalf("failed image was retried %d times without a url change", n-1)
	}
}

func TestPropertiesFollowStore(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	d, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)

	store.UpdateDesignOpacity(d.ID, 0.4)
	store.UpdateDesignBlendMode(d.ID, models.BlendMultiply)
	store.ToggleDesignVisibility(d.ID)
	store.UpdateDesignCurvature(d.ID, models.Curvature{Enabled: true, Intensity: 0.5, MeshDensity: 6})

	snap := settledSnapshot(t, ctx, engine)
	if len(snap.Objects) != 1 {
		t.Fatalf("objects = %v", snap.IDs())
	}
	o := snap.Objects[0]
	if o.Opacity != 0.4 || o.BlendMode != models.BlendMultiply || o.Operation != "multiply" || o.Visible || !o.Curved {
		t.Fatalf("object = %+v", o)
	}

	store.UpdateDesignCurvature(d.ID, models.Curvature{Enabled: false})
	if o := settledSnapshot(t, ctx, engine).Objects[0]; o.Curved {
		t.Fatal("disabled curvature still applied")
	}
}

func TestLockedDesignRejectsGestures(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	d, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	store.ToggleDesignLock(d.ID)

	snap := settledSnapshot(t, ctx, engine)
	if o := snap.Objects[0]; o.Selectable || o.Evented {
		t.Fatalf("locked renderable is interactive: %+v", o)
	}
	if snap.ActiveID != "" {
		t.Fatalf("locked renderable is selected on the surface: %q", snap.ActiveID)
	}

	moved := d.Transform
	moved.Position = models.Position{X: 10, Y: 10}
	if err := engine.HandleGesture(ctx, d.ID, moved); !errors.Is(err, ErrLocked) {
		t.Fatalf("gesture on locked design: err = %v, want ErrLocked", err)
	}
	if got, _ := store.ActiveDesign(); got.Transform != d.Transform {
		t.Fatalf("locked design moved to %+v", got.Transform)
	}
	if id, _ := engine.PointerDown(ctx, 300, 300); id != "" {
		t.Fatalf("pointer hit locked design %q", id)
	}

	pos := models.Position{X: 120, Y: 140}
	store.UpdateDesignTransform(d.ID, models.TransformPatch{Position: &pos})
	o := settledSnapshot(t, ctx, engine).Objects[0]
	if o.Transform.Position != pos {
		t.Fatalf("programmatic update not applied to locked renderable: %+v", o.Transform)
	}
	if o.Selectable || o.Evented {
		t.Fatal("programmatic update unlocked the renderable")
	}
}

// frontRecorder logs the ids raised with BringToFront
type frontRecorder struct {
	*RasterSurface
	mu     sync.Mutex
	raised []string
}

func (s *frontRecorder) BringToFront(id string) {
	s.mu.Lock()
	s.raised = append(s.raised, id)
	s.mu.Unlock()
	s.RasterSurface.BringToFront(id)
}

func TestLoadedActiveDesignIsRaised(t *testing.T) {
	ctx := testContext(t)
	loader := newFakeLoader()
	release := loader.gate("art://slow")
	surface := &frontRecorder{RasterSurface: NewRasterSurface(compositor.Size{W: 600, H: 600})}
	store, engine := newTestEngineOn(t, loader, surface)

	d1, _ := store.AddDesignToCanvas(art("slow", "art://slow"), models.ViewFront)
	d2, _ := store.AddDesignToCanvas(art("b", "art://blue"), models.ViewFront)
	if err := engine.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	close(release)
	snap := settledSnapshot(t, ctx, engine)

	surface.mu.Lock()
	raised := append([]string(nil), surface.raised...)
	surface.mu.Unlock()
	if !reflect.DeepEqual(raised, []string{d2.ID}) {
		t.Fatalf("raised = %v, want only the active design %q", raised, d2.ID)
	}
	if want := []string{d1.ID, d2.ID}; !reflect.DeepEqual(snap.IDs(), want) {
		t.Fatalf("stack = %v, want zIndex order %v", snap.IDs(), want)
	}
}

func TestGestureQueuedBehindBusyLoopHonorsLock(t *testing.T) {
	for run := 0; run < 20; run++ {
		ctx := testContext(t)
		surface := &stallingSurface{
			RasterSurface: NewRasterSurface(compositor.Size{W: 600, H: 600}),
			entered:       make(chan struct{}),
			release:       make(chan struct{}),
		}
		store, engine := newTestEngineOn(t, newFakeLoader(), surface)
		d, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
		settledSnapshot(t, ctx, engine)

		surface.armed.Store(true)
		rendered := make(chan error, 1)
		go func() {
			_, err := engine.RenderView(ctx, "")
			rendered <- err
		}()
		<-surface.entered

		store.ToggleDesignLock(d.ID)
		moved := d.Transform
		moved.Position = models.Position{X: 11, Y: 11}
		gestured := make(chan error, 1)
		go func() { gestured <- engine.HandleGesture(ctx, d.ID, moved) }()
		time.Sleep(5 * time.Millisecond)
		close(surface.release)

		if err := <-gestured; !errors.Is(err, ErrLocked) {
			t.Fatalf("run %d: gesture err = %v, want ErrLocked", run, err)
		}
		if err := <-rendered; err != nil {
			t.Fatalf("run %d: RenderView: %v", run, err)
		}
		got, _ := store.ActiveDesign()
		if !got.Locked || got.Transform != d.Transform {
			t.Fatalf("run %d: locked design moved to %+v", run, got.Transform)
		}
	}
}

func TestDragStopsWhenDesignIsLocked(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	d, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	settledSnapshot(t, ctx, engine)

	if id, err := engine.PointerDown(ctx, 300, 300); err != nil || id != d.ID {
		t.Fatalf("PointerDown = %q, %v", id, err)
	}
	store.ToggleDesignLock(d.ID)
	if err := engine.PointerMove(ctx, 340, 360); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	if err := engine.PointerUp(ctx); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	if got, _ := store.ActiveDesign(); got.Transform != d.Transform {
		t.Fatalf("drag moved locked design to %+v", got.Transform)
	}
	if o := settledSnapshot(t, ctx, engine).Objects[0]; o.Transform != d.Transform || o.Evented {
		t.Fatalf("renderable after locked drag: %+v", o)
	}
}

func TestGestureWritesBackToStore(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	d1, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	store.AddDesignToCanvas(art("b", "art://blue"), models.ViewFront)
	settledSnapshot(t, ctx, engine)

	next := models.Transform{Position: models.Position{X: 200, Y: 220}, Scale: 1.5, Rotation: 30}
	if err := engine.HandleGesture(ctx, d1.ID, next); err != nil {
		t.Fatalf("HandleGesture: %v", err)
	}
	got, ok := store.ActiveDesign()
	if !ok || got.ID != d1.ID {
		t.Fatalf("gesture did not select the design: %+v", got)
	}
	if got.Transform != next {
		t.Fatalf("store transform = %+v, want %+v", got.Transform, next)
	}
	snap := settledSnapshot(t, ctx, engine)
	for _, o := range snap.Objects {
		if o.ID == d1.ID && o.Transform != next {
			t.Fatalf("renderable transform = %+v", o.Transform)
		}
	}

	if err := engine.HandleGesture(ctx, "nope", next); !errors.Is(err, ErrNoObject) {
		t.Fatalf("unknown id: err = %v", err)
	}
}

func TestPointerDrag(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	d, _ := store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	store.SetActiveDesign("")
	settledSnapshot(t, ctx, engine)

	id, err := engine.PointerDown(ctx, 300, 300)
	if err != nil || id != d.ID {
		t.Fatalf("PointerDown = %q, %v", id, err)
	}
	if got, _ := store.ActiveDesign(); got.ID != d.ID {
		t.Fatal("pointer selection not mirrored into the store")
	}
	if err := engine.PointerMove(ctx, 320, 310); err != nil {
		t.Fatal(err)
	}
	got, _ := store.ActiveDesign()
	if got.Transform.Position != (models.Position{X: 320, Y: 310}) {
		t.Fatalf("live drag position = %+v", got.Transform.Position)
	}
	if err := engine.PointerUp(ctx); err != nil {
		t.Fatal(err)
	}

	if id, _ := engine.PointerDown(ctx, 5, 5); id != "" {
		t.Fatalf("empty canvas hit %q", id)
	}
	if _, ok := store.ActiveDesign(); ok {
		t.Fatal("clicking empty canvas should clear the selection")
	}
}

func TestInitAndCleanupAreIdempotent(t *testing.T) {
	ctx := testContext(t)
	store, engine, surface := newTestEngine(t, newFakeLoader())
	store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)
	settledSnapshot(t, ctx, engine)

	if engine.InitCanvas(NewRasterSurface(compositor.Size{W: 10, H: 10})) {
		t.Fatal("second InitCanvas should be a no-op")
	}

	engine.CleanupCanvas()
	engine.CleanupCanvas()
	if engine.Initialized() {
		t.Fatal("engine still initialized after cleanup")
	}
	if len(surface.Objects()) != 0 || surface.HasBackground() {
		t.Fatal("cleanup left content on the surface")
	}

	snap, err := engine.Snapshot(ctx)
	if err != nil || len(snap.Objects) != 0 {
		t.Fatalf("snapshot without surface = %+v, %v", snap, err)
	}
	img, err := engine.RenderView(ctx, models.ViewFront)
	if err != nil || img != nil {
		t.Fatalf("render without surface = %v, %v", img, err)
	}
	if err := engine.HandleGesture(ctx, "x", models.Transform{}); err != nil {
		t.Fatalf("gesture without surface = %v", err)
	}

	if !engine.InitCanvas(NewRasterSurface(compositor.Size{W: 600, H: 600})) {
		t.Fatal("InitCanvas after cleanup failed")
	}
	if got := settledSnapshot(t, ctx, engine).IDs(); len(got) != 1 {
		t.Fatalf("re-initialized canvas has %v", got)
	}
}

func TestRenderViewSwitchesAndRenders(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	store.AddDesignToCanvas(art("b", "art://blue"), models.ViewBack)

	img, err := engine.RenderView(ctx, models.ViewBack)
	if err != nil {
		t.Fatal(err)
	}
	if store.State().ActiveView != models.ViewBack {
		t.Fatal("RenderView did not switch the active view")
	}
	if img == nil || img.Bounds() != image.Rect(0, 0, 600, 600) {
		t.Fatalf("rendered image = %v", img)
	}
	if got := img.RGBAAt(300, 300); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("design pixel = %+v", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{R: 240, G: 240, B: 240, A: 255}) {
		t.Fatalf("mockup pixel = %+v", got)
	}
}

func TestExportView(t *testing.T) {
	ctx := testContext(t)
	store, engine, _ := newTestEngine(t, newFakeLoader())
	store.AddDesignToCanvas(art("a", "art://red"), models.ViewFront)

	url, err := engine.ExportView(ctx, models.ViewFront)
	if err != nil || url == "" {
		t.Fatalf("ExportView = %.30q, %v", url, err)
	}

	store.SetGarmentColor("black")
	url, err = engine.ExportView(ctx, models.ViewFront)
	if err != nil || url != "" {
		t.Fatalf("export without mockup = %.30q, %v; want empty", url, err)
	}
}
