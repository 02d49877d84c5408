package canvas

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"merch-studio/compositor"
	"merch-studio/editor"
	"merch-studio/export"
	"merch-studio/filter"
	"merch-studio/models"
)

var (
	// ErrLocked is returned when a gesture targets a locked design
	ErrLocked = errors.New("design is locked")
	// ErrNoObject is returned when a gesture targets a design without a renderable
	ErrNoObject = errors.New("no renderable for design")
)

const settlePoll = 5 * time.Millisecond

// ImageLoader fetches and decodes images by URL
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Options configures an Engine
type Options struct {
	DesignBaseSize float64
	// Exporter renders off-screen exports; ExportView is a no-op without one
	Exporter *export.Exporter
	Logger   *logrus.Entry
}

// Engine keeps a Surface in step with an editor.Store.
//
// All surface and bookkeeping state is owned by one loop goroutine per canvas lifetime. Store
// notifications only request a reconciliation pass; requests coalesce, so a burst of mutations
// costs one pass. Image loads run in their own goroutines and post their result back to the
// loop, where it is attached only if the load is still the latest one for a design that is
// still in the active view. Gestures are applied on the loop and written back to the store
// with the canvas origin, which the engine's own subscription ignores.
type Engine struct {
	store  *editor.Store
	loader ImageLoader
	opts   Options
	log    *logrus.Entry

	mu   sync.Mutex
	life *life
}

type loadState int

const (
	stateLoading loadState = iota
	statePresent
	stateFailed
)

type entry struct {
	state loadState
	url   string
	gen   uint64
}

type drag struct {
	id      string
	startX  float64
	startY  float64
	origin  models.Position
	current models.Transform
}

// life is one InitCanvas..CleanupCanvas span
type life struct {
	surface     Surface
	cmds        chan func()
	wake        chan struct{}
	quit        chan struct{}
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	// owned by the loop goroutine
	entries   map[string]*entry
	gen       uint64
	mockupKey string
	mockupGen uint64
	inflight  int
	drag      *drag
}

// NewEngine creates an engine bound to store. It does nothing until InitCanvas.
func NewEngine(store *editor.Store, loader ImageLoader, opts Options) *Engine {
	if opts.DesignBaseSize <= 0 {
		opts.DesignBaseSize = export.DefaultDesignBaseSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		store:  store,
		loader: loader,
		opts:   opts,
		log:    opts.Logger.WithField("component", "canvas"),
	}
}

// InitCanvas attaches surface and starts reconciling. It reports false and does nothing if a
// surface is already attached.
func (e *Engine) InitCanvas(surface Surface) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.life != nil || surface == nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &life{
		surface: surface,
		cmds:    make(chan func()),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	l.unsubscribe = e.store.Subscribe(func(c editor.Change) {
		if c.Origin == editor.OriginCanvas {
			return
		}
		l.requestReconcile()
	})
	e.life = l
	go e.run(l)
	l.requestReconcile()
	e.log.WithField("size", surface.Size()).Info("🎨 Canvas initialized")
	return true
}

// CleanupCanvas removes every renderable, disposes the surface and allows a new InitCanvas.
// Calling it without an attached surface is a no-op.
func (e *Engine) CleanupCanvas() {
	e.mu.Lock()
	l := e.life
	e.life = nil
	e.mu.Unlock()
	if l == nil {
		return
	}
	l.unsubscribe()
	l.cancel()
	close(l.quit)
	<-l.done
	e.log.Info("🧹 Canvas cleaned up")
}

// Initialized reports whether a surface is attached
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.life != nil
}

func (e *Engine) current() *life {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.life
}

func (l *life) requestReconcile() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// post queues fn on the loop without waiting for it. It reports false once the loop is gone.
func (l *life) post(fn func()) bool {
	select {
	case l.cmds <- fn:
		return true
	case <-l.quit:
		return false
	}
}

func (e *Engine) run(l *life) {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			e.teardown(l)
			return
		case fn := <-l.cmds:
			// a pending store change lands before the command sees the surface
			select {
			case <-l.wake:
				e.reconcile(l)
			default:
			}
			fn()
		case <-l.wake:
			e.reconcile(l)
		}
	}
}

func (e *Engine) teardown(l *life) {
	for _, o := range l.surface.Objects() {
		l.surface.Remove(o.ID)
	}
	l.entries = make(map[string]*entry)
	l.drag = nil
	l.surface.Dispose()
}

// do runs fn on the loop and waits for it. Without an attached surface it returns false.
func (e *Engine) do(ctx context.Context, fn func(l *life)) (bool, error) {
	l := e.current()
	if l == nil {
		return false, nil
	}
	ran := make(chan struct{})
	select {
	case l.cmds <- func() { fn(l); close(ran) }:
	case <-l.quit:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case <-ran:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Reconcile runs one reconciliation pass now
func (e *Engine) Reconcile(ctx context.Context) error {
	_, err := e.do(ctx, e.reconcile)
	return err
}

// Settle reconciles and waits until no mockup or design load is in flight
func (e *Engine) Settle(ctx context.Context) error {
	for {
		idle := true
		ran, err := e.do(ctx, func(l *life) {
			e.reconcile(l)
			idle = l.inflight == 0
		})
		if err != nil {
			return err
		}
		if !ran || idle {
			return nil
		}
		t := time.NewTimer(settlePoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (e *Engine) reconcile(l *life) {
	st := e.store.State()
	product, _ := e.store.ActiveProduct()
	e.syncMockup(l, st, product)

	designs := st.DesignsByView[st.ActiveView]
	wanted := make(map[string]models.Design, len(designs))
	for _, d := range designs {
		wanted[d.ID] = d
	}

	for id := range l.entries {
		if _, ok := wanted[id]; !ok {
			l.surface.Remove(id)
			delete(l.entries, id)
		}
	}
	for _, o := range l.surface.Objects() {
		if _, ok := wanted[o.ID]; !ok {
			l.surface.Remove(o.ID)
		}
	}
	if l.drag != nil {
		if _, ok := wanted[l.drag.id]; !ok {
			l.drag = nil
		}
	}

	for _, d := range designs {
		en := l.entries[d.ID]
		switch {
		case en == nil:
			e.load(l, d)
		case en.url != d.ImageURL:
			l.surface.Remove(d.ID)
			e.load(l, d)
		case en.state == statePresent:
			if o, ok := l.surface.Object(d.ID); ok {
				e.applyDesign(l, o, d)
			}
		}
	}

	e.restack(l, designs)
	if l.surface.Active() != st.ActiveDesignID {
		l.surface.SetActive(st.ActiveDesignID)
	}
}

func (e *Engine) restack(l *life, designs []models.Design) {
	sorted := models.CloneDesigns(designs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ZIndex < sorted[j].ZIndex })
	ids := make([]string, len(sorted))
	for i, d := range sorted {
		ids[i] = d.ID
	}
	l.surface.SetOrder(ids)
}

// applyDesign copies placement and appearance onto o, refiltering only when curvature changed
func (e *Engine) applyDesign(l *life, o *Object, d models.Design) {
	if l.drag != nil && l.drag.id == o.ID {
		d.Transform = l.drag.current
	}
	o.Transform = d.Transform
	o.Opacity = d.Opacity
	o.BlendMode = d.BlendMode
	o.Visible = d.Visible
	o.Selectable = !d.Locked
	o.Evented = !d.Locked

	var c models.Curvature
	if d.Curvature != nil {
		c = d.Curvature.Normalized()
	}
	if c != o.Curvature || o.Image == nil {
		o.Curvature = c
		o.Image = filter.Curvature(o.Base, c)
	}
}

func (e *Engine) load(l *life, d models.Design) {
	l.gen++
	gen := l.gen
	l.entries[d.ID] = &entry{state: stateLoading, url: d.ImageURL, gen: gen}
	l.inflight++
	id, url := d.ID, d.ImageURL
	go func() {
		var img image.Image
		var err error
		if url == "" {
			err = errors.New("design has no image url")
		} else {
			img, err = e.loader.Load(l.ctx, url)
		}
		l.post(func() {
			l.inflight--
			e.attach(l, id, gen, img, err)
		})
	}()
}

func (e *Engine) attach(l *life, id string, gen uint64, img image.Image, err error) {
	log := e.log.WithField("design_id", id)
	en := l.entries[id]
	if en == nil || en.gen != gen {
		log.Debug("⏭️  discarding stale design load")
		return
	}
	var d models.Design
	found := false
	for _, cur := range e.store.ActiveViewDesigns() {
		if cur.ID == id {
			d, found = cur, true
			break
		}
	}
	if !found {
		log.Debug("⏭️  design left the active view before its image loaded")
		delete(l.entries, id)
		return
	}
	if err != nil {
		en.state = stateFailed
		log.WithError(err).WithField("url", en.url).Warn("⚠️ Design image failed to load, skipping")
		return
	}

	o := &Object{ID: id, Base: compositor.BaseFit(img, e.opts.DesignBaseSize)}
	e.applyDesign(l, o, d)
	l.surface.Add(o)
	if e.store.State().ActiveDesignID == id {
		l.surface.BringToFront(id)
	}
	en.state = statePresent
	e.reconcile(l)
}

func (e *Engine) syncMockup(l *life, st editor.State, product models.ClothingProduct) {
	var key, url string
	if product.ID != "" {
		url, _ = product.MockupURL(st.GarmentColor, st.ActiveView)
		key = product.ID + "|" + st.GarmentColor + "|" + string(st.ActiveView) + "|" + url
	}
	if key == l.mockupKey {
		return
	}
	l.mockupKey = key
	l.mockupGen++
	if url == "" {
		l.surface.SetBackground(nil)
		return
	}

	gen := l.mockupGen
	l.inflight++
	log := e.log.WithFields(logrus.Fields{"product_id": product.ID, "color": st.GarmentColor, "view": st.ActiveView})
	go func() {
		img, err := e.loader.Load(l.ctx, url)
		l.post(func() {
			l.inflight--
			if gen != l.mockupGen {
				return
			}
			if err != nil {
				log.WithError(err).Warn("⚠️ Mockup failed to load")
				l.surface.SetBackground(nil)
				return
			}
			l.surface.SetBackground(img)
			log.Debug("👕 Mockup attached")
			e.reconcile(l)
		})
	}()
}
