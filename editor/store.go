package editor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"merch-studio/models"
)

// PlacementOffset is how far each new or duplicated design is shifted so copies never overlap exactly
const PlacementOffset = 20.0

// Options configures a Store
type Options struct {
	// DefaultPosition is where a design lands when it is added without a position
	DefaultPosition models.Position
	// Products is the garment catalog used to validate colors on product switches
	Products []models.ClothingProduct
	// NewID generates placement ids; defaults to ULIDs
	NewID func() string
	// OnStaleReference receives actions that targeted a missing design id
	OnStaleReference func(StaleReference)
	Logger           *logrus.Entry
}

// Store is the single source of truth for placement data of one editor session.
//
// Every mutation is applied and announced as one serialized step: the state is updated under
// the lock, then subscribers are called in registration order before the next mutation starts.
// Subscribers may read the store but must not mutate it synchronously.
//
// Actions that reference an unknown design id are silent no-ops. They never fail, so an
// editing session survives races such as a transform arriving after its design was removed.
// Such calls are still reported through Options.OnStaleReference and the debug log.
type Store struct {
	dispatch sync.Mutex
	mu       sync.RWMutex

	state    State
	history  map[string]ViewState
	products map[string]models.ClothingProduct

	subs         map[int]func(Change)
	nextSub      int
	disposed     bool
	pendingStale []StaleReference

	opts Options
	log  *logrus.Entry
}

// NewStore creates an empty store with the front view active
func NewStore(opts Options) *Store {
	if opts.NewID == nil {
		opts.NewID = func() string { return ulid.Make().String() }
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Store{
		state: State{
			ActiveView:    models.ViewFront,
			DesignsByView: emptyViewState(),
		},
		history:  make(map[string]ViewState),
		products: make(map[string]models.ClothingProduct),
		subs:     make(map[int]func(Change)),
		opts:     opts,
		log:      opts.Logger.WithField("component", "store"),
	}
	for _, p := range opts.Products {
		s.products[p.ID] = p
	}
	return s
}

// Subscribe registers fn for every applied change and returns its unsubscribe func
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Dispose drops all state and subscribers. Later mutations are ignored.
func (s *Store) Dispose() {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.subs = make(map[int]func(Change))
	s.history = make(map[string]ViewState)
	s.state = State{ActiveView: models.ViewFront, DesignsByView: emptyViewState()}
}

// mutation is the body of one serialized store step. It returns whether anything changed.
type mutation func(st *State) bool

func (s *Store) apply(origin Origin, action string, view models.View, fn mutation) bool {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	changed := fn(&s.state)
	if view == "" {
		view = s.state.ActiveView
	}
	stale := s.pendingStale
	s.pendingStale = nil
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, ref := range stale {
		s.reportStale(ref)
	}
	if !changed {
		return false
	}
	change := Change{Action: action, View: view, Origin: origin}
	for _, fn := range subs {
		fn(change)
	}
	return true
}

// stale queues a stale-reference report; it must be called with s.mu held
func (s *Store) stale(action, designID string, view models.View) {
	s.pendingStale = append(s.pendingStale, StaleReference{Action: action, DesignID: designID, View: view})
}

func (s *Store) reportStale(ref StaleReference) {
	s.log.WithFields(logrus.Fields{
		"action":    ref.Action,
		"design_id": ref.DesignID,
		"view":      ref.View,
	}).Debug("⏭️  ignoring action for unknown design")
	if s.opts.OnStaleReference != nil {
		s.opts.OnStaleReference(ref)
	}
}

// snapshot must be called with s.mu held
func (s *Store) snapshot(st *State) {
	if st.ActiveProductID == "" {
		return
	}
	s.history[st.ActiveProductID] = st.DesignsByView.Clone()
}

func indexOf(list []models.Design, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// withActiveDesign runs fn on the design with id in the active view
func (s *Store) withActiveDesign(origin Origin, action, id string, fn func(d *models.Design) bool) bool {
	return s.apply(origin, action, "", func(st *State) bool {
		list := st.DesignsByView[st.ActiveView]
		i := indexOf(list, id)
		if i < 0 {
			s.stale(action, id, st.ActiveView)
			return false
		}
		return fn(&list[i])
	})
}

func uniqueName(list []models.Design, base string) string {
	if base == "" {
		base = "Design"
	}
	taken := make(map[string]bool, len(list))
	for _, d := range list {
		taken[d.Name] = true
	}
	if !taken[base] {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// renumber compacts zIndex values of list to 0..n-1 keeping their relative order
func renumber(list []models.Design) {
	order := make([]int, len(list))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return list[order[a]].ZIndex < list[order[b]].ZIndex
	})
	for z, i := range order {
		list[i].ZIndex = z
	}
}

// AddDesignToCanvas places a copy of d into view (the active view when empty) and makes it active.
// The placement gets a fresh id, a name unique within the view, the top zIndex, and a position
// shifted by PlacementOffset per design already in the view. A zero Scale or Opacity reads as
// unset and becomes 1, so a fully transparent placement is made with UpdateDesignOpacity after
// adding.
func (s *Store) AddDesignToCanvas(d models.Design, view models.View) (models.Design, bool) {
	var placed models.Design
	ok := s.apply(OriginUI, ActionAddDesign, view, func(st *State) bool {
		if view == "" {
			view = st.ActiveView
		}
		list, known := st.DesignsByView[view]
		if !known {
			return false
		}
		d = d.Clone()
		d.ID = s.opts.NewID()
		d.Name = uniqueName(list, d.Name)
		if d.Transform.Scale == 0 {
			d.Transform.Scale = 1
		}
		if d.Transform.Position == (models.Position{}) {
			d.Transform.Position = s.opts.DefaultPosition
		}
		offset := float64(len(list)) * PlacementOffset
		d.Transform.Position.X += offset
		d.Transform.Position.Y += offset
		d.Visible = true
		d.Locked = false
		if d.Opacity == 0 {
			d.Opacity = 1
		}
		if !d.BlendMode.Valid() {
			d.BlendMode = models.BlendNormal
		}
		d.ZIndex = len(list)

		st.DesignsByView[view] = append(list, d)
		st.ActiveDesignID = d.ID
		s.snapshot(st)
		placed = d.Clone()
		return true
	})
	return placed, ok
}

// RemoveDesign deletes a design from the active view and compacts the remaining zIndex values
func (s *Store) RemoveDesign(id string) {
	s.apply(OriginUI, ActionRemoveDesign, "", func(st *State) bool {
		view := st.ActiveView
		list := st.DesignsByView[view]
		i := indexOf(list, id)
		if i < 0 {
			s.stale(ActionRemoveDesign, id, view)
			return false
		}
		list = append(list[:i:i], list[i+1:]...)
		renumber(list)
		st.DesignsByView[view] = list
		if st.ActiveDesignID == id {
			st.ActiveDesignID = ""
		}
		s.snapshot(st)
		return true
	})
}

// ClearView removes every design from view
func (s *Store) ClearView(view models.View) {
	s.apply(OriginUI, ActionClearView, view, func(st *State) bool {
		list, ok := st.DesignsByView[view]
		if !ok || len(list) == 0 {
			return false
		}
		for _, d := range list {
			if d.ID == st.ActiveDesignID {
				st.ActiveDesignID = ""
			}
		}
		st.DesignsByView[view] = []models.Design{}
		s.snapshot(st)
		return true
	})
}

// UpdateDesignTransform merges patch into the matching design of the active view.
// Programmatic updates apply even to locked designs; locking only blocks canvas gestures.
func (s *Store) UpdateDesignTransform(id string, patch models.TransformPatch) {
	s.withActiveDesign(OriginUI, ActionUpdateTransform, id, func(d *models.Design) bool {
		d.Transform = patch.Apply(d.Transform)
		return true
	})
}

// SyncTransformFromCanvas records the live geometry of a renderable after a gesture. Locked
// designs keep their transform. It reports whether the design exists and accepted the geometry.
func (s *Store) SyncTransformFromCanvas(id string, t models.Transform) bool {
	accepted := false
	s.withActiveDesign(OriginCanvas, ActionUpdateTransform, id, func(d *models.Design) bool {
		if d.Locked {
			return false
		}
		accepted = true
		if d.Transform == t {
			return false
		}
		d.Transform = t
		return true
	})
	return accepted
}

// SelectFromCanvas sets the active design from a canvas selection; "" clears it
func (s *Store) SelectFromCanvas(id string) {
	s.setActiveDesign(OriginCanvas, id)
}

// SetActiveDesign selects a design of the active view; "" clears the selection
func (s *Store) SetActiveDesign(id string) {
	s.setActiveDesign(OriginUI, id)
}

func (s *Store) setActiveDesign(origin Origin, id string) {
	s.apply(origin, ActionSetActiveDesign, "", func(st *State) bool {
		if st.ActiveDesignID == id {
			return false
		}
		if id != "" && indexOf(st.DesignsByView[st.ActiveView], id) < 0 {
			s.stale(ActionSetActiveDesign, id, st.ActiveView)
			return false
		}
		st.ActiveDesignID = id
		return true
	})
}

// ReorderDesigns replaces view's list with ordered, the first entry on top.
// zIndex is renumbered contiguously: len-1 for the first entry down to 0 for the last.
func (s *Store) ReorderDesigns(view models.View, ordered []models.Design) {
	s.apply(OriginUI, ActionReorder, view, func(st *State) bool {
		if _, ok := st.DesignsByView[view]; !ok {
			return false
		}
		list := models.CloneDesigns(ordered)
		if list == nil {
			list = []models.Design{}
		}
		n := len(list)
		for i := range list {
			list[i].ZIndex = n - 1 - i
		}
		st.DesignsByView[view] = list
		if st.ActiveDesignID != "" && view == st.ActiveView && indexOf(list, st.ActiveDesignID) < 0 {
			st.ActiveDesignID = ""
		}
		s.snapshot(st)
		return true
	})
}

// ReorderDesignIDs reorders view by placement ids, top first. Unknown ids are skipped and
// designs not named keep their relative order below the named ones.
func (s *Store) ReorderDesignIDs(view models.View, ids []string) {
	current := s.DesignsByView(view)
	sort.SliceStable(current, func(a, b int) bool { return current[a].ZIndex > current[b].ZIndex })

	ordered := make([]models.Design, 0, len(current))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		i := indexOf(current, id)
		if i < 0 || used[id] {
			s.reportStale(StaleReference{Action: ActionReorder, DesignID: id, View: view})
			continue
		}
		used[id] = true
		ordered = append(ordered, current[i])
	}
	for _, d := range current {
		if !used[d.ID] {
			ordered = append(ordered, d)
		}
	}
	s.ReorderDesigns(view, ordered)
}

// SetProducts replaces the garment catalog used for color validation
func (s *Store) SetProducts(products []models.ClothingProduct) {
	s.apply(OriginUI, ActionProducts, "", func(st *State) bool {
		s.products = make(map[string]models.ClothingProduct, len(products))
		for _, p := range products {
			s.products[p.ID] = p
		}
		return true
	})
}

// SetActiveProduct stores the outgoing product's layout in history, then restores the incoming
// product's last layout or starts it with empty views. The garment color falls back to the new
// product's first color when the current one is not offered.
func (s *Store) SetActiveProduct(productID string) {
	s.apply(OriginUI, ActionSetProduct, "", func(st *State) bool {
		if productID == st.ActiveProductID {
			return false
		}
		s.snapshot(st)

		if saved, ok := s.history[productID]; ok {
			st.DesignsByView = saved.Clone()
			for _, v := range models.AllViews() {
				if st.DesignsByView[v] == nil {
					st.DesignsByView[v] = []models.Design{}
				}
			}
		} else {
			st.DesignsByView = emptyViewState()
		}
		st.ActiveProductID = productID

		if p, ok := s.products[productID]; ok && !p.HasColor(st.GarmentColor) {
			st.GarmentColor = p.FirstColor()
		}
		st.ActiveDesignID = firstID(st.DesignsByView[st.ActiveView])
		return true
	})
}

// SetActiveView stores the current layout in history and switches views. The active design is
// kept when it exists in the new view, otherwise the view's first design becomes active.
func (s *Store) SetActiveView(view models.View) {
	s.apply(OriginUI, ActionSetView, view, func(st *State) bool {
		if _, ok := st.DesignsByView[view]; !ok || view == st.ActiveView {
			return false
		}
		s.snapshot(st)
		st.ActiveView = view
		list := st.DesignsByView[view]
		if indexOf(list, st.ActiveDesignID) < 0 {
			st.ActiveDesignID = firstID(list)
		}
		return true
	})
}

// SetGarmentColor changes the garment color when the active product offers it
func (s *Store) SetGarmentColor(color string) {
	s.apply(OriginUI, ActionSetColor, "", func(st *State) bool {
		if color == st.GarmentColor {
			return false
		}
		if p, ok := s.products[st.ActiveProductID]; ok && !p.HasColor(color) {
			s.log.WithFields(logrus.Fields{"product_id": p.ID, "color": color}).
				Warn("⚠️  color not offered for product, keeping current color")
			return false
		}
		st.GarmentColor = color
		return true
	})
}

func firstID(list []models.Design) string {
	if len(list) == 0 {
		return ""
	}
	return list[0].ID
}

// DuplicateDesign clones a design of the active view with a fresh id, shifted by PlacementOffset
func (s *Store) DuplicateDesign(id string) (models.Design, bool) {
	var dup models.Design
	ok := s.apply(OriginUI, ActionDuplicate, "", func(st *State) bool {
		view := st.ActiveView
		list := st.DesignsByView[view]
		i := indexOf(list, id)
		if i < 0 {
			s.stale(ActionDuplicate, id, view)
			return false
		}
		d := list[i].Clone()
		d.ID = s.opts.NewID()
		d.Name = uniqueName(list, list[i].Name)
		d.Transform.Position.X += PlacementOffset
		d.Transform.Position.Y += PlacementOffset
		d.ZIndex = len(list)
		st.DesignsByView[view] = append(list, d)
		st.ActiveDesignID = d.ID
		s.snapshot(st)
		dup = d.Clone()
		return true
	})
	return dup, ok
}

// ToggleDesignVisibility flips Visible on a design of the active view
func (s *Store) ToggleDesignVisibility(id string) {
	s.withActiveDesign(OriginUI, ActionToggleVisibility, id, func(d *models.Design) bool {
		d.Visible = !d.Visible
		return true
	})
}

// ToggleDesignLock flips Locked on a design of the active view
func (s *Store) ToggleDesignLock(id string) {
	s.withActiveDesign(OriginUI, ActionToggleLock, id, func(d *models.Design) bool {
		d.Locked = !d.Locked
		return true
	})
}

// UpdateDesignOpacity sets opacity, clamped to [0, 1]
func (s *Store) UpdateDesignOpacity(id string, opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	s.withActiveDesign(OriginUI, ActionOpacity, id, func(d *models.Design) bool {
		d.Opacity = opacity
		return true
	})
}

// UpdateDesignBlendMode sets the blend mode; unsupported modes are ignored
func (s *Store) UpdateDesignBlendMode(id string, mode models.BlendMode) {
	if !mode.Valid() {
		return
	}
	s.withActiveDesign(OriginUI, ActionBlendMode, id, func(d *models.Design) bool {
		d.BlendMode = mode
		return true
	})
}

// UpdateDesignCurvature replaces the curvature settings of a design
func (s *Store) UpdateDesignCurvature(id string, c models.Curvature) {
	c = c.Normalized()
	s.withActiveDesign(OriginUI, ActionCurvature, id, func(d *models.Design) bool {
		d.Curvature = &c
		return true
	})
}

// RenameDesign renames a design, suffixing a counter when the name is taken in its view
func (s *Store) RenameDesign(id, name string) {
	s.apply(OriginUI, ActionRename, "", func(st *State) bool {
		view := st.ActiveView
		list := st.DesignsByView[view]
		i := indexOf(list, id)
		if i < 0 {
			s.stale(ActionRename, id, view)
			return false
		}
		if list[i].Name == name {
			return false
		}
		others := append(list[:i:i], list[i+1:]...)
		list[i].Name = uniqueName(others, name)
		return true
	})
}

// State returns a deep copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.DesignsByView = s.state.DesignsByView.Clone()
	return st
}

// ActiveDesign returns the selected design of the active view
func (s *Store) ActiveDesign() (models.Design, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.state.DesignsByView[s.state.ActiveView]
	i := indexOf(list, s.state.ActiveDesignID)
	if i < 0 || s.state.ActiveDesignID == "" {
		return models.Design{}, false
	}
	return list[i].Clone(), true
}

// DesignsByView returns a copy of view's design list in panel order
func (s *Store) DesignsByView(view models.View) []models.Design {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := models.CloneDesigns(s.state.DesignsByView[view])
	if list == nil {
		list = []models.Design{}
	}
	return list
}

// ActiveViewDesigns returns a copy of the active view's designs
func (s *Store) ActiveViewDesigns() []models.Design {
	s.mu.RLock()
	view := s.state.ActiveView
	s.mu.RUnlock()
	return s.DesignsByView(view)
}

// DesignUsageCounts counts placements per source artwork across all views of the active product
func (s *Store) DesignUsageCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, list := range s.state.DesignsByView {
		for _, d := range list {
			counts[d.SourceDesignID]++
		}
	}
	return counts
}

// History returns the saved layout of a product
func (s *Store) History(productID string) (ViewState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.history[productID]
	if !ok {
		return nil, false
	}
	return vs.Clone(), true
}

// Product looks up a garment from the store's catalog
func (s *Store) Product(id string) (models.ClothingProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// ActiveProduct returns the garment currently being edited
func (s *Store) ActiveProduct() (models.ClothingProduct, bool) {
	s.mu.RLock()
	id := s.state.ActiveProductID
	s.mu.RUnlock()
	return s.Product(id)
}
