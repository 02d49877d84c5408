package canvas

import (
	"context"

	"merch-studio/models"
)

// lockedInStore reports whether the store marks designID as locked. Renderable flags can trail
// the store until the next reconciliation, so gestures consult the store as well.
func (e *Engine) lockedInStore(designID string) bool {
	for _, d := range e.store.ActiveViewDesigns() {
		if d.ID == designID {
			return d.Locked
		}
	}
	return false
}

func lockObject(o *Object) {
	o.Selectable = false
	o.Evented = false
}

// HandleGesture applies a move/scale/rotate result to a renderable and writes it back to the
// store. Locked designs reject gestures with ErrLocked and are left untouched.
func (e *Engine) HandleGesture(ctx context.Context, designID string, t models.Transform) error {
	var gestureErr error
	_, err := e.do(ctx, func(l *life) {
		o, ok := l.surface.Object(designID)
		if !ok {
			gestureErr = ErrNoObject
			return
		}
		if !o.Evented || !o.Selectable || e.lockedInStore(designID) {
			lockObject(o)
			gestureErr = ErrLocked
			return
		}
		if !e.store.SyncTransformFromCanvas(designID, t) {
			if e.lockedInStore(designID) {
				lockObject(o)
				gestureErr = ErrLocked
				return
			}
			gestureErr = ErrNoObject
			return
		}
		o.Transform = t
		l.surface.SetActive(designID)
		e.store.SelectFromCanvas(designID)
	})
	if err != nil {
		return err
	}
	return gestureErr
}

// Select makes designID the surface selection and mirrors it into the store.
// An empty id clears the selection.
func (e *Engine) Select(ctx context.Context, designID string) error {
	var selectErr error
	_, err := e.do(ctx, func(l *life) {
		if designID != "" {
			o, ok := l.surface.Object(designID)
			if !ok {
				selectErr = ErrNoObject
				return
			}
			if !o.Selectable || e.lockedInStore(designID) {
				lockObject(o)
				selectErr = ErrLocked
				return
			}
		}
		l.surface.SetActive(designID)
		e.store.SelectFromCanvas(designID)
	})
	if err != nil {
		return err
	}
	return selectErr
}

// PointerDown hit-tests the surface, selects the topmost evented renderable and starts a drag.
// Clicking empty canvas clears the selection. It returns the hit design id.
func (e *Engine) PointerDown(ctx context.Context, x, y float64) (string, error) {
	var hit string
	_, err := e.do(ctx, func(l *life) {
		l.drag = nil
		o, ok := l.surface.ObjectAt(x, y)
		for ok && e.lockedInStore(o.ID) {
			lockObject(o)
			o, ok = l.surface.ObjectAt(x, y)
		}
		if !ok {
			l.surface.SetActive("")
			e.store.SelectFromCanvas("")
			return
		}
		hit = o.ID
		l.surface.SetActive(o.ID)
		e.store.SelectFromCanvas(o.ID)
		l.drag = &drag{id: o.ID, startX: x, startY: y, origin: o.Transform.Position, current: o.Transform}
	})
	return hit, err
}

// PointerMove drags the grabbed renderable and writes its live position back to the store.
// A design locked mid-drag ends the drag where it stands.
func (e *Engine) PointerMove(ctx context.Context, x, y float64) error {
	_, err := e.do(ctx, func(l *life) {
		dr := l.drag
		if dr == nil {
			return
		}
		o, ok := l.surface.Object(dr.id)
		if !ok || !o.Evented {
			l.drag = nil
			return
		}
		next := o.Transform
		next.Position = models.Position{X: dr.origin.X + x - dr.startX, Y: dr.origin.Y + y - dr.startY}
		if !e.store.SyncTransformFromCanvas(dr.id, next) {
			if e.lockedInStore(dr.id) {
				lockObject(o)
			}
			l.drag = nil
			return
		}
		dr.current = next
		o.Transform = next
	})
	return err
}

// PointerUp ends a drag and commits the final geometry
func (e *Engine) PointerUp(ctx context.Context) error {
	_, err := e.do(ctx, func(l *life) {
		dr := l.drag
		l.drag = nil
		if dr == nil {
			return
		}
		if o, ok := l.surface.Object(dr.id); ok {
			e.store.SyncTransformFromCanvas(dr.id, o.Transform)
		}
	})
	return err
}
