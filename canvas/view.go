package canvas

import (
	"context"
	"image"

	"merch-studio/compositor"
	"merch-studio/export"
	"merch-studio/models"
)

// ObjectInfo describes one renderable
type ObjectInfo struct {
	ID         string           `json:"id"`
	Transform  models.Transform `json:"transform"`
	Opacity    float64          `json:"opacity"`
	BlendMode  models.BlendMode `json:"blendMode"`
	Operation  string           `json:"compositeOperation"`
	Visible    bool             `json:"visible"`
	Selectable bool             `json:"selectable"`
	Evented    bool             `json:"evented"`
	Curved     bool             `json:"curved"`
}

// Snapshot is the observable state of the surface
type Snapshot struct {
	// Objects are listed bottom to top
	Objects       []ObjectInfo `json:"objects"`
	ActiveID      string       `json:"activeId,omitempty"`
	HasBackground bool         `json:"hasBackground"`
	Loading       int          `json:"loading"`
}

// IDs returns the object ids bottom to top
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Objects))
	for i, o := range s.Objects {
		ids[i] = o.ID
	}
	return ids
}

// Snapshot reports the current surface contents. It is empty when no surface is attached.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Objects: []ObjectInfo{}}
	_, err := e.do(ctx, func(l *life) {
		for _, o := range l.surface.Objects() {
			snap.Objects = append(snap.Objects, ObjectInfo{
				ID:         o.ID,
				Transform:  o.Transform,
				Opacity:    o.Opacity,
				BlendMode:  o.BlendMode,
				Operation:  compositor.CompositeOperation(o.BlendMode),
				Visible:    o.Visible,
				Selectable: o.Selectable,
				Evented:    o.Evented,
				Curved:     o.Curvature.Active(),
			})
		}
		snap.ActiveID = l.surface.Active()
		snap.HasBackground = l.surface.HasBackground()
		snap.Loading = l.inflight
	})
	return snap, err
}

// RenderView switches the store to view when needed, waits for the surface to settle and
// returns the rendered canvas. It returns nil when no surface is attached.
func (e *Engine) RenderView(ctx context.Context, view models.View) (*image.RGBA, error) {
	if !e.Initialized() {
		return nil, nil
	}
	if view != "" && e.store.State().ActiveView != view {
		e.store.SetActiveView(view)
	}
	if err := e.Settle(ctx); err != nil {
		return nil, err
	}
	var img *image.RGBA
	_, err := e.do(ctx, func(l *life) {
		img = l.surface.Render()
	})
	return img, err
}

// ExportImage flattens view off-screen from a snapshot of the store. A nil image means no
// preview is available.
func (e *Engine) ExportImage(ctx context.Context, view models.View) (*image.RGBA, error) {
	req, ok := e.exportRequest(view)
	if !ok {
		return nil, nil
	}
	return e.opts.Exporter.Export(ctx, req)
}

// ExportView flattens view off-screen and returns it as a PNG data URL, or "" when no preview
// is available
func (e *Engine) ExportView(ctx context.Context, view models.View) (string, error) {
	req, ok := e.exportRequest(view)
	if !ok {
		return "", nil
	}
	return e.opts.Exporter.ExportDataURL(ctx, req)
}

func (e *Engine) exportRequest(view models.View) (export.Request, bool) {
	if e.opts.Exporter == nil {
		return export.Request{}, false
	}
	product, ok := e.store.ActiveProduct()
	if !ok {
		e.log.WithField("view", view).Info("🖼️ No active product, nothing to export")
		return export.Request{}, false
	}
	st := e.store.State()
	if view == "" {
		view = st.ActiveView
	}
	return export.Request{
		Product:      product,
		View:         view,
		GarmentColor: st.GarmentColor,
		Designs:      st.DesignsByView[view],
	}, true
}
