package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"merch-studio/export"
	"merch-studio/models"
	"merch-studio/service"
)

// CanvasController drives the live canvas of a session: pointer input, gestures, rendering
// and off-screen export
type CanvasController struct {
	sessions *service.EditorSessionService
}

// NewCanvasController creates a new CanvasController
func NewCanvasController(sessions *service.EditorSessionService) *CanvasController {
	return &CanvasController{sessions: sessions}
}

// GestureRequest is the result of a move/scale/rotate gesture on one design
type GestureRequest struct {
	DesignID  string           `json:"designId"`
	Transform models.Transform `json:"transform"`
}

// PointerRequest is one pointer event in canvas coordinates
// Example: {"type": "down", "x": 310, "y": 295}
type PointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type selectRequest struct {
	DesignID string `json:"designId"`
}

func (c *CanvasController) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	session, err := c.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get session")
		return nil, false
	}
	return session, true
}

// viewParam reads ?view=, returning "" for the active view
func viewParam(w http.ResponseWriter, r *http.Request) (models.View, bool) {
	raw := r.URL.Query().Get("view")
	if raw == "" {
		return "", true
	}
	view, ok := models.ParseView(raw)
	if !ok {
		renderError(w, r, http.StatusBadRequest, "Unknown view")
	}
	return view, ok
}

// Snapshot handles GET /api/sessions/{sessionId}/canvas
func (c *CanvasController) Snapshot(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("settle") == "true" {
		if err := session.Engine.Settle(r.Context()); err != nil {
			renderServiceError(w, r, err, "Failed to settle canvas")
			return
		}
	}
	snap, err := session.Engine.Snapshot(r.Context())
	if err != nil {
		renderServiceError(w, r, err, "Failed to read canvas")
		return
	}
	render.JSON(w, r, snap)
}

// Select handles POST /api/sessions/{sessionId}/canvas/select
func (c *CanvasController) Select(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := session.Engine.Select(r.Context(), req.DesignID); err != nil {
		renderServiceError(w, r, err, "Failed to select design")
		return
	}
	c.Snapshot(w, r)
}

// Gesture handles POST /api/sessions/{sessionId}/canvas/gesture
func (c *CanvasController) Gesture(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	var req GestureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := session.Engine.HandleGesture(r.Context(), req.DesignID, req.Transform); err != nil {
		renderServiceError(w, r, err, "Gesture rejected")
		return
	}
	c.Snapshot(w, r)
}

// Pointer handles POST /api/sessions/{sessionId}/canvas/pointer
func (c *CanvasController) Pointer(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch req.Type {
	case "down":
		_, err = session.Engine.PointerDown(r.Context(), req.X, req.Y)
	case "move":
		err = session.Engine.PointerMove(r.Context(), req.X, req.Y)
	case "up":
		err = session.Engine.PointerUp(r.Context())
	default:
		renderError(w, r, http.StatusBadRequest, "type must be down, move or up")
		return
	}
	if err != nil {
		renderServiceError(w, r, err, "Pointer event failed")
		return
	}
	c.Snapshot(w, r)
}

// Render handles GET /api/sessions/{sessionId}/canvas/render?view=front and returns the live
// canvas as PNG
func (c *CanvasController) Render(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	view, ok := viewParam(w, r)
	if !ok {
		return
	}
	img, err := session.Engine.RenderView(r.Context(), view)
	if err != nil {
		renderServiceError(w, r, err, "Failed to render canvas")
		return
	}
	if img == nil {
		renderError(w, r, http.StatusNotFound, "Canvas is not attached")
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		renderServiceError(w, r, err, "Failed to encode canvas")
		return
	}
	writePNG(w, data)
}

// Export handles GET /api/sessions/{sessionId}/export?view=back&format=png|dataurl.
// A view without a mockup yields 204 for png and an empty dataUrl.
func (c *CanvasController) Export(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	view, ok := viewParam(w, r)
	if !ok {
		return
	}

	log := logrus.WithFields(logrus.Fields{"session_id": session.ID, "view": view})
	switch r.URL.Query().Get("format") {
	case "dataurl":
		url, err := session.Engine.ExportView(r.Context(), view)
		if err != nil {
			renderServiceError(w, r, err, "Failed to export view")
			return
		}
		render.JSON(w, r, map[string]string{"dataUrl": url})
	case "", "png":
		img, err := session.Engine.ExportImage(r.Context(), view)
		if err != nil {
			renderServiceError(w, r, err, "Failed to export view")
			return
		}
		if img == nil {
			log.Info("🖼️ Nothing to export")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		data, err := export.EncodePNG(img)
		if err != nil {
			renderServiceError(w, r, err, "Failed to encode export")
			return
		}
		writePNG(w, data)
	default:
		renderError(w, r, http.StatusBadRequest, "format must be png or dataurl")
	}
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
