package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"merch-studio/canvas"
	"merch-studio/editor"
	"merch-studio/models"
	"merch-studio/service"
)

// EditorController exposes editor sessions and their store actions
type EditorController struct {
	sessions *service.EditorSessionService
}

// NewEditorController creates a new EditorController
func NewEditorController(sessions *service.EditorSessionService) *EditorController {
	return &EditorController{sessions: sessions}
}

// SessionResponse is the observable state of a session
type SessionResponse struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	State       editor.State    `json:"state"`
	Canvas      canvas.Snapshot `json:"canvas"`
	DesignUsage map[string]int  `json:"designUsage"`
}

// CreateSessionRequest opens a session
// Example: {"productId": "classic-tee", "color": "black"}
type CreateSessionRequest struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
}

// AddDesignRequest places a library artwork
type AddDesignRequest struct {
	ArtworkID string      `json:"artworkId"`
	View      models.View `json:"view"`
}

// UpdateDesignRequest carries property edits; nil fields are left untouched
type UpdateDesignRequest struct {
	Opacity   *float64          `json:"opacity,omitempty"`
	BlendMode *models.BlendMode `json:"blendMode,omitempty"`
	Curvature *models.Curvature `json:"curvature,omitempty"`
	Name      *string           `json:"name,omitempty"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type productRequest struct {
	ProductID string `json:"productId"`
}

type viewRequest struct {
	View string `json:"view"`
}

type colorRequest struct {
	Color string `json:"color"`
}

type activeDesignRequest struct {
	DesignID string `json:"designId"`
}

func (c *EditorController) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	session, err := c.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get session")
		return nil, false
	}
	return session, true
}

func (c *EditorController) respond(w http.ResponseWriter, r *http.Request, session *service.Session) {
	if err := session.Engine.Reconcile(r.Context()); err != nil {
		renderServiceError(w, r, err, "Failed to sync canvas")
		return
	}
	snap, err := session.Engine.Snapshot(r.Context())
	if err != nil {
		renderServiceError(w, r, err, "Failed to read canvas")
		return
	}
	render.JSON(w, r, SessionResponse{
		ID:          session.ID,
		CreatedAt:   session.CreatedAt,
		State:       session.Store.State(),
		Canvas:      snap,
		DesignUsage: session.Store.DesignUsageCounts(),
	})
}

// withSession resolves the session, runs fn and responds with the updated session
func (c *EditorController) withSession(fn func(w http.ResponseWriter, r *http.Request, s *service.Session) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := c.session(w, r)
		if !ok {
			return
		}
		if !fn(w, r, session) {
			return
		}
		c.respond(w, r, session)
	}
}

// CreateSession handles POST /api/sessions
func (c *EditorController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	session, err := c.sessions.Create(r.Context(), req.ProductID, req.Color)
	if err != nil {
		renderServiceError(w, r, err, "Failed to create session")
		return
	}
	render.Status(r, http.StatusCreated)
	c.respond(w, r, session)
}

// GetSession handles GET /api/sessions/{sessionId}
func (c *EditorController) GetSession(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(http.ResponseWriter, *http.Request, *service.Session) bool { return true })(w, r)
}

// CloseSession handles DELETE /api/sessions/{sessionId}
func (c *EditorController) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Close(chi.URLParam(r, "sessionId")); err != nil {
		renderServiceError(w, r, err, "Failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/sessions/{sessionId}/history/{productId}
func (c *EditorController) History(w http.ResponseWriter, r *http.Request) {
	session, ok := c.session(w, r)
	if !ok {
		return
	}
	history, found := session.Store.History(chi.URLParam(r, "productId"))
	if !found {
		renderError(w, r, http.StatusNotFound, "No saved layout for product")
		return
	}
	render.JSON(w, r, history)
}

// AddDesign handles POST /api/sessions/{sessionId}/designs
func (c *EditorController) AddDesign(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req AddDesignRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		if req.ArtworkID == "" {
			renderError(w, r, http.StatusBadRequest, "artworkId is required")
			return false
		}
		if req.View != "" {
			view, ok := models.ParseView(string(req.View))
			if !ok {
				renderError(w, r, http.StatusBadRequest, "Unknown view")
				return false
			}
			req.View = view
		}
		if _, err := c.sessions.AddArtwork(r.Context(), s.ID, req.ArtworkID, req.View); err != nil {
			renderServiceError(w, r, err, "Failed to add design")
			return false
		}
		render.Status(r, http.StatusCreated)
		return true
	})(w, r)
}

// RemoveDesign handles DELETE /api/sessions/{sessionId}/designs/{designId}
func (c *EditorController) RemoveDesign(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		s.Store.RemoveDesign(chi.URLParam(r, "designId"))
		return true
	})(w, r)
}

// UpdateTransform handles PATCH /api/sessions/{sessionId}/designs/{designId}/transform
func (c *EditorController) UpdateTransform(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var patch models.TransformPatch
		if !decodeJSON(w, r, &patch) {
			return false
		}
		s.Store.UpdateDesignTransform(chi.URLParam(r, "designId"), patch)
		return true
	})(w, r)
}

// UpdateDesign handles PATCH /api/sessions/{sessionId}/designs/{designId}
func (c *EditorController) UpdateDesign(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req UpdateDesignRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		if req.BlendMode != nil && !req.BlendMode.Valid() {
			renderError(w, r, http.StatusBadRequest, "Unsupported blend mode")
			return false
		}
		id := chi.URLParam(r, "designId")
		if req.Opacity != nil {
			s.Store.UpdateDesignOpacity(id, *req.Opacity)
		}
		if req.BlendMode != nil {
			s.Store.UpdateDesignBlendMode(id, *req.BlendMode)
		}
		if req.Curvature != nil {
			s.Store.UpdateDesignCurvature(id, *req.Curvature)
		}
		if req.Name != nil {
			s.Store.RenameDesign(id, *req.Name)
		}
		return true
	})(w, r)
}

// DuplicateDesign handles POST /api/sessions/{sessionId}/designs/{designId}/duplicate
func (c *EditorController) DuplicateDesign(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		if _, ok := s.Store.DuplicateDesign(chi.URLParam(r, "designId")); ok {
			render.Status(r, http.StatusCreated)
		}
		return true
	})(w, r)
}

// ToggleVisibility handles POST /api/sessions/{sessionId}/designs/{designId}/visibility
func (c *EditorController) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		s.Store.ToggleDesignVisibility(chi.URLParam(r, "designId"))
		return true
	})(w, r)
}

// ToggleLock handles POST /api/sessions/{sessionId}/designs/{designId}/lock
func (c *EditorController) ToggleLock(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		s.Store.ToggleDesignLock(chi.URLParam(r, "designId"))
		return true
	})(w, r)
}

// ReorderView handles PUT /api/sessions/{sessionId}/views/{view}/order with ids in panel order
func (c *EditorController) ReorderView(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		view, ok := models.ParseView(chi.URLParam(r, "view"))
		if !ok {
			renderError(w, r, http.StatusBadRequest, "Unknown view")
			return false
		}
		var req reorderRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		s.Store.ReorderDesignIDs(view, req.IDs)
		return true
	})(w, r)
}

// ClearView handles DELETE /api/sessions/{sessionId}/views/{view}/designs
func (c *EditorController) ClearView(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		view, ok := models.ParseView(chi.URLParam(r, "view"))
		if !ok {
			renderError(w, r, http.StatusBadRequest, "Unknown view")
			return false
		}
		s.Store.ClearView(view)
		return true
	})(w, r)
}

// SetProduct handles PUT /api/sessions/{sessionId}/product
func (c *EditorController) SetProduct(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req productRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		if _, ok := s.Store.Product(req.ProductID); !ok {
			renderError(w, r, http.StatusBadRequest, "Unknown product")
			return false
		}
		s.Store.SetActiveProduct(req.ProductID)
		return true
	})(w, r)
}

// SetView handles PUT /api/sessions/{sessionId}/view
func (c *EditorController) SetView(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req viewRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		view, ok := models.ParseView(req.View)
		if !ok {
			renderError(w, r, http.StatusBadRequest, "Unknown view")
			return false
		}
		s.Store.SetActiveView(view)
		return true
	})(w, r)
}

// SetColor handles PUT /api/sessions/{sessionId}/color
func (c *EditorController) SetColor(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req colorRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		product, ok := s.Store.ActiveProduct()
		if ok && !product.HasColor(req.Color) {
			renderError(w, r, http.StatusBadRequest, "Color not offered for product")
			return false
		}
		s.Store.SetGarmentColor(req.Color)
		return true
	})(w, r)
}

// SetActiveDesign handles PUT /api/sessions/{sessionId}/active-design
func (c *EditorController) SetActiveDesign(w http.ResponseWriter, r *http.Request) {
	c.withSession(func(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
		var req activeDesignRequest
		if !decodeJSON(w, r, &req) {
			return false
		}
		s.Store.SetActiveDesign(req.DesignID)
		return true
	})(w, r)
}
