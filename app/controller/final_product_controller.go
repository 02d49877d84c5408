package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"merch-studio/models"
	"merch-studio/repository"
	"merch-studio/service"
)

// FinalProductController publishes editor layouts and serves their product sheets
type FinalProductController struct {
	sessions     *service.EditorSessionService
	finalService service.FinalProductServiceInterface
	repository   repository.FinalProductRepositoryInterface
	sheets       *service.ProductSheetService
}

// NewFinalProductController creates a new FinalProductController
func NewFinalProductController(
	sessions *service.EditorSessionService,
	finalService service.FinalProductServiceInterface,
	repo repository.FinalProductRepositoryInterface,
	sheets *service.ProductSheetService,
) *FinalProductController {
	return &FinalProductController{
		sessions:     sessions,
		finalService: finalService,
		repository:   repo,
		sheets:       sheets,
	}
}

// Create handles POST /api/sessions/{sessionId}/final-product
func (c *FinalProductController) Create(w http.ResponseWriter, r *http.Request) {
	session, err := c.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get session")
		return
	}
	var req models.CreateFinalProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fp, err := c.finalService.Create(r.Context(), session, req)
	if err != nil {
		renderServiceError(w, r, err, "Failed to create final product")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, fp)
}

// Get handles GET /api/final-products/{finalProductId}
func (c *FinalProductController) Get(w http.ResponseWriter, r *http.Request) {
	fp, err := c.repository.GetByID(r.Context(), chi.URLParam(r, "finalProductId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get final product")
		return
	}
	render.JSON(w, r, fp)
}

// Sheet handles GET /api/final-products/{finalProductId}/sheet?format=html|pdf|png
func (c *FinalProductController) Sheet(w http.ResponseWriter, r *http.Request) {
	fp, err := c.repository.GetByID(r.Context(), chi.URLParam(r, "finalProductId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get final product")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		html, err := c.sheets.RenderSheetHTML(r.Context(), fp)
		if err != nil {
			renderServiceError(w, r, err, "Failed to render product sheet")
			return
		}
		render.HTML(w, r, html)
	case "pdf":
		pdf, err := c.sheets.GeneratePDF(r.Context(), fp)
		if err != nil {
			renderServiceError(w, r, err, "Failed to generate PDF")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+fp.ID+`.pdf"`)
		w.Write(pdf)
	case "png":
		png, err := c.sheets.GeneratePNG(r.Context(), fp)
		if err != nil {
			renderServiceError(w, r, err, "Failed to generate PNG")
			return
		}
		writePNG(w, png)
	default:
		renderError(w, r, http.StatusBadRequest, "format must be html, pdf or png")
	}
}
