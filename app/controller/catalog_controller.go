package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"merch-studio/models"
	"merch-studio/repository"
	"merch-studio/service"
)

// CatalogController serves garments and the designer artwork library
type CatalogController struct {
	products        repository.ProductRepositoryInterface
	designs         repository.DesignRepositoryInterface
	syncService     service.ArtworkSyncServiceInterface
	defaultFolderID string
}

// NewCatalogController creates a new CatalogController. syncService may be nil when Drive is
// not configured.
func NewCatalogController(
	products repository.ProductRepositoryInterface,
	designs repository.DesignRepositoryInterface,
	syncService service.ArtworkSyncServiceInterface,
	defaultFolderID string,
) *CatalogController {
	return &CatalogController{
		products:        products,
		designs:         designs,
		syncService:     syncService,
		defaultFolderID: defaultFolderID,
	}
}

// ListProducts handles GET /api/products
func (c *CatalogController) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := c.products.GetClothingProducts(r.Context())
	if err != nil {
		renderServiceError(w, r, err, "Failed to list products")
		return
	}
	render.JSON(w, r, products)
}

// ListDesignerDesigns handles GET /api/designers/{designerId}/designs
func (c *CatalogController) ListDesignerDesigns(w http.ResponseWriter, r *http.Request) {
	designs, err := c.designs.GetDesignerDesigns(r.Context(), chi.URLParam(r, "designerId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to list designs")
		return
	}
	render.JSON(w, r, designs)
}

// GetDesign handles GET /api/designs/{designId}
func (c *CatalogController) GetDesign(w http.ResponseWriter, r *http.Request) {
	design, err := c.designs.GetDesignByID(r.Context(), chi.URLParam(r, "designId"))
	if err != nil {
		renderServiceError(w, r, err, "Failed to get design")
		return
	}
	render.JSON(w, r, design)
}

// SyncDesignerDesigns handles POST /api/designers/{designerId}/designs/sync?folderId=...
// It imports the images of a Drive folder into the designer's library.
func (c *CatalogController) SyncDesignerDesigns(w http.ResponseWriter, r *http.Request) {
	if c.syncService == nil {
		renderError(w, r, http.StatusServiceUnavailable, "Google Drive is not configured")
		return
	}
	folderID := r.URL.Query().Get("folderId")
	if folderID == "" {
		folderID = c.defaultFolderID
	}
	if folderID == "" {
		renderError(w, r, http.StatusBadRequest, "folderId query parameter is required")
		return
	}

	created, stats, err := c.syncService.SyncDesignerFolder(r.Context(), chi.URLParam(r, "designerId"), folderID)
	if err != nil {
		renderServiceError(w, r, err, "Failed to sync designs")
		return
	}
	render.JSON(w, r, struct {
		Designs []models.Artwork  `json:"designs"`
		Stats   service.SyncStats `json:"stats"`
	}{created, stats})
}
