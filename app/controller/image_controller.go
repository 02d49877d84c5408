package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"merch-studio/stores"
)

// ImageController serves stored product renditions
type ImageController struct {
	images stores.ImageStore
}

// NewImageController creates a new ImageController
func NewImageController(images stores.ImageStore) *ImageController {
	return &ImageController{images: images}
}

// Get handles GET /images/*
func (c *ImageController) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		renderError(w, r, http.StatusBadRequest, "Image key is required")
		return
	}
	data, contentType, err := c.images.Get(r.Context(), key)
	if err != nil {
		renderServiceError(w, r, err, "Failed to get image")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
