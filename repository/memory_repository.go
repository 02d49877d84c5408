package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"merch-studio/models"
)

// MemoryRepository keeps products, artworks and final products in memory.
// It serves development setups without Postgres and tests.
type MemoryRepository struct {
	mu            sync.RWMutex
	products      []models.ClothingProduct
	artworks      []models.Artwork
	finalProducts []models.FinalProduct
}

var (
	_ ProductRepositoryInterface      = (*MemoryRepository)(nil)
	_ DesignRepositoryInterface       = (*MemoryRepository)(nil)
	_ FinalProductRepositoryInterface = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates a repository seeded with products and artworks
func NewMemoryRepository(products []models.ClothingProduct, artworks []models.Artwork) *MemoryRepository {
	return &MemoryRepository{
		products: append([]models.ClothingProduct(nil), products...),
		artworks: append([]models.Artwork(nil), artworks...),
	}
}

func (r *MemoryRepository) GetClothingProducts(ctx context.Context) ([]models.ClothingProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.ClothingProduct{}, r.products...), nil
}

func (r *MemoryRepository) GetDesignerDesigns(ctx context.Context, designerID string) ([]models.Artwork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Artwork{}
	for _, a := range r.artworks {
		if a.DesignerID == designerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) GetDesignByID(ctx context.Context, id string) (*models.Artwork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.artworks {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
}

func (r *MemoryRepository) Insert(ctx context.Context, artwork *models.Artwork, driveFileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.artworks {
		if a.PrimaryImageURL() == artwork.PrimaryImageURL() {
			return nil
		}
	}
	r.artworks = append(r.artworks, *artwork)
	return nil
}

func (r *MemoryRepository) ExistsByImageURL(ctx context.Context, imageURL string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.artworks {
		if a.PrimaryImageURL() == imageURL {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) Create(ctx context.Context, form models.FinalProductForm) (*models.FinalProduct, error) {
	fp := models.FinalProduct{
		ID:               ulid.Make().String(),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		FinalProductForm: form,
	}
	r.mu.Lock()
	r.finalProducts = append(r.finalProducts, fp)
	r.mu.Unlock()
	return &fp, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.FinalProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fp := range r.finalProducts {
		if fp.ID == id {
			fp := fp
			return &fp, nil
		}
	}
	return nil, fmt.Errorf("final product %s: %w", id, ErrNotFound)
}

// FinalProducts returns everything created so far
func (r *MemoryRepository) FinalProducts() []models.FinalProduct {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.FinalProduct(nil), r.finalProducts...)
}
