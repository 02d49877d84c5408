package repository

import (
	"context"
	"errors"

	"merch-studio/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ProductRepositoryInterface defines the contract for the garment catalog
type ProductRepositoryInterface interface {
	GetClothingProducts(ctx context.Context) ([]models.ClothingProduct, error)
}

// DesignRepositoryInterface defines the contract for the designer artwork library
type DesignRepositoryInterface interface {
	GetDesignerDesigns(ctx context.Context, designerID string) ([]models.Artwork, error)
	GetDesignByID(ctx context.Context, id string) (*models.Artwork, error)
	Insert(ctx context.Context, artwork *models.Artwork, driveFileID string) error
	ExistsByImageURL(ctx context.Context, imageURL string) (bool, error)
}

// FinalProductRepositoryInterface defines the contract for published layouts
type FinalProductRepositoryInterface interface {
	Create(ctx context.Context, form models.FinalProductForm) (*models.FinalProduct, error)
	GetByID(ctx context.Context, id string) (*models.FinalProduct, error)
}
