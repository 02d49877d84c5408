package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"merch-studio/db"
	"merch-studio/models"
)

// FinalProductRepository persists published layouts in Postgres
type FinalProductRepository struct{}

// NewFinalProductRepository creates a new FinalProductRepository
func NewFinalProductRepository() *FinalProductRepository {
	return &FinalProductRepository{}
}

var _ FinalProductRepositoryInterface = (*FinalProductRepository)(nil)

// Create inserts a final product and returns the stored record
func (r *FinalProductRepository) Create(ctx context.Context, form models.FinalProductForm) (*models.FinalProduct, error) {
	tags, err := json.Marshal(nonNil(form.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	designs, err := json.Marshal(form.Designs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode designs: %w", err)
	}
	variants, err := json.Marshal(form.Variants)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variants: %w", err)
	}
	images, err := json.Marshal(form.ProcessedImages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode processed images: %w", err)
	}

	createdAt := time.Now().UTC()
	fp := &models.FinalProduct{
		ID:               ulid.Make().String(),
		CreatedAt:        createdAt.Format(time.RFC3339),
		FinalProductForm: form,
	}
	query := `
		INSERT INTO final_products (
			id, product_id, product_name, garment_color, gender, design_price,
			tags, designs, variants, processed_images, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = db.DB.ExecContext(ctx, query,
		fp.ID, form.ProductID, form.ProductName, form.GarmentColor, form.Gender, form.DesignPrice,
		tags, designs, variants, images, createdAt)
	if err != nil {
		logrus.WithError(err).WithField("product_id", form.ProductID).Error("❌ Failed to insert final product")
		return nil, fmt.Errorf("failed to insert final product: %w", err)
	}

	logrus.WithField("final_product_id", fp.ID).Info("✅ Final product created")
	return fp, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// GetByID returns a stored final product or ErrNotFound
func (r *FinalProductRepository) GetByID(ctx context.Context, id string) (*models.FinalProduct, error) {
	query := `
		SELECT id, product_id, product_name, garment_color, gender, design_price,
			tags, designs, variants, processed_images, created_at
		FROM final_products WHERE id = $1
	`
	var (
		fp                              models.FinalProduct
		tags, designs, variants, images []byte
		createdAt                       time.Time
	)
	err := db.DB.QueryRowContext(ctx, query, id).Scan(
		&fp.ID, &fp.ProductID, &fp.ProductName, &fp.GarmentColor, &fp.Gender, &fp.DesignPrice,
		&tags, &designs, &variants, &images, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("final product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query final product: %w", err)
	}
	fp.CreatedAt = createdAt.UTC().Format(time.RFC3339)

	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"tags", tags, &fp.Tags},
		{"designs", designs, &fp.Designs},
		{"variants", variants, &fp.Variants},
		{"processed_images", images, &fp.ProcessedImages},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s of final product %s: %w", col.name, id, err)
		}
	}
	return &fp, nil
}
