package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"merch-studio/db"
	"merch-studio/models"
)

// ProductRepository reads clothing products from Postgres
type ProductRepository struct{}

// NewProductRepository creates a new ProductRepository
func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

var _ ProductRepositoryInterface = (*ProductRepository)(nil)

// GetClothingProducts returns every active product ordered by name
func (r *ProductRepository) GetClothingProducts(ctx context.Context) ([]models.ClothingProduct, error) {
	query := `SELECT id, name, category, colors, images FROM clothing_products WHERE is_active = TRUE ORDER BY name`
	rows, err := db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clothing products: %w", err)
	}
	defer rows.Close()

	products := []models.ClothingProduct{}
	for rows.Next() {
		var (
			p              models.ClothingProduct
			colors, images []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &colors, &images); err != nil {
			return nil, fmt.Errorf("failed to scan clothing product: %w", err)
		}
		if err := json.Unmarshal(colors, &p.Colors); err != nil {
			return nil, fmt.Errorf("failed to decode colors of product %s: %w", p.ID, err)
		}
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode images of product %s: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clothing products: %w", err)
	}

	logrus.Debugf("👕 Loaded %d clothing products", len(products))
	return products, nil
}
