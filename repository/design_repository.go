package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"merch-studio/db"
	"merch-studio/models"
)

// DesignRepository handles database operations for designer artworks
type DesignRepository struct{}

// NewDesignRepository creates a new DesignRepository
func NewDesignRepository() *DesignRepository {
	return &DesignRepository{}
}

var _ DesignRepositoryInterface = (*DesignRepository)(nil)

// GetDesignerDesigns returns the artworks uploaded by a designer, newest first
func (r *DesignRepository) GetDesignerDesigns(ctx context.Context, designerID string) ([]models.Artwork, error) {
	query := `SELECT id, designer_id, title, image_url FROM designs WHERE designer_id = $1 ORDER BY created_at DESC`
	rows, err := db.DB.QueryContext(ctx, query, designerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query designs: %w", err)
	}
	defer rows.Close()

	artworks := []models.Artwork{}
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		artworks = append(artworks, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating designs: %w", err)
	}
	return artworks, nil
}

// GetDesignByID returns one artwork or ErrNotFound
func (r *DesignRepository) GetDesignByID(ctx context.Context, id string) (*models.Artwork, error) {
	query := `SELECT id, designer_id, title, image_url FROM designs WHERE id = $1`
	a, err := scanArtwork(db.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	return a, err
}

// Insert stores a new artwork. Artworks whose image is already known are ignored.
func (r *DesignRepository) Insert(ctx context.Context, artwork *models.Artwork, driveFileID string) error {
	query := `
		INSERT INTO designs (id, designer_id, title, image_url, drive_file_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (image_url) DO NOTHING
	`
	result, err := db.DB.ExecContext(ctx, query,
		artwork.ID, artwork.DesignerID, artwork.Title, artwork.PrimaryImageURL(), driveFileID)
	if err != nil {
		logrus.WithError(err).WithField("design_id", artwork.ID).Error("❌ Database INSERT error")
		return fmt.Errorf("failed to insert design: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		logrus.WithField("image_url", artwork.PrimaryImageURL()).Warn("⚠️ Design already exists, insert skipped")
	}
	return nil
}

// ExistsByImageURL checks if an artwork with the given image exists
func (r *DesignRepository) ExistsByImageURL(ctx context.Context, imageURL string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM designs WHERE image_url = $1)`
	if err := db.DB.QueryRowContext(ctx, query, imageURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row rowScanner) (*models.Artwork, error) {
	var (
		a        models.Artwork
		imageURL string
	)
	if err := row.Scan(&a.ID, &a.DesignerID, &a.Title, &imageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan design: %w", err)
	}
	a.DesignImages = []models.DesignImage{{URL: imageURL}}
	return &a, nil
}
