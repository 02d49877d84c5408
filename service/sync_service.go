package service

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"merch-studio/models"
	"merch-studio/repository"
	"merch-studio/utils"
)

// SyncStats summarizes one artwork import.
// Inserted = new artworks created, Skipped = already known or unparseable, Total = images seen in Drive.
type SyncStats struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Total    int `json:"total"`
}

// ArtworkSyncServiceInterface defines the contract for importing designer artworks
type ArtworkSyncServiceInterface interface {
	SyncDesignerFolder(ctx context.Context, designerID, folderID string) ([]models.Artwork, SyncStats, error)
}

// ArtworkSyncService imports the images of a Drive folder into a designer's library
type ArtworkSyncService struct {
	driveService DriveServiceInterface
	repository   repository.DesignRepositoryInterface
}

// NewArtworkSyncService creates a new ArtworkSyncService
func NewArtworkSyncService(driveService DriveServiceInterface, repo repository.DesignRepositoryInterface) *ArtworkSyncService {
	return &ArtworkSyncService{
		driveService: driveService,
		repository:   repo,
	}
}

var _ ArtworkSyncServiceInterface = (*ArtworkSyncService)(nil)

// SyncDesignerFolder inserts every new image of folderID as an artwork of designerID.
// It returns the artworks created by this run.
func (s *ArtworkSyncService) SyncDesignerFolder(ctx context.Context, designerID, folderID string) ([]models.Artwork, SyncStats, error) {
	log := logrus.WithFields(logrus.Fields{"designer_id": designerID, "folder_id": folderID})
	log.Info("🔄 Starting artwork synchronization")

	var stats SyncStats
	images, err := s.driveService.ListFolderImages(ctx, folderID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list images from Drive: %w", err)
	}
	stats.Total = len(images)

	created := []models.Artwork{}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return created, stats, err
		}
		fileLog := log.WithField("drive_file_id", img.FileID)

		exists, err := s.repository.ExistsByImageURL(ctx, img.ImageURL)
		if err != nil {
			fileLog.WithError(err).Error("❌ Error checking existence")
			stats.Failed++
			continue
		}
		if exists {
			fileLog.Debug("⏭️ Skipping, already in the library")
			stats.Skipped++
			continue
		}

		parsed, err := utils.ParseArtworkFileName(img.Name)
		if err != nil {
			fileLog.WithError(err).Warn("⚠️ Skipping file with unusable name")
			stats.Skipped++
			continue
		}

		artwork := models.Artwork{
			ID:           ulid.Make().String(),
			DesignerID:   designerID,
			Title:        parsed.Title,
			DesignImages: []models.DesignImage{{URL: img.ImageURL}},
		}
		if err := s.repository.Insert(ctx, &artwork, img.FileID); err != nil {
			fileLog.WithError(err).Error("❌ Error inserting artwork")
			stats.Failed++
			continue
		}

		fileLog.WithField("design_id", artwork.ID).Info("✅ Artwork imported")
		created = append(created, artwork)
		stats.Inserted++
	}

	log.Infof("🎉 Synchronization completed: %d inserted, %d skipped, %d failed, %d total",
		stats.Inserted, stats.Skipped, stats.Failed, stats.Total)
	return created, stats, nil
}
