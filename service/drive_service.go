package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveImage is an image file found in a Drive folder
type DriveImage struct {
	FileID   string
	Name     string
	MimeType string
	ImageURL string
}

// DriveServiceInterface defines the contract for Google Drive operations
type DriveServiceInterface interface {
	ListFolderImages(ctx context.Context, folderID string) ([]DriveImage, error)
	DownloadImage(ctx context.Context, fileID string) ([]byte, error)
}

// DriveService handles Google Drive API operations
type DriveService struct {
	client *drive.Service
}

var _ DriveServiceInterface = (*DriveService)(nil)

var driveImageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
	"image/gif":  true,
}

// NewDriveService creates a new DriveService instance
// credentialsPath should be the path to the Service Account JSON file
func NewDriveService(ctx context.Context, credentialsPath string) (*DriveService, error) {
	client, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveService{client: client}, nil
}

// DriveImageURL is the public URL of a Drive file
func DriveImageURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?id=%s", fileID)
}

// ListFolderImages lists all image files in a Google Drive folder
func (ds *DriveService) ListFolderImages(ctx context.Context, folderID string) ([]DriveImage, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	var images []DriveImage
	pageToken := ""
	for {
		call := ds.client.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		r, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, file := range r.Files {
			if !driveImageMimeTypes[strings.ToLower(file.MimeType)] {
				continue
			}
			images = append(images, DriveImage{
				FileID:   file.Id,
				Name:     file.Name,
				MimeType: file.MimeType,
				ImageURL: DriveImageURL(file.Id),
			})
		}

		pageToken = r.NextPageToken
		if pageToken == "" {
			break
		}
	}

	logrus.WithField("folder_id", folderID).Infof("📂 Found %d images in Drive folder", len(images))
	return images, nil
}

// DownloadImage downloads the raw bytes of a Drive file
func (ds *DriveService) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := ds.client.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}
