package service

import (
	"context"
	"errors"
	"testing"

	"merch-studio/models"
	"merch-studio/repository"
)

func TestArtworkSyncServiceImportsNewImages(t *testing.T) {
	repo := repository.NewMemoryRepository(nil, []models.Artwork{{
		ID:           "existing",
		DesignerID:   "ana",
		DesignImages: []models.DesignImage{{URL: DriveImageURL("f1")}},
	}})
	drive := &fakeDrive{images: []DriveImage{
		{FileID: "f1", Name: "old.png", ImageURL: DriveImageURL("f1")},
		{FileID: "f2", Name: "01-sunset_palm.png", ImageURL: DriveImageURL("f2")},
		{FileID: "f3", Name: "IT0002_happy-dog.jpg", ImageURL: DriveImageURL("f3")},
		{FileID: "f4", Name: "---.png", ImageURL: DriveImageURL("f4")},
	}}

	created, stats, err := NewArtworkSyncService(drive, repo).SyncDesignerFolder(context.Background(), "ana", "folder")
	if err != nil {
		t.Fatalf("SyncDesignerFolder() failed: %v", err)
	}
	want := SyncStats{Inserted: 2, Skipped: 2, Total: 4}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(created) != 2 || created[0].Title != "Sunset Palm" || created[0].DesignerID != "ana" {
		t.Errorf("created = %+v", created)
	}

	designs, _ := repo.GetDesignerDesigns(context.Background(), "ana")
	if len(designs) != 3 {
		t.Errorf("library size = %d, want 3", len(designs))
	}

	_, stats, err = NewArtworkSyncService(drive, repo).SyncDesignerFolder(context.Background(), "ana", "folder")
	if err != nil || stats.Inserted != 0 {
		t.Errorf("second sync inserted %d (err %v), want 0", stats.Inserted, err)
	}
}

func TestArtworkSyncServiceListFailure(t *testing.T) {
	drive := &fakeDrive{listErr: errors.New("quota exceeded")}
	_, _, err := NewArtworkSyncService(drive, repository.NewMemoryRepository(nil, nil)).
		SyncDesignerFolder(context.Background(), "ana", "folder")
	if err == nil {
		t.Fatal("expected an error")
	}
}
