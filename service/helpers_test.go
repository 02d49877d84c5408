package service

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"merch-studio/models"
)

type fakeDrive struct {
	mu        sync.Mutex
	images    []DriveImage
	files     map[string][]byte
	listErr   error
	downloads int
}

func (f *fakeDrive) ListFolderImages(ctx context.Context, folderID string) ([]DriveImage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.images, nil
}

func (f *fakeDrive) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	data, ok := f.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

type fakeImages map[string]image.Image

func (f fakeImages) Load(ctx context.Context, url string) (image.Image, error) {
	img, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("image not found: %s", url)
	}
	return img, nil
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func testImages() fakeImages {
	return fakeImages{
		"mock://tee-white-front": fill(60, 60, color.NRGBA{R: 250, G: 250, B: 250, A: 255}),
		"mock://tee-white-back":  fill(60, 60, color.NRGBA{R: 240, G: 240, B: 240, A: 255}),
		"mock://tee-black-front": fill(60, 60, color.NRGBA{A: 255}),
		"art://red":              fill(10, 10, color.NRGBA{R: 255, A: 255}),
	}
}

func testProducts() []models.ClothingProduct {
	return []models.ClothingProduct{{
		ID:     "tee",
		Name:   "Tee",
		Colors: []string{"white", "black"},
		Images: map[string]map[models.View]string{
			"white": {models.ViewFront: "mock://tee-white-front", models.ViewBack: "mock://tee-white-back"},
			"black": {models.ViewFront: "mock://tee-black-front"},
		},
	}}
}

func testArtworks() []models.Artwork {
	return []models.Artwork{{
		ID:           "art-1",
		DesignerID:   "ana",
		Title:        "Red",
		DesignImages: []models.DesignImage{{URL: "art://red"}},
	}}
}
