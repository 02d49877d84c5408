package repository

import "merch-studio/models"

// SampleProducts is the development catalog used when no database is configured.
// Mockups are read from the local static directory.
func SampleProducts() []models.ClothingProduct {
	mockups := func(slug string, colors ...string) map[string]map[models.View]string {
		images := make(map[string]map[models.View]string, len(colors))
		for _, c := range colors {
			images[c] = map[models.View]string{
				models.ViewFront:    "static/mockups/" + slug + "-" + c + "-front.png",
				models.ViewBack:     "static/mockups/" + slug + "-" + c + "-back.png",
				models.ViewShoulder: "static/mockups/" + slug + "-" + c + "-shoulder.png",
			}
		}
		return images
	}
	return []models.ClothingProduct{
		{
			ID:       "classic-tee",
			Name:     "Classic Tee",
			Category: "t-shirts",
			Colors:   []string{"white", "black", "red"},
			Images:   mockups("classic-tee", "white", "black", "red"),
		},
		{
			ID:       "hoodie",
			Name:     "Hoodie",
			Category: "hoodies",
			Colors:   []string{"black", "gray"},
			Images:   mockups("hoodie", "black", "gray"),
		},
	}
}
