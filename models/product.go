package models

import (
	"encoding/json"
	"strings"
)

// ClothingProduct is a garment that designs can be placed on.
// Images maps garment color to view to mockup image URL.
type ClothingProduct struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"name"`
	Category string                     `json:"category"`
	Colors   []string                   `json:"colors"`
	Images   map[string]map[View]string `json:"images"`
}

// HasColor reports whether the product is offered in color (case-insensitive)
func (p ClothingProduct) HasColor(color string) bool {
	for _, c := range p.Colors {
		if strings.EqualFold(c, color) {
			return true
		}
	}
	return false
}

// FirstColor returns the product's default color, or "" when it lists none
func (p ClothingProduct) FirstColor() string {
	if len(p.Colors) == 0 {
		return ""
	}
	return p.Colors[0]
}

// MockupURL returns the garment image for a color/view combination
func (p ClothingProduct) MockupURL(color string, view View) (string, bool) {
	for c, views := range p.Images {
		if !strings.EqualFold(c, color) {
			continue
		}
		url, ok := views[view]
		if ok && url != "" {
			return url, true
		}
	}
	return "", false
}

// DesignImage is one raster rendition of an artwork
type DesignImage struct {
	URL string `json:"url"`
}

// Artwork is an uploaded design in a designer's library
type Artwork struct {
	ID           string        `json:"id"`
	DesignerID   string        `json:"designerId,omitempty"`
	Title        string        `json:"title"`
	DesignImages []DesignImage `json:"designImages"`
}

// UnmarshalJSON accepts both "id" and the API's "_id" and keeps a single ID
func (a *Artwork) UnmarshalJSON(data []byte) error {
	type alias Artwork
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = aux.MongoID
	}
	return nil
}

// PrimaryImageURL is the raster used when the artwork is placed on a canvas
func (a Artwork) PrimaryImageURL() string {
	if len(a.DesignImages) == 0 {
		return ""
	}
	return a.DesignImages[0].URL
}

// Placement builds an unplaced Design from the artwork; the store fills in identity and layout
func (a Artwork) Placement() Design {
	return Design{
		SourceDesignID: a.ID,
		ImageURL:       a.PrimaryImageURL(),
		Name:           a.Title,
	}
}
