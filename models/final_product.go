package models

// FinalProductDesign is one placed design as persisted with a final product
type FinalProductDesign struct {
	DesignID    string    `json:"designId"`
	View        View      `json:"view"`
	Position    Position  `json:"position"`
	Scale       float64   `json:"scale"`
	Rotation    float64   `json:"rotation"`
	Coordinates Position  `json:"coordinates"` // position in export canvas pixels
	ZIndex      int       `json:"zIndex"`
	BlendMode   BlendMode `json:"blendMode"`
	Opacity     float64   `json:"opacity"`
}

// FinalProductVariant is a sellable color of the final product
type FinalProductVariant struct {
	Color    string `json:"color"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ProcessedImage is a stored flattened rendering of one view
type ProcessedImage struct {
	View     View   `json:"view"`
	Size     string `json:"size"` // "full", "medium" or "thumb"
	URL      string `json:"url"`
	StoreKey string `json:"storeKey"`
}

// FinalProductForm is the payload handed to the product backend when a design is published
type FinalProductForm struct {
	ProductID       string                `json:"productId"`
	ProductName     string                `json:"productName"`
	GarmentColor    string                `json:"garmentColor"`
	Gender          string                `json:"gender"`
	DesignPrice     int64                 `json:"designPrice"`
	Tags            []string              `json:"tags"`
	Designs         []FinalProductDesign  `json:"designs"`
	Variants        []FinalProductVariant `json:"variants"`
	ProcessedImages []ProcessedImage      `json:"processedImages"`
}

// FinalProduct is the persisted record returned by the backend
type FinalProduct struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	FinalProductForm
}

// CreateFinalProductRequest is the request body for publishing a session's layout
// Example: {"productName": "Sunset hoodie", "gender": "unisex", "designPrice": 45000, "tags": ["sunset"]}
type CreateFinalProductRequest struct {
	ProductName string   `json:"productName"`
	Gender      string   `json:"gender"`
	DesignPrice int64    `json:"designPrice"`
	Tags        []string `json:"tags"`
	Colors      []string `json:"colors,omitempty"` // variants; defaults to the session color
}
