package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"merch-studio/export"
	"merch-studio/models"
	"merch-studio/repository"
	"merch-studio/stores"
	"merch-studio/utils"
)

var (
	// ErrInvalidFinalProduct is returned for incomplete publish requests
	ErrInvalidFinalProduct = errors.New("invalid final product")
	// ErrEmptyLayout is returned when no view of the session could be rendered
	ErrEmptyLayout = errors.New("layout has nothing to export")
)

// FinalProductServiceInterface defines the contract for publishing an editor layout
type FinalProductServiceInterface interface {
	Create(ctx context.Context, session *Session, req models.CreateFinalProductRequest) (*models.FinalProduct, error)
}

// FinalProductService flattens every non-empty view of a session, stores the renditions and
// persists the final product form
type FinalProductService struct {
	exporter   *export.Exporter
	images     stores.ImageStore
	repository repository.FinalProductRepositoryInterface
	// imageURLPrefix turns a storage key into a public URL
	imageURLPrefix string
}

var _ FinalProductServiceInterface = (*FinalProductService)(nil)

// NewFinalProductService creates a new FinalProductService
func NewFinalProductService(
	exporter *export.Exporter,
	images stores.ImageStore,
	repo repository.FinalProductRepositoryInterface,
	imageURLPrefix string,
) *FinalProductService {
	return &FinalProductService{
		exporter:       exporter,
		images:         images,
		repository:     repo,
		imageURLPrefix: strings.TrimSuffix(imageURLPrefix, "/"),
	}
}

// Create publishes the session's current layout
func (s *FinalProductService) Create(ctx context.Context, session *Session, req models.CreateFinalProductRequest) (*models.FinalProduct, error) {
	if strings.TrimSpace(req.ProductName) == "" {
		return nil, fmt.Errorf("%w: productName is required", ErrInvalidFinalProduct)
	}
	if req.DesignPrice < 0 {
		return nil, fmt.Errorf("%w: designPrice must not be negative", ErrInvalidFinalProduct)
	}
	product, ok := session.Store.ActiveProduct()
	if !ok {
		return nil, fmt.Errorf("%w: no active product", ErrInvalidFinalProduct)
	}
	st := session.Store.State()

	variants, err := variantsFor(product, st.GarmentColor, req.Colors)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{"session_id": session.ID, "product_id": product.ID, "color": st.GarmentColor})
	batch := ulid.Make().String()
	mapper := s.exporter.Mapper()

	form := models.FinalProductForm{
		ProductID:    product.ID,
		ProductName:  strings.TrimSpace(req.ProductName),
		GarmentColor: st.GarmentColor,
		Gender:       req.Gender,
		DesignPrice:  req.DesignPrice,
		Tags:         req.Tags,
		Designs:      []models.FinalProductDesign{},
		Variants:     variants,
	}

	for _, view := range models.AllViews() {
		designs := st.DesignsByView[view]
		if len(designs) == 0 {
			continue
		}
		img, err := s.exporter.Export(ctx, export.Request{
			Product:      product,
			View:         view,
			GarmentColor: st.GarmentColor,
			Designs:      designs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to export %s view: %w", view, err)
		}
		if img == nil {
			log.WithField("view", view).Warn("⚠️ No preview for view, skipping")
			continue
		}

		processed, err := s.storeRenditions(ctx, batch, product.ID, st.GarmentColor, view, img)
		if err != nil {
			return nil, err
		}
		form.ProcessedImages = append(form.ProcessedImages, processed...)

		for _, d := range designs {
			form.Designs = append(form.Designs, models.FinalProductDesign{
				DesignID:    d.SourceDesignID,
				View:        view,
				Position:    d.Transform.Position,
				Scale:       d.Transform.Scale,
				Rotation:    d.Transform.Rotation,
				Coordinates: mapper.Point(d.Transform.Position),
				ZIndex:      d.ZIndex,
				BlendMode:   d.BlendMode,
				Opacity:     d.Opacity,
			})
		}
	}

	if len(form.ProcessedImages) == 0 {
		return nil, ErrEmptyLayout
	}
	for i := range form.Variants {
		if strings.EqualFold(form.Variants[i].Color, st.GarmentColor) {
			form.Variants[i].ImageURL = form.ProcessedImages[0].URL
		}
	}

	fp, err := s.repository.Create(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("failed to save final product: %w", err)
	}
	log.WithField("final_product_id", fp.ID).Infof("📦 Final product published with %d images", len(form.ProcessedImages))
	return fp, nil
}

// storeRenditions saves the full PNG plus medium and thumb JPEGs of one exported view
func (s *FinalProductService) storeRenditions(ctx context.Context, batch, productID, color string, view models.View, img *image.RGBA) ([]models.ProcessedImage, error) {
	full, err := export.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("final-products/%s/%s_%s_%s", batch, productID, utils.MapColorToCode(color), view)

	renditions := []struct {
		size        string
		ext         string
		contentType string
		data        func() ([]byte, error)
	}{
		{SizeFull, "png", "image/png", func() ([]byte, error) { return full, nil }},
		{SizeMedium, "jpg", "image/jpeg", func() ([]byte, error) { return OptimizeRendered(img, SizeMedium) }},
		{SizeThumb, "jpg", "image/jpeg", func() ([]byte, error) { return OptimizeRendered(img, SizeThumb) }},
	}

	out := make([]models.ProcessedImage, 0, len(renditions))
	for _, r := range renditions {
		data, err := r.data()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s rendition of %s: %w", r.size, view, err)
		}
		key := fmt.Sprintf("%s_%s.%s", prefix, r.size, r.ext)
		if err := s.images.Put(ctx, key, data, r.contentType); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", key, err)
		}
		out = append(out, models.ProcessedImage{
			View:     view,
			Size:     r.size,
			URL:      s.imageURLPrefix + "/" + key,
			StoreKey: key,
		})
	}
	return out, nil
}

func variantsFor(product models.ClothingProduct, current string, requested []string) ([]models.FinalProductVariant, error) {
	if len(requested) == 0 {
		requested = []string{current}
	}
	seen := make(map[string]bool, len(requested))
	variants := make([]models.FinalProductVariant, 0, len(requested))
	for _, c := range requested {
		key := strings.ToLower(strings.TrimSpace(c))
		if seen[key] {
			continue
		}
		if !product.HasColor(c) {
			return nil, fmt.Errorf("%w: color %q is not offered for %s", ErrInvalidFinalProduct, c, product.ID)
		}
		seen[key] = true
		variants = append(variants, models.FinalProductVariant{Color: c})
	}
	return variants, nil
}
