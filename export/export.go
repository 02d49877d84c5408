// Package export flattens a view's mockup and placed designs into a single raster.
// It never touches a live canvas: every export draws on its own raster from a by-value snapshot.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"merch-studio/compositor"
	"merch-studio/models"
)

// Default canvas sizes
var (
	DefaultEditorSize = compositor.Size{W: 600, H: 600}
	DefaultExportSize = compositor.Size{W: 1200, H: 1200}
)

// DefaultDesignBaseSize is the longer side of a design at scale 1 on the editor canvas
const DefaultDesignBaseSize = 150.0

const maxConcurrentLoads = 4

// ImageLoader fetches and decodes images by URL
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Options configures an Exporter
type Options struct {
	// EditorSize is the canvas size design transforms are expressed in
	EditorSize compositor.Size
	// ExportSize is the size of the flattened output
	ExportSize     compositor.Size
	DesignBaseSize float64
	Logger         *logrus.Entry
}

// Request is everything needed to flatten one view
type Request struct {
	Product      models.ClothingProduct
	View         models.View
	GarmentColor string
	Designs      []models.Design
}

// Exporter renders views off-screen
type Exporter struct {
	loader ImageLoader
	opts   Options
	mapper compositor.Mapper
	log    *logrus.Entry
}

// New creates an Exporter. Zero option values fall back to the defaults.
func New(loader ImageLoader, opts Options) *Exporter {
	if !opts.EditorSize.Valid() {
		opts.EditorSize = DefaultEditorSize
	}
	if !opts.ExportSize.Valid() {
		opts.ExportSize = DefaultExportSize
	}
	if opts.DesignBaseSize <= 0 {
		opts.DesignBaseSize = DefaultDesignBaseSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Exporter{
		loader: loader,
		opts:   opts,
		mapper: compositor.NewMapper(opts.EditorSize, opts.ExportSize),
		log:    opts.Logger.WithField("component", "export"),
	}
}

// Size returns the output size
func (e *Exporter) Size() compositor.Size {
	return e.opts.ExportSize
}

// Mapper returns the editor-to-export coordinate mapping
func (e *Exporter) Mapper() compositor.Mapper {
	return e.mapper
}

// Export flattens the requested view. It returns a nil image and a nil error when there is no
// mockup for the color/view or the mockup cannot be loaded. Designs that fail to load are
// skipped. Only context cancellation is reported as an error.
func (e *Exporter) Export(ctx context.Context, req Request) (*image.RGBA, error) {
	log := e.log.WithFields(logrus.Fields{"product_id": req.Product.ID, "view": req.View, "color": req.GarmentColor})

	mockupURL, ok := req.Product.MockupURL(req.GarmentColor, req.View)
	if !ok {
		log.Info("🖼️ No mockup for color/view, nothing to export")
		return nil, nil
	}

	designs := visibleByZ(req.Designs)
	images := make([]image.Image, len(designs))
	var mockup image.Image
	var mockupErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	g.Go(func() error {
		mockup, mockupErr = e.loader.Load(gctx, mockupURL)
		return nil
	})
	for i, d := range designs {
		i, d := i, d
		g.Go(func() error {
			img, err := e.loader.Load(gctx, d.ImageURL)
			if err != nil {
				log.WithField("design_id", d.ID).WithError(err).Warn("⚠️ Design image failed to load, skipping")
				return nil
			}
			images[i] = img
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mockupErr != nil {
		log.WithError(mockupErr).Warn("⚠️ Mockup failed to load, nothing to export")
		return nil, nil
	}

	bg, bgRect := e.mapper.FitMapped(mockup, e.opts.EditorSize)
	baseSize := e.mapper.Length(e.opts.DesignBaseSize)
	layers := make([]compositor.Layer, 0, len(designs))
	for i, d := range designs {
		if images[i] == nil {
			continue
		}
		_, filtered := compositor.PrepareDesign(images[i], baseSize, d.Curvature)
		layers = append(layers, compositor.Layer{
			ID:        d.ID,
			Image:     filtered,
			Transform: e.mapper.Transform(d.Transform),
			Opacity:   d.Opacity,
			BlendMode: d.BlendMode,
			ZIndex:    d.ZIndex,
			Visible:   true,
		})
	}

	var background image.Image
	if bg != nil {
		background = bg
	}
	out := compositor.Flatten(e.opts.ExportSize, background, bgRect, layers)
	log.WithField("designs", len(layers)).Debug("✅ View exported")
	return out, nil
}

// ExportPNG is Export encoded as PNG. A nil slice means no preview is available.
func (e *Exporter) ExportPNG(ctx context.Context, req Request) ([]byte, error) {
	img, err := e.Export(ctx, req)
	if err != nil || img == nil {
		return nil, err
	}
	return EncodePNG(img)
}

// ExportDataURL is Export as a PNG data URL. An empty string means no preview is available.
func (e *Exporter) ExportDataURL(ctx context.Context, req Request) (string, error) {
	b, err := e.ExportPNG(ctx, req)
	if err != nil || b == nil {
		return "", err
	}
	return DataURL(b), nil
}

// EncodePNG encodes img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps PNG bytes in a data URL
func DataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// visibleByZ copies the visible designs in ascending zIndex
func visibleByZ(in []models.Design) []models.Design {
	out := make([]models.Design, 0, len(in))
	for _, d := range in {
		if d.Visible && d.ImageURL != "" {
			out = append(out, d.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}
