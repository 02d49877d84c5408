package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	"merch-studio/compositor"
	"merch-studio/models"
)

type fakeLoader struct {
	mu     sync.Mutex
	images map[string]image.Image
	calls  []string
}

func (f *fakeLoader) Load(ctx context.Context, url string) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, ok := f.images[url]
	if !ok {
		return nil, fmt.Errorf("image not found: %s", url)
	}
	return img, nil
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func tee() models.ClothingProduct {
	return models.ClothingProduct{
		ID:     "tee",
		Name:   "Classic tee",
		Colors: []string{"white", "black"},
		Images: map[string]map[models.View]string{
			"white": {models.ViewFront: "mock://white-front"},
			"black": {models.ViewFront: "mock://missing"},
		},
	}
}

func placed(id, url string, z int) models.Design {
	return models.Design{
		ID:        id,
		ImageURL:  url,
		Transform: models.Transform{Position: models.Position{X: 50, Y: 50}, Scale: 1},
		Visible:   true,
		Opacity:   1,
		BlendMode: models.BlendNormal,
		ZIndex:    z,
	}
}

func newTestExporter(loader ImageLoader) *Exporter {
	return New(loader, Options{
		EditorSize:     compositor.Size{W: 100, H: 100},
		ExportSize:     compositor.Size{W: 200, H: 200},
		DesignBaseSize: 20,
	})
}

func testLoader() *fakeLoader {
	return &fakeLoader{images: map[string]image.Image{
		"mock://white-front": fill(100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		"art://red":          fill(10, 10, color.NRGBA{R: 255, A: 255}),
		"art://blue":         fill(10, 10, color.NRGBA{B: 255, A: 255}),
	}}
}

func TestExportWithoutMockupReturnsNil(t *testing.T) {
	e := newTestExporter(testLoader())
	img, err := e.Export(context.Background(), Request{
		Product:      tee(),
		View:         models.ViewBack,
		GarmentColor: "white",
		Designs:      []models.Design{placed("d1", "art://red", 0)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img != nil {
		t.Fatal("expected no preview when the view has no mockup")
	}
}

func TestExportMockupLoadFailureReturnsNil(t *testing.T) {
	e := newTestExporter(testLoader())
	img, err := e.Export(context.Background(), Request{Product: tee(), View: models.ViewFront, GarmentColor: "black"})
	if err != nil || img != nil {
		t.Fatalf("Export = %v, %v; want nil, nil", img, err)
	}
}

func TestExportDrawsAscendingZIndexAndMapsTransforms(t *testing.T) {
	loader := testLoader()
	e := newTestExporter(loader)
	img, err := e.Export(context.Background(), Request{
		Product:      tee(),
		View:         models.ViewFront,
		GarmentColor: "WHITE",
		Designs: []models.Design{
			placed("top", "art://red", 1),
			placed("bottom", "art://blue", 0),
			placed("broken", "art://gone", 2),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img == nil {
		t.Fatal("expected an image")
	}
	if img.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	// editor center (50,50) maps to (100,100) and the 20px base size to 40px
	if got := img.RGBAAt(100, 100); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("center pixel = %+v, want red on top", got)
	}
	if got := img.RGBAAt(85, 85); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("pixel inside mapped design = %+v", got)
	}
	if got := img.RGBAAt(70, 70); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("pixel outside mapped design = %+v, want mockup white", got)
	}
}

func TestExportSkipsHiddenDesigns(t *testing.T) {
	loader := testLoader()
	e := newTestExporter(loader)
	hidden := placed("hidden", "art://red", 0)
	hidden.Visible = false

	img, err := e.Export(context.Background(), Request{
		Product: tee(), View: models.ViewFront, GarmentColor: "white",
		Designs: []models.Design{hidden},
	})
	if err != nil || img == nil {
		t.Fatalf("Export = %v, %v", img, err)
	}
	if got := img.RGBAAt(100, 100); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("hidden design was drawn: %+v", got)
	}
	for _, c := range loader.calls {
		if c == "art://red" {
			t.Fatal("hidden design image should not be loaded")
		}
	}
}

func TestExportSnapshotsDesigns(t *testing.T) {
	e := newTestExporter(testLoader())
	c := models.Curvature{Enabled: true, Intensity: 0.5, MeshDensity: 4}
	designs := []models.Design{placed("d1", "art://red", 0)}
	designs[0].Curvature = &c

	if _, err := e.Export(context.Background(), Request{Product: tee(), View: models.ViewFront, GarmentColor: "white", Designs: designs}); err != nil {
		t.Fatal(err)
	}
	if designs[0].Curvature != &c || c.Intensity != 0.5 {
		t.Fatal("export must not modify the caller's designs")
	}
}

func TestExportCanceledContext(t *testing.T) {
	e := newTestExporter(testLoader())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, err := e.Export(ctx, Request{Product: tee(), View: models.ViewFront, GarmentColor: "white"})
	if !errors.Is(err, context.Canceled) || img != nil {
		t.Fatalf("Export = %v, %v; want context.Canceled", img, err)
	}
}

func TestExportDataURL(t *testing.T) {
	e := newTestExporter(testLoader())
	url, err := e.ExportDataURL(context.Background(), Request{Product: tee(), View: models.ViewFront, GarmentColor: "white"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("data url = %.40s", url)
	}

	none, err := e.ExportDataURL(context.Background(), Request{Product: tee(), View: models.ViewShoulder, GarmentColor: "white"})
	if err != nil || none != "" {
		t.Fatalf("missing mockup data url = %q, %v", none, err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	e := New(testLoader(), Options{})
	if e.Size() != DefaultExportSize {
		t.Fatalf("size = %v", e.Size())
	}
	if e.Mapper().K != 2 {
		t.Fatalf("mapper = %+v", e.Mapper())
	}
}
