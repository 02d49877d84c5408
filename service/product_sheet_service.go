package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"merch-studio/models"
	"merch-studio/stores"
	"merch-studio/utils"
)

const sheetTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<style>
  @page { size: 210mm 297mm; margin: 0; }
  body { margin: 0; font-family: Helvetica, Arial, sans-serif; color: #222; }
  .sheet { width: 210mm; min-height: 297mm; padding: 14mm; box-sizing: border-box; }
  h1 { margin: 0 0 4mm; font-size: 22pt; }
  .meta { color: #666; margin-bottom: 8mm; }
  .price { font-size: 16pt; font-weight: bold; }
  .views { display: flex; flex-wrap: wrap; gap: 6mm; }
  .view { width: 86mm; text-align: center; }
  .view img { width: 86mm; height: 86mm; object-fit: contain; background: #f4f4f4; }
  .tags span { display: inline-block; padding: 1mm 3mm; margin: 0 2mm 2mm 0; background: #eee; border-radius: 3mm; }
</style>
</head>
<body>
<div class="sheet">
  <h1>{{.Name}}</h1>
  <div class="meta">{{.Product}} · {{.Color}}{{if .Gender}} · {{.Gender}}{{end}}</div>
  <p class="price">{{.Price}}</p>
  <div class="views">
  {{range .Views}}
    <div class="view"><img src="{{.Src}}" alt="{{.View}}"><div>{{.View}}</div></div>
  {{end}}
  </div>
  {{if .Tags}}<div class="tags">{{range .Tags}}<span>{{.}}</span>{{end}}</div>{{end}}
  {{if .Variants}}<p>Available colors: {{range $i, $v := .Variants}}{{if $i}}, {{end}}{{$v}}{{end}}</p>{{end}}
</div>
</body>
</html>`

var sheetTmpl = template.Must(template.New("sheet").Parse(sheetTemplate))

// sheet viewport in CSS pixels, 210mm x 297mm at 96dpi
const (
	sheetWidthPx  = 794
	sheetHeightPx = 1123
)

// ProductSheetService renders a printable sheet for a final product and captures it with
// headless Chrome
type ProductSheetService struct {
	images     stores.ImageStore
	chromePath string
}

// NewProductSheetService creates a new ProductSheetService. chromePath may be empty.
func NewProductSheetService(images stores.ImageStore, chromePath string) *ProductSheetService {
	return &ProductSheetService{images: images, chromePath: chromePath}
}

// detectChromePath detects the path to Chrome/Chromium executable.
// The configured path wins, then common installation paths are checked.
func detectChromePath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

type sheetView struct {
	View models.View
	Src  template.URL
}

// RenderSheetHTML renders the sheet with the medium renditions embedded as data URIs
func (s *ProductSheetService) RenderSheetHTML(ctx context.Context, fp *models.FinalProduct) (string, error) {
	data := struct {
		Name, Product, Color, Gender, Price string
		Views                               []sheetView
		Tags                                []string
		Variants                            []string
	}{
		Name:    fp.ProductName,
		Product: fp.ProductID,
		Color:   fp.GarmentColor,
		Gender:  fp.Gender,
		Price:   utils.FormatCOP(fp.DesignPrice),
		Tags:    fp.Tags,
	}
	for _, v := range fp.Variants {
		data.Variants = append(data.Variants, v.Color)
	}

	for _, img := range fp.ProcessedImages {
		if img.Size != SizeMedium {
			continue
		}
		raw, contentType, err := s.images.Get(ctx, img.StoreKey)
		if err != nil {
			logrus.WithError(err).WithField("key", img.StoreKey).Warn("⚠️ Failed to load image for sheet")
			continue
		}
		src := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw))
		data.Views = append(data.Views, sheetView{View: img.View, Src: template.URL(src)})
	}

	var buf bytes.Buffer
	if err := sheetTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// GeneratePDF prints the sheet to an A4 PDF
func (s *ProductSheetService) GeneratePDF(ctx context.Context, fp *models.FinalProduct) ([]byte, error) {
	var pdf []byte
	err := s.capture(ctx, fp, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.27).   // 210mm in inches
			WithPaperHeight(11.69). // 297mm in inches
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdf, nil
}

// GeneratePNG screenshots the sheet
func (s *ProductSheetService) GeneratePNG(ctx context.Context, fp *models.FinalProduct) ([]byte, error) {
	var buf []byte
	if err := s.capture(ctx, fp, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return buf, nil
}

// capture loads the rendered sheet into a headless browser tab and runs action on it
func (s *ProductSheetService) capture(ctx context.Context, fp *models.FinalProduct, action chromedp.Action) error {
	html, err := s.RenderSheetHTML(ctx, fp)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
	if chromePath := detectChromePath(s.chromePath); chromePath != "" {
		logrus.Debugf("🌐 Using Chrome at %s", chromePath)
		opts = append(opts, chromedp.ExecPath(chromePath))
	} else {
		logrus.Warn("⚠️ Chrome not found in common paths, letting chromedp auto-detect")
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	return chromedp.Run(browserCtx,
		chromedp.EmulateViewport(sheetWidthPx, sheetHeightPx),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		action,
	)
}
