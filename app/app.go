package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"merch-studio/app/controller"
	"merch-studio/app/router"
	"merch-studio/config"
	"merch-studio/db"
	"merch-studio/export"
	"merch-studio/repository"
	"merch-studio/service"
	"merch-studio/stores"
)

const (
	sessionJanitorInterval = time.Minute
	sessionMaxIdle         = 2 * time.Hour
)

// App is the wired server
type App struct {
	Handler  http.Handler
	Sessions *service.EditorSessionService

	closers []func() error
	cancel  context.CancelFunc
}

// Repositories lets callers replace the storage of the catalog. Nil fields are filled from
// the configuration.
type Repositories struct {
	Products      repository.ProductRepositoryInterface
	Designs       repository.DesignRepositoryInterface
	FinalProducts repository.FinalProductRepositoryInterface
	Images        stores.ImageStore
	Drive         service.DriveServiceInterface
}

// Initialize wires repositories, services and controllers from cfg
func Initialize(ctx context.Context, cfg *config.Config, repos Repositories) (*App, error) {
	a := &App{}

	if repos.Products == nil || repos.Designs == nil || repos.FinalProducts == nil {
		if cfg.DatabaseURL != "" {
			if err := db.InitDB(ctx, cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("failed to initialize database: %w", err)
			}
			a.closers = append(a.closers, db.CloseDB)
			if err := db.Migrate(ctx); err != nil {
				a.Close()
				return nil, err
			}
			fillRepositories(&repos, repository.NewProductRepository(), repository.NewDesignRepository(), repository.NewFinalProductRepository())
		} else {
			logrus.Warn("⚠️ No database configured, using the in-memory sample catalog")
			mem := repository.NewMemoryRepository(repository.SampleProducts(), nil)
			fillRepositories(&repos, mem, mem, mem)
		}
	}

	if repos.Images == nil {
		images, err := stores.GetStore(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open image storage: %w", err)
		}
		repos.Images = images
		if c, ok := images.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	if repos.Drive == nil && cfg.GoogleCredentialsPath != "" {
		drive, err := service.NewDriveService(ctx, cfg.GoogleCredentialsPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		repos.Drive = drive
	}
	var syncService service.ArtworkSyncServiceInterface
	if repos.Drive != nil {
		syncService = service.NewArtworkSyncService(repos.Drive, repos.Designs)
	} else {
		logrus.Warn("⚠️ GOOGLE_APPLICATION_CREDENTIALS is not set, Drive import is disabled")
	}

	cache := service.NewImageCache(cfg.ImageCacheDir)
	if err := cache.EnsureDir(); err != nil {
		a.Close()
		return nil, err
	}
	loader := service.NewImageLoader(repos.Drive, cache)

	exporter := export.New(loader, export.Options{
		EditorSize:     cfg.EditorSize,
		ExportSize:     cfg.ExportSize,
		DesignBaseSize: cfg.DesignBaseSize,
	})
	sessions := service.NewEditorSessionService(repos.Products, repos.Designs, loader, service.EditorSessionOptions{
		EditorSize:     cfg.EditorSize,
		DesignBaseSize: cfg.DesignBaseSize,
		Exporter:       exporter,
	})
	finalService := service.NewFinalProductService(exporter, repos.Images, repos.FinalProducts, "/images")
	sheets := service.NewProductSheetService(repos.Images, cfg.ChromePath)

	controllers := &router.Controllers{
		Catalog:      controller.NewCatalogController(repos.Products, repos.Designs, syncService, cfg.DriveFolderID),
		Editor:       controller.NewEditorController(sessions),
		Canvas:       controller.NewCanvasController(sessions),
		FinalProduct: controller.NewFinalProductController(sessions, finalService, repos.FinalProducts, sheets),
		Image:        controller.NewImageController(repos.Images),
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	go sessions.RunJanitor(janitorCtx, sessionJanitorInterval, sessionMaxIdle)

	a.Handler = router.SetupRoutes(controllers, cfg.AllowedOrigins)
	a.Sessions = sessions
	a.cancel = cancel
	return a, nil
}

func fillRepositories(repos *Repositories, products repository.ProductRepositoryInterface, designs repository.DesignRepositoryInterface, finals repository.FinalProductRepositoryInterface) {
	if repos.Products == nil {
		repos.Products = products
	}
	if repos.Designs == nil {
		repos.Designs = designs
	}
	if repos.FinalProducts == nil {
		repos.FinalProducts = finals
	}
}

// Close stops the session janitor, closes every session and releases storage
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Sessions != nil {
		a.Sessions.CloseAll()
	}
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
