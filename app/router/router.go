package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"merch-studio/app/controller"
)

// Controllers groups every HTTP controller of the server
type Controllers struct {
	Catalog      *controller.CatalogController
	Editor       *controller.EditorController
	Canvas       *controller.CanvasController
	FinalProduct *controller.FinalProductController
	Image        *controller.ImageController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// SetupRoutes builds the HTTP router
func SetupRoutes(c *Controllers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", pingHandler)
	r.Get("/images/*", c.Image.Get)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", c.Catalog.ListProducts)
		r.Get("/designs/{designId}", c.Catalog.GetDesign)
		r.Route("/designers/{designerId}/designs", func(r chi.Router) {
			r.Get("/", c.Catalog.ListDesignerDesigns)
			r.Post("/sync", c.Catalog.SyncDesignerDesigns)
		})

		r.Post("/sessions", c.Editor.CreateSession)
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", c.Editor.GetSession)
			r.Delete("/", c.Editor.CloseSession)
			r.Get("/history/{productId}", c.Editor.History)

			r.Put("/product", c.Editor.SetProduct)
			r.Put("/view", c.Editor.SetView)
			r.Put("/color", c.Editor.SetColor)
			r.Put("/active-design", c.Editor.SetActiveDesign)

			r.Post("/designs", c.Editor.AddDesign)
			r.Route("/designs/{designId}", func(r chi.Router) {
				r.Delete("/", c.Editor.RemoveDesign)
				r.Patch("/", c.Editor.UpdateDesign)
				r.Patch("/transform", c.Editor.UpdateTransform)
				r.Post("/duplicate", c.Editor.DuplicateDesign)
				r.Post("/visibility", c.Editor.ToggleVisibility)
				r.Post("/lock", c.Editor.ToggleLock)
			})
			r.Put("/views/{view}/order", c.Editor.ReorderView)
			r.Delete("/views/{view}/designs", c.Editor.ClearView)

			r.Get("/canvas", c.Canvas.Snapshot)
			r.Post("/canvas/select", c.Canvas.Select)
			r.Post("/canvas/gesture", c.Canvas.Gesture)
			r.Post("/canvas/pointer", c.Canvas.Pointer)
			r.Get("/canvas/render", c.Canvas.Render)
			r.Get("/export", c.Canvas.Export)

			r.Post("/final-product", c.FinalProduct.Create)
		})

		r.Route("/final-products/{finalProductId}", func(r chi.Router) {
			r.Get("/", c.FinalProduct.Get)
			r.Get("/sheet", c.FinalProduct.Sheet)
		})
	})

	return r
}
