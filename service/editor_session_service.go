package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"merch-studio/canvas"
	"merch-studio/compositor"
	"merch-studio/editor"
	"merch-studio/export"
	"merch-studio/models"
	"merch-studio/repository"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session ids
	ErrSessionNotFound = errors.New("editor session not found")
	// ErrUnknownProduct is returned when a session is opened on a product missing from the catalog
	ErrUnknownProduct = errors.New("unknown product")
)

// Session is one open editor: its own store, engine and raster canvas
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Store  *editor.Store  `json:"-"`
	Engine *canvas.Engine `json:"-"`

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// EditorSessionOptions configures the sessions created by the service
type EditorSessionOptions struct {
	EditorSize     compositor.Size
	DesignBaseSize float64
	Exporter       *export.Exporter
}

// EditorSessionService creates, looks up and closes editor sessions
type EditorSessionService struct {
	products repository.ProductRepositoryInterface
	designs  repository.DesignRepositoryInterface
	loader   canvas.ImageLoader
	opts     EditorSessionOptions
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewEditorSessionService creates a new EditorSessionService
func NewEditorSessionService(
	products repository.ProductRepositoryInterface,
	designs repository.DesignRepositoryInterface,
	loader canvas.ImageLoader,
	opts EditorSessionOptions,
) *EditorSessionService {
	if !opts.EditorSize.Valid() {
		opts.EditorSize = export.DefaultEditorSize
	}
	if opts.DesignBaseSize <= 0 {
		opts.DesignBaseSize = export.DefaultDesignBaseSize
	}
	return &EditorSessionService{
		products: products,
		designs:  designs,
		loader:   loader,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session on productID (the first catalog product when empty) in color
// (the product's first color when empty) and attaches a fresh canvas.
func (s *EditorSessionService) Create(ctx context.Context, productID, color string) (*Session, error) {
	products, err := s.products.GetClothingProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: the catalog is empty", ErrUnknownProduct)
	}
	if productID == "" {
		productID = products[0].ID
	}

	id := ulid.Make().String()
	log := logrus.WithField("session_id", id)

	store := editor.NewStore(editor.Options{
		DefaultPosition: models.Position{X: float64(s.opts.EditorSize.W) / 2, Y: float64(s.opts.EditorSize.H) / 2},
		Products:        products,
		Logger:          log,
		OnStaleReference: func(ref editor.StaleReference) {
			log.WithFields(logrus.Fields{"action": ref.Action, "design_id": ref.DesignID}).Info("👻 Ignored action on a removed design")
		},
	})
	if _, ok := store.Product(productID); !ok {
		store.Dispose()
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	store.SetActiveProduct(productID)
	if color != "" {
		store.SetGarmentColor(color)
	}

	engine := canvas.NewEngine(store, s.loader, canvas.Options{
		DesignBaseSize: s.opts.DesignBaseSize,
		Exporter:       s.opts.Exporter,
		Logger:         log,
	})
	engine.InitCanvas(canvas.NewRasterSurface(s.opts.EditorSize))

	now := s.now()
	session := &Session{ID: id, CreatedAt: now, Store: store, Engine: engine, lastUsed: now}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	log.WithField("product_id", productID).Info("🎨 Editor session opened")
	return session, nil
}

// Get returns an open session
func (s *EditorSessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.touch(s.now())
	return session, nil
}

// Close tears down the session canvas and store
func (s *EditorSessionService) Close(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	closeSession(session)
	return nil
}

// CloseAll closes every open session
func (s *EditorSessionService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, session := range sessions {
		closeSession(session)
	}
}

// Count returns the number of open sessions
func (s *EditorSessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle closes sessions unused for longer than maxIdle and returns how many were closed
func (s *EditorSessionService) ExpireIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if session.idleSince().Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		closeSession(session)
	}
	if len(expired) > 0 {
		logrus.Infof("🧹 Closed %d idle editor sessions", len(expired))
	}
	return len(expired)
}

// RunJanitor expires idle sessions every interval until ctx is done
func (s *EditorSessionService) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdle(maxIdle)
		}
	}
}

// AddArtwork places a library artwork on view (the active view when empty)
func (s *EditorSessionService) AddArtwork(ctx context.Context, sessionID, artworkID string, view models.View) (models.Design, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return models.Design{}, err
	}
	artwork, err := s.designs.GetDesignByID(ctx, artworkID)
	if err != nil {
		return models.Design{}, err
	}
	if artwork.PrimaryImageURL() == "" {
		return models.Design{}, fmt.Errorf("design %s has no image", artworkID)
	}
	if view == "" {
		view = session.Store.State().ActiveView
	}
	d, ok := session.Store.AddDesignToCanvas(artwork.Placement(), view)
	if !ok {
		return models.Design{}, fmt.Errorf("failed to add design %s to %s", artworkID, view)
	}
	return d, nil
}

func closeSession(session *Session) {
	session.Engine.CleanupCanvas()
	session.Store.Dispose()
	logrus.WithField("session_id", session.ID).Info("👋 Editor session closed")
}
