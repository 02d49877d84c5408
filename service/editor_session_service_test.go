package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"merch-studio/compositor"
	"merch-studio/export"
	"merch-studio/models"
	"merch-studio/repository"
)

func newSessionService(t *testing.T) (*EditorSessionService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository(testProducts(), testArtworks())
	images := testImages()
	exporter := export.New(images, export.Options{
		EditorSize:     compositor.Size{W: 100, H: 100},
		ExportSize:     compositor.Size{W: 200, H: 200},
		DesignBaseSize: 20,
	})
	svc := NewEditorSessionService(repo, repo, images, EditorSessionOptions{
		EditorSize:     compositor.Size{W: 100, H: 100},
		DesignBaseSize: 20,
		Exporter:       exporter,
	})
	t.Cleanup(svc.CloseAll)
	return svc, repo
}

func TestEditorSessionLifecycle(t *testing.T) {
	svc, _ := newSessionService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "", "black")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	st := session.Store.State()
	if st.ActiveProductID != "tee" || st.GarmentColor != "black" || st.ActiveView != models.ViewFront {
		t.Errorf("initial state = %+v", st)
	}
	if !session.Engine.Initialized() {
		t.Error("session canvas should be attached")
	}

	got, err := svc.Get(session.ID)
	if err != nil || got != session {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if err := svc.Close(session.ID); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if session.Engine.Initialized() {
		t.Error("closing must detach the canvas")
	}
	if _, err := svc.Get(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after close = %v, want ErrSessionNotFound", err)
	}
	if err := svc.Close(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close() = %v, want ErrSessionNotFound", err)
	}
}

func TestEditorSessionUnknownProduct(t *testing.T) {
	svc, _ := newSessionService(t)
	if _, err := svc.Create(context.Background(), "mug", ""); !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("Create(mug) error = %v, want ErrUnknownProduct", err)
	}
	if svc.Count() != 0 {
		t.Errorf("Count() = %d", svc.Count())
	}
}

func TestEditorSessionAddArtworkRendersOnCanvas(t *testing.T) {
	svc, _ := newSessionService(t)
	ctx := context.Background()
	session, err := svc.Create(ctx, "tee", "")
	if err != nil {
		t.Fatal(err)
	}

	d, err := svc.AddArtwork(ctx, session.ID, "art-1", "")
	if err != nil {
		t.Fatalf("AddArtwork() failed: %v", err)
	}
	if d.SourceDesignID != "art-1" || d.Transform.Position != (models.Position{X: 50, Y: 50}) {
		t.Errorf("placed design = %+v", d)
	}

	if err := session.Engine.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	snap, err := session.Engine.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Objects) != 1 || snap.Objects[0].ID != d.ID || !snap.HasBackground {
		t.Errorf("snapshot = %+v", snap)
	}

	if _, err := svc.AddArtwork(ctx, session.ID, "missing", ""); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing artwork error = %v", err)
	}
}

func TestEditorSessionExpireIdle(t *testing.T) {
	svc, _ := newSessionService(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, _ := svc.Create(context.Background(), "", "")
	now = now.Add(time.Hour)
	fresh, _ := svc.Create(context.Background(), "", "")

	if n := svc.ExpireIdle(30 * time.Minute); n != 1 {
		t.Fatalf("ExpireIdle() = %d, want 1", n)
	}
	if _, err := svc.Get(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session should be closed")
	}
	if _, err := svc.Get(fresh.ID); err != nil {
		t.Errorf("fresh session closed: %v", err)
	}
}
