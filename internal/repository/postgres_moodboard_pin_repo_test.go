package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/moodboard/internal/model"
)

func TestNewPostgresMoodboardPinRepo_Initializes(t *testing.T) {
	if repo := NewPostgresMoodboardPinRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func createTestMoodboard(t *testing.T, repo *PostgresMoodboardRepo, name string) *model.Moodboard {
	t.Helper()
	mb := &model.Moodboard{Name: name, UserEmail: "a@example.com"}
	if err := repo.Create(context.Background(), mb); err != nil {
		t.Fatalf("Create moodboard failed: %v", err)
	}
	return mb
}

func TestPostgresMoodboardPinRepo_CreateListDelete(t *testing.T) {
	db := setupRepoDB(t)
	mbRepo := NewPostgresMoodboardRepo(db)
	repo := NewPostgresMoodboardPinRepo(db)
	ctx := context.Background()

	mb := createTestMoodboard(t, mbRepo, "board")

	pin := &model.MoodboardPin{
		MoodboardID: mb.ID,
		PinID:       "pin-123",
		PinData:     json.RawMessage(`{"id":"pin-123","title":"chair"}`),
		PositionX:   floatPtr(10.5),
	}
	if err := repo.Create(ctx, pin); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if pin.ID == "" {
		t.Fatal("ID should be populated")
	}

	pins, err := repo.ListByMoodboard(ctx, mb.ID)
	if err != nil {
		t.Fatalf("ListByMoodboard failed: %v", err)
	}
	if len(pins) != 1 {
		t.Fatalf("len = %d, want 1", len(pins))
	}
	got := pins[0]
	if got.PinID != "pin-123" {
		t.Errorf("PinID = %q", got.PinID)
	}
	if got.PositionX == nil || *got.PositionX != 10.5 {
		t.Errorf("PositionX = %v, want 10.5", got.PositionX)
	}
	if got.PositionY != nil {
		t.Errorf("PositionY = %v, want nil", *got.PositionY)
	}
	var data map[string]string
	if err := json.Unmarshal(got.PinData, &data); err != nil || data["title"] != "chair" {
		t.Errorf("PinData = %s (%v)", got.PinData, err)
	}

	if err := repo.Delete(ctx, mb.ID, pin.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, mb.ID, pin.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("2回目のDeleteはErrNotFoundであるべき: %v", err)
	}
}

func TestPostgresMoodboardPinRepo_UpdatePosition(t *testing.T) {
	db := setupRepoDB(t)
	mbRepo := NewPostgresMoodboardRepo(db)
	repo := NewPostgresMoodboardPinRepo(db)
	ctx := context.Background()

	mb := createTestMoodboard(t, mbRepo, "board")
	other := createTestMoodboard(t, mbRepo, "other")

	pin := &model.MoodboardPin{MoodboardID: mb.ID, PinID: "p", PinData: json.RawMessage(`{}`)}
	if err := repo.Create(ctx, pin); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := repo.UpdatePosition(ctx, mb.ID, pin.ID, 1.5, -2)
	if err != nil {
		t.Fatalf("UpdatePosition failed: %v", err)
	}
	if *updated.PositionX != 1.5 || *updated.PositionY != -2 {
		t.Errorf("position = (%v, %v)", *updated.PositionX, *updated.PositionY)
	}

	if _, err := repo.UpdatePosition(ctx, other.ID, pin.ID, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("別ムードボード経由の更新はErrNotFoundであるべき: %v", err)
	}
	if _, err := repo.UpdatePosition(ctx, mb.ID, uuid.New().String(), 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("存在しないピンの更新はErrNotFoundであるべき: %v", err)
	}
}
