package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipebox/internal/config"
	"github.com/timmy/recipebox/internal/domain"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testRecipe(url, title string) *domain.Recipe {
	id := uuid.NewString()
	return &domain.Recipe{
		ID:           id,
		URL:          url,
		Title:        title,
		Ingredients:  domain.StringArray{"1 cup flour"},
		Instructions: domain.Instructions{domain.NewStep("Mix.", 1)},
		Categories:   domain.StringArray{"Dinner"},
		Dietary:      domain.StringArray{"Vegan"},
		Images: []domain.RecipeImage{
			{ID: uuid.NewString(), RecipeID: id, URL: "https://example.com/b.jpg", LocalPath: "/media/b.jpg", Position: 2},
			{ID: uuid.NewString(), RecipeID: id, URL: "https://example.com/a.jpg", LocalPath: "/media/a.jpg", Position: 1},
		},
	}
}

func TestRecipeRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipeRepository(openTestDB(t))

	rec := testRecipe("https://example.com/pasta", "Pasta")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByURL(ctx, "https://example.com/pasta")
	if err != nil {
		t.Fatalf("GetByURL() error = %v", err)
	}
	if got.ID != rec.ID || got.Title != "Pasta" {
		t.Errorf("GetByURL() = %+v", got)
	}
	if len(got.Images) != 2 || got.Images[0].Position != 1 {
		t.Errorf("images not ordered by position: %+v", got.Images)
	}
	if len(got.Instructions) != 1 || got.Instructions[0].Step.Text != "Mix." {
		t.Errorf("instructions round trip = %+v", got.Instructions)
	}

	dup := testRecipe("https://example.com/pasta", "Pasta again")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicate", err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecipeRepositoryListFilterAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRecipeRepository(db)
	tags := NewTagRepository(db)

	a := testRecipe("https://example.com/a", "Lentil Soup")
	b := testRecipe("https://example.com/b", "Steak")
	b.Dietary = domain.StringArray{}
	for _, r := range []*domain.Recipe{a, b} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, total, err := repo.List(ctx, RecipeFilter{Dietary: "Vegan", Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("List(dietary) = %d %v", total, list)
	}

	found, err := repo.Search(ctx, "LENTIL", 10)
	if err != nil || len(found) != 1 {
		t.Errorf("Search() = %v, %v", found, err)
	}

	ts, err := tags.FindOrCreate(ctx, []string{" Weeknight", "weeknight", "", "Soup"})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("FindOrCreate() = %v, want 2 tags", ts)
	}
	if err := repo.ReplaceTags(ctx, a.ID, ts); err != nil {
		t.Fatalf("ReplaceTags() error = %v", err)
	}
	counts, err := tags.ListWithCounts(ctx)
	if err != nil || len(counts) != 2 || counts[0].RecipeCount != 1 {
		t.Errorf("ListWithCounts() = %v, %v", counts, err)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	var images int64
	db.Model(&domain.RecipeImage{}).Where("recipe_id = ?", a.ID).Count(&images)
	if images != 0 {
		t.Errorf("images left after delete: %d", images)
	}
}

func TestImportJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewImportJobRepository(openTestDB(t))

	jobs, err := repo.CreateBatch(ctx, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	pending, err := repo.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != jobs[0].ID || pending[1].ID != jobs[1].ID {
		t.Errorf("ListPending() not oldest first: %+v", pending)
	}

	ok, err := repo.Claim(ctx, jobs[0].ID)
	if err != nil || !ok {
		t.Fatalf("Claim() = %v, %v", ok, err)
	}
	if ok, _ := repo.Claim(ctx, jobs[0].ID); ok {
		t.Error("second Claim() should lose")
	}

	if err := repo.MarkCompleted(ctx, jobs[1].ID, "r1"); err == nil {
		t.Error("MarkCompleted() on a pending job should fail")
	}
	if err := repo.MarkCompleted(ctx, jobs[0].ID, "r1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := repo.MarkFailed(ctx, jobs[0].ID, "late"); err == nil {
		t.Error("terminal job must not be rewritten")
	}

	done, err := repo.GetByID(ctx, jobs[0].ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if done.Status != domain.JobStatusCompleted || done.RecipeID == nil || *done.RecipeID != "r1" || done.CompletedAt == nil {
		t.Errorf("completed job = %+v", done)
	}

	if ok, _ := repo.Claim(ctx, jobs[1].ID); !ok {
		t.Fatal("Claim(jobs[1]) lost")
	}
	n, err := repo.FailStale(ctx, "interrupted before completion")
	if err != nil || n != 1 {
		t.Errorf("FailStale() = %d, %v", n, err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := domain.JobStats{Pending: 1, Completed: 1, Failed: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestCreateBatchPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewImportJobRepository(openTestDB(t))
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	urls := []string{"https://example.com/c", "https://example.com/a", "https://example.com/b"}
	if _, err := repo.CreateBatch(ctx, urls); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	for i, job := range pending {
		if job.URL != urls[i] {
			t.Errorf("pending[%d] = %s, want %s", i, job.URL, urls[i])
		}
	}
}
