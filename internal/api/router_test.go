package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/api/middleware"
	"github.com/timmy/recipebox/internal/config"
	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/repository"
	"github.com/timmy/recipebox/internal/service"
)

type stubScraper struct{}

func (stubScraper) Scrape(_ context.Context, url string) *service.ScrapeResult {
	if url == "https://example.com/broken" {
		return &service.ScrapeResult{Error: domain.ErrExtraction.Error()}
	}
	return &service.ScrapeResult{
		Success: true,
		Method:  service.MethodStructured,
		Data: &domain.ScrapedRecipe{
			RecipeDraft: domain.RecipeDraft{
				Title:        "Lentil Soup",
				URL:          url,
				Ingredients:  []string{"lentils", "water"},
				Instructions: domain.Instructions{domain.NewStep("Simmer.", 1)},
			},
		},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.Processor) {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "api.db"),
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

	jobs := repository.NewImportJobRepository(db)
	recipes := service.NewRecipeService(repository.NewRecipeRepository(db), repository.NewTagRepository(db), nil)
	processor := service.NewProcessor(jobs, recipes, stubScraper{}, &service.ProcessorConfig{Concurrency: 2, BatchSize: 2})
	t.Cleanup(processor.Wait)

	return SetupRouter(RouterConfig{
		Recipes: recipes,
		Imports: service.NewImportService(jobs, processor),
		Mode:    "test",
		CORS:    middleware.CORSConfig{AllowAllOrigins: true},
	}), processor
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestImportAndManageRecipe(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/recipes/import", gin.H{"url": "https://example.com/soup"})
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	var imported struct {
		Recipe domain.Recipe `json:"recipe"`
		Method string        `json:"method"`
		JobID  string        `json:"jobId"`
	}
	decode(t, w, &imported)
	if imported.Method != service.MethodStructured || imported.JobID == "" || imported.Recipe.ID == "" {
		t.Fatalf("import response = %+v", imported)
	}
	path := "/api/v1/recipes/" + imported.Recipe.ID

	if w := do(t, r, http.MethodGet, path, nil); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	if w := do(t, r, http.MethodPatch, path, gin.H{"rating": 9}); w.Code != http.StatusBadRequest {
		t.Errorf("patch rating 9 status = %d, want 400", w.Code)
	}

	w = do(t, r, http.MethodPatch, path, gin.H{"rating": 5, "isFavorite": true, "tags": []string{"soup"}})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated domain.Recipe
	decode(t, w, &updated)
	if updated.Rating == nil || *updated.Rating != 5 || !updated.IsFavorite || len(updated.Tags) != 1 {
		t.Errorf("updated = %+v", updated)
	}

	var page service.RecipePage
	w = do(t, r, http.MethodGet, "/api/v1/recipes?favorite=true", nil)
	decode(t, w, &page)
	if page.Total != 1 || len(page.Recipes) != 1 {
		t.Errorf("list = %+v", page)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/recipes/search?q=lentil", nil); w.Code != http.StatusOK {
		t.Errorf("search status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/recipes/search?q=lentil&mode=semantic", nil); w.Code != http.StatusBadRequest {
		t.Errorf("semantic search without index status = %d, want 400", w.Code)
	}

	var tags struct {
		Tags []domain.TagCount `json:"tags"`
	}
	decode(t, do(t, r, http.MethodGet, "/api/v1/tags", nil), &tags)
	if len(tags.Tags) != 1 || tags.Tags[0].RecipeCount != 1 {
		t.Errorf("tags = %+v", tags)
	}

	if w := do(t, r, http.MethodDelete, path, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestImportErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"missing url", "/api/v1/recipes/import", gin.H{}, http.StatusBadRequest, "url is required"},
		{"extraction failure", "/api/v1/recipes/import", gin.H{"url": "https://example.com/broken"}, http.StatusBadRequest, domain.ErrExtraction.Error()},
		{"not a bookmarks file", "/api/v1/recipes/import/bulk", gin.H{"html": "<p>hi</p>"}, http.StatusBadRequest, "invalid bookmarks file format"},
		{"no urls", "/api/v1/recipes/import/bulk", gin.H{"html": "<!DOCTYPE NETSCAPE-Bookmark-file-1><DL></DL>"}, http.StatusBadRequest, service.ErrNoURLs.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, tt.wantCode, w.Body.String())
			}
			var body struct {
				Error string `json:"error"`
			}
			decode(t, w, &body)
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
		})
	}
}

func TestBulkImportAndJobStats(t *testing.T) {
	r, processor := newTestRouter(t)

	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
	<DT><A HREF="https://example.com/a">A</A>
	<DT><A HREF="https://example.com/b">B</A>
</DL><p>`
	w := do(t, r, http.MethodPost, "/api/v1/recipes/import/bulk", gin.H{"html": doc})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk status = %d, body = %s", w.Code, w.Body.String())
	}
	var bulk service.BulkResult
	decode(t, w, &bulk)
	if bulk.Count != 2 {
		t.Errorf("count = %d, want 2", bulk.Count)
	}
	processor.Wait()

	var stats struct {
		Completed int64 `json:"completed"`
		Total     int64 `json:"total"`
	}
	decode(t, do(t, r, http.MethodGet, "/api/v1/recipes/import/jobs?stats=true", nil), &stats)
	if stats.Completed != 2 || stats.Total != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/recipes/import/jobs?status=archived", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status filter = %d, want 400", w.Code)
	}
	var list struct {
		Jobs []domain.ImportJob `json:"jobs"`
	}
	decode(t, do(t, r, http.MethodGet, "/api/v1/recipes/import/jobs?status=completed", nil), &list)
	if len(list.Jobs) != 2 {
		t.Errorf("completed jobs = %d, want 2", len(list.Jobs))
	}

	if w := do(t, r, http.MethodPost, "/api/v1/recipes/import/jobs/process", nil); w.Code != http.StatusAccepted {
		t.Errorf("process status = %d, want 202", w.Code)
	}
}

func TestMiddleware(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	pre := httptest.NewRecorder()
	r.ServeHTTP(pre, req)
	if pre.Code != http.StatusNoContent || pre.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d, origin %q", pre.Code, pre.Header().Get("Access-Control-Allow-Origin"))
	}
}
