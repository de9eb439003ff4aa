package service

import (
	"context"
	"fmt"

	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/repository"
)

// RecipeIndex keeps a vector per recipe for semantic search.
type RecipeIndex struct {
	vectors        *repository.QdrantRepository
	embedding      EmbeddingProvider
	scoreThreshold float32
}

// NewRecipeIndex creates a semantic recipe index.
// Parameters:
//   - vectors: Qdrant repository holding one point per recipe.
//   - embedding: provider used for both recipes and queries.
//   - scoreThreshold: minimum similarity for a hit; zero keeps all hits.
// Returns:
//   - *RecipeIndex: initialized index.
func NewRecipeIndex(vectors *repository.QdrantRepository, embedding EmbeddingProvider, scoreThreshold float32) *RecipeIndex {
	return &RecipeIndex{vectors: vectors, embedding: embedding, scoreThreshold: scoreThreshold}
}

// Add embeds the recipe and upserts its point.
func (x *RecipeIndex) Add(ctx context.Context, r *domain.Recipe) error {
	text := buildEmbeddingText(r)
	if text == "" {
		return fmt.Errorf("recipe %s has no indexable text", r.ID)
	}
	vector, err := x.embedding.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed recipe: %w", err)
	}
	return x.vectors.Upsert(ctx, vector, &repository.RecipePayload{
		RecipeID:   r.ID,
		Title:      r.Title,
		SiteName:   r.SiteName,
		Cuisine:    r.Cuisine,
		Categories: r.Categories,
		Dietary:    r.Dietary,
	})
}

// Remove deletes the recipe's point.
func (x *RecipeIndex) Remove(ctx context.Context, recipeID string) error {
	return x.vectors.Delete(ctx, recipeID)
}

// Search returns recipe IDs ranked by similarity to query.
func (x *RecipeIndex) Search(ctx context.Context, query string, limit int, filter *repository.VectorFilter) ([]repository.VectorHit, error) {
	vector, err := x.embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return x.vectors.Search(ctx, vector, limit, x.scoreThreshold, filter)
}
