package repository

import (
	"context"
	"strings"

	"github.com/timmy/recipebox/internal/domain"
	"gorm.io/gorm"
)

// RecipeRepository handles recipe data operations.
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RecipeRepository: repository instance bound to db.
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// RecipeFilter narrows recipe listings.
type RecipeFilter struct {
	Category string
	Dietary  string
	Favorite *bool
	Limit    int
	Offset   int
}

// Create inserts a recipe together with its image rows in one transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - recipe: recipe with Images populated.
// Returns:
//   - error: ErrDuplicate if the URL is already stored, or the insert error.
func (r *RecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Tags").Create(recipe).Error
	}))
}

// GetByID retrieves a recipe with its images and tags.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: recipe ID.
// Returns:
//   - *domain.Recipe: recipe if found.
//   - error: ErrNotFound if no recipe has the ID.
func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var recipe domain.Recipe
	err := r.withAssociations(ctx).First(&recipe, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &recipe, nil
}

// GetByURL retrieves a recipe by its exact source URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: source page URL.
// Returns:
//   - *domain.Recipe: recipe if found.
//   - error: ErrNotFound if the URL has not been imported.
func (r *RecipeRepository) GetByURL(ctx context.Context, url string) (*domain.Recipe, error) {
	var recipe domain.Recipe
	err := r.withAssociations(ctx).First(&recipe, "url = ?", url).Error
	if err != nil {
		return nil, translate(err)
	}
	return &recipe, nil
}

// GetByIDs retrieves recipes by ID, preserving the order of ids.
func (r *RecipeRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Recipe, error) {
	if len(ids) == 0 {
		return []domain.Recipe{}, nil
	}
	var found []domain.Recipe
	if err := r.withAssociations(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Recipe, len(found))
	for _, rec := range found {
		byID[rec.ID] = rec
	}
	ordered := make([]domain.Recipe, 0, len(found))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

// List returns recipes newest first along with the total matching count.
func (r *RecipeRepository) List(ctx context.Context, f RecipeFilter) ([]domain.Recipe, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Recipe{})
	if f.Category != "" {
		q = q.Where("categories LIKE ?", "%"+quoteJSON(f.Category)+"%")
	}
	if f.Dietary != "" {
		q = q.Where("dietary LIKE ?", "%"+quoteJSON(f.Dietary)+"%")
	}
	if f.Favorite != nil {
		q = q.Where("is_favorite = ?", *f.Favorite)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []domain.Recipe
	err := q.Preload("Images", orderImages).Preload("Tags").
		Order("created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Search matches the query against title, description and author.
func (r *RecipeRepository) Search(ctx context.Context, query string, limit int) ([]domain.Recipe, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var recipes []domain.Recipe
	err := r.withAssociations(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

// UpdateFields applies a partial update to the user-editable columns.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: recipe ID.
//   - fields: column name to value map.
// Returns:
//   - error: ErrNotFound if no recipe has the ID.
func (r *RecipeRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Recipe{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceTags sets the recipe's tags, creating missing tags by name.
func (r *RecipeRepository) ReplaceTags(ctx context.Context, id string, tags []domain.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe := domain.Recipe{ID: id}
		return tx.Model(&recipe).Association("Tags").Replace(tags)
	})
}

// Delete removes a recipe with its image rows and tag links.
// Returns ErrNotFound if no recipe has the ID.
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&domain.RecipeImage{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Recipe{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Count returns the number of stored recipes.
func (r *RecipeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Recipe{}).Count(&n).Error
	return n, err
}

func (r *RecipeRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Images", orderImages).Preload("Tags")
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// quoteJSON matches a whole element inside a JSON-encoded string array column.
func quoteJSON(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
