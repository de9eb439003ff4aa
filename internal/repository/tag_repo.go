package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipebox/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository handles tag data operations.
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// FindOrCreate returns the tags with the given names, creating any that are missing.
// Names are trimmed and lower-cased; blanks and duplicates are dropped.
func (r *TagRepository) FindOrCreate(ctx context.Context, names []string) ([]domain.Tag, error) {
	var clean []string
	seen := make(map[string]struct{})
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		clean = append(clean, n)
	}
	if len(clean) == 0 {
		return []domain.Tag{}, nil
	}

	db := r.db.WithContext(ctx)
	now := time.Now()
	candidates := make([]domain.Tag, len(clean))
	for i, n := range clean {
		candidates[i] = domain.Tag{ID: uuid.NewString(), Name: n, CreatedAt: now}
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&candidates).Error; err != nil {
		return nil, err
	}

	var tags []domain.Tag
	if err := db.Where("name IN ?", clean).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// ListWithCounts returns every tag with the number of recipes carrying it.
func (r *TagRepository) ListWithCounts(ctx context.Context) ([]domain.TagCount, error) {
	var out []domain.TagCount
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.id AS id, tags.name AS name, COUNT(recipe_tags.recipe_id) AS recipe_count").
		Joins("LEFT JOIN recipe_tags ON recipe_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
