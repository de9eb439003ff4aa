package domain

import (
	"encoding/json"
	"time"
)

// ImageRef points at an image referenced by a source page.
type ImageRef struct {
	URL string `json:"url" validate:"required"`
	Alt string `json:"alt,omitempty"`
}

// RecipeDraft is an extracted, not yet validated recipe candidate.
type RecipeDraft struct {
	Title         string          `json:"title" validate:"notblank"`
	Description   string          `json:"description,omitempty"`
	URL           string          `json:"url" validate:"required,http_url"`
	PrepTime      *int            `json:"prepTime,omitempty" validate:"omitempty,min=0"`
	CookTime      *int            `json:"cookTime,omitempty" validate:"omitempty,min=0"`
	TotalTime     *int            `json:"totalTime,omitempty" validate:"omitempty,min=0"`
	Servings      *int            `json:"servings,omitempty" validate:"omitempty,min=1"`
	Yield         string          `json:"yield,omitempty"`
	Ingredients   []string        `json:"ingredients" validate:"dive,notblank"`
	Instructions  Instructions    `json:"instructions" validate:"dive"`
	Images        []ImageRef      `json:"images,omitempty" validate:"dive"`
	MainImageURL  string          `json:"mainImageUrl,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	Cuisine       string          `json:"cuisine,omitempty"`
	Dietary       []string        `json:"dietary,omitempty"`
	SiteName      string          `json:"siteName,omitempty"`
	Author        string          `json:"author,omitempty"`
	DatePublished string          `json:"datePublished,omitempty" validate:"omitempty,isodate"`
	RawData       json.RawMessage `json:"rawData,omitempty"`
}

// HasContent reports whether the draft has at least one ingredient or instruction.
func (d *RecipeDraft) HasContent() bool {
	return len(d.Ingredients) > 0 || len(d.Instructions) > 0
}

// DownloadedImage is an image fetched, transcoded and written to content storage.
type DownloadedImage struct {
	OriginalURL string `json:"originalUrl"`
	LocalPath   string `json:"localPath"`
	Alt         string `json:"alt,omitempty"`
}

// ScrapedRecipe is a validated draft plus whatever images could be stored for it.
type ScrapedRecipe struct {
	RecipeDraft
	DownloadedImages []DownloadedImage `json:"downloadedImages"`
}

// Recipe is a stored recipe in the library.
type Recipe struct {
	ID            string        `gorm:"type:text;primaryKey" json:"id"`
	URL           string        `gorm:"type:text;not null;uniqueIndex:idx_recipes_url" json:"url"`
	Title         string        `gorm:"type:text;not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	PrepTime      *int          `json:"prep_time,omitempty"`
	CookTime      *int          `json:"cook_time,omitempty"`
	TotalTime     *int          `json:"total_time,omitempty"`
	Servings      *int          `json:"servings,omitempty"`
	Yield         string        `gorm:"type:text" json:"yield,omitempty"`
	Ingredients   StringArray   `gorm:"type:text" json:"ingredients"`
	Instructions  Instructions  `gorm:"type:text" json:"instructions"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
	MainImageURL  string        `gorm:"type:text" json:"main_image_url,omitempty"`
	Categories    StringArray   `gorm:"type:text" json:"categories"`
	Cuisine       string        `gorm:"type:text" json:"cuisine,omitempty"`
	Dietary       StringArray   `gorm:"type:text" json:"dietary"`
	SiteName      string        `gorm:"type:text" json:"site_name,omitempty"`
	Author        string        `gorm:"type:text" json:"author,omitempty"`
	DatePublished *time.Time    `json:"date_published,omitempty"`
	RawData       RawJSON       `gorm:"type:text" json:"raw_data,omitempty"`
	Rating        *int          `json:"rating,omitempty"`
	IsFavorite    bool          `gorm:"default:false;index:idx_recipes_favorite" json:"is_favorite"`
	Images        []RecipeImage `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"images"`
	Tags          []Tag         `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt     time.Time     `gorm:"index:idx_recipes_created" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string {
	return "recipes"
}

// RecipeImage is a stored image belonging to a recipe.
type RecipeImage struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	RecipeID  string    `gorm:"type:text;not null;index:idx_recipe_images_recipe" json:"recipe_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	LocalPath string    `gorm:"type:text" json:"local_path"`
	Alt       string    `gorm:"type:text" json:"alt,omitempty"`
	Position  int       `gorm:"not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for RecipeImage.
func (RecipeImage) TableName() string {
	return "recipe_images"
}

// Tag is a user-assigned label shared across recipes.
type Tag struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_tags_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// TagCount is a tag together with the number of recipes carrying it.
type TagCount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RecipeCount int64  `json:"recipe_count"`
}
