package repository

import (
	"gorm.io/gorm"

	"github.com/pressbrief/pressbrief/app/models"
)

// articleRepository implements the ArticleRepository interface
type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository instance
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// Create creates a new article in the database
func (r *articleRepository) Create(article *models.Article) error {
	return r.db.Create(article).Error
}

// GetByID retrieves an article by its ID
func (r *articleRepository) GetByID(id uint64) (*models.Article, error) {
	var article models.Article
	err := r.db.First(&article, id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetRankedPage returns one page of the current ranked feed. Ranking is
// precomputed into the score column; ties break on recency.
func (r *articleRepository) GetRankedPage(offset, limit int) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.
		Order("score DESC, published_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// Update updates an existing article in the database
func (r *articleRepository) Update(article *models.Article) error {
	return r.db.Save(article).Error
}

// Count returns the total number of articles
func (r *articleRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Article{}).Count(&count).Error
	return count, err
}

// AddReadCount adds a batched read-counter delta to an article.
func (r *articleRepository) AddReadCount(id uint64, delta uint64) error {
	if delta == 0 {
		return nil
	}
	return r.db.Model(&models.Article{}).
		Where("id = ?", id).
		UpdateColumn("read_count", gorm.Expr("read_count + ?", delta)).Error
}
