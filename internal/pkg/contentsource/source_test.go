package contentsource

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/app/repository"
)

func setupSource(t *testing.T, articleCount int) *Source {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Article{}))

	repo := repository.NewArticleRepository(db)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < articleCount; i++ {
		require.NoError(t, repo.Create(&models.Article{
			Title:       fmt.Sprintf("Story %d", i),
			SourceName:  "Example Wire",
			SourceURL:   fmt.Sprintf("https://news.example.com/%d", i),
			Score:       float64(articleCount - i),
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return NewSource(repo)
}

func TestFetchPageRankedOrder(t *testing.T) {
	src := setupSource(t, 5)

	page, err := src.FetchPage(context.Background(), 0, 3)
	require.NoError(t, err)
	require.Len(t, page.Articles, 3)
	assert.Equal(t, "Story 0", page.Articles[0].Title)
	assert.Equal(t, "Story 1", page.Articles[1].Title)
	assert.True(t, page.HasMore)
	assert.Equal(t, 3, page.NextOffset)
}

func TestFetchPageLastPage(t *testing.T) {
	src := setupSource(t, 5)

	page, err := src.FetchPage(context.Background(), 3, 3)
	require.NoError(t, err)
	assert.Len(t, page.Articles, 2)
	assert.False(t, page.HasMore)
	assert.Equal(t, 5, page.NextOffset)
}

func TestFetchPageClampsSize(t *testing.T) {
	src := setupSource(t, 2)

	page, err := src.FetchPage(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Len(t, page.Articles, 2)

	page, err = src.FetchPage(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Articles, 2)
}

func TestFetchPageNegativeOffset(t *testing.T) {
	src := setupSource(t, 1)

	_, err := src.FetchPage(context.Background(), -1, 10)
	assert.Error(t, err)
}
