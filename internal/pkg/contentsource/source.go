// Package contentsource is the boundary between metered access and the
// article store. Access decisions never depend on what a page contains;
// the gate runs first and this package only materializes the page.
package contentsource

import (
	"context"
	"errors"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/app/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Page is one slice of the ranked feed.
type Page struct {
	Articles   []models.Article `json:"articles"`
	Offset     int              `json:"offset"`
	NextOffset int              `json:"next_offset"`
	HasMore    bool             `json:"has_more"`
}

// Source serves ranked feed pages.
type Source struct {
	articles repository.ArticleRepository
}

// NewSource creates a content source over the article repository.
func NewSource(articles repository.ArticleRepository) *Source {
	return &Source{articles: articles}
}

// FetchPage returns the ranked page starting at offset. Page size is clamped
// rather than rejected; a negative offset is an error.
func (s *Source) FetchPage(ctx context.Context, offset, pageSize int) (*Page, error) {
	if offset < 0 {
		return nil, errors.New("offset must not be negative")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	// Fetch one extra row to learn whether another page exists.
	articles, err := s.articles.GetRankedPage(offset, pageSize+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(articles) > pageSize
	if hasMore {
		articles = articles[:pageSize]
	}

	return &Page{
		Articles:   articles,
		Offset:     offset,
		NextOffset: offset + len(articles),
		HasMore:    hasMore,
	}, nil
}
