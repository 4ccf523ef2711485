package usecase

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pillwise/backend/internal/domain"
)

const stageCollection = "collection"

// CollectionStage fans out one listing fetch per keyword
type CollectionStage struct {
	fetcher domain.ListingFetcher
	logger  *zap.Logger
}

// NewCollectionStage creates the collection stage
func NewCollectionStage(fetcher domain.ListingFetcher, logger *zap.Logger) *CollectionStage {
	return &CollectionStage{fetcher: fetcher, logger: logger}
}

// Collect fetches every keyword concurrently and waits for all of them.
// Results are flattened in keyword order, then in page order within a keyword.
// A failing keyword contributes nothing and never cancels its siblings.
func (s *CollectionStage) Collect(ctx context.Context, keywords []string) []domain.ProductListing {
	perKeyword := make([][]domain.ProductListing, len(keywords))

	// Plain errgroup.Group (not WithContext): no branch may cancel another
	var g errgroup.Group
	for i, kw := range keywords {
		g.Go(func() error {
			perKeyword[i] = s.fetcher.Fetch(ctx, kw)
			s.logger.Debug("keyword collected", zap.String("keyword", kw), zap.Int("listings", len(perKeyword[i])))
			return nil
		})
	}
	_ = g.Wait()

	listings := lo.Flatten(perKeyword)
	if listings == nil {
		listings = []domain.ProductListing{}
	}

	s.logger.Info("collection complete",
		zap.Int("keywords", len(keywords)),
		zap.Int("listings", len(listings)),
	)
	return listings
}
