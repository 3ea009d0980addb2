// Package search keeps a text and geo index of store listings.
package search

import (
	"context"
	"fmt"
	"strings"

	"storefinder/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	"github.com/sirupsen/logrus"
)

// DefaultRadius is the distance used for proximity queries.
const DefaultRadius = "10km"

// Index wraps an in-memory Bleve index of stores.
// Bleve indexes are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger logrus.FieldLogger
}

// NewMemIndex creates an empty in-memory index.
func NewMemIndex(logger logrus.FieldLogger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx, logger: logger}, nil
}

// buildIndexMapping indexes name and description as text and location as a geo point.
func buildIndexMapping() mapping.IndexMapping {
	storeMapping := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = "standard"
	storeMapping.AddFieldMappingsAt("name", name)

	description := bleve.NewTextFieldMapping()
	description.Analyzer = "standard"
	storeMapping.AddFieldMappingsAt("description", description)

	storeMapping.AddFieldMappingsAt("location", bleve.NewGeoPointFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = storeMapping
	return im
}

func document(s models.Store) map[string]interface{} {
	return map[string]interface{}{
		"name":        s.Name,
		"description": s.Description,
		// Bleve reads two element slices as [lon, lat].
		"location": []float64{s.Location.Lng, s.Location.Lat},
	}
}

// Put adds or replaces a store in the index.
func (i *Index) Put(s models.Store) error {
	if err := i.index.Index(s.ID, document(s)); err != nil {
		return fmt.Errorf("index store %s: %w", s.ID, err)
	}
	return nil
}

// Rebuild indexes every store in one batch.
func (i *Index) Rebuild(stores []models.Store) error {
	batch := i.index.NewBatch()
	for _, s := range stores {
		if err := batch.Index(s.ID, document(s)); err != nil {
			return fmt.Errorf("batch store %s: %w", s.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("apply index batch: %w", err)
	}
	i.logger.WithField("count", len(stores)).Info("search index rebuilt")
	return nil
}

// Search returns IDs of stores whose name or description matches text, best first.
func (i *Index) Search(ctx context.Context, text string, limit int) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	name := bleve.NewMatchQuery(text)
	name.SetField("name")
	name.SetBoost(2)
	description := bleve.NewMatchQuery(text)
	description.SetField("description")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(name, description), limit, 0, false)
	return i.run(ctx, req)
}

// Near returns IDs of stores within radius of the point, nearest first.
func (i *Index) Near(ctx context.Context, lat, lng float64, radius string, limit int) ([]string, error) {
	q := bleve.NewGeoDistanceQuery(lng, lat, radius)
	q.SetField("location")
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)

	byDistance, err := blevesearch.NewSortGeoDistance("location", "km", lng, lat, false)
	if err != nil {
		return nil, fmt.Errorf("sort by distance: %w", err)
	}
	req.SortByCustom(blevesearch.SortOrder{byDistance})
	return i.run(ctx, req)
}

func (i *Index) run(ctx context.Context, req *bleve.SearchRequest) ([]string, error) {
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
