package search_test

import (
	"context"
	"io"
	"testing"

	"storefinder/internal/models"
	"storefinder/internal/search"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *search.Index {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	idx, err := search.NewMemIndex(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *search.Index) {
	t.Helper()
	stores := []models.Store{
		{ID: "hamilton-coffee", Name: "Coffee Culture", Description: "Espresso and pastries",
			Location: models.Location{Type: models.LocationPoint, Lng: -79.8711, Lat: 43.2557}},
		{ID: "hamilton-pizza", Name: "Pizza Pizza", Description: "Late night slices",
			Location: models.Location{Type: models.LocationPoint, Lng: -79.8690, Lat: 43.2580}},
		{ID: "toronto-bakery", Name: "Bread Box", Description: "Sourdough and coffee beans",
			Location: models.Location{Type: models.LocationPoint, Lng: -79.3832, Lat: 43.6532}},
	}
	require.NoError(t, idx.Rebuild(stores))
}

func TestIndex_Search(t *testing.T) {
	idx := newIndex(t)
	seed(t, idx)

	ids, err := idx.Search(context.Background(), "coffee", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hamilton-coffee", "toronto-bakery"}, ids)
	// Name matches are boosted above description matches.
	assert.Equal(t, "hamilton-coffee", ids[0])

	ids, err = idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndex_Near(t *testing.T) {
	idx := newIndex(t)
	seed(t, idx)

	ids, err := idx.Near(context.Background(), 43.2560, -79.8700, search.DefaultRadius, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hamilton-coffee", "hamilton-pizza"}, ids)

	ids, err = idx.Near(context.Background(), 43.2579, -79.8691, search.DefaultRadius, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hamilton-pizza", "hamilton-coffee"}, ids)
}

func TestIndex_PutReplaces(t *testing.T) {
	idx := newIndex(t)
	seed(t, idx)

	require.NoError(t, idx.Put(models.Store{ID: "hamilton-pizza", Name: "Taco Stand",
		Location: models.Location{Type: models.LocationPoint, Lng: -79.8690, Lat: 43.2580}}))

	ids, err := idx.Search(context.Background(), "pizza", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = idx.Search(context.Background(), "taco", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hamilton-pizza"}, ids)
}
