package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefinder/internal/models"
	"storefinder/internal/repositories"
	"storefinder/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	repo    *MockStoreRepository
	users   *MockUserRepository
	reviews *MockReviewRepository
	index   *MockStoreIndex
	service *services.StoreService
}

func newStoreFixture() *storeFixture {
	f := &storeFixture{
		repo:    new(MockStoreRepository),
		users:   new(MockUserRepository),
		reviews: new(MockReviewRepository),
		index:   new(MockStoreIndex),
	}
	f.service = services.NewStoreService(f.repo, f.users, f.reviews, f.index, quietLogger())
	return f
}

func float(v float64) *float64 { return &v }

func storeInput(name string) services.StoreInput {
	return services.StoreInput{
		Name:        name,
		Description: "Coffee",
		Tags:        []string{"Wifi", " Wifi ", "", "Open Late"},
		Address:     "1 King St W, Hamilton",
		Lng:         float(-79.8711),
		Lat:         float(43.2557),
	}
}

func TestStoreService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("DerivesSlugAndForcesPoint", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("SlugsLike", ctx, "cafe-pappas", "").Return([]string{}, nil).Once()
		f.repo.On("Create", ctx, mock.AnythingOfType("*models.Store")).Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(nil).Once()

		store, err := f.service.Create(ctx, "user-1", storeInput("Café Pappas"))
		require.NoError(t, err)
		assert.Equal(t, "cafe-pappas", store.Slug)
		assert.Equal(t, models.LocationPoint, store.Location.Type)
		assert.Equal(t, "user-1", store.AuthorID)
		assert.Equal(t, []string{"Wifi", "Open Late"}, store.Tags)
		assert.False(t, store.Created.IsZero())
		f.repo.AssertExpectations(t)
		f.index.AssertExpectations(t)
	})

	t.Run("SuffixesCollidingSlug", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("SlugsLike", ctx, "cafe-pappas", "").Return([]string{"cafe-pappas", "cafe-pappas-extra"}, nil).Once()
		f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(nil)

		store, err := f.service.Create(ctx, "user-1", storeInput("Cafe Pappas"))
		require.NoError(t, err)
		assert.Equal(t, "cafe-pappas-2", store.Slug)
	})

	t.Run("RetriesWhenUniqueIndexRejects", func(t *testing.T) {
		f := newStoreFixture()
		var tried []string
		f.repo.On("SlugsLike", ctx, "pappas", "").Return([]string{}, nil).Once()
		f.repo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { tried = append(tried, args.Get(1).(*models.Store).Slug) }).
			Return(fmt.Errorf("failed to create store: %w", repositories.ErrDuplicate)).Twice()
		f.repo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { tried = append(tried, args.Get(1).(*models.Store).Slug) }).
			Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(nil)

		store, err := f.service.Create(ctx, "user-1", storeInput("Pappas"))
		require.NoError(t, err)
		assert.Equal(t, []string{"pappas", "pappas-2", "pappas-3"}, tried)
		assert.Equal(t, "pappas-3", store.Slug)
	})

	t.Run("GivesUpAfterRepeatedCollisions", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("SlugsLike", ctx, "pappas", "").Return([]string{}, nil).Once()
		f.repo.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.service.Create(ctx, "user-1", storeInput("Pappas"))
		assert.ErrorIs(t, err, services.ErrConflict)
		f.repo.AssertNumberOfCalls(t, "Create", 5)
		f.index.AssertNotCalled(t, "Put", mock.Anything)
	})

	t.Run("IndexFailureDoesNotFailCreate", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("SlugsLike", ctx, "pappas", "").Return([]string{}, nil).Once()
		f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(assert.AnError).Once()

		_, err := f.service.Create(ctx, "user-1", storeInput("Pappas"))
		assert.NoError(t, err)
	})

	t.Run("Invalid", func(t *testing.T) {
		f := newStoreFixture()
		in := storeInput("")
		in.Lat = nil
		in.Address = ""

		_, err := f.service.Create(ctx, "user-1", in)
		var ve *services.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "Lat")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

		in = storeInput("")
		_, err = f.service.Create(ctx, "user-1", in)
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "Please supply a name", ve.Fields["Name"])

		in = storeInput("Far Away")
		in.Lat = float(123)
		_, err = f.service.Create(ctx, "user-1", in)
		assert.True(t, services.IsValidation(err))
	})
}

func TestStoreService_Validate(t *testing.T) {
	f := newStoreFixture()

	assert.NoError(t, f.service.Validate("user-1", storeInput("Pappas")))

	noAddress := storeInput("Pappas")
	noAddress.Address = "  "
	assert.True(t, services.IsValidation(f.service.Validate("user-1", noAddress)))

	noName := storeInput("")
	assert.True(t, services.IsValidation(f.service.Validate("user-1", noName)))

	noPoint := storeInput("Pappas")
	noPoint.Lat = nil
	assert.True(t, services.IsValidation(f.service.Validate("user-1", noPoint)))

	// Nothing is read or written while validating.
	f.repo.AssertNotCalled(t, "SlugsLike", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.index.AssertNotCalled(t, "Put", mock.Anything)
}

func TestStoreService_Update(t *testing.T) {
	ctx := context.Background()
	const storeID = "5b1f0c2e-8a4b-4f7e-9c1d-2e3f4a5b6c7d"
	existing := func() *models.Store {
		return &models.Store{
			ID:       storeID,
			Name:     "Pappas",
			Slug:     "pappas",
			AuthorID: "owner",
			Photo:    "old.jpeg",
			Created:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	t.Run("SameNameKeepsSlugAndPhoto", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("GetByID", ctx, storeID).Return(existing(), nil).Once()
		f.repo.On("Update", ctx, mock.Anything).Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(nil).Once()

		store, err := f.service.Update(ctx, "owner", storeID, storeInput("Pappas"))
		require.NoError(t, err)
		assert.Equal(t, "pappas", store.Slug)
		assert.Equal(t, "old.jpeg", store.Photo)
		assert.Equal(t, existing().Created, store.Created)
		f.repo.AssertNotCalled(t, "SlugsLike", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RenameDerivesNewSlug", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("GetByID", ctx, storeID).Return(existing(), nil).Once()
		f.repo.On("SlugsLike", ctx, "pappas-bakery", storeID).Return([]string{"pappas-bakery"}, nil).Once()
		f.repo.On("Update", ctx, mock.Anything).Return(nil).Once()
		f.index.On("Put", mock.Anything).Return(nil).Once()

		in := storeInput("Pappas Bakery")
		in.Photo = "new.png"
		store, err := f.service.Update(ctx, "owner", storeID, in)
		require.NoError(t, err)
		assert.Equal(t, "pappas-bakery-2", store.Slug)
		assert.Equal(t, "new.png", store.Photo)
	})

	t.Run("OnlyOwnerMayEdit", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("GetByID", ctx, storeID).Return(existing(), nil)

		_, err := f.service.Update(ctx, "intruder", storeID, storeInput("Mine Now"))
		assert.ErrorIs(t, err, services.ErrForbidden)
		_, err = f.service.GetForEdit(ctx, "intruder", storeID)
		assert.ErrorIs(t, err, services.ErrForbidden)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

		store, err := f.service.GetForEdit(ctx, "owner", storeID)
		require.NoError(t, err)
		assert.Equal(t, storeID, store.ID)
	})

	t.Run("Missing", func(t *testing.T) {
		f := newStoreFixture()
		f.repo.On("GetByID", ctx, "nope").Return(nil, fmt.Errorf("failed to get store: %w", repositories.ErrNotFound))

		_, err := f.service.Update(ctx, "owner", "nope", storeInput("Pappas"))
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestStoreService_Detail(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture()
	store := &models.Store{ID: "store-1", Slug: "pappas", AuthorID: "owner"}
	reviews := []models.Review{
		{ID: "r2", StoreID: "store-1", AuthorID: "kait", Rating: 4},
		{ID: "r1", StoreID: "store-1", AuthorID: "wes", Rating: 5},
	}
	f.repo.On("GetBySlug", ctx, "pappas").Return(store, nil).Once()
	f.repo.On("GetBySlug", ctx, "missing").Return(nil, repositories.ErrNotFound).Once()
	f.reviews.On("GetByStore", ctx, "store-1").Return(reviews, nil).Once()
	f.users.On("GetByIDs", ctx, []string{"owner", "kait", "wes"}).Return(map[string]models.User{
		"owner": {ID: "owner", Name: "Owner"},
		"kait":  {ID: "kait", Name: "Kait"},
	}, nil).Once()

	detail, err := f.service.Detail(ctx, "pappas")
	require.NoError(t, err)
	assert.Equal(t, "Owner", detail.Author.Name)
	assert.Equal(t, 2, detail.ReviewCount)
	assert.InDelta(t, 4.5, detail.AverageRating, 0.0001)
	require.Len(t, detail.Reviews, 2)
	assert.Equal(t, "Kait", detail.Reviews[0].Author.Name)
	assert.Nil(t, detail.Reviews[1].Author, "deleted authors are left out")

	_, err = f.service.Detail(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestStoreService_SearchAndNear(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture()
	found := []models.Store{{ID: "b"}, {ID: "a"}}
	f.index.On("Search", ctx, "coffee", services.SearchLimit).Return([]string{"b", "a"}, nil).Once()
	f.index.On("Near", ctx, 43.25, -79.87, "10km", services.SearchLimit).Return([]string{"b", "a"}, nil).Once()
	f.repo.On("GetByIDs", ctx, []string{"b", "a"}).Return(found, nil).Twice()

	got, err := f.service.Search(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, found, got)

	got, err = f.service.Near(ctx, 43.25, -79.87)
	require.NoError(t, err)
	assert.Equal(t, found, got)

	_, err = f.service.Near(ctx, 91, 0)
	assert.True(t, services.IsValidation(err))
	_, err = f.service.Near(ctx, 0, -181)
	assert.True(t, services.IsValidation(err))
	f.index.AssertExpectations(t)
}

func TestStoreService_Aggregates(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture()
	f.repo.On("TopRated", ctx, services.TopRatedMinReviews, services.TopRatedLimit).Return([]models.RatedStore{}, nil).Once()
	f.repo.On("TagCounts", ctx).Return([]models.TagCount{{Tag: "Wifi", Count: 2}}, nil).Once()
	f.repo.On("GetByTag", ctx, "Wifi").Return([]models.Store{{ID: "a"}}, nil).Once()

	_, err := f.service.TopRated(ctx)
	require.NoError(t, err)
	tags, err := f.service.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Wifi", tags[0].Tag)
	byTag, err := f.service.StoresByTag(ctx, " Wifi ")
	require.NoError(t, err)
	assert.Len(t, byTag, 1)
	f.repo.AssertExpectations(t)
}

func TestStoreService_Reindex(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture()
	all := []models.Store{{ID: "a"}, {ID: "b"}}
	f.repo.On("GetAll", ctx).Return(all, nil).Once()
	f.index.On("Rebuild", all).Return(nil).Once()

	require.NoError(t, f.service.Reindex(ctx))
	f.index.AssertExpectations(t)
}
