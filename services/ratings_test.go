package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/models"
)

// assertAggregate checks the cached aggregate against the live ratings.
func assertAggregate(t *testing.T, env *testEnv, productID uint) *models.Product {
	t.Helper()
	var ratings []models.ProductRating
	require.NoError(t, env.db.Where("product_id = ?", productID).Find(&ratings).Error)
	var p models.Product
	require.NoError(t, env.db.Unscoped().First(&p, productID).Error)

	var (
		sum  int
		dist models.RatingDistribution
	)
	for _, r := range ratings {
		sum += r.Rating
		dist.Add(r.Rating, 1)
	}
	want := 0.0
	if len(ratings) > 0 {
		want = math.Round(float64(sum)/float64(len(ratings))*10) / 10
	}
	assert.Equal(t, want, p.AverageRating)
	assert.Equal(t, len(ratings), p.TotalRatings)
	assert.Equal(t, dist, p.RatingDistribution)
	return &p
}

func TestRerateUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)
	customer := env.customer(t)

	r, created, err := env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: 5, Review: "great"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 5, r.Rating)

	r2, created, err := env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: 3})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, r2.ID)
	assert.Equal(t, 3, r2.Rating)
	assert.Equal(t, "great", r2.Review)

	var count int64
	require.NoError(t, env.db.Model(&models.ProductRating{}).
		Where("product_id = ? AND user_id = ?", taco.ID, customer.UserID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	p := assertAggregate(t, env, taco.ID)
	assert.Equal(t, 3.0, p.AverageRating)
	assert.Equal(t, 1, p.TotalRatings)
}

func TestRatingAggregateAcrossOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)

	var raters []auth.Identity
	for i, stars := range []int{5, 4, 4} {
		c := env.customer(t)
		raters = append(raters, c)
		_, _, err := env.svc.Ratings.Rate(ctx, c.UserID, taco.ID, RateInput{Rating: stars})
		require.NoError(t, err, "rater %d", i)
	}
	p := assertAggregate(t, env, taco.ID)
	assert.Equal(t, 4.3, p.AverageRating)
	assert.Equal(t, 2, p.RatingDistribution.Four)

	_, err := env.svc.Ratings.UpdateMine(ctx, raters[0].UserID, taco.ID, RatingUpdate{Rating: 1, Review: ptr("changed my mind")})
	require.NoError(t, err)
	p = assertAggregate(t, env, taco.ID)
	assert.Equal(t, 3.0, p.AverageRating)

	require.NoError(t, env.svc.Ratings.DeleteMine(ctx, raters[1].UserID, taco.ID))
	p = assertAggregate(t, env, taco.ID)
	assert.Equal(t, 2, p.TotalRatings)
	assert.Equal(t, 2.5, p.AverageRating)

	requireKind(t, env.svc.Ratings.DeleteMine(ctx, raters[1].UserID, taco.ID), apperr.KindNotFound)
	_, err = env.svc.Ratings.Mine(ctx, raters[1].UserID, taco.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestConcurrentRatingsKeepAggregateConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)

	var raters []auth.Identity
	for i := 0; i < 10; i++ {
		raters = append(raters, env.customer(t))
	}

	var wg sync.WaitGroup
	for i, c := range raters {
		wg.Add(1)
		go func(i int, c auth.Identity) {
			defer wg.Done()
			_, _, err := env.svc.Ratings.Rate(ctx, c.UserID, taco.ID, RateInput{Rating: i%5 + 1})
			assert.NoError(t, err)
			_, _, err = env.svc.Ratings.Rate(ctx, c.UserID, taco.ID, RateInput{Rating: (i+2)%5 + 1})
			assert.NoError(t, err)
		}(i, c)
	}
	wg.Wait()

	p := assertAggregate(t, env, taco.ID)
	assert.Equal(t, 10, p.TotalRatings)
}

func TestVerifiedPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)
	chips := env.product(t, owner, "Chips", 2)
	customer := env.customer(t)
	env.address(t, customer, "1 Home St", true)

	order, err := env.svc.Orders.Place(ctx, customer.UserID, PlaceOrderInput{
		BusinessID: env.businessID(t, owner),
		Items:      []OrderItemInput{{ProductID: taco.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	r, _, err := env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: 4, OrderID: &order.ID})
	require.NoError(t, err)
	assert.True(t, r.IsVerified)

	r, _, err = env.svc.Ratings.Rate(ctx, customer.UserID, chips.ID, RateInput{Rating: 4, OrderID: &order.ID})
	require.NoError(t, err)
	assert.False(t, r.IsVerified)

	stats, err := env.svc.Ratings.Stats(ctx, taco.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.VerifiedRatings)
	assert.Equal(t, 100.0, stats.PercentageVerified)

	// Verification survives a later re-rate without an order reference.
	r, _, err = env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: 2})
	require.NoError(t, err)
	assert.True(t, r.IsVerified)
	require.NotNil(t, r.OrderID)
	assert.Equal(t, order.ID, *r.OrderID)
}

func TestRateValidationAndMissingProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)
	customer := env.customer(t)

	for _, stars := range []int{0, 6} {
		_, _, err := env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: stars})
		requireKind(t, err, apperr.KindValidation)
	}

	_, _, err := env.svc.Ratings.Rate(ctx, customer.UserID, 424242, RateInput{Rating: 4})
	requireKind(t, err, apperr.KindNotFound)

	require.NoError(t, env.svc.Catalog.Delete(ctx, owner.UserID, taco.ID))
	_, _, err = env.svc.Ratings.Rate(ctx, customer.UserID, taco.ID, RateInput{Rating: 4})
	requireKind(t, err, apperr.KindNotFound)
}

func TestListRatingsAndHelpful(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")
	taco := env.product(t, owner, "Taco", 3)

	var last *models.ProductRating
	for _, stars := range []int{5, 3, 5} {
		c := env.customer(t)
		r, _, err := env.svc.Ratings.Rate(ctx, c.UserID, taco.ID, RateInput{Rating: stars})
		require.NoError(t, err)
		last = r
	}

	page, err := env.svc.Ratings.List(ctx, taco.ID, RatingFilter{Rating: 5})
	require.NoError(t, err)
	assert.Len(t, page.Ratings, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, 3, page.ProductStats.TotalRatings)
	require.NotNil(t, page.Ratings[0].User)
	assert.Equal(t, "Casey Customer", page.Ratings[0].User.Name)
	assert.Empty(t, page.Ratings[0].User.Email)

	_, err = env.svc.Ratings.List(ctx, taco.ID, RatingFilter{SortBy: "user_id"})
	requireKind(t, err, apperr.KindValidation)

	helpful, err := env.svc.Ratings.MarkHelpful(ctx, taco.ID, last.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, helpful)
	helpful, err = env.svc.Ratings.MarkHelpful(ctx, taco.ID, last.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, helpful)

	_, err = env.svc.Ratings.MarkHelpful(ctx, taco.ID+1, last.ID)
	requireKind(t, err, apperr.KindNotFound)
}
