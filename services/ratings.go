package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type RateInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Review  string `json:"review" binding:"max=500"`
	OrderID *uint  `json:"order_id"`
}

type RatingUpdate struct {
	Rating int     `json:"rating" binding:"required,min=1,max=5"`
	Review *string `json:"review" binding:"omitempty,max=500"`
}

type RatingFilter struct {
	Page
	Rating    int    `form:"rating"`
	Verified  *bool  `form:"verified"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// ProductRatingStats is the cached aggregate of a product.
type ProductRatingStats struct {
	AverageRating      float64                   `json:"average_rating"`
	TotalRatings       int                       `json:"total_ratings"`
	RatingDistribution models.RatingDistribution `json:"rating_distribution"`
}

type RatingPage struct {
	Ratings      []models.ProductRating `json:"ratings"`
	Pagination   Pagination             `json:"pagination"`
	ProductStats ProductRatingStats     `json:"product_stats"`
}

type RatingStats struct {
	ProductRatingStats
	VerifiedRatings    int64   `json:"verified_ratings"`
	PercentageVerified float64 `json:"percentage_verified"`
}

var ratingSortColumns = map[string]string{
	"created_at": "created_at",
	"rating":     "rating",
	"helpful":    "helpful",
}

// RatingService keeps every product's cached aggregate equal to the
// statistics of its live ratings. Writes for one product are serialized.
type RatingService struct {
	db    *gorm.DB
	locks *keyedMutex
}

func withRater(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name")
	})
}

// Rate creates the caller's rating for the product or updates it in place.
// The second return value reports whether a new rating was created.
func (s *RatingService) Rate(ctx context.Context, userID, productID uint, in RateInput) (*models.ProductRating, bool, error) {
	if err := validateInput(in); err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(productKey(productID))
	defer unlock()

	var (
		rating  models.ProductRating
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProduct(tx, productID); err != nil {
			return err
		}
		verified, err := verifiedPurchase(tx, userID, productID, in.OrderID)
		if err != nil {
			return err
		}

		err = tx.Where("product_id = ? AND user_id = ?", productID, userID).First(&rating).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			rating = models.ProductRating{
				ProductID:  productID,
				UserID:     userID,
				Rating:     in.Rating,
				Review:     in.Review,
				OrderID:    in.OrderID,
				IsVerified: verified,
			}
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			rating.Rating = in.Rating
			if in.Review != "" {
				rating.Review = in.Review
			}
			if in.OrderID != nil {
				rating.OrderID = in.OrderID
			}
			rating.IsVerified = rating.IsVerified || verified
			if err := tx.Save(&rating).Error; err != nil {
				return err
			}
		}
		return recomputeAggregate(tx, productID)
	})
	if err != nil {
		return nil, false, storeErr("ratings.rate", "rating", err)
	}

	r, err := s.load(ctx, rating.ID)
	return r, created, err
}

// List returns one page of a product's ratings with the cached aggregate.
func (s *RatingService) List(ctx context.Context, productID uint, f RatingFilter) (*RatingPage, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if f.Rating != 0 && (f.Rating < 1 || f.Rating > 5) {
		return nil, apperr.Validation("rating filter must be between 1 and 5")
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	col, ok := ratingSortColumns[sortBy]
	if !ok {
		return nil, apperr.Validation("sort_by must be one of created_at, rating, helpful")
	}
	dir := "desc"
	switch f.SortOrder {
	case "", "desc":
	case "asc":
		dir = "asc"
	default:
		return nil, apperr.Validation("sort_order must be asc or desc")
	}

	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.ProductRating{}).Where("product_id = ?", productID)
	if f.Rating != 0 {
		q = q.Where("rating = ?", f.Rating)
	}
	if f.Verified != nil {
		q = q.Where("is_verified = ?", *f.Verified)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("ratings.list", err)
	}
	ratings := []models.ProductRating{}
	err = withRater(q).Order(col + " " + dir + ", id " + dir).Limit(p.Limit).Offset(p.offset()).Find(&ratings).Error
	if err != nil {
		return nil, apperr.Internal("ratings.list", err)
	}
	return &RatingPage{
		Ratings:      ratings,
		Pagination:   paginate(p, total),
		ProductStats: statsOf(product),
	}, nil
}

// Stats returns the aggregate plus how many ratings are verified purchases.
func (s *RatingService) Stats(ctx context.Context, productID uint) (*RatingStats, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	var verified int64
	err = s.db.WithContext(ctx).Model(&models.ProductRating{}).
		Where("product_id = ? AND is_verified = ?", productID, true).
		Count(&verified).Error
	if err != nil {
		return nil, apperr.Internal("ratings.stats", err)
	}
	stats := &RatingStats{ProductRatingStats: statsOf(product), VerifiedRatings: verified}
	if product.TotalRatings > 0 {
		stats.PercentageVerified = roundTo(float64(verified)/float64(product.TotalRatings)*100, 1)
	}
	return stats, nil
}

// Mine returns the caller's rating of the product.
func (s *RatingService) Mine(ctx context.Context, userID, productID uint) (*models.ProductRating, error) {
	var r models.ProductRating
	err := withRater(s.db.WithContext(ctx)).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&r).Error
	if err != nil {
		return nil, storeErr("ratings.mine", "rating", err)
	}
	return &r, nil
}

// UpdateMine changes the caller's existing rating.
func (s *RatingService) UpdateMine(ctx context.Context, userID, productID uint, in RatingUpdate) (*models.ProductRating, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(productKey(productID))
	defer unlock()

	var rating models.ProductRating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProduct(tx, productID); err != nil {
			return err
		}
		if err := tx.Where("product_id = ? AND user_id = ?", productID, userID).First(&rating).Error; err != nil {
			return storeErr("ratings.update", "rating", err)
		}
		rating.Rating = in.Rating
		if in.Review != nil {
			rating.Review = *in.Review
		}
		if err := tx.Save(&rating).Error; err != nil {
			return err
		}
		return recomputeAggregate(tx, productID)
	})
	if err != nil {
		return nil, storeErr("ratings.update", "rating", err)
	}
	return s.load(ctx, rating.ID)
}

// DeleteMine removes the caller's rating.
func (s *RatingService) DeleteMine(ctx context.Context, userID, productID uint) error {
	unlock := s.locks.Lock(productKey(productID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ratings of a tombstoned product can still be withdrawn.
		if err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).First(&models.Product{}, productID).Error; err != nil {
			return storeErr("ratings.delete", "product", err)
		}
		res := tx.Where("product_id = ? AND user_id = ?", productID, userID).Delete(&models.ProductRating{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("rating not found")
		}
		return recomputeAggregate(tx, productID)
	})
	return storeErr("ratings.delete", "rating", err)
}

// MarkHelpful increments a rating's helpful counter.
func (s *RatingService) MarkHelpful(ctx context.Context, productID, ratingID uint) (int, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.ProductRating{}).
		Where("id = ? AND product_id = ?", ratingID, productID).
		UpdateColumn("helpful", gorm.Expr("helpful + ?", 1))
	if res.Error != nil {
		return 0, apperr.Internal("ratings.helpful", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound("rating not found")
	}
	var r models.ProductRating
	if err := db.Select("helpful").First(&r, ratingID).Error; err != nil {
		return 0, storeErr("ratings.helpful", "rating", err)
	}
	return r.Helpful, nil
}

func (s *RatingService) product(ctx context.Context, productID uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		return nil, storeErr("ratings.product", "product", err)
	}
	return &p, nil
}

func (s *RatingService) load(ctx context.Context, id uint) (*models.ProductRating, error) {
	var r models.ProductRating
	if err := withRater(s.db.WithContext(ctx)).First(&r, id).Error; err != nil {
		return nil, storeErr("ratings.load", "rating", err)
	}
	return &r, nil
}

func statsOf(p *models.Product) ProductRatingStats {
	return ProductRatingStats{
		AverageRating:      p.AverageRating,
		TotalRatings:       p.TotalRatings,
		RatingDistribution: p.RatingDistribution,
	}
}

// lockProduct loads a live product, taking a row lock where the dialect
// supports one.
func lockProduct(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error; err != nil {
		return nil, storeErr("ratings.lock_product", "product", err)
	}
	return &p, nil
}

// verifiedPurchase reports whether the user has an order containing the
// product, matching orderID when one is given.
func verifiedPurchase(tx *gorm.DB, userID, productID uint, orderID *uint) (bool, error) {
	q := tx.Model(&models.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.customer_id = ? AND order_items.product_id = ?", userID, productID)
	if orderID != nil {
		q = q.Where("orders.id = ?", *orderID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type ratingBucket struct {
	Rating int
	Total  int
}

// recomputeAggregate rewrites the product's cached aggregate from its live
// ratings. Must run inside the transaction that changed the ratings.
func recomputeAggregate(tx *gorm.DB, productID uint) error {
	var buckets []ratingBucket
	err := tx.Model(&models.ProductRating{}).
		Select("rating, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Group("rating").
		Scan(&buckets).Error
	if err != nil {
		return err
	}

	var (
		dist  models.RatingDistribution
		total int
		sum   int
	)
	for _, b := range buckets {
		dist.Add(b.Rating, b.Total)
		total += b.Total
		sum += b.Rating * b.Total
	}
	avg := 0.0
	if total > 0 {
		avg = roundTo(float64(sum)/float64(total), 1)
	}

	return tx.Unscoped().Model(&models.Product{}).Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"average_rating": avg,
			"total_ratings":  total,
			"rating_one":     dist.One,
			"rating_two":     dist.Two,
			"rating_three":   dist.Three,
			"rating_four":    dist.Four,
			"rating_five":    dist.Five,
		}).Error
}
