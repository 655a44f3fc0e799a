package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type ProductInput struct {
	Name            string   `json:"name" binding:"required,max=100"`
	Description     string   `json:"description" binding:"required,max=500"`
	Price           *float64 `json:"price" binding:"required,gte=0"`
	Category        string   `json:"category" binding:"required,max=50"`
	Subcategory     string   `json:"subcategory" binding:"max=50"`
	ImageURL        string   `json:"image_url" binding:"max=500"`
	IsAvailable     *bool    `json:"is_available"`
	PreparationTime *int     `json:"preparation_time" binding:"omitempty,gte=1"`

	Calories      *float64 `json:"calories" binding:"omitempty,gte=0"`
	Protein       *float64 `json:"protein" binding:"omitempty,gte=0"`
	Carbohydrates *float64 `json:"carbohydrates" binding:"omitempty,gte=0"`
	Fat           *float64 `json:"fat" binding:"omitempty,gte=0"`
	Fiber         *float64 `json:"fiber" binding:"omitempty,gte=0"`
	Sugar         *float64 `json:"sugar" binding:"omitempty,gte=0"`
	Sodium        *float64 `json:"sodium" binding:"omitempty,gte=0"`

	Allergens    []string `json:"allergens"`
	Ingredients  []string `json:"ingredients"`
	IsVegetarian bool     `json:"is_vegetarian"`
	IsVegan      bool     `json:"is_vegan"`
	IsSpicy      bool     `json:"is_spicy"`
	SpiceLevel   int      `json:"spice_level" binding:"gte=0,lte=5"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Name            *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description     *string  `json:"description" binding:"omitempty,min=1,max=500"`
	Price           *float64 `json:"price" binding:"omitempty,gte=0"`
	Category        *string  `json:"category" binding:"omitempty,min=1,max=50"`
	Subcategory     *string  `json:"subcategory" binding:"omitempty,max=50"`
	ImageURL        *string  `json:"image_url" binding:"omitempty,max=500"`
	IsAvailable     *bool    `json:"is_available"`
	PreparationTime *int     `json:"preparation_time" binding:"omitempty,gte=1"`

	Calories      *float64 `json:"calories" binding:"omitempty,gte=0"`
	Protein       *float64 `json:"protein" binding:"omitempty,gte=0"`
	Carbohydrates *float64 `json:"carbohydrates" binding:"omitempty,gte=0"`
	Fat           *float64 `json:"fat" binding:"omitempty,gte=0"`
	Fiber         *float64 `json:"fiber" binding:"omitempty,gte=0"`
	Sugar         *float64 `json:"sugar" binding:"omitempty,gte=0"`
	Sodium        *float64 `json:"sodium" binding:"omitempty,gte=0"`

	Allergens    *[]string `json:"allergens"`
	Ingredients  *[]string `json:"ingredients"`
	IsVegetarian *bool     `json:"is_vegetarian"`
	IsVegan      *bool     `json:"is_vegan"`
	IsSpicy      *bool     `json:"is_spicy"`
	SpiceLevel   *int      `json:"spice_level" binding:"omitempty,gte=0,lte=5"`
}

type ProductFilter struct {
	Page
	Category     string   `form:"category"`
	BusinessID   uint     `form:"business_id"`
	Search       string   `form:"search"`
	MinPrice     *float64 `form:"min_price"`
	MaxPrice     *float64 `form:"max_price"`
	IsAvailable  *bool    `form:"is_available"`
	IsVegetarian *bool    `form:"is_vegetarian"`
	IsVegan      *bool    `form:"is_vegan"`
	IsSpicy      *bool    `form:"is_spicy"`
	MinCalories  *float64 `form:"min_calories"`
	MaxCalories  *float64 `form:"max_calories"`
	SortBy       string   `form:"sort_by"`
	SortOrder    string   `form:"sort_order"`
}

type ProductPage struct {
	Products   []models.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

// sortColumns whitelists the sortable columns.
var sortColumns = map[string]string{
	"created_at":     "created_at",
	"price":          "price",
	"name":           "name",
	"average_rating": "average_rating",
	"calories":       "calories",
}

func orderClause(sortBy, sortOrder, defaultBy, defaultOrder string) (string, error) {
	if sortBy == "" {
		sortBy = defaultBy
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		return "", apperr.Validation("sort_by must be one of created_at, price, name, average_rating, calories")
	}
	if sortOrder == "" {
		sortOrder = defaultOrder
	}
	switch strings.ToLower(sortOrder) {
	case "asc":
		return col + " asc, id asc", nil
	case "desc":
		return col + " desc, id desc", nil
	}
	return "", apperr.Validation("sort_order must be asc or desc")
}

type CatalogService struct {
	db *gorm.DB
}

func withBusiness(db *gorm.DB) *gorm.DB {
	return db.Preload("Business")
}

// List returns one page of live products matching f.
func (s *CatalogService) List(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	order, err := orderClause(f.SortBy, f.SortOrder, "created_at", "desc")
	if err != nil {
		return nil, err
	}
	p := f.Page.normalize()

	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.BusinessID != 0 {
		q = q.Where("business_id = ?", f.BusinessID)
	}
	if f.Search != "" {
		pat := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?", pat, pat, pat)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.IsAvailable != nil {
		q = q.Where("is_available = ?", *f.IsAvailable)
	}
	if f.IsVegetarian != nil {
		q = q.Where("is_vegetarian = ?", *f.IsVegetarian)
	}
	if f.IsVegan != nil {
		q = q.Where("is_vegan = ?", *f.IsVegan)
	}
	if f.IsSpicy != nil {
		q = q.Where("is_spicy = ?", *f.IsSpicy)
	}
	if f.MinCalories != nil {
		q = q.Where("calories >= ?", *f.MinCalories)
	}
	if f.MaxCalories != nil {
		q = q.Where("calories <= ?", *f.MaxCalories)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("catalog.list", err)
	}
	products := []models.Product{}
	if err := withBusiness(q).Order(order).Limit(p.Limit).Offset(p.offset()).Find(&products).Error; err != nil {
		return nil, apperr.Internal("catalog.list", err)
	}
	return &ProductPage{Products: products, Pagination: paginate(p, total)}, nil
}

// Search matches q against name, description and category of available
// products.
func (s *CatalogService) Search(ctx context.Context, q string, page Page) (*ProductPage, error) {
	if strings.TrimSpace(q) == "" {
		return nil, apperr.Validation("search query q is required")
	}
	available := true
	return s.List(ctx, ProductFilter{Page: page, Search: q, IsAvailable: &available, SortBy: "name", SortOrder: "asc"})
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := withBusiness(s.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return nil, storeErr("catalog.get", "product", err)
	}
	return &p, nil
}

// Categories lists the distinct categories of live products.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Distinct().Order("category").Pluck("category", &categories).Error
	if err != nil {
		return nil, apperr.Internal("catalog.categories", err)
	}
	return categories, nil
}

// ByBusiness lists the products of a live business.
func (s *CatalogService) ByBusiness(ctx context.Context, businessID uint, category string, available *bool) ([]models.Product, error) {
	db := s.db.WithContext(ctx)
	var b models.Business
	if err := db.First(&b, businessID).Error; err != nil {
		return nil, storeErr("catalog.by_business", "business", err)
	}
	q := db.Where("business_id = ?", b.ID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if available != nil {
		q = q.Where("is_available = ?", *available)
	}
	products := []models.Product{}
	if err := withBusiness(q).Order("name asc, id asc").Find(&products).Error; err != nil {
		return nil, apperr.Internal("catalog.by_business", err)
	}
	return products, nil
}

// Create adds a product to the caller's business.
func (s *CatalogService) Create(ctx context.Context, userID uint, in ProductInput) (*models.Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	b, err := businessOf(db, userID)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		BusinessID:      b.ID,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Price:           *in.Price,
		Category:        strings.TrimSpace(in.Category),
		Subcategory:     in.Subcategory,
		ImageURL:        in.ImageURL,
		IsAvailable:     true,
		PreparationTime: 15,
		Calories:        in.Calories,
		Protein:         in.Protein,
		Carbohydrates:   in.Carbohydrates,
		Fat:             in.Fat,
		Fiber:           in.Fiber,
		Sugar:           in.Sugar,
		Sodium:          in.Sodium,
		Allergens:       nonNil(in.Allergens),
		Ingredients:     nonNil(in.Ingredients),
		IsVegetarian:    in.IsVegetarian,
		IsVegan:         in.IsVegan,
		IsSpicy:         in.IsSpicy,
		SpiceLevel:      in.SpiceLevel,
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.PreparationTime != nil {
		p.PreparationTime = *in.PreparationTime
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		// A false is_available is a zero value; Create lets the column
		// default win and reads the stored true back into p.
		if in.IsAvailable != nil && !*in.IsAvailable {
			return tx.Model(p).Update("is_available", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("catalog.create", err)
	}
	return s.Get(ctx, p.ID)
}

// ownedProduct loads productID if it belongs to the caller's business.
// Products of other businesses are reported as missing.
func ownedProduct(db *gorm.DB, userID, productID uint) (*models.Product, error) {
	b, err := businessOf(db, userID)
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := db.Where("id = ? AND business_id = ?", productID, b.ID).First(&p).Error; err != nil {
		return nil, storeErr("catalog.owned_product", "product", err)
	}
	return &p, nil
}

func (s *CatalogService) Update(ctx context.Context, userID, productID uint, in ProductUpdate) (*models.Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p, err := ownedProduct(db, userID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	setFloat := func(col string, v *float64) {
		if v != nil {
			updates[col] = *v
		}
	}
	setBool := func(col string, v *bool) {
		if v != nil {
			updates[col] = *v
		}
	}
	setInt := func(col string, v *int) {
		if v != nil {
			updates[col] = *v
		}
	}

	setString("name", in.Name)
	setString("description", in.Description)
	setFloat("price", in.Price)
	setString("category", in.Category)
	setString("subcategory", in.Subcategory)
	setString("image_url", in.ImageURL)
	setBool("is_available", in.IsAvailable)
	setInt("preparation_time", in.PreparationTime)
	setFloat("calories", in.Calories)
	setFloat("protein", in.Protein)
	setFloat("carbohydrates", in.Carbohydrates)
	setFloat("fat", in.Fat)
	setFloat("fiber", in.Fiber)
	setFloat("sugar", in.Sugar)
	setFloat("sodium", in.Sodium)
	setBool("is_vegetarian", in.IsVegetarian)
	setBool("is_vegan", in.IsVegan)
	setBool("is_spicy", in.IsSpicy)
	setInt("spice_level", in.SpiceLevel)

	if in.Allergens != nil {
		p.Allergens = nonNil(*in.Allergens)
	}
	if in.Ingredients != nil {
		p.Ingredients = nonNil(*in.Ingredients)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(p).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Allergens != nil || in.Ingredients != nil {
			return tx.Model(p).Select("Allergens", "Ingredients").Updates(p).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("catalog.update", err)
	}
	return s.Get(ctx, p.ID)
}

// Delete tombstones the product. Orders keep their line item snapshots and
// existing ratings stay.
func (s *CatalogService) Delete(ctx context.Context, userID, productID uint) error {
	db := s.db.WithContext(ctx)
	p, err := ownedProduct(db, userID, productID)
	if err != nil {
		return err
	}
	if err := db.Delete(p).Error; err != nil {
		return apperr.Internal("catalog.delete", err)
	}
	return nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
