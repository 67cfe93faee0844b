// Package catalog holds the catalog use cases: the save rules for categories,
// products and SKUs, and the nested category listing.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"catalog-service/internal/domain"
	"catalog-service/internal/serializer"
	"catalog-service/internal/store"
)

var ErrEmptyPatch = errors.New("catalog: patch does not change any field")

// ListingCache stores the serialized category listing between writes.
//
// GetCategoryListing also reports the cache generation current at the time of
// the read; a listing built after that read is stored under it with
// SetCategoryListing. InvalidateCategoryListing advances the generation, so a
// listing stored under an older one is never served.
type ListingCache interface {
	GetCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, int64, bool, error)
	SetCategoryListing(ctx context.Context, generation int64, listing []serializer.CategoryRepresentation) error
	InvalidateCategoryListing(ctx context.Context) error
}

// Service implements the catalog operations on top of the store repositories.
type Service struct {
	categories store.CategoryStorer
	products   store.ProductStorer
	skus       store.SkuStorer
	users      store.UserStorer

	serializer *serializer.CategorySerializer
	cache      ListingCache
	logger     *zap.Logger
}

type Option func(*Service)

// WithListingCache enables caching of the category listing.
func WithListingCache(c ListingCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithProductSerializer replaces the product summary used inside category listings.
func WithProductSerializer(ps serializer.ProductListSerializer) Option {
	return func(s *Service) {
		s.serializer = serializer.NewCategorySerializer(ps)
	}
}

func NewService(st store.Storer, opts ...Option) *Service {
	s := &Service{
		categories: st,
		products:   st,
		skus:       st,
		users:      st,
		serializer: serializer.NewCategorySerializer(nil),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCategoryListing(ctx); err != nil {
		s.logger.Warn("failed to invalidate category listing cache", zap.Error(err))
	}
}

// --- Categories ---

// SaveCategory creates the category when its ID is zero and updates it otherwise.
func (s *Service) SaveCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	const op = "catalog.SaveCategory"

	if err := domain.Validate(category); err != nil {
		return nil, err
	}

	var (
		saved *domain.Category
		err   error
	)
	if category.ID == 0 {
		saved, err = s.categories.CreateCategory(ctx, category)
	} else {
		saved, err = s.categories.UpdateCategory(ctx, category)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateListing(ctx)
	s.logger.Info("category saved", zap.Int64("category_id", saved.ID))
	return saved, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categories.GetCategoryByID(ctx, id)
}

// DeleteCategory fails with store.ErrCategoryProtected while products reference it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("catalog.DeleteCategory: %w", err)
	}
	s.invalidateListing(ctx)
	s.logger.Info("category deleted", zap.Int64("category_id", id))
	return nil
}

// ListCategoryListing returns every category, in storage order, with the
// summaries of the products that reference it. Products are fetched with a
// single query for all categories.
func (s *Service) ListCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, error) {
	const op = "catalog.ListCategoryListing"

	// The generation is read before the store so a write committed during
	// this call makes the stored result stale.
	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		listing, gen, ok, err := s.cache.GetCategoryListing(ctx)
		switch {
		case err != nil:
			s.logger.Warn("category listing cache read failed", zap.Error(err))
		case ok:
			return listing, nil
		default:
			generation, cacheable = gen, true
		}
	}

	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(categories) == 0 {
		return []serializer.CategoryRepresentation{}, nil
	}

	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	products, err := s.products.ListProducts(ctx, store.ListProductsParams{CategoryIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	listing := s.serializer.SerializeMany(categories, serializer.GroupByCategory(products))

	if cacheable {
		if err := s.cache.SetCategoryListing(ctx, generation, listing); err != nil {
			s.logger.Warn("category listing cache write failed", zap.Error(err))
		}
	}
	return listing, nil
}

// --- Products ---

// SaveProduct normalises the name, validates and persists the product.
func (s *Service) SaveProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	const op = "catalog.SaveProduct"

	product.PrepareSave()
	if err := domain.Validate(product); err != nil {
		return nil, err
	}

	var (
		saved *domain.Product
		err   error
	)
	if product.ID == 0 {
		saved, err = s.products.CreateProduct(ctx, product)
	} else {
		saved, err = s.products.UpdateProduct(ctx, product)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateListing(ctx)
	s.logger.Info("product saved", zap.Int64("product_id", saved.ID), zap.String("name", saved.Name))
	return saved, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetProductByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	products, err := s.products.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("catalog.ListProducts: %w", err)
	}
	return products, nil
}

// DeleteProduct removes the product and, with it, all of its SKUs.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("catalog.DeleteProduct: %w", err)
	}
	s.invalidateListing(ctx)
	s.logger.Info("product deleted", zap.Int64("product_id", id))
	return nil
}

// --- SKUs ---

// SaveSku persists sku. New SKUs start Pending with selling_price derived from
// commission and cost; existing SKUs are written exactly as given.
func (s *Service) SaveSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	const op = "catalog.SaveSku"

	isNew := sku.IsNew()
	sku.PrepareSave()
	if err := domain.Validate(sku); err != nil {
		return nil, err
	}

	var (
		saved *domain.Sku
		err   error
	)
	if isNew {
		saved, err = s.skus.CreateSku(ctx, sku)
	} else {
		saved, err = s.skus.UpdateSku(ctx, sku)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("sku saved",
		zap.Int64("sku_id", saved.ID),
		zap.Int64("product_id", saved.ProductID),
		zap.String("status", saved.Status.Label()),
	)
	return saved, nil
}

// SkuPatch carries the fields of a partial SKU update. Nil fields are kept.
type SkuPatch struct {
	Size               *int32                  `json:"size"`
	MeasurementUnit    *domain.MeasurementUnit `json:"measurement_unit"`
	SellingPrice       *int64                  `json:"selling_price"`
	PlatformCommission *int32                  `json:"platform_commission"`
	CostPrice          *int64                  `json:"cost_price"`
	Status             *domain.SkuStatus       `json:"status"`
}

func (p SkuPatch) isEmpty() bool {
	return p.Size == nil && p.MeasurementUnit == nil && p.SellingPrice == nil &&
		p.PlatformCommission == nil && p.CostPrice == nil && p.Status == nil
}

func (p SkuPatch) apply(sku *domain.Sku) {
	if p.Size != nil {
		sku.Size = *p.Size
	}
	if p.MeasurementUnit != nil {
		sku.MeasurementUnit = *p.MeasurementUnit
	}
	if p.SellingPrice != nil {
		sku.SellingPrice = *p.SellingPrice
	}
	if p.PlatformCommission != nil {
		sku.PlatformCommission = *p.PlatformCommission
	}
	if p.CostPrice != nil {
		sku.CostPrice = *p.CostPrice
	}
	if p.Status != nil {
		sku.Status = *p.Status
	}
}

// PatchSku applies the supplied fields to an existing SKU. Nothing is
// recomputed: changing the cost leaves selling_price as stored.
func (s *Service) PatchSku(ctx context.Context, id int64, patch SkuPatch) (*domain.Sku, error) {
	const op = "catalog.PatchSku"

	if patch.isEmpty() {
		return nil, ErrEmptyPatch
	}

	sku, err := s.skus.GetSkuByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	patch.apply(sku)
	if err := domain.Validate(sku); err != nil {
		return nil, err
	}

	updated, err := s.skus.UpdateSku(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("sku patched", zap.Int64("sku_id", id), zap.String("status", updated.Status.Label()))
	return updated, nil
}

func (s *Service) GetSku(ctx context.Context, id int64) (*domain.Sku, error) {
	return s.skus.GetSkuByID(ctx, id)
}

// ListProductSkus returns the SKUs of one product, or store.ErrProductNotFound.
func (s *Service) ListProductSkus(ctx context.Context, productID int64) ([]domain.Sku, error) {
	const op = "catalog.ListProductSkus"

	if _, err := s.products.GetProductByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	skus, err := s.skus.ListSkus(ctx, store.ListSkusParams{ProductID: &productID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return skus, nil
}

func (s *Service) DeleteSku(ctx context.Context, id int64) error {
	if err := s.skus.DeleteSku(ctx, id); err != nil {
		return fmt.Errorf("catalog.DeleteSku: %w", err)
	}
	s.logger.Info("sku deleted", zap.Int64("sku_id", id))
	return nil
}

// --- Users ---

func (s *Service) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := domain.Validate(user); err != nil {
		return nil, err
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("catalog.CreateUser: %w", err)
	}
	s.logger.Info("user created", zap.Int64("user_id", created.ID), zap.Bool("is_staff", created.IsStaff))
	return created, nil
}

// DeleteUser removes the user; products it managed lose their manager.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("catalog.DeleteUser: %w", err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}
