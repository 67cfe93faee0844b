package store

import (
	"context"

	"catalog-service/internal/domain"
)

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error) // All categories in storage order
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error // ErrCategoryProtected while products reference it
}

// ListProductsParams filters product listings. Zero values mean "no filter".
type ListProductsParams struct {
	CategoryIDs []int64 // Products belonging to any of these categories
	Limit       int     // 0 returns every match
	Offset      int
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error // Cascades to the product's SKUs
}

// ListSkusParams filters SKU listings.
type ListSkusParams struct {
	ProductID *int64
}

// SkuStorer defines the database operations for SKUs.
type SkuStorer interface {
	CreateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error)
	GetSkuByID(ctx context.Context, id int64) (*domain.Sku, error)
	ListSkus(ctx context.Context, params ListSkusParams) ([]domain.Sku, error)
	UpdateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error)
	DeleteSku(ctx context.Context, id int64) error
}

// UserStorer defines the operations on the identities products are managed by.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error // Clears managed_by on the user's products
}

// Storer is the full set of repositories a backend provides.
type Storer interface {
	CategoryStorer
	ProductStorer
	SkuStorer
	UserStorer
	Ping(ctx context.Context) error
	Close() error
}
