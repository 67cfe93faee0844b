// Package serializer maps catalog entities to their transport representations.
// Every mapping here is read-only.
package serializer

import (
	"catalog-service/internal/domain"
)

// ProductListSerializer turns products into list summaries. Implementations
// must return exactly one summary per input product, in input order.
type ProductListSerializer interface {
	SerializeProducts(products []domain.Product) []any
}

// ProductSummary is the compact product shape embedded in category listings.
type ProductSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Price          int32  `json:"price"`
	IsRefrigerated bool   `json:"is_refrigerated"`
}

// ProductSummaries is the default ProductListSerializer.
type ProductSummaries struct{}

func (ProductSummaries) SerializeProducts(products []domain.Product) []any {
	out := make([]any, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{
			ID:             p.ID,
			Name:           p.Name,
			Price:          p.Price,
			IsRefrigerated: p.IsRefrigerated,
		})
	}
	return out
}

// CategoryRepresentation is a category with its products nested.
type CategoryRepresentation struct {
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	CountProducts int    `json:"count_products"`
	Products      []any  `json:"products"`
}

// CategorySerializer composes categories with their products.
type CategorySerializer struct {
	products ProductListSerializer
}

// NewCategorySerializer returns a CategorySerializer that summarises products
// with ps, or with ProductSummaries when ps is nil.
func NewCategorySerializer(ps ProductListSerializer) *CategorySerializer {
	if ps == nil {
		ps = ProductSummaries{}
	}
	return &CategorySerializer{products: ps}
}

// Serialize builds the representation of one category. products are the
// products referencing it, in storage order.
func (s *CategorySerializer) Serialize(category domain.Category, products []domain.Product) CategoryRepresentation {
	summaries := s.products.SerializeProducts(products)
	if summaries == nil {
		summaries = []any{}
	}
	return CategoryRepresentation{
		Name:          category.Name,
		IsActive:      category.IsActive,
		CountProducts: category.CountProducts,
		Products:      summaries,
	}
}

// SerializeMany serializes categories in the given order. productsByCategory
// is keyed by category id; categories without an entry get an empty list.
func (s *CategorySerializer) SerializeMany(categories []domain.Category, productsByCategory map[int64][]domain.Product) []CategoryRepresentation {
	out := make([]CategoryRepresentation, 0, len(categories))
	for _, c := range categories {
		out = append(out, s.Serialize(c, productsByCategory[c.ID]))
	}
	return out
}

// GroupByCategory buckets products by category id, keeping their relative
// order. Products without a category are dropped.
func GroupByCategory(products []domain.Product) map[int64][]domain.Product {
	grouped := make(map[int64][]domain.Product)
	for _, p := range products {
		if p.CategoryID == nil {
			continue
		}
		grouped[*p.CategoryID] = append(grouped[*p.CategoryID], p)
	}
	return grouped
}
