package serializer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-service/internal/domain"
)

func ptr[T any](v T) *T { return &v }

type nilSerializer struct{}

func (nilSerializer) SerializeProducts([]domain.Product) []any { return nil }

func TestCategorySerializer_EmptyProductsIsEmptyList(t *testing.T) {
	s := NewCategorySerializer(nil)

	rep := s.Serialize(domain.Category{ID: 1, Name: "Dairy", IsActive: true, CountProducts: 0}, nil)

	require.NotNil(t, rep.Products)
	assert.Empty(t, rep.Products)

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Dairy","is_active":true,"count_products":0,"products":[]}`, string(raw))
}

func TestCategorySerializer_NilFromCustomSerializer(t *testing.T) {
	s := NewCategorySerializer(nilSerializer{})

	rep := s.Serialize(domain.Category{Name: "Dairy"}, []domain.Product{{ID: 1}})

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"products":[]`)
}

func TestCategorySerializer_ProductsInOrder(t *testing.T) {
	s := NewCategorySerializer(ProductSummaries{})
	products := []domain.Product{
		{ID: 3, Name: "Milk", Price: 30, IsRefrigerated: true, Description: "hidden"},
		{ID: 1, Name: "Curd", Price: 45},
		{ID: 2, Name: "Paneer", Price: 90, IsRefrigerated: true},
	}

	rep := s.Serialize(domain.Category{Name: "Dairy", IsActive: true, CountProducts: 3}, products)

	require.Len(t, rep.Products, 3)
	assert.Equal(t, ProductSummary{ID: 3, Name: "Milk", Price: 30, IsRefrigerated: true}, rep.Products[0])
	assert.Equal(t, ProductSummary{ID: 1, Name: "Curd", Price: 45}, rep.Products[1])
	assert.Equal(t, ProductSummary{ID: 2, Name: "Paneer", Price: 90, IsRefrigerated: true}, rep.Products[2])
	assert.Equal(t, 3, rep.CountProducts)
}

func TestCategorySerializer_SerializeMany(t *testing.T) {
	s := NewCategorySerializer(nil)
	categories := []domain.Category{
		{ID: 2, Name: "Bakery", IsActive: true},
		{ID: 1, Name: "Dairy", IsActive: false, CountProducts: 2},
	}
	products := []domain.Product{
		{ID: 10, Name: "Milk", CategoryID: ptr(int64(1))},
		{ID: 11, Name: "Loose"},
		{ID: 12, Name: "Curd", CategoryID: ptr(int64(1))},
	}

	reps := s.SerializeMany(categories, GroupByCategory(products))

	require.Len(t, reps, 2)
	assert.Equal(t, "Bakery", reps[0].Name)
	assert.Empty(t, reps[0].Products)
	assert.NotNil(t, reps[0].Products)
	assert.Equal(t, "Dairy", reps[1].Name)
	require.Len(t, reps[1].Products, 2)
	assert.Equal(t, int64(10), reps[1].Products[0].(ProductSummary).ID)
	assert.Equal(t, int64(12), reps[1].Products[1].(ProductSummary).ID)
}

func TestGroupByCategory_DropsUncategorised(t *testing.T) {
	grouped := GroupByCategory([]domain.Product{{ID: 1}, {ID: 2, CategoryID: ptr(int64(5))}})
	assert.Len(t, grouped, 1)
	assert.Len(t, grouped[5], 1)
}

func TestSerializeSku(t *testing.T) {
	rep := SerializeSku(domain.Sku{
		ID:                 4,
		ProductID:          3,
		Size:               500,
		MeasurementUnit:    domain.UnitMilliliter,
		SellingPrice:       100,
		PlatformCommission: 20,
		CostPrice:          80,
		Status:             domain.SkuStatusApproved,
	})

	assert.Equal(t, "Milliliters", rep.MeasurementUnitDisplay)
	assert.Equal(t, "Approved", rep.StatusDisplay)
	assert.InDelta(t, 25.0, rep.MarkupPercentage, 1e-9)

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"measurement_unit":"mL"`)
	assert.Contains(t, string(raw), `"status":1`)
}

func TestSerializeSkus_ZeroCost(t *testing.T) {
	reps := SerializeSkus([]domain.Sku{{ID: 1, PlatformCommission: 5, MeasurementUnit: domain.UnitPiece}})
	require.Len(t, reps, 1)
	assert.Zero(t, reps[0].MarkupPercentage)
	assert.Equal(t, "Piece", reps[0].MeasurementUnitDisplay)
	assert.Equal(t, "Pending for approval", reps[0].StatusDisplay)
}
