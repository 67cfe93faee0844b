package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-service/internal/cache"
	"catalog-service/internal/domain"
	"catalog-service/internal/serializer"
	"catalog-service/internal/store"
)

func ptr[T any](v T) *T { return &v }

// countingStore records how often products are listed. afterListProducts,
// when set, runs once after the next listing has read its rows.
type countingStore struct {
	*store.MemoryStore
	listProductsCalls int
	afterListProducts func()
}

func (s *countingStore) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	s.listProductsCalls++
	products, err := s.MemoryStore.ListProducts(ctx, params)
	if hook := s.afterListProducts; hook != nil {
		s.afterListProducts = nil
		hook()
	}
	return products, err
}

type MockListingCache struct {
	mock.Mock
}

func (m *MockListingCache) GetCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, int64, bool, error) {
	args := m.Called(ctx)
	var listing []serializer.CategoryRepresentation
	if v := args.Get(0); v != nil {
		listing = v.([]serializer.CategoryRepresentation)
	}
	return listing, args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *MockListingCache) SetCategoryListing(ctx context.Context, generation int64, listing []serializer.CategoryRepresentation) error {
	return m.Called(ctx, generation, listing).Error(0)
}

func (m *MockListingCache) InvalidateCategoryListing(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *countingStore) {
	t.Helper()
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	return NewService(st, opts...), st
}

func TestSaveProduct_NormalisesNameOnCreateAndUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.SaveProduct(ctx, &domain.Product{Name: "  organic milk  ", Price: 64, Description: "Milk from grass fed cows"})
	require.NoError(t, err)
	assert.Equal(t, "Organic Milk", created.Name)

	created.Name = "ORGANIC  whole MILK "
	updated, err := svc.SaveProduct(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Organic  Whole Milk", updated.Name)

	stored, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Organic  Whole Milk", stored.Name)
}

func TestSaveProduct_UniquenessAfterNormalisation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveProduct(ctx, &domain.Product{Name: "organic milk", Description: "first"})
	require.NoError(t, err)

	_, err = svc.SaveProduct(ctx, &domain.Product{Name: "  ORGANIC MILK", Description: "second"})
	assert.True(t, errors.Is(err, store.ErrProductNameExists))

	_, err = svc.SaveProduct(ctx, &domain.Product{Name: "Curd", Description: "first"})
	assert.True(t, errors.Is(err, store.ErrProductDescriptionExists))
}

func TestSaveProduct_ValidationFailsBeforeStore(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveProduct(ctx, &domain.Product{Name: "   ", Description: "d"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SaveProduct(ctx, &domain.Product{Name: "Milk", Description: "d", Price: -5})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	products, err := st.MemoryStore.ListProducts(ctx, store.ListProductsParams{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSaveSku_CreationInvariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})
	require.NoError(t, err)

	sku, err := svc.SaveSku(ctx, &domain.Sku{
		ProductID:          p.ID,
		Size:               500,
		PlatformCommission: 20,
		CostPrice:          80,
		SellingPrice:       9999,
		Status:             domain.SkuStatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), sku.SellingPrice)
	assert.Equal(t, domain.SkuStatusPending, sku.Status)
	assert.Equal(t, domain.UnitGram, sku.MeasurementUnit)
	assert.InDelta(t, 25.0, sku.MarkupPercentage(), 1e-9)
}

func TestSaveSku_UpdateDoesNotRecompute(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})
	sku, err := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 1, MeasurementUnit: domain.UnitLiter, PlatformCommission: 5, CostPrice: 50})
	require.NoError(t, err)
	require.Equal(t, int64(55), sku.SellingPrice)

	sku.Status = domain.SkuStatusApproved
	sku.CostPrice = 70
	updated, err := svc.SaveSku(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, domain.SkuStatusApproved, updated.Status)
	assert.Equal(t, int64(55), updated.SellingPrice, "selling price is only derived on creation")
	assert.Equal(t, int64(70), updated.CostPrice)
}

func TestSaveSku_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})

	_, err := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 1000})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: -1})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, CostPrice: -1})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SaveSku(ctx, &domain.Sku{ProductID: 999, Size: 1})
	assert.True(t, errors.Is(err, store.ErrProductNotFound))

	sku, err := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 999})
	require.NoError(t, err)
	assert.Equal(t, int32(999), sku.Size)
}

func TestPatchSku_StatusOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})
	sku, err := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 500, PlatformCommission: 4, CostPrice: 28})
	require.NoError(t, err)

	patched, err := svc.PatchSku(ctx, sku.ID, SkuPatch{Status: ptr(domain.SkuStatusDiscontinued)})
	require.NoError(t, err)
	assert.Equal(t, domain.SkuStatusDiscontinued, patched.Status)
	assert.Equal(t, int64(32), patched.SellingPrice)

	// Transitions are not enforced; going back to pending is accepted.
	patched, err = svc.PatchSku(ctx, sku.ID, SkuPatch{Status: ptr(domain.SkuStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, domain.SkuStatusPending, patched.Status)
}

func TestPatchSku_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})
	sku, _ := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 500})

	_, err := svc.PatchSku(ctx, sku.ID, SkuPatch{})
	assert.True(t, errors.Is(err, ErrEmptyPatch))

	_, err = svc.PatchSku(ctx, 404, SkuPatch{Size: ptr(int32(1))})
	assert.True(t, errors.Is(err, store.ErrSkuNotFound))

	_, err = svc.PatchSku(ctx, sku.ID, SkuPatch{Status: ptr(domain.SkuStatus(9))})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDeleteCategory_Protected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.SaveCategory(ctx, &domain.Category{Name: "Dairy", IsActive: true})
	require.NoError(t, err)
	p, err := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d", CategoryID: ptr(c.ID)})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, c.ID)
	assert.True(t, errors.Is(err, store.ErrCategoryProtected))

	_, err = svc.GetCategory(ctx, c.ID)
	assert.NoError(t, err)
	_, err = svc.GetProduct(ctx, p.ID)
	assert.NoError(t, err)
}

func TestDeleteProduct_CascadesSkus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d"})
	s1, _ := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 500})
	s2, _ := svc.SaveSku(ctx, &domain.Sku{ProductID: p.ID, Size: 1, MeasurementUnit: domain.UnitLiter})

	skus, err := svc.ListProductSkus(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, skus, 2)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))

	for _, id := range []int64{s1.ID, s2.ID} {
		_, err := svc.GetSku(ctx, id)
		assert.True(t, errors.Is(err, store.ErrSkuNotFound))
	}
	_, err = svc.ListProductSkus(ctx, p.ID)
	assert.True(t, errors.Is(err, store.ErrProductNotFound))
}

func TestDeleteUser_ClearsManagedBy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, &domain.User{Username: "asha", IsStaff: true})
	require.NoError(t, err)
	p, err := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "d", ManagedByID: ptr(u.ID)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ManagedByID)

	_, err = svc.CreateUser(ctx, &domain.User{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestListCategoryListing(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	dairy, _ := svc.SaveCategory(ctx, &domain.Category{Name: "Dairy", IsActive: true})
	empty, _ := svc.SaveCategory(ctx, &domain.Category{Name: "Frozen", IsActive: false})
	_, err := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Price: 30, Description: "d1", IsRefrigerated: true, CategoryID: ptr(dairy.ID)})
	require.NoError(t, err)
	_, err = svc.SaveProduct(ctx, &domain.Product{Name: "loose rice", Price: 70, Description: "d2"})
	require.NoError(t, err)
	_, err = svc.SaveProduct(ctx, &domain.Product{Name: "curd", Price: 45, Description: "d3", CategoryID: ptr(dairy.ID)})
	require.NoError(t, err)
	require.NoError(t, st.SetCategoryProductCount(dairy.ID, 2))
	st.listProductsCalls = 0

	listing, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, st.listProductsCalls, "products should be fetched with one query")
	require.Len(t, listing, 2)
	assert.Equal(t, "Dairy", listing[0].Name)
	assert.Equal(t, 2, listing[0].CountProducts)
	require.Len(t, listing[0].Products, 2)
	assert.Equal(t, "Milk", listing[0].Products[0].(serializer.ProductSummary).Name)
	assert.Equal(t, "Curd", listing[0].Products[1].(serializer.ProductSummary).Name)

	assert.Equal(t, empty.Name, listing[1].Name)
	assert.False(t, listing[1].IsActive)
	assert.NotNil(t, listing[1].Products)
	assert.Empty(t, listing[1].Products)
}

func TestListCategoryListing_NoCategories(t *testing.T) {
	svc, st := newTestService(t)

	listing, err := svc.ListCategoryListing(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, listing)
	assert.Empty(t, listing)
	assert.Zero(t, st.listProductsCalls)
}

func TestListCategoryListing_CacheHit(t *testing.T) {
	cache := new(MockListingCache)
	svc, st := newTestService(t, WithListingCache(cache))
	ctx := context.Background()

	cached := []serializer.CategoryRepresentation{{Name: "Cached", Products: []any{}}}
	cache.On("GetCategoryListing", ctx).Return(cached, int64(3), true, nil).Once()

	listing, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)
	assert.Equal(t, cached, listing)
	assert.Zero(t, st.listProductsCalls)
	cache.AssertExpectations(t)
}

func TestListCategoryListing_CacheMissStoresUnderReadGeneration(t *testing.T) {
	cache := new(MockListingCache)
	svc, _ := newTestService(t, WithListingCache(cache))
	ctx := context.Background()

	cache.On("InvalidateCategoryListing", ctx).Return(nil).Once()
	_, err := svc.SaveCategory(ctx, &domain.Category{Name: "Dairy", IsActive: true})
	require.NoError(t, err)

	cache.On("GetCategoryListing", ctx).Return(nil, int64(4), false, nil).Once()
	cache.On("SetCategoryListing", ctx, int64(4), mock.AnythingOfType("[]serializer.CategoryRepresentation")).Return(errors.New("redis down")).Once()

	listing, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err, "cache failures must not fail the listing")
	require.Len(t, listing, 1)
	assert.Equal(t, "Dairy", listing[0].Name)

	cache.AssertExpectations(t)
}

func TestListCategoryListing_CacheReadFailureSkipsWrite(t *testing.T) {
	cache := new(MockListingCache)
	svc, _ := newTestService(t, WithListingCache(cache))
	ctx := context.Background()

	cache.On("InvalidateCategoryListing", ctx).Return(nil).Once()
	_, err := svc.SaveCategory(ctx, &domain.Category{Name: "Dairy", IsActive: true})
	require.NoError(t, err)

	cache.On("GetCategoryListing", ctx).Return(nil, int64(0), false, errors.New("redis down")).Once()

	listing, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 1)

	cache.AssertExpectations(t)
	cache.AssertNotCalled(t, "SetCategoryListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestListCategoryListing_WriteDuringReadIsNotServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc, st := newTestService(t, WithListingCache(cache.NewRedisListingCache(client, time.Minute, zap.NewNop())))
	ctx := context.Background()

	dairy, err := svc.SaveCategory(ctx, &domain.Category{Name: "Dairy", IsActive: true})
	require.NoError(t, err)

	// The product is committed after the listing read its rows but before
	// the listing is cached.
	st.afterListProducts = func() {
		_, err := svc.SaveProduct(ctx, &domain.Product{Name: "milk", Description: "Toned milk", CategoryID: ptr(dairy.ID)})
		require.NoError(t, err)
	}
	first, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Empty(t, first[0].Products)

	second, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Len(t, second[0].Products, 1, "the listing built before the write must not be served")
	assert.Equal(t, 2, st.listProductsCalls)

	third, err := svc.ListCategoryListing(ctx)
	require.NoError(t, err)
	assert.Len(t, third[0].Products, 1)
	assert.Equal(t, 2, st.listProductsCalls, "a fresh listing is served from the cache")
}
