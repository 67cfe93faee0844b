package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-service/internal/auth"
	"catalog-service/internal/catalog"
	"catalog-service/internal/domain"
	"catalog-service/internal/serializer"
	"catalog-service/internal/store"
)

// MockCatalog is a mock implementation of Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, error) {
	args := m.Called(ctx)
	var listing []serializer.CategoryRepresentation
	if arg0 := args.Get(0); arg0 != nil {
		listing = arg0.([]serializer.CategoryRepresentation)
	}
	return listing, args.Error(1)
}

func (m *MockCatalog) SaveCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalog) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalog) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog) SaveProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalog) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockCatalog) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog) SaveSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sku), args.Error(1)
}

func (m *MockCatalog) PatchSku(ctx context.Context, id int64, patch catalog.SkuPatch) (*domain.Sku, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sku), args.Error(1)
}

func (m *MockCatalog) GetSku(ctx context.Context, id int64) (*domain.Sku, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sku), args.Error(1)
}

func (m *MockCatalog) ListProductSkus(ctx context.Context, productID int64) ([]domain.Sku, error) {
	args := m.Called(ctx, productID)
	var skus []domain.Sku
	if arg0 := args.Get(0); arg0 != nil {
		skus = arg0.([]domain.Sku)
	}
	return skus, args.Error(1)
}

func (m *MockCatalog) DeleteSku(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockCatalog) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

const testJWTSecret = "api-test-secret"

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(testJWTSecret, time.Hour)
}

func issueToken(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, err := newTestTokens().IssueToken(identity)
	require.NoError(t, err)
	return token
}

// newTestUsers stores the callers used across the handler tests: asha
// (staff, id 1) and ravi (id 2).
func newTestUsers(t *testing.T) *store.MemoryStore {
	t.Helper()
	users := store.NewMemoryStore()
	asha, err := users.CreateUser(context.Background(), &domain.User{Username: "asha", IsStaff: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), asha.ID)
	ravi, err := users.CreateUser(context.Background(), &domain.User{Username: "ravi"})
	require.NoError(t, err)
	require.Equal(t, int64(2), ravi.ID)
	return users
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, c Catalog) *httptest.Server {
	t.Helper()
	return setupTestChiServerWithUsers(t, c, newTestUsers(t))
}

// setupTestChiServerWithUsers resolves callers against users.
func setupTestChiServerWithUsers(t *testing.T, c Catalog, users auth.UserLookup) *httptest.Server {
	t.Helper()
	handler := NewHTTPHandler(c, auth.NewResolver(newTestTokens(), users), auth.IsStaff, zap.NewNop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// staffRequest builds a request carrying a staff bearer token.
func staffRequest(t *testing.T, method, url string, body []byte) *http.Request {
	t.Helper()
	return authorizedRequest(t, method, url, body, auth.Identity{UserID: 1, Username: "asha", IsStaff: true})
}

func authorizedRequest(t *testing.T, method, url string, body []byte, identity auth.Identity) *http.Request {
	t.Helper()
	req := newRequest(t, method, url, body)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, identity))
	return req
}

func newRequest(t *testing.T, method, url string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	require.NoError(t, err)
	return req
}

// PtrTo returns a pointer to v.
func PtrTo[T any](v T) *T {
	return &v
}
