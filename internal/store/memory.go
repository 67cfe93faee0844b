package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"catalog-service/internal/domain"
)

// MemoryStore keeps the catalog in process memory. It applies the same
// relational rules as the PostgreSQL schema through explicit checks run
// before every commit, so callers observe identical sentinel errors.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	categories map[int64]domain.Category
	products   map[int64]domain.Product
	skus       map[int64]domain.Sku
	users      map[int64]domain.User

	lastCategoryID int64
	lastProductID  int64
	lastSkuID      int64
	lastUserID     int64
}

var _ Storer = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for product timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:        time.Now,
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
		skus:       make(map[int64]domain.Sku),
		users:      make(map[int64]domain.User),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sortedKeys returns map keys in ascending id order, mirroring ORDER BY id.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// --- constraint checks ---

func (s *MemoryStore) checkCategoryColumns(c *domain.Category) error {
	if c.CountProducts < 0 {
		return fmt.Errorf("%w: categories_count_products_check", ErrConstraintViolation)
	}
	return nil
}

func (s *MemoryStore) checkProductColumns(p *domain.Product) error {
	if p.Price < 0 {
		return fmt.Errorf("%w: product_price_check", ErrConstraintViolation)
	}
	return nil
}

func (s *MemoryStore) checkProductUnique(p *domain.Product) error {
	for id, existing := range s.products {
		if id == p.ID {
			continue
		}
		if existing.Name == p.Name {
			return ErrProductNameExists
		}
		if existing.Description == p.Description {
			return ErrProductDescriptionExists
		}
	}
	return nil
}

func (s *MemoryStore) checkProductReferences(p *domain.Product) error {
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return ErrCategoryNotFound
		}
	}
	if p.ManagedByID != nil {
		if _, ok := s.users[*p.ManagedByID]; !ok {
			return ErrUserNotFound
		}
	}
	return nil
}

func (s *MemoryStore) checkSku(sku *domain.Sku) error {
	if _, ok := s.products[sku.ProductID]; !ok {
		return ErrProductNotFound
	}
	switch {
	case sku.Size < 0 || sku.Size > 999:
		return fmt.Errorf("%w: sku_size_check", ErrConstraintViolation)
	case !sku.MeasurementUnit.IsValid():
		return fmt.Errorf("%w: sku_measurement_unit_check", ErrConstraintViolation)
	case sku.SellingPrice < 0 || sku.CostPrice < 0 || sku.PlatformCommission < 0:
		return fmt.Errorf("%w: sku_price_check", ErrConstraintViolation)
	case !sku.Status.IsValid():
		return fmt.Errorf("%w: sku_status_check", ErrConstraintViolation)
	}
	return nil
}

func (s *MemoryStore) categoryInUse(id int64) bool {
	for _, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return true
		}
	}
	return false
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneProduct detaches the optional reference fields from the caller's copy.
func cloneProduct(p domain.Product) domain.Product {
	p.CategoryID = copyInt64Ptr(p.CategoryID)
	p.ManagedByID = copyInt64Ptr(p.ManagedByID)
	return p
}

// --- CategoryStorer Implementation ---

func (s *MemoryStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Category{Name: category.Name, IsActive: category.IsActive}
	if err := s.checkCategoryColumns(&c); err != nil {
		return nil, err
	}
	s.lastCategoryID++
	c.ID = s.lastCategoryID
	s.categories[c.ID] = c
	return &c, nil
}

func (s *MemoryStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, id := range sortedKeys(s.categories) {
		categories = append(categories, s.categories[id])
	}
	return categories, nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[category.ID]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	c.Name = category.Name
	c.IsActive = category.IsActive
	s.categories[c.ID] = c
	return &c, nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	if s.categoryInUse(id) {
		return ErrCategoryProtected
	}
	delete(s.categories, id)
	return nil
}

// SetCategoryProductCount records an externally computed count_products value.
// The catalog service never calls it; it exists for the aggregation job and tests.
func (s *MemoryStore) SetCategoryProductCount(id int64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return ErrCategoryNotFound
	}
	c.CountProducts = count
	if err := s.checkCategoryColumns(&c); err != nil {
		return err
	}
	s.categories[id] = c
	return nil
}

// --- ProductStorer Implementation ---

func (s *MemoryStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := cloneProduct(*product)
	p.ID = 0
	if err := s.checkProductColumns(&p); err != nil {
		return nil, err
	}
	if err := s.checkProductUnique(&p); err != nil {
		return nil, err
	}
	if err := s.checkProductReferences(&p); err != nil {
		return nil, err
	}

	now := s.now()
	p.CreatedAt = now
	p.EditedAt = now
	s.lastProductID++
	p.ID = s.lastProductID
	s.products[p.ID] = p

	out := cloneProduct(p)
	return &out, nil
}

func (s *MemoryStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []domain.Product{}
	for _, id := range sortedKeys(s.products) {
		p := s.products[id]
		if params.CategoryIDs != nil {
			if p.CategoryID == nil || !slices.Contains(params.CategoryIDs, *p.CategoryID) {
				continue
			}
		}
		products = append(products, cloneProduct(p))
	}

	if params.Limit > 0 {
		start := min(params.Offset, len(products))
		end := min(start+params.Limit, len(products))
		products = products[start:end]
	}
	return products, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, ErrProductNotFound
	}

	p := cloneProduct(*product)
	if err := s.checkProductColumns(&p); err != nil {
		return nil, err
	}
	if err := s.checkProductUnique(&p); err != nil {
		return nil, err
	}
	if err := s.checkProductReferences(&p); err != nil {
		return nil, err
	}

	p.CreatedAt = existing.CreatedAt
	p.EditedAt = s.now()
	s.products[p.ID] = p

	out := cloneProduct(p)
	return &out, nil
}

// DeleteProduct removes the product together with its SKUs.
func (s *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrProductNotFound
	}
	for skuID, sku := range s.skus {
		if sku.ProductID == id {
			delete(s.skus, skuID)
		}
	}
	delete(s.products, id)
	return nil
}

// --- SkuStorer Implementation ---

func (s *MemoryStore) CreateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := *sku
	if err := s.checkSku(&k); err != nil {
		return nil, err
	}
	s.lastSkuID++
	k.ID = s.lastSkuID
	s.skus[k.ID] = k
	return &k, nil
}

func (s *MemoryStore) GetSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.skus[id]
	if !ok {
		return nil, ErrSkuNotFound
	}
	return &k, nil
}

func (s *MemoryStore) ListSkus(ctx context.Context, params ListSkusParams) ([]domain.Sku, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skus := []domain.Sku{}
	for _, id := range sortedKeys(s.skus) {
		k := s.skus[id]
		if params.ProductID != nil && k.ProductID != *params.ProductID {
			continue
		}
		skus = append(skus, k)
	}
	return skus, nil
}

func (s *MemoryStore) UpdateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.skus[sku.ID]; !ok {
		return nil, ErrSkuNotFound
	}
	k := *sku
	if err := s.checkSku(&k); err != nil {
		return nil, err
	}
	s.skus[k.ID] = k
	return &k, nil
}

func (s *MemoryStore) DeleteSku(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.skus[id]; !ok {
		return ErrSkuNotFound
	}
	delete(s.skus, id)
	return nil
}

// --- UserStorer Implementation ---

func (s *MemoryStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return nil, ErrUsernameExists
		}
	}
	u := *user
	s.lastUserID++
	u.ID = s.lastUserID
	s.users[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// DeleteUser removes the user and clears managed_by on the products it managed.
func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	for pid, p := range s.products {
		if p.ManagedByID != nil && *p.ManagedByID == id {
			p.ManagedByID = nil
			s.products[pid] = p
		}
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
