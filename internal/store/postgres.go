package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"catalog-service/internal/domain"
)

// PostgreSQL error codes the store translates into sentinel errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

const (
	categoryColumns = "id, name, is_active, count_products"
	productColumns  = "id, name, price, description, is_refrigerated, category_id, managed_by_id, created_at, edited_at, ingredients"
	skuColumns      = "id, product_id, size, measurement_unit, selling_price, platform_commission, cost_price, status"
	userColumns     = "id, username, is_staff"
)

// PostgresStore implements the catalog repositories using PostgreSQL.
// Referential rules (protect, cascade, set-null) and uniqueness are enforced by
// the schema; violations are reported as the store's sentinel errors.
type PostgresStore struct {
	db *sql.DB
}

var _ Storer = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func asPQError(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return nil
}

func checkViolation(err error) error {
	if pqErr := asPQError(err); pqErr != nil && pqErr.Code == pqCheckViolation {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pqErr.Constraint)
	}
	return nil
}

// --- CategoryStorer Implementation ---

func scanCategory(row rowScanner, c *domain.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.IsActive, &c.CountProducts)
}

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `INSERT INTO categories (name, is_active) VALUES ($1, $2) RETURNING ` + categoryColumns + `;`

	var created domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, category.Name, category.IsActive), &created); err != nil {
		if mapped := checkViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1;`

	var category domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, id), &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

// ListCategories returns every category, oldest first.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY id;`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

// UpdateCategory writes name and is_active. count_products is owned by the
// aggregation job and never written here.
func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `UPDATE categories SET name = $1, is_active = $2 WHERE id = $3 RETURNING ` + categoryColumns + `;`

	var updated domain.Category
	err := scanCategory(s.db.QueryRowContext(ctx, query, category.Name, category.IsActive, category.ID), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if mapped := checkViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM categories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr := asPQError(err); pqErr != nil && pqErr.Code == pqForeignKeyViolation {
			return ErrCategoryProtected
		}
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// --- ProductStorer Implementation ---

func scanProduct(row rowScanner, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Description, &p.IsRefrigerated,
		&p.CategoryID, &p.ManagedByID, &p.CreatedAt, &p.EditedAt, &p.Ingredients,
	)
}

// productWriteError translates constraint violations raised by INSERT/UPDATE on product.
func productWriteError(op string, err error) error {
	if pqErr := asPQError(err); pqErr != nil {
		switch pqErr.Code {
		case pqUniqueViolation:
			if strings.Contains(pqErr.Constraint, "product_name_key") || strings.Contains(pqErr.Detail, "Key (name)") {
				return ErrProductNameExists
			}
			if strings.Contains(pqErr.Constraint, "product_description_key") || strings.Contains(pqErr.Detail, "Key (description)") {
				return ErrProductDescriptionExists
			}
		case pqForeignKeyViolation:
			if strings.Contains(pqErr.Constraint, "category_id") {
				return ErrCategoryNotFound
			}
			if strings.Contains(pqErr.Constraint, "managed_by_id") {
				return ErrUserNotFound
			}
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolation, pqErr.Constraint)
		}
	}
	return fmt.Errorf("store: %s failed to scan row: %w", op, err)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `INSERT INTO product (name, price, description, is_refrigerated, category_id, managed_by_id, ingredients)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		product.Name, product.Price, product.Description, product.IsRefrigerated,
		product.CategoryID, product.ManagedByID, product.Ingredients,
	)

	var created domain.Product
	if err := scanProduct(row, &created); err != nil {
		return nil, productWriteError("CreateProduct", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE id = $1;`

	var product domain.Product
	if err := scanProduct(s.db.QueryRowContext(ctx, query, id), &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	var queryArgs []any
	var whereClauses []string
	argID := 1

	if params.CategoryIDs != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("category_id = ANY($%d)", argID))
		queryArgs = append(queryArgs, pq.Array(params.CategoryIDs))
		argID++
	}

	query := `SELECT ` + productColumns + ` FROM product`
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY id"
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
		queryArgs = append(queryArgs, params.Limit, params.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, nil
}

// UpdateProduct rewrites every mutable column and refreshes edited_at.
// created_at is left as it was on insert.
func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `UPDATE product
		SET name = $1, price = $2, description = $3, is_refrigerated = $4,
			category_id = $5, managed_by_id = $6, ingredients = $7, edited_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING ` + productColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		product.Name, product.Price, product.Description, product.IsRefrigerated,
		product.CategoryID, product.ManagedByID, product.Ingredients, product.ID,
	)

	var updated domain.Product
	if err := scanProduct(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, productWriteError("UpdateProduct", err)
	}
	return &updated, nil
}

// DeleteProduct removes the product; its SKUs go with it (ON DELETE CASCADE).
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	query := `DELETE FROM product WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// --- SkuStorer Implementation ---

func scanSku(row rowScanner, sku *domain.Sku) error {
	return row.Scan(
		&sku.ID, &sku.ProductID, &sku.Size, &sku.MeasurementUnit,
		&sku.SellingPrice, &sku.PlatformCommission, &sku.CostPrice, &sku.Status,
	)
}

func skuWriteError(op string, err error) error {
	if pqErr := asPQError(err); pqErr != nil {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return ErrProductNotFound
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolation, pqErr.Constraint)
		}
	}
	return fmt.Errorf("store: %s failed to scan row: %w", op, err)
}

func (s *PostgresStore) CreateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	query := `INSERT INTO sku (product_id, size, measurement_unit, selling_price, platform_commission, cost_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + skuColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		sku.ProductID, sku.Size, sku.MeasurementUnit, sku.SellingPrice,
		sku.PlatformCommission, sku.CostPrice, sku.Status,
	)

	var created domain.Sku
	if err := scanSku(row, &created); err != nil {
		return nil, skuWriteError("CreateSku", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetSkuByID(ctx context.Context, id int64) (*domain.Sku, error) {
	query := `SELECT ` + skuColumns + ` FROM sku WHERE id = $1;`

	var sku domain.Sku
	if err := scanSku(s.db.QueryRowContext(ctx, query, id), &sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkuNotFound
		}
		return nil, fmt.Errorf("store: GetSkuByID failed to scan row: %w", err)
	}
	return &sku, nil
}

func (s *PostgresStore) ListSkus(ctx context.Context, params ListSkusParams) ([]domain.Sku, error) {
	query := `SELECT ` + skuColumns + ` FROM sku`
	var queryArgs []any
	if params.ProductID != nil {
		query += ` WHERE product_id = $1`
		queryArgs = append(queryArgs, *params.ProductID)
	}
	query += ` ORDER BY id;`

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListSkus failed to query skus: %w", err)
	}
	defer rows.Close()

	skus := []domain.Sku{}
	for rows.Next() {
		var sku domain.Sku
		if err := scanSku(rows, &sku); err != nil {
			return nil, fmt.Errorf("store: ListSkus failed to scan sku row: %w", err)
		}
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSkus iteration error: %w", err)
	}
	return skus, nil
}

func (s *PostgresStore) UpdateSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error) {
	query := `UPDATE sku
		SET product_id = $1, size = $2, measurement_unit = $3, selling_price = $4,
			platform_commission = $5, cost_price = $6, status = $7
		WHERE id = $8
		RETURNING ` + skuColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		sku.ProductID, sku.Size, sku.MeasurementUnit, sku.SellingPrice,
		sku.PlatformCommission, sku.CostPrice, sku.Status, sku.ID,
	)

	var updated domain.Sku
	if err := scanSku(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkuNotFound
		}
		return nil, skuWriteError("UpdateSku", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteSku(ctx context.Context, id int64) error {
	query := `DELETE FROM sku WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteSku failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteSku failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSkuNotFound
	}
	return nil
}

// --- UserStorer Implementation ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, is_staff) VALUES ($1, $2) RETURNING ` + userColumns + `;`

	var created domain.User
	err := s.db.QueryRowContext(ctx, query, user.Username, user.IsStaff).Scan(&created.ID, &created.Username, &created.IsStaff)
	if err != nil {
		if pqErr := asPQError(err); pqErr != nil && pqErr.Code == pqUniqueViolation {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	var user domain.User
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.IsStaff); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByID failed to scan row: %w", err)
	}
	return &user, nil
}

// DeleteUser removes the identity; products it managed keep existing with
// managed_by_id cleared (ON DELETE SET NULL).
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteUser failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteUser failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
