package store

import "errors"

// Predefined errors for store operations
var (
	ErrCategoryNotFound         = errors.New("store: category not found")
	ErrCategoryProtected        = errors.New("store: category is still referenced by products")
	ErrProductNotFound          = errors.New("store: product not found")
	ErrProductNameExists        = errors.New("store: product name already exists")
	ErrProductDescriptionExists = errors.New("store: product description already exists")
	ErrSkuNotFound              = errors.New("store: sku not found")
	ErrUserNotFound             = errors.New("store: user not found")
	ErrUsernameExists           = errors.New("store: username already exists")
	ErrConstraintViolation      = errors.New("store: check constraint violated")
)
