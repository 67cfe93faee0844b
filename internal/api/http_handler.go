package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"catalog-service/internal/auth"
	"catalog-service/internal/catalog"
	"catalog-service/internal/domain"
	"catalog-service/internal/serializer"
	"catalog-service/internal/store"
)

// Catalog is the set of catalog operations the transport handlers depend on.
type Catalog interface {
	ListCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, error)
	SaveCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	SaveProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	SaveSku(ctx context.Context, sku *domain.Sku) (*domain.Sku, error)
	PatchSku(ctx context.Context, id int64, patch catalog.SkuPatch) (*domain.Sku, error)
	GetSku(ctx context.Context, id int64) (*domain.Sku, error)
	ListProductSkus(ctx context.Context, productID int64) ([]domain.Sku, error)
	DeleteSku(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog  Catalog
	resolver *auth.Resolver
	policy   auth.Policy
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHTTPHandler creates an HTTPHandler. Every catalog route is gated by policy.
func NewHTTPHandler(c Catalog, resolver *auth.Resolver, policy auth.Policy, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		catalog:  c,
		resolver: resolver,
		policy:   policy,
		validate: validator.New(),
		logger:   logger,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

func (h *HTTPHandler) parseID(w http.ResponseWriter, r *http.Request, param, resource string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		h.respondWithError(w, http.StatusBadRequest, "Invalid "+resource+" ID format")
		return 0, false
	}
	return id, true
}

// respondWithCatalogError maps a catalog error to an HTTP response. Errors
// listed in missingReferents name records the request points at; they are
// the caller's fault and answer 400 instead of 404.
func (h *HTTPHandler) respondWithCatalogError(w http.ResponseWriter, op string, err error, missingReferents ...error) {
	for _, ref := range missingReferents {
		if errors.Is(err, ref) {
			h.respondWithError(w, http.StatusBadRequest, "Invalid reference: "+ref.Error())
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, catalog.ErrEmptyPatch), errors.Is(err, store.ErrConstraintViolation):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrCategoryNotFound):
		h.respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
	case errors.Is(err, store.ErrProductNotFound):
		h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
	case errors.Is(err, store.ErrSkuNotFound):
		h.respondWithError(w, http.StatusNotFound, store.ErrSkuNotFound.Error())
	case errors.Is(err, store.ErrUserNotFound):
		h.respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
	case errors.Is(err, store.ErrProductNameExists):
		h.respondWithError(w, http.StatusConflict, store.ErrProductNameExists.Error())
	case errors.Is(err, store.ErrProductDescriptionExists):
		h.respondWithError(w, http.StatusConflict, store.ErrProductDescriptionExists.Error())
	case errors.Is(err, store.ErrUsernameExists):
		h.respondWithError(w, http.StatusConflict, store.ErrUsernameExists.Error())
	case errors.Is(err, store.ErrCategoryProtected):
		h.respondWithError(w, http.StatusConflict, store.ErrCategoryProtected.Error())
	default:
		h.logger.Error("catalog operation failed", zap.String("op", op), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// --- Category Handlers ---

// CategoryListResponse is the body of the category listing.
type CategoryListResponse struct {
	Category []serializer.CategoryRepresentation `json:"category"`
}

// ListCategories serves the staff-only category listing with nested products.
func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	listing, err := h.catalog.ListCategoryListing(r.Context())
	if err != nil {
		h.respondWithCatalogError(w, "ListCategories", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, CategoryListResponse{Category: listing})
}

// CategoryInput is the body accepted when creating or replacing a category.
type CategoryInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	IsActive *bool  `json:"is_active"` // defaults to true
}

func (in CategoryInput) toDomain(id int64) *domain.Category {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return &domain.Category{ID: id, Name: in.Name, IsActive: isActive}
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.catalog.SaveCategory(r.Context(), input.toDomain(0))
	if err != nil {
		h.respondWithCatalogError(w, "CreateCategory", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.parseID(w, r, "categoryId", "category")
	if !ok {
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), categoryID)
	if err != nil {
		h.respondWithCatalogError(w, "GetCategoryByID", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.parseID(w, r, "categoryId", "category")
	if !ok {
		return
	}
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := h.catalog.SaveCategory(r.Context(), input.toDomain(categoryID))
	if err != nil {
		h.respondWithCatalogError(w, "UpdateCategory", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.parseID(w, r, "categoryId", "category")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), categoryID); err != nil {
		h.respondWithCatalogError(w, "DeleteCategory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes sets up the catalog routes under /api/v1. Every route
// resolves the caller's identity and requires the handler's policy.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(h.resolver, h.logger))
		r.Use(auth.Require(h.policy))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Route("/{categoryId}", func(r chi.Router) {
				r.Get("/", h.GetCategoryByID)
				r.Put("/", h.UpdateCategory)
				r.Delete("/", h.DeleteCategory)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProductByID)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Get("/skus", h.ListProductSkus)
			})
		})

		r.Route("/skus", func(r chi.Router) {
			r.Post("/", h.CreateSku)
			r.Route("/{skuId}", func(r chi.Router) {
				r.Get("/", h.GetSkuByID)
				r.Patch("/", h.PatchSku)
				r.Delete("/", h.DeleteSku)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Delete("/{userId}", h.DeleteUser)
		})
	})
}
