package api

import (
	"net/http"
	"strconv"

	"catalog-service/internal/catalog"
	"catalog-service/internal/domain"
	"catalog-service/internal/serializer"
	"catalog-service/internal/store"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// --- Product Handlers ---

// ProductInput is the body accepted when creating or replacing a product.
// The name is normalised on save.
type ProductInput struct {
	Name           string `json:"name" validate:"required,max=150"`
	Price          int32  `json:"price" validate:"gte=0,lte=32767"`
	Description    string `json:"description" validate:"required"`
	IsRefrigerated bool   `json:"is_refrigerated"`
	CategoryID     *int64 `json:"category_id" validate:"omitempty,gt=0"`
	ManagedByID    *int64 `json:"managed_by_id" validate:"omitempty,gt=0"`
	Ingredients    string `json:"ingredients" validate:"max=500"`
}

func (in ProductInput) toDomain(id int64) *domain.Product {
	return &domain.Product{
		ID:             id,
		Name:           in.Name,
		Price:          in.Price,
		Description:    in.Description,
		IsRefrigerated: in.IsRefrigerated,
		CategoryID:     in.CategoryID,
		ManagedByID:    in.ManagedByID,
		Ingredients:    in.Ingredients,
	}
}

// Pagination echoes the page that was served.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type ProductListResponse struct {
	Data       []domain.Product `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.catalog.SaveProduct(r.Context(), input.toDomain(0))
	if err != nil {
		h.respondWithCatalogError(w, "CreateProduct", err, store.ErrCategoryNotFound, store.ErrUserNotFound)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()

	limit, err := strconv.Atoi(qParams.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page, err := strconv.Atoi(qParams.Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	params := store.ListProductsParams{Limit: limit, Offset: (page - 1) * limit}
	if idStr := qParams.Get("category_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		params.CategoryIDs = []int64{id}
	}

	products, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		h.respondWithCatalogError(w, "ListProducts", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, ProductListResponse{
		Data:       products,
		Pagination: Pagination{Page: page, Limit: limit},
	})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parseID(w, r, "productId", "product")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		h.respondWithCatalogError(w, "GetProductByID", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parseID(w, r, "productId", "product")
	if !ok {
		return
	}
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := h.catalog.SaveProduct(r.Context(), input.toDomain(productID))
	if err != nil {
		h.respondWithCatalogError(w, "UpdateProduct", err, store.ErrCategoryNotFound, store.ErrUserNotFound)
		return
	}
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parseID(w, r, "productId", "product")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), productID); err != nil {
		h.respondWithCatalogError(w, "DeleteProduct", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SkuListResponse struct {
	Data []serializer.SkuRepresentation `json:"data"`
}

func (h *HTTPHandler) ListProductSkus(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parseID(w, r, "productId", "product")
	if !ok {
		return
	}

	skus, err := h.catalog.ListProductSkus(r.Context(), productID)
	if err != nil {
		h.respondWithCatalogError(w, "ListProductSkus", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, SkuListResponse{Data: serializer.SerializeSkus(skus)})
}

// --- SKU Handlers ---

// SkuCreateInput is the body accepted when creating a SKU. Selling price and
// status are not accepted: a new SKU is always pending and priced at
// commission plus cost.
type SkuCreateInput struct {
	ProductID          int64  `json:"product_id" validate:"required,gt=0"`
	Size               int32  `json:"size" validate:"gte=0,lte=999"`
	MeasurementUnit    string `json:"measurement_unit" validate:"omitempty,oneof=gm kg mL L pc"`
	PlatformCommission int32  `json:"platform_commission" validate:"gte=0,lte=32767"`
	CostPrice          int64  `json:"cost_price" validate:"gte=0,lte=2147483647"`
}

// SkuPatchInput is the body of a partial SKU update. Omitted fields keep
// their stored values.
type SkuPatchInput struct {
	Size               *int32  `json:"size" validate:"omitempty,gte=0,lte=999"`
	MeasurementUnit    *string `json:"measurement_unit" validate:"omitempty,oneof=gm kg mL L pc"`
	SellingPrice       *int64  `json:"selling_price" validate:"omitempty,gte=0,lte=2147483647"`
	PlatformCommission *int32  `json:"platform_commission" validate:"omitempty,gte=0,lte=32767"`
	CostPrice          *int64  `json:"cost_price" validate:"omitempty,gte=0,lte=2147483647"`
	Status             *int    `json:"status" validate:"omitempty,oneof=0 1 2"`
}

func (in SkuPatchInput) toPatch() catalog.SkuPatch {
	patch := catalog.SkuPatch{
		Size:               in.Size,
		SellingPrice:       in.SellingPrice,
		PlatformCommission: in.PlatformCommission,
		CostPrice:          in.CostPrice,
	}
	if in.MeasurementUnit != nil {
		unit := domain.MeasurementUnit(*in.MeasurementUnit)
		patch.MeasurementUnit = &unit
	}
	if in.Status != nil {
		status := domain.SkuStatus(*in.Status)
		patch.Status = &status
	}
	return patch
}

func (h *HTTPHandler) CreateSku(w http.ResponseWriter, r *http.Request) {
	var input SkuCreateInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	sku := &domain.Sku{
		ProductID:          input.ProductID,
		Size:               input.Size,
		MeasurementUnit:    domain.MeasurementUnit(input.MeasurementUnit),
		PlatformCommission: input.PlatformCommission,
		CostPrice:          input.CostPrice,
	}
	created, err := h.catalog.SaveSku(r.Context(), sku)
	if err != nil {
		h.respondWithCatalogError(w, "CreateSku", err, store.ErrProductNotFound)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, serializer.SerializeSku(*created))
}

func (h *HTTPHandler) GetSkuByID(w http.ResponseWriter, r *http.Request) {
	skuID, ok := h.parseID(w, r, "skuId", "sku")
	if !ok {
		return
	}

	sku, err := h.catalog.GetSku(r.Context(), skuID)
	if err != nil {
		h.respondWithCatalogError(w, "GetSkuByID", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, serializer.SerializeSku(*sku))
}

func (h *HTTPHandler) PatchSku(w http.ResponseWriter, r *http.Request) {
	skuID, ok := h.parseID(w, r, "skuId", "sku")
	if !ok {
		return
	}
	var input SkuPatchInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := h.catalog.PatchSku(r.Context(), skuID, input.toPatch())
	if err != nil {
		h.respondWithCatalogError(w, "PatchSku", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, serializer.SerializeSku(*updated))
}

func (h *HTTPHandler) DeleteSku(w http.ResponseWriter, r *http.Request) {
	skuID, ok := h.parseID(w, r, "skuId", "sku")
	if !ok {
		return
	}

	if err := h.catalog.DeleteSku(r.Context(), skuID); err != nil {
		h.respondWithCatalogError(w, "DeleteSku", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- User Handlers ---

type UserInput struct {
	Username string `json:"username" validate:"required,max=150"`
	IsStaff  bool   `json:"is_staff"`
}

func (h *HTTPHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input UserInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.catalog.CreateUser(r.Context(), &domain.User{Username: input.Username, IsStaff: input.IsStaff})
	if err != nil {
		h.respondWithCatalogError(w, "CreateUser", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseID(w, r, "userId", "user")
	if !ok {
		return
	}

	if err := h.catalog.DeleteUser(r.Context(), userID); err != nil {
		h.respondWithCatalogError(w, "DeleteUser", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
