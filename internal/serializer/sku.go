package serializer

import (
	"catalog-service/internal/domain"
)

// SkuRepresentation is the admin view of a SKU: stored fields plus the
// derived markup and display labels.
type SkuRepresentation struct {
	ID                     int64                  `json:"id"`
	ProductID              int64                  `json:"product_id"`
	Size                   int32                  `json:"size"`
	MeasurementUnit        domain.MeasurementUnit `json:"measurement_unit"`
	MeasurementUnitDisplay string                 `json:"measurement_unit_display"`
	SellingPrice           int64                  `json:"selling_price"`
	PlatformCommission     int32                  `json:"platform_commission"`
	CostPrice              int64                  `json:"cost_price"`
	MarkupPercentage       float64                `json:"markup_percentage"`
	Status                 domain.SkuStatus       `json:"status"`
	StatusDisplay          string                 `json:"status_display"`
}

func SerializeSku(sku domain.Sku) SkuRepresentation {
	return SkuRepresentation{
		ID:                     sku.ID,
		ProductID:              sku.ProductID,
		Size:                   sku.Size,
		MeasurementUnit:        sku.MeasurementUnit,
		MeasurementUnitDisplay: sku.MeasurementUnit.Label(),
		SellingPrice:           sku.SellingPrice,
		PlatformCommission:     sku.PlatformCommission,
		CostPrice:              sku.CostPrice,
		MarkupPercentage:       sku.MarkupPercentage(),
		Status:                 sku.Status,
		StatusDisplay:          sku.Status.Label(),
	}
}

func SerializeSkus(skus []domain.Sku) []SkuRepresentation {
	out := make([]SkuRepresentation, 0, len(skus))
	for _, sku := range skus {
		out = append(out, SerializeSku(sku))
	}
	return out
}
