package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MeasurementUnit is the unit a SKU's size is expressed in.
type MeasurementUnit string

const (
	UnitGram       MeasurementUnit = "gm"
	UnitKilogram   MeasurementUnit = "kg"
	UnitMilliliter MeasurementUnit = "mL"
	UnitLiter      MeasurementUnit = "L"
	UnitPiece      MeasurementUnit = "pc"
)

// DefaultMeasurementUnit is applied to new SKUs that do not name a unit.
const DefaultMeasurementUnit = UnitGram

var measurementUnitLabels = map[MeasurementUnit]string{
	UnitGram:       "Grams",
	UnitKilogram:   "Kilograms",
	UnitMilliliter: "Milliliters",
	UnitLiter:      "Liters",
	UnitPiece:      "Piece",
}

// MeasurementUnits lists the accepted units in display order.
func MeasurementUnits() []MeasurementUnit {
	return []MeasurementUnit{UnitGram, UnitKilogram, UnitMilliliter, UnitLiter, UnitPiece}
}

func (u MeasurementUnit) IsValid() bool {
	_, ok := measurementUnitLabels[u]
	return ok
}

// Label returns the human readable name, or the raw code for unknown units.
func (u MeasurementUnit) Label() string {
	if label, ok := measurementUnitLabels[u]; ok {
		return label
	}
	return string(u)
}

// ParseMeasurementUnit accepts only the exact unit codes ("mL", not "ml").
func ParseMeasurementUnit(s string) (MeasurementUnit, error) {
	u := MeasurementUnit(s)
	if !u.IsValid() {
		return "", fmt.Errorf("%w: unknown measurement unit %q", ErrValidation, s)
	}
	return u, nil
}

// SkuStatus tracks a SKU through approval. The intended progression is
// Pending -> Approved -> Discontinued but transitions are not enforced.
type SkuStatus int

const (
	SkuStatusPending SkuStatus = iota
	SkuStatusApproved
	SkuStatusDiscontinued
)

var skuStatusLabels = map[SkuStatus]string{
	SkuStatusPending:      "Pending for approval",
	SkuStatusApproved:     "Approved",
	SkuStatusDiscontinued: "Discontinued",
}

func (s SkuStatus) IsValid() bool {
	_, ok := skuStatusLabels[s]
	return ok
}

func (s SkuStatus) Label() string {
	if label, ok := skuStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("SkuStatus(%d)", int(s))
}

// Sku is a sellable variant of a product: a size, unit and price combination.
type Sku struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id" validate:"required,gt=0"` // cascade on product delete
	Size               int32           `json:"size" validate:"gte=0,lte=999"`
	MeasurementUnit    MeasurementUnit `json:"measurement_unit" validate:"enum"`
	SellingPrice       int64           `json:"selling_price" validate:"gte=0,lte=2147483647"`
	PlatformCommission int32           `json:"platform_commission" validate:"gte=0,lte=32767"`
	CostPrice          int64           `json:"cost_price" validate:"gte=0,lte=2147483647"`
	Status             SkuStatus       `json:"status" validate:"enum"`
}

// IsNew reports whether the SKU has not been persisted yet.
func (s *Sku) IsNew() bool {
	return s.ID == 0
}

// PrepareSave applies the creation rules: a new SKU always starts pending and
// its selling price is derived from commission and cost, whatever the caller
// supplied. Persisted SKUs are left untouched.
func (s *Sku) PrepareSave() {
	if !s.IsNew() {
		return
	}
	if s.MeasurementUnit == "" {
		s.MeasurementUnit = DefaultMeasurementUnit
	}
	s.Status = SkuStatusPending
	s.SellingPrice = int64(s.PlatformCommission) + s.CostPrice
}

// MarkupPercentage returns the commission as a percentage of the cost price.
func (s Sku) MarkupPercentage() float64 {
	return MarkupPercentage(s.CostPrice, s.PlatformCommission)
}

// Describe renders the SKU the way it is shown to operators.
func (s Sku) Describe(productName string) string {
	return fmt.Sprintf("%s - %d %s (Rs. %d)", productName, s.Size, s.MeasurementUnit, s.SellingPrice)
}

// MarkupPercentage is platformCommission / costPrice * 100, or 0 when the
// cost price is 0.
func MarkupPercentage(costPrice int64, platformCommission int32) float64 {
	if costPrice == 0 {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	pct := decimal.NewFromInt32(platformCommission).
		Div(decimal.NewFromInt(costPrice)).
		Mul(hundred)
	return pct.InexactFloat64()
}
