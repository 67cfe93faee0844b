package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSku_PrepareSave_NewRecord(t *testing.T) {
	s := &Sku{
		ProductID:          1,
		Size:               500,
		CostPrice:          80,
		PlatformCommission: 20,
		SellingPrice:       9999,
		Status:             SkuStatusApproved,
	}
	s.PrepareSave()

	assert.Equal(t, int64(100), s.SellingPrice)
	assert.Equal(t, SkuStatusPending, s.Status)
	assert.Equal(t, UnitGram, s.MeasurementUnit, "new SKUs default to grams")
}

func TestSku_PrepareSave_KeepsSuppliedUnit(t *testing.T) {
	s := &Sku{ProductID: 1, MeasurementUnit: UnitLiter, CostPrice: 10}
	s.PrepareSave()
	assert.Equal(t, UnitLiter, s.MeasurementUnit)
	assert.Equal(t, int64(10), s.SellingPrice)
}

func TestSku_PrepareSave_ExistingRecord(t *testing.T) {
	s := &Sku{
		ID:                 7,
		ProductID:          1,
		MeasurementUnit:    UnitKilogram,
		CostPrice:          80,
		PlatformCommission: 20,
		SellingPrice:       150,
		Status:             SkuStatusApproved,
	}
	s.PrepareSave()

	assert.Equal(t, int64(150), s.SellingPrice, "updates must not recompute the selling price")
	assert.Equal(t, SkuStatusApproved, s.Status, "updates must not reset the status")
}

func TestMarkupPercentage(t *testing.T) {
	assert.Equal(t, 0.0, MarkupPercentage(0, 0))
	assert.Equal(t, 0.0, MarkupPercentage(0, 250))
	assert.Equal(t, 20.0, MarkupPercentage(50, 10))
	assert.Equal(t, 25.0, MarkupPercentage(80, 20))
	assert.InDelta(t, 33.3333, MarkupPercentage(3, 1), 0.0001)

	s := Sku{CostPrice: 50, PlatformCommission: 10}
	assert.Equal(t, 20.0, s.MarkupPercentage())
}

func TestSku_Describe(t *testing.T) {
	s := Sku{Size: 500, MeasurementUnit: UnitMilliliter, SellingPrice: 32}
	assert.Equal(t, "Toned Milk - 500 mL (Rs. 32)", s.Describe("Toned Milk"))
}

func TestMeasurementUnit(t *testing.T) {
	for _, u := range MeasurementUnits() {
		assert.True(t, u.IsValid(), string(u))
		assert.NotEqual(t, string(u), u.Label())
	}
	assert.Equal(t, "Milliliters", UnitMilliliter.Label())
	assert.False(t, MeasurementUnit("ml").IsValid())

	u, err := ParseMeasurementUnit("pc")
	require.NoError(t, err)
	assert.Equal(t, UnitPiece, u)

	_, err = ParseMeasurementUnit("lb")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSkuStatus(t *testing.T) {
	assert.Equal(t, "Pending for approval", SkuStatusPending.Label())
	assert.Equal(t, "Approved", SkuStatusApproved.Label())
	assert.Equal(t, "Discontinued", SkuStatusDiscontinued.Label())
	assert.False(t, SkuStatus(3).IsValid())
	assert.Equal(t, "SkuStatus(3)", SkuStatus(3).Label())
}

func TestValidate_Sku(t *testing.T) {
	valid := func() Sku {
		return Sku{ProductID: 1, Size: 999, MeasurementUnit: UnitGram, CostPrice: 10, PlatformCommission: 2, SellingPrice: 12}
	}

	s := valid()
	require.NoError(t, Validate(&s))

	cases := map[string]func(s *Sku){
		"size above range":    func(s *Sku) { s.Size = 1000 },
		"negative size":       func(s *Sku) { s.Size = -1 },
		"unknown unit":        func(s *Sku) { s.MeasurementUnit = "ml" },
		"empty unit":          func(s *Sku) { s.MeasurementUnit = "" },
		"unknown status":      func(s *Sku) { s.Status = 3 },
		"negative cost":       func(s *Sku) { s.CostPrice = -5 },
		"negative selling":    func(s *Sku) { s.SellingPrice = -1 },
		"negative commission": func(s *Sku) { s.PlatformCommission = -1 },
		"cost too large":      func(s *Sku) { s.CostPrice = 2147483648 },
		"missing product":     func(s *Sku) { s.ProductID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(&s)
			err := Validate(&s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}
