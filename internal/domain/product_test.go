package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProductName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  organic milk  ", "Organic Milk"},
		{"ORGANIC MILK", "Organic Milk"},
		{"bRoWn bread", "Brown Bread"},
		{"\tpaneer\n", "Paneer"},
		{"organic   milk", "Organic   Milk"},
		{"amul's butter", "Amul'S Butter"},
		{"AMUL\u2019S GHEE", "Amul\u2019S Ghee"},
		{"x-ray milk", "X-Ray Milk"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProductName(tt.in))
		})
	}
}

func TestProduct_PrepareSave(t *testing.T) {
	p := &Product{Name: "  toned milk ", Price: 30, Description: "Fresh toned milk"}
	p.PrepareSave()
	assert.Equal(t, "Toned Milk", p.Name)

	// Running it again on an already normalised name is a no-op.
	p.PrepareSave()
	assert.Equal(t, "Toned Milk", p.Name)

	p.Name = "amul's butter"
	p.PrepareSave()
	p.PrepareSave()
	assert.Equal(t, "Amul'S Butter", p.Name)
}

func TestProduct_String(t *testing.T) {
	p := Product{Name: "Organic Milk", Price: 64}
	assert.Equal(t, "Organic Milk (Rs. 64)", p.String())
}

func TestValidate_Product(t *testing.T) {
	valid := func() Product {
		return Product{Name: "Organic Milk", Price: 64, Description: "Milk from grass fed cows", Ingredients: "milk"}
	}

	p := valid()
	require.NoError(t, Validate(&p))

	cases := map[string]func(p *Product){
		"empty name":           func(p *Product) { p.Name = "" },
		"name too long":        func(p *Product) { p.Name = strings.Repeat("a", 151) },
		"negative price":       func(p *Product) { p.Price = -1 },
		"empty description":    func(p *Product) { p.Description = "" },
		"ingredients too long": func(p *Product) { p.Ingredients = strings.Repeat("x", 501) },
		"zero category id":     func(p *Product) { zero := int64(0); p.CategoryID = &zero },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(&p)
			err := Validate(&p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "error should wrap ErrValidation")
		})
	}
}

func TestValidate_ProductNameAtLimit(t *testing.T) {
	p := Product{Name: strings.Repeat("a", 150), Description: "d"}
	assert.NoError(t, Validate(&p))
}

func TestValidate_MessageUsesJSONNames(t *testing.T) {
	p := Product{Description: "d"}
	err := Validate(&p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}
