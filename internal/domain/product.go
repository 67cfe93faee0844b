package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category groups products. CountProducts is maintained outside this service
// and is only ever read here.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name" validate:"required,max=255"`
	IsActive      bool   `json:"is_active"`
	CountProducts int    `json:"count_products" validate:"gte=0"`
}

// Product is a sellable item definition and the parent of its SKUs.
// The json tags correspond to the fields exposed by the admin endpoints.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name" validate:"required,max=150"`
	Price          int32     `json:"price" validate:"gte=0,lte=32767"` // selling price in Rs.
	Description    string    `json:"description" validate:"required"`
	IsRefrigerated bool      `json:"is_refrigerated"`
	CategoryID     *int64    `json:"category_id,omitempty" validate:"omitempty,gt=0"`    // protect on delete
	ManagedByID    *int64    `json:"managed_by_id,omitempty" validate:"omitempty,gt=0"` // cleared when the user is removed
	CreatedAt      time.Time `json:"created_at"`
	EditedAt       time.Time `json:"edited_at"`
	Ingredients    string    `json:"ingredients" validate:"max=500"`
}

// NormalizeProductName strips surrounding whitespace and capitalises the first
// letter of every word, lowering the rest. Apostrophes end a word, so
// "amul's" becomes "Amul'S".
func NormalizeProductName(name string) string {
	// A Caser keeps state between calls, so one is built per use.
	caser := cases.Title(language.Und)
	name = strings.TrimSpace(name)

	var b strings.Builder
	start := 0
	for i, r := range name {
		if r == '\'' || r == '\u2019' {
			b.WriteString(caser.String(name[start:i]))
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	b.WriteString(caser.String(name[start:]))
	return b.String()
}

// PrepareSave applies the rules that run on every product save.
func (p *Product) PrepareSave() {
	p.Name = NormalizeProductName(p.Name)
}

func (p Product) String() string {
	return fmt.Sprintf("%s (Rs. %d)", p.Name, p.Price)
}

// User is the identity a product can be managed by.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required,max=150"`
	IsStaff  bool   `json:"is_staff"`
}
