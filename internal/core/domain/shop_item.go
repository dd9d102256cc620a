package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ShopItem struct {
	ID            int64
	Title         string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
	IsActive      bool
	SKU           string // empty means unset; unique otherwise
	CategoryIDs   []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sortable shop item fields.
const (
	SortByTitle         = "title"
	SortByPrice         = "price"
	SortByStockQuantity = "stockQuantity"
	SortByCreatedAt     = "createdAt"
)

const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// ShopItemFilter narrows a shop item listing. Nil pointers and empty strings
// leave the corresponding dimension unfiltered.
type ShopItemFilter struct {
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	InStock    bool
	IsActive   *bool
	SortBy     string
	SortOrder  string
}

// Normalize drops a sort field outside the allow-list and defaults the
// direction to ascending.
func (f ShopItemFilter) Normalize() ShopItemFilter {
	switch f.SortBy {
	case SortByTitle, SortByPrice, SortByStockQuantity, SortByCreatedAt:
	default:
		f.SortBy = ""
	}
	if strings.ToUpper(f.SortOrder) == SortDesc {
		f.SortOrder = SortDesc
	} else {
		f.SortOrder = SortAsc
	}
	return f
}
