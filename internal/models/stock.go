// Package models provides data model definitions for the StockFlow sync core.
// Field names and JSON tags follow the remote inventory API.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The remote API sends and expects plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultLowStockThreshold is the quantity at or below which an item is LOW_STOCK.
const DefaultLowStockThreshold = 10

// StockStatus is the availability state of a stock item.
type StockStatus string

const (
	StockActive   StockStatus = "ACTIVE"
	StockLow      StockStatus = "LOW_STOCK"
	StockOut      StockStatus = "OUT_STOCK"
	StockInactive StockStatus = "INACTIVE"
)

// DeriveStatus returns the status implied by quantity.
// qty <= 0 is OUT_STOCK, 0 < qty <= threshold is LOW_STOCK, anything above is ACTIVE.
func DeriveStatus(quantity, threshold int) StockStatus {
	switch {
	case quantity <= 0:
		return StockOut
	case quantity <= threshold:
		return StockLow
	default:
		return StockActive
	}
}

// StockItem represents a stock keeping unit as served by the remote API.
type StockItem struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Status    StockStatus     `json:"status"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// IsLow reports whether the item belongs in a low-stock listing.
func (s StockItem) IsLow() bool {
	return s.Status == StockLow || s.Status == StockOut
}

// MovementType is the kind of stock movement.
type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

// Valid reports whether m is a known movement type.
func (m MovementType) Valid() bool {
	switch m {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// StockMovementRequest is the body of POST /stock/movement.
type StockMovementRequest struct {
	StockItemID string       `json:"stockItemId"`
	Quantity    int          `json:"quantity"`
	Type        MovementType `json:"type"`
	Reference   string       `json:"reference,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	LocationID  string       `json:"locationId,omitempty"`
}

// StockMovement is a recorded movement.
type StockMovement struct {
	ID          string       `json:"id,omitempty"`
	StockItemID string       `json:"stockItemId"`
	Quantity    int          `json:"quantity"`
	Type        MovementType `json:"type"`
	Reference   string       `json:"reference,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	LocationID  string       `json:"locationId,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// Timestamp formats accepted for server-side createdAt/updatedAt fields.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a server timestamp. The zero time is returned when s is
// empty or in an unknown format.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders t the way the remote API does.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
