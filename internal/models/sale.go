package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SalePending   SaleStatus = "PENDING"
	SaleCompleted SaleStatus = "COMPLETED"
	SaleCancelled SaleStatus = "CANCELLED"
)

// Valid reports whether s is a known sale status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleCompleted, SaleCancelled:
		return true
	}
	return false
}

// SaleItem is a line of a sale.
type SaleItem struct {
	ID          string          `json:"id,omitempty"`
	StockItemID string          `json:"stockItemId"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

// Sale is a completed or pending customer sale.
type Sale struct {
	ID            string          `json:"id,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	LocationID    string          `json:"locationId,omitempty"`
	LocationName  string          `json:"locationName,omitempty"`
	Items         []SaleItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Reference     string          `json:"reference,omitempty"`
	Status        SaleStatus      `json:"status,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// CreatedAtTime returns CreatedAt as time.Time.
func (s *Sale) CreatedAtTime() time.Time {
	return ParseTime(s.CreatedAt)
}

// SaleItemRequest is one requested line of a new sale.
type SaleItemRequest struct {
	StockItemID string `json:"stockItemId"`
	Quantity    int    `json:"quantity"`
}

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	CustomerName  string            `json:"customerName,omitempty"`
	CustomerPhone string            `json:"customerPhone,omitempty"`
	LocationID    string            `json:"locationId,omitempty"`
	Items         []SaleItemRequest `json:"items"`
}

// SaleStatusUpdate is the body of PATCH /sales/{id}/status.
type SaleStatusUpdate struct {
	Status SaleStatus `json:"status"`
}
