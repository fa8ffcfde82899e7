package models

// LocationType distinguishes storage sites from points of sale.
type LocationType string

const (
	LocationWarehouse LocationType = "WAREHOUSE"
	LocationStore     LocationType = "STORE"
)

// Location is a warehouse or store.
type Location struct {
	ID        string       `json:"id,omitempty"`
	Name      string       `json:"name"`
	Type      LocationType `json:"type"`
	CreatedAt string       `json:"createdAt,omitempty"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
}

// LocationInventory is one row of GET /locations/{id}/inventory.
type LocationInventory struct {
	StockItem  StockItem `json:"stockItem"`
	Quantity   int       `json:"quantity"`
	LocationID string    `json:"locationId"`
}
