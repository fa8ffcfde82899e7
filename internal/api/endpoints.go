package api

import (
	"context"
	"net/http"

	"github.com/arbitroy/stockflow/backend/internal/models"
)

// Remote is the subset of the API the sync core depends on.
type Remote interface {
	Health(ctx context.Context) error

	ListStockItems(ctx context.Context) ([]models.StockItem, error)
	GetStockItem(ctx context.Context, id string) (*models.StockItem, error)
	ListLowStockItems(ctx context.Context) ([]models.StockItem, error)
	CreateStockItem(ctx context.Context, item models.StockItem) (*models.StockItem, error)
	UpdateStockItem(ctx context.Context, id string, item models.StockItem) (*models.StockItem, error)
	DeleteStockItem(ctx context.Context, id string) error
	RecordMovement(ctx context.Context, req models.StockMovementRequest) error

	ListSales(ctx context.Context) ([]models.Sale, error)
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	CreateSale(ctx context.Context, req models.CreateSaleRequest) (*models.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status models.SaleStatus) (*models.Sale, error)

	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	CreateLocation(ctx context.Context, loc models.Location) (*models.Location, error)
	UpdateLocation(ctx context.Context, id string, loc models.Location) (*models.Location, error)
	DeleteLocation(ctx context.Context, id string) error
	LocationInventory(ctx context.Context, locationID string) ([]models.LocationInventory, error)

	Transfer(ctx context.Context, req models.TransferRequest) (*models.StockTransfer, error)
}

var _ Remote = (*Client)(nil)

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "/health", nil, nil)
}

// =====================================================
// Stock
// =====================================================

func (c *Client) ListStockItems(ctx context.Context) ([]models.StockItem, error) {
	var items []models.StockItem
	if err := c.do(ctx, http.MethodGet, "/stock", "/stock", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	var item models.StockItem
	if err := c.do(ctx, http.MethodGet, "/stock/{id}", "/stock/"+escape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListLowStockItems(ctx context.Context) ([]models.StockItem, error) {
	var items []models.StockItem
	if err := c.do(ctx, http.MethodGet, "/stock/low-stock", "/stock/low-stock", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateStockItem(ctx context.Context, item models.StockItem) (*models.StockItem, error) {
	var created models.StockItem
	if err := c.do(ctx, http.MethodPost, "/stock", "/stock", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateStockItem(ctx context.Context, id string, item models.StockItem) (*models.StockItem, error) {
	var updated models.StockItem
	if err := c.do(ctx, http.MethodPut, "/stock/{id}", "/stock/"+escape(id), item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteStockItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/stock/{id}", "/stock/"+escape(id), nil, nil)
}

// RecordMovement posts a movement. The API answers with an empty body.
func (c *Client) RecordMovement(ctx context.Context, req models.StockMovementRequest) error {
	return c.do(ctx, http.MethodPost, "/stock/movement", "/stock/movement", req, nil)
}

// =====================================================
// Sales
// =====================================================

func (c *Client) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := c.do(ctx, http.MethodGet, "/sales", "/sales", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *Client) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := c.do(ctx, http.MethodGet, "/sales/{id}", "/sales/"+escape(id), nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (c *Client) CreateSale(ctx context.Context, req models.CreateSaleRequest) (*models.Sale, error) {
	var sale models.Sale
	if err := c.do(ctx, http.MethodPost, "/sales", "/sales", req, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (c *Client) UpdateSaleStatus(ctx context.Context, id string, status models.SaleStatus) (*models.Sale, error) {
	var sale models.Sale
	body := models.SaleStatusUpdate{Status: status}
	if err := c.do(ctx, http.MethodPatch, "/sales/{id}/status", "/sales/"+escape(id)+"/status", body, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// =====================================================
// Locations
// =====================================================

func (c *Client) ListLocations(ctx context.Context) ([]models.Location, error) {
	var locs []models.Location
	if err := c.do(ctx, http.MethodGet, "/locations", "/locations", nil, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

func (c *Client) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var loc models.Location
	if err := c.do(ctx, http.MethodGet, "/locations/{id}", "/locations/"+escape(id), nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (c *Client) CreateLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	var created models.Location
	if err := c.do(ctx, http.MethodPost, "/locations", "/locations", loc, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateLocation(ctx context.Context, id string, loc models.Location) (*models.Location, error) {
	var updated models.Location
	if err := c.do(ctx, http.MethodPut, "/locations/{id}", "/locations/"+escape(id), loc, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/locations/{id}", "/locations/"+escape(id), nil, nil)
}

func (c *Client) LocationInventory(ctx context.Context, locationID string) ([]models.LocationInventory, error) {
	var rows []models.LocationInventory
	path := "/locations/" + escape(locationID) + "/inventory"
	if err := c.do(ctx, http.MethodGet, "/locations/{id}/inventory", path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// =====================================================
// Transfers
// =====================================================

func (c *Client) Transfer(ctx context.Context, req models.TransferRequest) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	if err := c.do(ctx, http.MethodPost, "/transfers", "/transfers", req, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}
