package queue

import (
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// Payload is the body of a queued mutation. Its concrete type determines the
// action's (Type, Entity) pair.
type Payload interface {
	ActionType() models.ActionType
	EntityType() models.EntityType
}

// CreateStock creates a stock item. TempID is the provisional id handed out
// while offline.
type CreateStock struct {
	TempID string           `json:"tempId,omitempty"`
	Item   models.StockItem `json:"item"`
}

// UpdateStock replaces a stock item's editable fields.
type UpdateStock struct {
	ID   string           `json:"id"`
	Item models.StockItem `json:"item"`
}

// DeleteStock deletes a stock item.
type DeleteStock struct {
	ID string `json:"id"`
}

// RecordMovement records an IN, OUT or ADJUST movement.
type RecordMovement struct {
	Request models.StockMovementRequest `json:"request"`
}

// CreateSale creates a sale.
type CreateSale struct {
	TempID  string                   `json:"tempId,omitempty"`
	Request models.CreateSaleRequest `json:"request"`
}

// UpdateSaleStatus moves a sale to a new status.
type UpdateSaleStatus struct {
	ID     string            `json:"id"`
	Status models.SaleStatus `json:"status"`
}

// CreateLocation creates a location.
type CreateLocation struct {
	TempID   string          `json:"tempId,omitempty"`
	Location models.Location `json:"location"`
}

// UpdateLocation replaces a location's editable fields.
type UpdateLocation struct {
	ID       string          `json:"id"`
	Location models.Location `json:"location"`
}

// DeleteLocation deletes a location.
type DeleteLocation struct {
	ID string `json:"id"`
}

// CreateTransfer moves stock between two locations.
type CreateTransfer struct {
	Request models.TransferRequest `json:"request"`
}

func (CreateStock) ActionType() models.ActionType { return models.ActionCreate }
func (CreateStock) EntityType() models.EntityType { return models.EntityStock }
func (UpdateStock) ActionType() models.ActionType { return models.ActionUpdate }
func (UpdateStock) EntityType() models.EntityType { return models.EntityStock }
func (DeleteStock) ActionType() models.ActionType { return models.ActionDelete }
func (DeleteStock) EntityType() models.EntityType { return models.EntityStock }
func (RecordMovement) ActionType() models.ActionType { return models.ActionCreate }
func (RecordMovement) EntityType() models.EntityType { return models.EntityMovement }
func (CreateSale) ActionType() models.ActionType { return models.ActionCreate }
func (CreateSale) EntityType() models.EntityType { return models.EntitySale }
func (UpdateSaleStatus) ActionType() models.ActionType { return models.ActionUpdate }
func (UpdateSaleStatus) EntityType() models.EntityType { return models.EntitySale }
func (CreateLocation) ActionType() models.ActionType { return models.ActionCreate }
func (CreateLocation) EntityType() models.EntityType { return models.EntityLocation }
func (UpdateLocation) ActionType() models.ActionType { return models.ActionUpdate }
func (UpdateLocation) EntityType() models.EntityType { return models.EntityLocation }
func (DeleteLocation) ActionType() models.ActionType { return models.ActionDelete }
func (DeleteLocation) EntityType() models.EntityType { return models.EntityLocation }
func (CreateTransfer) ActionType() models.ActionType { return models.ActionCreate }
func (CreateTransfer) EntityType() models.EntityType { return models.EntityTransfer }

type payloadKey struct {
	action models.ActionType
	entity models.EntityType
}

// decoders maps each (Type, Entity) pair to a constructor for its arm.
var decoders = map[payloadKey]func() Payload{
	{models.ActionCreate, models.EntityStock}:    func() Payload { return &CreateStock{} },
	{models.ActionUpdate, models.EntityStock}:    func() Payload { return &UpdateStock{} },
	{models.ActionDelete, models.EntityStock}:    func() Payload { return &DeleteStock{} },
	{models.ActionCreate, models.EntityMovement}: func() Payload { return &RecordMovement{} },
	{models.ActionCreate, models.EntitySale}:     func() Payload { return &CreateSale{} },
	{models.ActionUpdate, models.EntitySale}:     func() Payload { return &UpdateSaleStatus{} },
	{models.ActionCreate, models.EntityLocation}: func() Payload { return &CreateLocation{} },
	{models.ActionUpdate, models.EntityLocation}: func() Payload { return &UpdateLocation{} },
	{models.ActionDelete, models.EntityLocation}: func() Payload { return &DeleteLocation{} },
	{models.ActionCreate, models.EntityTransfer}: func() Payload { return &CreateTransfer{} },
}

// deref turns a decoded *Arm back into the Arm value stored in actions.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *CreateStock:
		return *v
	case *UpdateStock:
		return *v
	case *DeleteStock:
		return *v
	case *RecordMovement:
		return *v
	case *CreateSale:
		return *v
	case *UpdateSaleStatus:
		return *v
	case *CreateLocation:
		return *v
	case *UpdateLocation:
		return *v
	case *DeleteLocation:
		return *v
	case *CreateTransfer:
		return *v
	}
	return p
}
