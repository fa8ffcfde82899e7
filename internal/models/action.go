package models

// ActionType is the kind of mutation an offline action replays.
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// EntityType is the domain entity an offline action targets.
type EntityType string

const (
	EntityStock    EntityType = "STOCK"
	EntitySale     EntityType = "SALE"
	EntityLocation EntityType = "LOCATION"
	EntityMovement EntityType = "MOVEMENT"
	EntityTransfer EntityType = "TRANSFER"
)

