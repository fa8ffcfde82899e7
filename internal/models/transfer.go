package models

// TransferRequest is the body of POST /transfers.
type TransferRequest struct {
	StockItemID      string `json:"stockItemId"`
	SourceLocationID string `json:"sourceLocationId"`
	TargetLocationID string `json:"targetLocationId"`
	Quantity         int    `json:"quantity"`
	Reference        string `json:"reference,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// StockTransfer pairs the OUT movement at the source with the IN movement at the target.
type StockTransfer struct {
	OutMovement StockMovement `json:"outMovement"`
	InMovement  StockMovement `json:"inMovement"`
	// PendingSync is set locally when the transfer was recorded offline.
	PendingSync bool `json:"pendingSync,omitempty"`
}
