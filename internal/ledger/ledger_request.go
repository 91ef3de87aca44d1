package ledger

type CreateEntryRequest struct {
	Date         string  `json:"date" binding:"required"`
	DepartmentID int     `json:"department_id" binding:"required"`
	OrderID      int     `json:"order_id" binding:"required"`
	MetalID      int     `json:"metal_id" binding:"required"`
	Direction    string  `json:"direction" binding:"required,oneof=IN OUT"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
	Weight       float64 `json:"weight" binding:"required,gt=0"`
	Notes        *string `json:"notes"`
}

type UpdateEntryRequest struct {
	Date         *string  `json:"date"`
	DepartmentID *int     `json:"department_id"`
	OrderID      *int     `json:"order_id"`
	MetalID      *int     `json:"metal_id"`
	Direction    *string  `json:"direction" binding:"omitempty,oneof=IN OUT"`
	Quantity     *float64 `json:"quantity" binding:"omitempty,gt=0"`
	Weight       *float64 `json:"weight" binding:"omitempty,gt=0"`
	Notes        *string  `json:"notes"`
}

type ArchiveRequest struct {
	DateFrom string `json:"date_from" binding:"required"`
	DateTo   string `json:"date_to" binding:"required"`
}
