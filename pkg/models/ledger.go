package models

import "time"

const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// LedgerEntry is an append-mostly record of metal moving into or out of a
// department. FineWeight is derived: weight × metal fine percentage, negated
// for OUT entries.
type LedgerEntry struct {
	ID           int       `json:"id" db:"id"`
	TenantID     int       `json:"tenant_id" db:"tenant_id"`
	Date         time.Time `json:"date" db:"date"`
	DepartmentID int       `json:"department_id" db:"department_id"`
	OrderID      int       `json:"order_id" db:"order_id"`
	MetalID      int       `json:"metal_id" db:"metal_id"`
	Direction    string    `json:"direction" db:"direction"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	Weight       float64   `json:"weight" db:"weight"`
	FineWeight   float64   `json:"fine_weight" db:"fine_weight"`
	Notes        *string   `json:"notes" db:"notes"`
	CreatedBy    int       `json:"created_by" db:"created_by"`
	IsArchived   bool      `json:"is_archived" db:"is_archived"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// SignedWeightDelta is the entry's effect on its department balance.
func (e *LedgerEntry) SignedWeightDelta() float64 {
	if e.Direction == DirectionOut {
		return -e.Weight
	}
	return e.Weight
}

// DepartmentBalance is the ledger-scoped running stock of one metal in one
// department. It equals the sum of all signed weight deltas ever applied to
// the (department, metal) key and may go negative.
type DepartmentBalance struct {
	ID           int       `json:"id" db:"id"`
	TenantID     int       `json:"tenant_id" db:"tenant_id"`
	DepartmentID int       `json:"department_id" db:"department_id"`
	MetalID      int       `json:"metal_id" db:"metal_id"`
	BalanceGrams float64   `json:"balance_grams" db:"balance_grams"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// LedgerEntryResponse re-projects direction + quantity + weight into
// in/out column pairs for display. Exactly one pair is populated.
type LedgerEntryResponse struct {
	ID           int       `json:"id"`
	TenantID     int       `json:"tenant_id"`
	Date         time.Time `json:"date"`
	DepartmentID int       `json:"department_id"`
	OrderID      int       `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	MetalID      int       `json:"metal_id"`
	Direction    string    `json:"direction"`
	QtyIn        *float64  `json:"qty_in"`
	QtyOut       *float64  `json:"qty_out"`
	WeightIn     *float64  `json:"weight_in"`
	WeightOut    *float64  `json:"weight_out"`
	FineWeight   float64   `json:"fine_weight"`
	Notes        *string   `json:"notes"`
	IsArchived   bool      `json:"is_archived"`
	CreatedBy    int       `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewLedgerEntryResponse(e LedgerEntry, orderNumber string) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		Date:         e.Date,
		DepartmentID: e.DepartmentID,
		OrderID:      e.OrderID,
		OrderNumber:  orderNumber,
		MetalID:      e.MetalID,
		Direction:    e.Direction,
		FineWeight:   e.FineWeight,
		Notes:        e.Notes,
		IsArchived:   e.IsArchived,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}

	quantity := e.Quantity
	weight := e.Weight
	if e.Direction == DirectionOut {
		resp.QtyOut = &quantity
		resp.WeightOut = &weight
	} else {
		resp.QtyIn = &quantity
		resp.WeightIn = &weight
	}

	return resp
}

// MetalBalanceItem is one non-zero fine-weight balance in a ledger summary.
type MetalBalanceItem struct {
	MetalID           int     `json:"metal_id"`
	MetalCode         string  `json:"metal_code"`
	MetalName         string  `json:"metal_name"`
	FineWeightBalance float64 `json:"fine_weight_balance"`
}

type LedgerSummary struct {
	TotalQtyHeld float64            `json:"total_qty_held"`
	TotalQtyOut  float64            `json:"total_qty_out"`
	Balances     []MetalBalanceItem `json:"balances"`
}
