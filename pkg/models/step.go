package models

import "time"

const (
	StepStatusInProgress = "IN_PROGRESS"
	StepStatusCompleted  = "COMPLETED"
	StepStatusFailed     = "FAILED"
)

// ManufacturingStep is a node in the production tree of an order. Root steps
// have no parent; children are created by transferring stock off a parent.
type ManufacturingStep struct {
	ID               int        `json:"id" db:"id"`
	TenantID         int        `json:"tenant_id" db:"tenant_id"`
	OrderID          int        `json:"order_id" db:"order_id"`
	ParentStepID     *int       `json:"parent_step_id" db:"parent_step_id"`
	StepType         *string    `json:"step_type" db:"step_type"`
	Description      *string    `json:"description" db:"description"`
	Status           string     `json:"status" db:"status"`
	Department       *string    `json:"department" db:"department"`
	WorkerName       *string    `json:"worker_name" db:"worker_name"`
	StartedAt        *time.Time `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at" db:"completed_at"`
	ReceivedAt       *time.Time `json:"received_at" db:"received_at"`
	TransferredBy    *string    `json:"transferred_by" db:"transferred_by"`
	ReceivedBy       *string    `json:"received_by" db:"received_by"`
	QuantityReceived *float64   `json:"quantity_received" db:"quantity_received"`
	QuantityReturned *float64   `json:"quantity_returned" db:"quantity_returned"`
	WeightReceived   *float64   `json:"weight_received" db:"weight_received"`
	WeightReturned   *float64   `json:"weight_returned" db:"weight_returned"`
	Notes            *string    `json:"notes" db:"notes"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// StepRemaining reports how much of a parent step is still transferable.
// Available amounts fall back from returned to received quantities.
type StepRemaining struct {
	StepID              int     `json:"step_id"`
	TotalQuantity       float64 `json:"total_quantity"`
	TotalWeight         float64 `json:"total_weight"`
	TransferredQuantity float64 `json:"transferred_quantity"`
	TransferredWeight   float64 `json:"transferred_weight"`
	RemainingQuantity   float64 `json:"remaining_quantity"`
	RemainingWeight     float64 `json:"remaining_weight"`
	ChildrenCount       int     `json:"children_count"`
}

type TransferResult struct {
	ParentStepID      int     `json:"parent_step_id"`
	ParentStepStatus  string  `json:"parent_step_status"`
	ChildStepID       int     `json:"child_step_id"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	RemainingWeight   float64 `json:"remaining_weight"`
}

// DepartmentMetalStock is the transfer-scoped department balance, keyed by
// department and metal code. It is mutated only by manufacturing step
// creation and transfer, and is kept separate from DepartmentBalance.
type DepartmentMetalStock struct {
	ID           int       `json:"id" db:"id"`
	TenantID     int       `json:"tenant_id" db:"tenant_id"`
	DepartmentID int       `json:"department_id" db:"department_id"`
	MetalCode    string    `json:"metal_code" db:"metal_code"`
	BalanceGrams float64   `json:"balance_grams" db:"balance_grams"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
