package manufacturing

type CreateStepRequest struct {
	OrderID          int      `json:"order_id" binding:"required"`
	ParentStepID     *int     `json:"parent_step_id"`
	StepType         *string  `json:"step_type"`
	Description      *string  `json:"description"`
	Department       *string  `json:"department"`
	WorkerName       *string  `json:"worker_name"`
	QuantityReceived *float64 `json:"quantity_received" binding:"omitempty,gt=0"`
	QuantityReturned *float64 `json:"quantity_returned" binding:"omitempty,gte=0"`
	WeightReceived   *float64 `json:"weight_received" binding:"omitempty,gt=0"`
	WeightReturned   *float64 `json:"weight_returned" binding:"omitempty,gte=0"`
	Notes            *string  `json:"notes"`
}

type UpdateStepRequest struct {
	StepType         *string  `json:"step_type"`
	Description      *string  `json:"description"`
	Status           *string  `json:"status" binding:"omitempty,oneof=IN_PROGRESS COMPLETED FAILED"`
	Department       *string  `json:"department"`
	WorkerName       *string  `json:"worker_name"`
	TransferredBy    *string  `json:"transferred_by"`
	ReceivedBy       *string  `json:"received_by"`
	QuantityReceived *float64 `json:"quantity_received"`
	QuantityReturned *float64 `json:"quantity_returned"`
	WeightReceived   *float64 `json:"weight_received"`
	WeightReturned   *float64 `json:"weight_returned"`
	Notes            *string  `json:"notes"`
}

type TransferStepRequest struct {
	Quantity        float64 `json:"quantity" binding:"required"`
	Weight          float64 `json:"weight" binding:"required"`
	NextStepType    *string `json:"next_step_type"`
	NextDescription *string `json:"next_description"`
	Department      string  `json:"department" binding:"required"`
	ReceivedBy      string  `json:"received_by" binding:"required"`
}
