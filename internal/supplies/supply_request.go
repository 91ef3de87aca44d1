package supplies

import "fmt"

type RecordPurchaseRequest struct {
	SupplyType    string  `json:"supply_type" binding:"required,oneof=FINE_METAL ALLOY"`
	MetalID       *int    `json:"metal_id"`
	QuantityGrams float64 `json:"quantity_grams" binding:"required,gt=0"`
	CostPerGram   float64 `json:"cost_per_gram" binding:"required,gt=0"`
	Notes         *string `json:"notes"`
}

type RecordDepositRequest struct {
	CompanyID     int     `json:"company_id" binding:"required"`
	MetalID       int     `json:"metal_id" binding:"required"`
	QuantityGrams float64 `json:"quantity_grams" binding:"required,gt=0"`
	Notes         *string `json:"notes"`
}

type CastingConsumptionRequest struct {
	OrderID int `json:"order_id" binding:"required"`
}

func formatConsumptionNote(fraction string, grams float64, orderNumber string) string {
	return fmt.Sprintf("Casting consumption: %.4fg %s for order %s", grams, fraction, orderNumber)
}
