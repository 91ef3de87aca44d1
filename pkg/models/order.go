package models

// Order is the read-only projection of an order consumed by the metal
// engine. Order lifecycle and CRUD live outside this service.
type Order struct {
	ID                   int      `json:"id" db:"id"`
	TenantID             int      `json:"tenant_id" db:"tenant_id"`
	OrderNumber          string   `json:"order_number" db:"order_number"`
	CompanyID            int      `json:"company_id" db:"company_id"`
	MetalID              *int     `json:"metal_id" db:"metal_id"`
	Quantity             int      `json:"quantity" db:"quantity"`
	TargetWeightPerPiece *float64 `json:"target_weight_per_piece" db:"target_weight_per_piece"`
}

type Department struct {
	ID       int    `json:"id" db:"id"`
	TenantID int    `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
}

type Company struct {
	ID       int    `json:"id" db:"id"`
	TenantID int    `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
}
