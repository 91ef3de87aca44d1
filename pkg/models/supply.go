package models

import "time"

const (
	SupplyTypeFineMetal = "FINE_METAL"
	SupplyTypeAlloy     = "ALLOY"
)

const (
	TransactionSafePurchase             = "SAFE_PURCHASE"
	TransactionCompanyDeposit           = "COMPANY_DEPOSIT"
	TransactionManufacturingConsumption = "MANUFACTURING_CONSUMPTION"
	TransactionSafeAdjustment           = "SAFE_ADJUSTMENT"
)

// SupplyBucket identifies a safe supply row. A metal-less bucket is only
// valid for alloy, so the invariant is carried by the constructors instead
// of a nullable foreign key scattered through the code.
type SupplyBucket struct {
	metalID *int
}

func FineMetalBucket(metalID int) SupplyBucket {
	return SupplyBucket{metalID: &metalID}
}

func AlloyBucket() SupplyBucket {
	return SupplyBucket{}
}

func (b SupplyBucket) SupplyType() string {
	if b.metalID == nil {
		return SupplyTypeAlloy
	}
	return SupplyTypeFineMetal
}

func (b SupplyBucket) MetalID() *int {
	return b.metalID
}

// SafeSupply is the manufacturer's own reserve of one bucket.
type SafeSupply struct {
	ID            int       `json:"id" db:"id"`
	TenantID      int       `json:"tenant_id" db:"tenant_id"`
	MetalID       *int      `json:"metal_id" db:"metal_id"`
	SupplyType    string    `json:"supply_type" db:"supply_type"`
	QuantityGrams float64   `json:"quantity_grams" db:"quantity_grams"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// SafeSupplyView is a safe supply row joined with its metal, for listings.
type SafeSupplyView struct {
	ID            int     `json:"id" db:"id"`
	MetalID       *int    `json:"metal_id" db:"metal_id"`
	SupplyType    string  `json:"supply_type" db:"supply_type"`
	MetalCode     *string `json:"metal_code" db:"metal_code"`
	MetalName     *string `json:"metal_name" db:"metal_name"`
	QuantityGrams float64 `json:"quantity_grams" db:"quantity_grams"`
}

// CompanyMetalBalance is customer-owned metal held in trust. It may go
// negative when consumption exceeds deposits.
type CompanyMetalBalance struct {
	ID           int       `json:"id" db:"id"`
	TenantID     int       `json:"tenant_id" db:"tenant_id"`
	CompanyID    int       `json:"company_id" db:"company_id"`
	MetalID      int       `json:"metal_id" db:"metal_id"`
	BalanceGrams float64   `json:"balance_grams" db:"balance_grams"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type CompanyMetalBalanceView struct {
	ID           int     `json:"id" db:"id"`
	MetalID      int     `json:"metal_id" db:"metal_id"`
	MetalCode    string  `json:"metal_code" db:"metal_code"`
	MetalName    string  `json:"metal_name" db:"metal_name"`
	BalanceGrams float64 `json:"balance_grams" db:"balance_grams"`
}

// MetalTransaction is the append-only audit row written alongside every
// balance mutation. Positive quantities are deposits/purchases, negative
// quantities are consumption.
type MetalTransaction struct {
	ID              int       `json:"id" db:"id"`
	TenantID        int       `json:"tenant_id" db:"tenant_id"`
	TransactionType string    `json:"transaction_type" db:"transaction_type"`
	MetalID         *int      `json:"metal_id" db:"metal_id"`
	CompanyID       *int      `json:"company_id" db:"company_id"`
	OrderID         *int      `json:"order_id" db:"order_id"`
	QuantityGrams   float64   `json:"quantity_grams" db:"quantity_grams"`
	Notes           *string   `json:"notes" db:"notes"`
	CreatedBy       int       `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type MetalTransactionView struct {
	ID              int       `json:"id" db:"id"`
	TransactionType string    `json:"transaction_type" db:"transaction_type"`
	MetalID         *int      `json:"metal_id" db:"metal_id"`
	MetalCode       *string   `json:"metal_code" db:"metal_code"`
	CompanyID       *int      `json:"company_id" db:"company_id"`
	OrderID         *int      `json:"order_id" db:"order_id"`
	QuantityGrams   float64   `json:"quantity_grams" db:"quantity_grams"`
	Notes           *string   `json:"notes" db:"notes"`
	CreatedBy       int       `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// CastingConsumptionResult reports the split and resulting balances of one
// casting consumption.
type CastingConsumptionResult struct {
	FineMetalGrams      float64 `json:"fine_metal_grams"`
	AlloyGrams          float64 `json:"alloy_grams"`
	MetalCode           string  `json:"metal_code"`
	CompanyID           int     `json:"company_id"`
	OrderID             int     `json:"order_id"`
	CompanyBalanceAfter float64 `json:"company_balance_after"`
	SafeFineMetalAfter  float64 `json:"safe_fine_metal_after"`
	SafeAlloyAfter      float64 `json:"safe_alloy_after"`
}
