package models

import "time"

// Metal is a tenant-scoped metal type. Metals are never deleted, only
// deactivated; the average cost is maintained by safe purchases.
type Metal struct {
	ID                 int       `json:"id" db:"id"`
	TenantID           int       `json:"tenant_id" db:"tenant_id"`
	Code               string    `json:"code" db:"code"`
	Name               string    `json:"name" db:"name"`
	FinePercentage     float64   `json:"fine_percentage" db:"fine_percentage"`
	AverageCostPerGram *float64  `json:"average_cost_per_gram" db:"average_cost_per_gram"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
