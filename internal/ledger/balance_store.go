package ledger

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"metalflow/internal/repository"
	"metalflow/pkg/models"
)

type balanceStore struct {
	repo *repository.Repository
}

func NewBalanceStore(r *repository.Repository) *balanceStore {
	return &balanceStore{repo: r}
}

// ApplyDelta adds a signed weight delta to the (department, metal) bucket,
// creating it when absent. The single upsert statement serializes concurrent
// writers on the bucket row, so two entries hitting the same bucket cannot
// lose an update.
func (s *balanceStore) ApplyDelta(tx *goqu.TxDatabase, tenantID, departmentID, metalID int, weightDelta float64) error {
	query := tx.Insert("department_balances").
		Rows(goqu.Record{
			"tenant_id":     tenantID,
			"department_id": departmentID,
			"metal_id":      metalID,
			"balance_grams": weightDelta,
		}).
		OnConflict(
			goqu.DoUpdate(
				"department_id, metal_id",
				goqu.Record{
					"balance_grams": goqu.L("department_balances.balance_grams + EXCLUDED.balance_grams"),
					"updated_at":    goqu.L("NOW()"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to apply balance delta for department %d metal %d: %w", departmentID, metalID, err)
	}

	return nil
}

func (s *balanceStore) GetBalance(tenantID, departmentID, metalID int) (*models.DepartmentBalance, error) {
	var balance models.DepartmentBalance
	query := s.repo.GoquDBWrapper.
		Select("id", "tenant_id", "department_id", "metal_id", "balance_grams", "created_at", "updated_at").
		From("department_balances").
		Where(goqu.Ex{
			"tenant_id":     tenantID,
			"department_id": departmentID,
			"metal_id":      metalID,
		})

	found, err := query.Executor().ScanStruct(&balance)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department balance: %w", err)
	}
	if !found {
		// Absent bucket reads as zero.
		return &models.DepartmentBalance{
			TenantID:     tenantID,
			DepartmentID: departmentID,
			MetalID:      metalID,
		}, nil
	}

	return &balance, nil
}

func (s *balanceStore) ListBalances(tenantID int, departmentID *int) ([]models.DepartmentBalance, error) {
	query := s.repo.GoquDBWrapper.
		Select("id", "tenant_id", "department_id", "metal_id", "balance_grams", "created_at", "updated_at").
		From("department_balances").
		Where(goqu.Ex{"tenant_id": tenantID})

	if departmentID != nil {
		query = query.Where(goqu.Ex{"department_id": *departmentID})
	}

	var balances []models.DepartmentBalance
	if err := query.Executor().ScanStructs(&balances); err != nil {
		return nil, fmt.Errorf("failed to list department balances: %w", err)
	}

	return balances, nil
}
