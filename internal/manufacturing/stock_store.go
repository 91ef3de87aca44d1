package manufacturing

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

// StockStore mutates the transfer-scoped department balance buckets, keyed
// by department and metal code. This bucket family is independent from the
// ledger's department balances and is touched only by step creation and
// transfer.
type StockStore interface {
	AddWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error
	SubtractWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error
	ListStocks(tenantID int, departmentID *int) ([]models.DepartmentMetalStock, error)
}

type stockStore struct {
	repo *repository.Repository
}

func NewStockStore(r *repository.Repository) *stockStore {
	return &stockStore{repo: r}
}

var stockColumns = []any{
	"id", "tenant_id", "department_id", "metal_code", "balance_grams",
	"created_at", "updated_at",
}

// getForUpdate locks the bucket row, creating it at zero when absent, so
// concurrent movements against the same bucket serialize.
func (s *stockStore) getForUpdate(tx *goqu.TxDatabase, tenantID, departmentID int, metalCode string) (*models.DepartmentMetalStock, error) {
	var stock models.DepartmentMetalStock
	query := tx.
		Select(stockColumns...).
		From("department_metal_stocks").
		Where(goqu.Ex{
			"tenant_id":     tenantID,
			"department_id": departmentID,
			"metal_code":    metalCode,
		}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&stock)
	if err != nil {
		return nil, fmt.Errorf("failed to lock department stock: %w", err)
	}
	if found {
		return &stock, nil
	}

	stock = models.DepartmentMetalStock{
		TenantID:     tenantID,
		DepartmentID: departmentID,
		MetalCode:    metalCode,
	}
	insert := tx.Insert("department_metal_stocks").
		Rows(goqu.Record{
			"tenant_id":     tenantID,
			"department_id": departmentID,
			"metal_code":    metalCode,
			"balance_grams": 0,
		}).
		Returning("id")
	if _, err := insert.Executor().ScanVal(&stock.ID); err != nil {
		return nil, fmt.Errorf("failed to create department stock bucket: %w", err)
	}

	return &stock, nil
}

func (s *stockStore) setBalance(tx *goqu.TxDatabase, stockID int, grams float64) error {
	query := tx.Update("department_metal_stocks").
		Set(goqu.Record{
			"balance_grams": grams,
			"updated_at":    goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": stockID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update department stock %d: %w", stockID, err)
	}

	return nil
}

func (s *stockStore) AddWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error {
	stock, err := s.getForUpdate(tx, tenantID, department.ID, metalCode)
	if err != nil {
		return err
	}

	return s.setBalance(tx, stock.ID, stock.BalanceGrams+grams)
}

func (s *stockStore) SubtractWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error {
	stock, err := s.getForUpdate(tx, tenantID, department.ID, metalCode)
	if err != nil {
		return err
	}

	if stock.BalanceGrams < grams {
		return custom_error.NewValidationError(
			"Insufficient balance in %s. Available: %gg, Required: %gg",
			department.Name, stock.BalanceGrams, grams,
		)
	}

	return s.setBalance(tx, stock.ID, stock.BalanceGrams-grams)
}

func (s *stockStore) ListStocks(tenantID int, departmentID *int) ([]models.DepartmentMetalStock, error) {
	query := s.repo.GoquDBWrapper.
		Select(stockColumns...).
		From("department_metal_stocks").
		Where(goqu.Ex{"tenant_id": tenantID})

	if departmentID != nil {
		query = query.Where(goqu.Ex{"department_id": *departmentID})
	}

	var stocks []models.DepartmentMetalStock
	if err := query.Executor().ScanStructs(&stocks); err != nil {
		return nil, fmt.Errorf("failed to list department stocks: %w", err)
	}

	return stocks, nil
}
